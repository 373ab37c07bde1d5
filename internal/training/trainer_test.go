package training

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/mirador-selfheal/internal/forest"
	"github.com/miradorstack/mirador-selfheal/internal/models"
)

// writeHistory writes a metrics CSV shaped like a quiet host with a CPU spike at
// rows 200-209 and a memory spike at rows 500-504.
func writeHistory(t *testing.T, dir string) string {
	t.Helper()
	rng := rand.New(rand.NewSource(42))
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	var b strings.Builder
	b.WriteString("timestamp,cpu_utilization,memory_usage\n")
	for i := 0; i < 1000; i++ {
		cpu := 20 + 5*rng.NormFloat64()
		mem := 40 + 8*rng.NormFloat64()
		if i >= 200 && i < 210 {
			cpu = 90 + 3*rng.NormFloat64()
		}
		if i >= 500 && i < 505 {
			mem = 95 + 2*rng.NormFloat64()
		}
		ts := start.Add(time.Duration(i) * 5 * time.Minute)
		fmt.Fprintf(&b, "%s,%.4f,%.4f\n", ts.Format("2006-01-02 15:04:05"), cpu, mem)
	}
	path := filepath.Join(dir, "sample_metrics.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func decodeArtifact(t *testing.T, path string) *forest.Forest {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	f, err := forest.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return f
}

func TestTrainWritesUsableArtifact(t *testing.T) {
	data := writeHistory(t, t.TempDir())
	out := filepath.Join(t.TempDir(), "trained_models")

	path, err := Train(context.Background(), data, out)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, ArtifactName), path)

	model := decodeArtifact(t, path)
	assert.Equal(t, models.FeatureNames, model.Features())
	assert.Equal(t, 1000, model.TrainedOn())

	spike, err := model.Predict([]float64{75, 40})
	require.NoError(t, err)
	assert.Equal(t, forest.Outlier, spike)

	normal, err := model.Predict([]float64{20, 40})
	require.NoError(t, err)
	assert.Equal(t, forest.Inlier, normal)
}

func TestTrainIsDeterministic(t *testing.T) {
	data := writeHistory(t, t.TempDir())
	first := decodeArtifact(t, mustTrain(t, data, t.TempDir()))
	second := decodeArtifact(t, mustTrain(t, data, t.TempDir()))

	points := [][]float64{{20, 40}, {35, 55}, {60, 60}, {90, 40}, {22, 95}}
	for _, p := range points {
		a, err := first.Score(p)
		require.NoError(t, err)
		b, err := second.Score(p)
		require.NoError(t, err)
		assert.Equal(t, a, b, "score for %v", p)
	}
}

func mustTrain(t *testing.T, data, out string) string {
	t.Helper()
	path, err := Train(context.Background(), data, out)
	require.NoError(t, err)
	return path
}

func TestTrainWithoutDataWritesNothing(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "trained_models")

	cases := map[string]string{
		"missing file":   filepath.Join(dir, "absent.csv"),
		"missing column": writeFile(t, dir, "nomem.csv", "timestamp,cpu_utilization\n2025-01-01 00:00:00,12\n"),
		"non numeric":    writeFile(t, dir, "bad.csv", "cpu_utilization,memory_usage\n12,abc\n"),
		"header only":    writeFile(t, dir, "empty.csv", "timestamp,cpu_utilization,memory_usage\n"),
		"empty file":     writeFile(t, dir, "blank.csv", ""),
		"bad timestamp":  writeFile(t, dir, "ts.csv", "timestamp,cpu_utilization,memory_usage\nyesterday,1,2\n"),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Train(context.Background(), data, out)
			require.ErrorIs(t, err, models.ErrDataUnavailable)
			assert.Equal(t, models.KindDataUnavailable, models.ErrorKind(err))
			_, statErr := os.Stat(out)
			assert.True(t, errors.Is(statErr, os.ErrNotExist), "output directory must not be created")
		})
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

type recordingPublisher struct {
	key  string
	data []byte
}

func (p *recordingPublisher) Put(_ context.Context, key string, data []byte) error {
	p.key = key
	p.data = append([]byte(nil), data...)
	return nil
}

func TestTrainerPublishesArtifact(t *testing.T) {
	data := writeHistory(t, t.TempDir())
	pub := &recordingPublisher{}
	trainer := NewTrainer(nil,
		WithParams(forest.Params{Estimators: 10, MaxSamples: 64, Seed: 1}),
		WithPublisher(pub, "models/isolation_forest_model.json"))

	path, err := trainer.Train(context.Background(), data, t.TempDir())
	require.NoError(t, err)

	local, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "models/isolation_forest_model.json", pub.key)
	assert.Equal(t, local, pub.data)

	model := decodeArtifact(t, path)
	assert.Equal(t, 10, model.Params().Estimators)
	assert.Equal(t, models.FeatureNames, model.Features())
}

func TestReadSamplesColumnOrderAndExtras(t *testing.T) {
	samples, err := ReadSamples(strings.NewReader(
		"host,memory_usage,timestamp,cpu_utilization\n" +
			"web-1,41.5,2025-01-01T00:05:00Z,19.25\n" +
			"web-1,39,,21\n"))
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, 19.25, samples[0].CPUUtilization)
	assert.Equal(t, 41.5, samples[0].MemoryUsage)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 5, 0, 0, time.UTC), samples[0].Timestamp)
	assert.True(t, samples[1].Timestamp.IsZero())
}
