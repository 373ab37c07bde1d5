package lambda

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/mirador-selfheal/internal/anomaly"
	"github.com/miradorstack/mirador-selfheal/internal/models"
)

type fixedModel int

func (m fixedModel) Predict([]float64) (int, error) { return int(m), nil }

func TestAnomalyDetection(t *testing.T) {
	h := Handlers{Scorer: anomaly.NewScorer(anomaly.StaticProvider{Model: fixedModel(-1)}, anomaly.EventOptions{}, nil)}

	out, err := h.AnomalyDetection(context.Background(), json.RawMessage(`{"cpu_utilization": 95.5, "memory_usage": 60}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"is_anomaly": true, "cpu_utilization": 95.5, "memory_usage": 60.0}, out)

	out, err = h.AnomalyDetection(context.Background(), json.RawMessage(`{"memory_usage": 60}`))
	require.NoError(t, err)
	assert.Equal(t, models.KindSchemaMismatch, out["error_kind"])
}

func TestAnomalyDetectionWithoutModel(t *testing.T) {
	h := Handlers{Scorer: anomaly.NewScorer(anomaly.StaticProvider{}, anomaly.EventOptions{}, nil)}
	out, err := h.AnomalyDetection(context.Background(), json.RawMessage(`{"cpu_utilization": 1, "memory_usage": 2}`))
	require.NoError(t, err)
	assert.Equal(t, ModelNotLoadedMessage, out["error"])
	assert.Equal(t, models.KindModelUnavailable, out["error_kind"])
}

type analyzerFunc func(context.Context, time.Time) (models.LogSummary, error)

func (f analyzerFunc) Analyze(ctx context.Context, end time.Time) (models.LogSummary, error) {
	return f(ctx, end)
}

func TestLogAnalyzer(t *testing.T) {
	var gotEnd time.Time
	h := Handlers{Analyzer: analyzerFunc(func(_ context.Context, end time.Time) (models.LogSummary, error) {
		gotEnd = end
		return models.LogSummary{Summary: "No significant error logs found."}, nil
	})}

	out, err := h.LogAnalyzer(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"summary": "No significant error logs found."}, out)
	assert.True(t, gotEnd.IsZero())

	_, err = h.LogAnalyzer(context.Background(), json.RawMessage(`{"end_time": "2025-01-01 00:10:00"}`))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 10, 0, 0, time.UTC), gotEnd)

	out, err = h.LogAnalyzer(context.Background(), json.RawMessage(`{"end_time": "soon"}`))
	require.NoError(t, err)
	assert.Contains(t, out, "error")
}

type remediatorFunc func(context.Context, models.RemediationRequest) models.RemediationResult

func (f remediatorFunc) Handle(ctx context.Context, req models.RemediationRequest) models.RemediationResult {
	return f(ctx, req)
}

func TestRemediation(t *testing.T) {
	var got models.RemediationRequest
	h := Handlers{Remediator: remediatorFunc(func(_ context.Context, req models.RemediationRequest) models.RemediationResult {
		got = req
		return models.RemediationResult{Status: "Completed", Message: "done", CommandID: "cmd"}
	})}

	out, err := h.Remediation(context.Background(), json.RawMessage(`{"action": "restart_service"}`))
	require.NoError(t, err)
	assert.Equal(t, "restart_service", got.Action)
	assert.Equal(t, map[string]any{"status": "Completed", "message": "done"}, out)

	_, err = h.Remediation(context.Background(), json.RawMessage(`{"action": 5}`))
	require.NoError(t, err)
	assert.Equal(t, "", got.Action)
}
