package training

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/miradorstack/mirador-selfheal/internal/models"
	"github.com/miradorstack/mirador-selfheal/internal/utils"
)

const timestampColumn = "timestamp"

// LoadSamples reads a metrics CSV with a header row. Columns may come in any order
// and unknown columns are ignored. Every failure wraps models.ErrDataUnavailable.
func LoadSamples(path string) ([]models.MetricSample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, utils.WrapOp("open samples", path, fmt.Errorf("%w: %w", models.ErrDataUnavailable, err))
	}
	defer f.Close()

	samples, err := ReadSamples(f)
	if err != nil {
		return nil, utils.WrapOp("read samples", path, err)
	}
	return samples, nil
}

// ReadSamples parses CSV metric rows from r.
func ReadSamples(r io.Reader) ([]models.MetricSample, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty file: %w", models.ErrDataUnavailable)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w: %w", models.ErrDataUnavailable, err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	cpuCol, ok := cols[models.FeatureCPUUtilization]
	if !ok {
		return nil, fmt.Errorf("missing column %q: %w", models.FeatureCPUUtilization, models.ErrDataUnavailable)
	}
	memCol, ok := cols[models.FeatureMemoryUsage]
	if !ok {
		return nil, fmt.Errorf("missing column %q: %w", models.FeatureMemoryUsage, models.ErrDataUnavailable)
	}
	tsCol, hasTS := cols[timestampColumn]

	var samples []models.MetricSample
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: %w", line, models.ErrDataUnavailable, err)
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}

		var sample models.MetricSample
		if sample.CPUUtilization, err = numeric(record, cpuCol); err != nil {
			return nil, fmt.Errorf("line %d %s: %w", line, models.FeatureCPUUtilization, err)
		}
		if sample.MemoryUsage, err = numeric(record, memCol); err != nil {
			return nil, fmt.Errorf("line %d %s: %w", line, models.FeatureMemoryUsage, err)
		}
		if hasTS && tsCol < len(record) && strings.TrimSpace(record[tsCol]) != "" {
			ts, err := utils.ParseTimestamp(record[tsCol])
			if err != nil {
				return nil, fmt.Errorf("line %d %s: %w: %w", line, timestampColumn, models.ErrDataUnavailable, err)
			}
			sample.Timestamp = ts
		}
		samples = append(samples, sample)
	}

	if len(samples) == 0 {
		return nil, fmt.Errorf("no data rows: %w", models.ErrDataUnavailable)
	}
	return samples, nil
}

func numeric(record []string, col int) (float64, error) {
	if col >= len(record) {
		return 0, fmt.Errorf("value missing: %w", models.ErrDataUnavailable)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
	if err != nil {
		return 0, fmt.Errorf("value %q is not numeric: %w", record[col], models.ErrDataUnavailable)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("value %q is not finite: %w", record[col], models.ErrDataUnavailable)
	}
	return v, nil
}
