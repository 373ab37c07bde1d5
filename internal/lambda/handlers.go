// Package lambda adapts the self-healing components to AWS Lambda events. Handlers
// never return a Go error: failures become structured payloads.
package lambda

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/miradorstack/mirador-selfheal/internal/models"
	"github.com/miradorstack/mirador-selfheal/internal/services"
	"github.com/miradorstack/mirador-selfheal/internal/utils"
)

// ModelNotLoadedMessage is reported when the serving path has no usable model.
const ModelNotLoadedMessage = "Model not loaded."

// Handlers exposes one Lambda entry point per component.
type Handlers struct {
	Scorer     services.EventScorer
	Analyzer   services.LogAnalyzer
	Remediator services.Remediator
	Logger     *slog.Logger
}

func (h Handlers) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

// AnomalyDetection scores a metric event.
func (h Handlers) AnomalyDetection(ctx context.Context, event json.RawMessage) (map[string]any, error) {
	if h.Scorer == nil {
		return errorPayload(models.ErrModelUnavailable), nil
	}
	verdict, err := h.Scorer.ScoreEvent(ctx, event)
	if err != nil {
		h.logger().Warn("anomaly detection failed", slog.String("error_kind", models.ErrorKind(err)), slog.Any("error", err))
		return errorPayload(err), nil
	}
	return map[string]any{
		"is_anomaly":      verdict.IsAnomaly,
		"cpu_utilization": verdict.CPUUtilization,
		"memory_usage":    verdict.MemoryUsage,
	}, nil
}

type logEvent struct {
	EndTime string `json:"end_time"`
}

// LogAnalyzer summarises error logs in the window before the event's optional
// end_time, or before now.
func (h Handlers) LogAnalyzer(ctx context.Context, event json.RawMessage) (map[string]any, error) {
	if h.Analyzer == nil {
		return map[string]any{"error": "log analyzer not configured", "error_kind": models.KindInternal}, nil
	}
	var end time.Time
	var in logEvent
	if len(event) > 0 && json.Unmarshal(event, &in) == nil && in.EndTime != "" {
		ts, err := utils.ParseTimestamp(in.EndTime)
		if err != nil {
			return map[string]any{"error": err.Error(), "error_kind": models.KindSchemaMismatch}, nil
		}
		end = ts
	}

	summary, err := h.Analyzer.Analyze(ctx, end)
	if err != nil {
		h.logger().Warn("log analysis failed", slog.Any("error", err))
		return map[string]any{"error": err.Error(), "error_kind": models.KindInternal}, nil
	}
	return map[string]any{"summary": summary.Summary}, nil
}

// Remediation runs the requested action and reports the outcome.
func (h Handlers) Remediation(ctx context.Context, event json.RawMessage) (map[string]any, error) {
	if h.Remediator == nil {
		return map[string]any{"error": "remediation not configured", "error_kind": models.KindInternal}, nil
	}
	var req models.RemediationRequest
	if len(event) > 0 {
		// A malformed event is treated as an unknown (empty) action.
		if err := json.Unmarshal(event, &req); err != nil {
			h.logger().Warn("remediation event not understood", slog.Any("error", err))
			req = models.RemediationRequest{}
		}
	}
	res := h.Remediator.Handle(ctx, req)
	return map[string]any{"status": res.Status, "message": res.Message}, nil
}

func errorPayload(err error) map[string]any {
	kind := models.ErrorKind(err)
	msg := err.Error()
	if errors.Is(err, models.ErrModelUnavailable) {
		msg = ModelNotLoadedMessage
	}
	return map[string]any{"error": msg, "error_kind": kind}
}
