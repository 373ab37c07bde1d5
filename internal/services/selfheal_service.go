package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-selfheal/internal/api"
	selfhealv1 "github.com/miradorstack/mirador-selfheal/internal/grpc/selfhealv1"
	"github.com/miradorstack/mirador-selfheal/internal/models"
	"github.com/miradorstack/mirador-selfheal/internal/utils"
)

// EventScorer turns raw metric events into verdicts.
type EventScorer interface {
	ScoreEvent(ctx context.Context, raw []byte) (models.Verdict, error)
}

// LogAnalyzer summarises error logs in the window ending at end.
type LogAnalyzer interface {
	Analyze(ctx context.Context, end time.Time) (models.LogSummary, error)
}

// Remediator runs remediation requests.
type Remediator interface {
	Handle(ctx context.Context, req models.RemediationRequest) models.RemediationResult
}

// SelfHealService implements the gRPC SelfHealing service. Each collaborator is
// optional; methods whose collaborator is missing report FailedPrecondition.
type SelfHealService struct {
	selfhealv1.UnimplementedSelfHealingServer

	logger     *slog.Logger
	scorer     EventScorer
	analyzer   LogAnalyzer
	remediator Remediator
	latencies  *utils.LatencyTracker
}

// NewSelfHealService constructs the service facade.
func NewSelfHealService(logger *slog.Logger, scorer EventScorer, analyzer LogAnalyzer, remediator Remediator) *SelfHealService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SelfHealService{
		logger:     logger,
		scorer:     scorer,
		analyzer:   analyzer,
		remediator: remediator,
		latencies:  utils.NewLatencyTracker(1024),
	}
}

// Score labels a metric event.
func (s *SelfHealService) Score(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	if s.scorer == nil {
		return nil, status.Error(codes.FailedPrecondition, "scorer not configured")
	}

	raw, err := api.FromProtoEvent(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	start := time.Now()
	verdict, err := s.scorer.ScoreEvent(ctx, raw)
	if err != nil {
		return nil, scoreStatus(err)
	}
	s.latencies.Observe(time.Since(start))
	if total := s.latencies.Total(); total%100 == 0 {
		s.logger.Info("score latency", slog.Duration("p95", s.latencies.Percentile(95)), slog.Uint64("samples", total))
	}
	return api.ToProtoVerdict(verdict), nil
}

// AnalyzeLogs summarises recent error logs.
func (s *SelfHealService) AnalyzeLogs(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.analyzer == nil {
		return nil, status.Error(codes.FailedPrecondition, "log analyzer not configured")
	}
	end, err := api.FromProtoLogRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	summary, err := s.analyzer.Analyze(ctx, end)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, status.FromContextError(err).Err()
		}
		return nil, status.Error(codes.Unavailable, fmt.Sprintf("log analysis failed: %v", err))
	}
	return api.ToProtoLogSummary(summary), nil
}

// Remediate runs the requested action.
func (s *SelfHealService) Remediate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.remediator == nil {
		return nil, status.Error(codes.FailedPrecondition, "remediation not configured")
	}
	domainReq, err := api.FromProtoRemediationRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return api.ToProtoRemediationResult(s.remediator.Handle(ctx, domainReq)), nil
}

// LatencyP95 returns the current p95 scoring latency.
func (s *SelfHealService) LatencyP95() time.Duration {
	if s.latencies == nil {
		return 0
	}
	return s.latencies.Percentile(95)
}

// scoreStatus maps a scoring error to a gRPC status. A model that is not yet
// available stays Unavailable even when a deadline ended the wait.
func scoreStatus(err error) error {
	kind := models.ErrorKind(err)
	code := codes.Internal
	switch {
	case kind == models.KindModelUnavailable:
		code = codes.Unavailable
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	case kind == models.KindSchemaMismatch:
		code = codes.InvalidArgument
	}
	return status.Error(code, fmt.Sprintf("%s: %v", kind, err))
}
