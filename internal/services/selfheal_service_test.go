package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-selfheal/internal/anomaly"
	"github.com/miradorstack/mirador-selfheal/internal/api"
	selfhealv1 "github.com/miradorstack/mirador-selfheal/internal/grpc/selfhealv1"
	"github.com/miradorstack/mirador-selfheal/internal/models"
)

type labelModel struct{ label int }

func (m labelModel) Predict([]float64) (int, error) { return m.label, nil }

type analyzerStub struct {
	end time.Time
	err error
}

func (a *analyzerStub) Analyze(_ context.Context, end time.Time) (models.LogSummary, error) {
	a.end = end
	if a.err != nil {
		return models.LogSummary{}, a.err
	}
	return models.LogSummary{Summary: "No significant error logs found."}, nil
}

type remediatorStub struct {
	req models.RemediationRequest
}

func (r *remediatorStub) Handle(_ context.Context, req models.RemediationRequest) models.RemediationResult {
	r.req = req
	return models.RemediationResult{Status: models.RemediationStatusCompleted, Message: fmt.Sprintf("handled %s", req.Action), Notified: true}
}

func dial(t *testing.T, service selfhealv1.SelfHealingServer) *grpc.ClientConn {
	t.Helper()
	conn, _ := dialServer(t, service)
	return conn
}

func dialServer(t *testing.T, service selfhealv1.SelfHealingServer) (*grpc.ClientConn, *api.Server) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	server := api.New(lis, time.Second, service)
	go func() { _ = server.Serve() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), server.DrainTimeout())
		defer cancel()
		server.Drain(ctx)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn, server
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("struct: %v", err)
	}
	return s
}

func TestScoreOverGRPC(t *testing.T) {
	scorer := anomaly.NewScorer(anomaly.StaticProvider{Model: labelModel{label: -1}}, anomaly.EventOptions{}, nil)
	client := selfhealv1.NewSelfHealingClient(dial(t, NewSelfHealService(nil, scorer, nil, nil)))

	resp, err := client.Score(context.Background(), mustStruct(t, map[string]any{"cpu_utilization": 97, "memory_usage": 45}))
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	m := resp.AsMap()
	if m["is_anomaly"] != true || m["cpu_utilization"] != 97.0 || m["memory_usage"] != 45.0 {
		t.Fatalf("unexpected verdict %v", m)
	}
}

func TestScoreErrorCodes(t *testing.T) {
	missing := anomaly.NewScorer(anomaly.StaticProvider{}, anomaly.EventOptions{}, nil)
	client := selfhealv1.NewSelfHealingClient(dial(t, NewSelfHealService(nil, missing, nil, nil)))

	_, err := client.Score(context.Background(), mustStruct(t, map[string]any{"cpu_utilization": 1, "memory_usage": 2}))
	if status.Code(err) != codes.Unavailable {
		t.Fatalf("expected Unavailable for missing model, got %v", err)
	}

	_, err = client.Score(context.Background(), mustStruct(t, map[string]any{"cpu_utilization": 1}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument for missing field, got %v", err)
	}
}

func TestScoreStatusPrefersModelUnavailable(t *testing.T) {
	stalled := fmt.Errorf("%w: %w", models.ErrModelUnavailable, context.DeadlineExceeded)
	if code := status.Code(scoreStatus(stalled)); code != codes.Unavailable {
		t.Fatalf("expected Unavailable for a stalled model load, got %v", code)
	}
	if code := status.Code(scoreStatus(context.DeadlineExceeded)); code != codes.DeadlineExceeded {
		t.Fatalf("expected DeadlineExceeded, got %v", code)
	}
	if code := status.Code(scoreStatus(models.ErrSchemaMismatch)); code != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", code)
	}
}

func TestAnalyzeLogsOverGRPC(t *testing.T) {
	analyzer := &analyzerStub{}
	client := selfhealv1.NewSelfHealingClient(dial(t, NewSelfHealService(nil, nil, analyzer, nil)))

	resp, err := client.AnalyzeLogs(context.Background(), mustStruct(t, map[string]any{"end_time": "2025-01-01T00:10:00Z"}))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if resp.AsMap()["summary"] != "No significant error logs found." {
		t.Fatalf("unexpected summary %v", resp.AsMap())
	}
	if !analyzer.end.Equal(time.Date(2025, 1, 1, 0, 10, 0, 0, time.UTC)) {
		t.Fatalf("unexpected window end %v", analyzer.end)
	}

	analyzer.err = errors.New("log query did not complete")
	_, err = client.AnalyzeLogs(context.Background(), &structpb.Struct{})
	if status.Code(err) != codes.Unavailable {
		t.Fatalf("expected Unavailable, got %v", err)
	}
}

func TestRemediateOverGRPC(t *testing.T) {
	remediator := &remediatorStub{}
	client := selfhealv1.NewSelfHealingClient(dial(t, NewSelfHealService(nil, nil, nil, remediator)))

	resp, err := client.Remediate(context.Background(), mustStruct(t, map[string]any{"action": "restart_service"}))
	if err != nil {
		t.Fatalf("remediate: %v", err)
	}
	if remediator.req.Action != "restart_service" {
		t.Fatalf("unexpected request %+v", remediator.req)
	}
	if resp.AsMap()["status"] != "Completed" {
		t.Fatalf("unexpected result %v", resp.AsMap())
	}
}

func TestMissingCollaboratorsAreFailedPrecondition(t *testing.T) {
	client := selfhealv1.NewSelfHealingClient(dial(t, NewSelfHealService(nil, nil, nil, nil)))

	if _, err := client.Score(context.Background(), &structpb.Struct{}); status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected FailedPrecondition, got %v", err)
	}
	if _, err := client.Remediate(context.Background(), &structpb.Struct{}); status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected FailedPrecondition, got %v", err)
	}
}

func TestHealthTracksModelReadiness(t *testing.T) {
	conn, server := dialServer(t, NewSelfHealService(nil, nil, nil, nil))
	client := healthpb.NewHealthClient(conn)
	check := func(service string) healthpb.HealthCheckResponse_ServingStatus {
		t.Helper()
		resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
		if err != nil {
			t.Fatalf("health %q: %v", service, err)
		}
		return resp.GetStatus()
	}

	if got := check(""); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("process health = %v, want SERVING", got)
	}
	if got := check(selfhealv1.ServiceName); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("service health before model load = %v, want NOT_SERVING", got)
	}

	server.SetModelReady(true)
	if got := check(selfhealv1.ServiceName); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("service health after model load = %v, want SERVING", got)
	}
}

func TestDrainStopsServeCleanly(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	server := api.New(lis, time.Second, NewSelfHealService(nil, nil, nil, nil))
	served := make(chan error, 1)
	go func() { served <- server.Serve() }()

	ctx, cancel := context.WithTimeout(context.Background(), server.DrainTimeout())
	defer cancel()
	if server.Drain(ctx) {
		t.Fatalf("idle server should drain without forcing")
	}
	select {
	case err := <-served:
		if err != nil {
			t.Fatalf("Serve after drain: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Serve did not return after drain")
	}
}
