package selfhealv1

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

type echoServer struct {
	UnimplementedSelfHealingServer
	called string
}

func (e *echoServer) Score(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	e.called = "Score"
	return in, nil
}

func (e *echoServer) AnalyzeLogs(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	e.called = "AnalyzeLogs"
	return in, nil
}

func (e *echoServer) Remediate(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	e.called = "Remediate"
	return in, nil
}

func decodeInto(src *structpb.Struct) func(any) error {
	return func(dst any) error {
		out, ok := dst.(*structpb.Struct)
		if !ok {
			return errors.New("unexpected request type")
		}
		out.Fields = src.Fields
		return nil
	}
}

func TestServiceDescDispatchesEachMethod(t *testing.T) {
	req, err := structpb.NewStruct(map[string]any{"cpu_utilization": 91.0})
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	for _, m := range SelfHealing_ServiceDesc.Methods {
		srv := &echoServer{}
		out, err := m.Handler(srv, context.Background(), decodeInto(req), nil)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", m.MethodName, err)
		}
		if srv.called != m.MethodName {
			t.Fatalf("%s dispatched to %q", m.MethodName, srv.called)
		}
		got := out.(*structpb.Struct).GetFields()["cpu_utilization"].GetNumberValue()
		if got != 91 {
			t.Fatalf("%s: echoed cpu_utilization = %v", m.MethodName, got)
		}
	}
}

func TestServiceDescRunsInterceptorWithFullMethod(t *testing.T) {
	want := map[string]string{
		"Score":       SelfHealing_Score_FullMethodName,
		"AnalyzeLogs": SelfHealing_AnalyzeLogs_FullMethodName,
		"Remediate":   SelfHealing_Remediate_FullMethodName,
	}
	for _, m := range SelfHealing_ServiceDesc.Methods {
		var seen string
		interceptor := func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
			seen = info.FullMethod
			return handler(ctx, req)
		}
		srv := &echoServer{}
		if _, err := m.Handler(srv, context.Background(), decodeInto(&structpb.Struct{}), interceptor); err != nil {
			t.Fatalf("%s: unexpected error %v", m.MethodName, err)
		}
		if seen != want[m.MethodName] {
			t.Fatalf("%s: interceptor saw %q, want %q", m.MethodName, seen, want[m.MethodName])
		}
		if srv.called != m.MethodName {
			t.Fatalf("%s dispatched to %q", m.MethodName, srv.called)
		}
	}
}

func TestServiceDescReturnsDecodeError(t *testing.T) {
	boom := errors.New("bad frame")
	for _, m := range SelfHealing_ServiceDesc.Methods {
		srv := &echoServer{}
		_, err := m.Handler(srv, context.Background(), func(any) error { return boom }, nil)
		if !errors.Is(err, boom) {
			t.Fatalf("%s: got %v, want decode error", m.MethodName, err)
		}
		if srv.called != "" {
			t.Fatalf("%s: server called despite decode failure", m.MethodName)
		}
	}
}
