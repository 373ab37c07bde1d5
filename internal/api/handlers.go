package api

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-selfheal/internal/models"
	"github.com/miradorstack/mirador-selfheal/internal/utils"
)

// FromProtoEvent renders the request struct as the JSON metric event the scorer decodes.
func FromProtoEvent(req *structpb.Struct) ([]byte, error) {
	if req == nil {
		return nil, fmt.Errorf("request is nil")
	}
	return req.MarshalJSON()
}

// ToProtoVerdict converts a verdict into its struct representation.
func ToProtoVerdict(v models.Verdict) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"is_anomaly":      structpb.NewBoolValue(v.IsAnomaly),
		"cpu_utilization": structpb.NewNumberValue(v.CPUUtilization),
		"memory_usage":    structpb.NewNumberValue(v.MemoryUsage),
	}}
}

// FromProtoLogRequest extracts the optional "end_time" (RFC3339 or "2006-01-02 15:04:05").
// A zero time means now.
func FromProtoLogRequest(req *structpb.Struct) (time.Time, error) {
	if req == nil {
		return time.Time{}, nil
	}
	v, ok := req.GetFields()["end_time"]
	if !ok {
		return time.Time{}, nil
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return time.Time{}, nil
	case *structpb.Value_StringValue:
		if kind.StringValue == "" {
			return time.Time{}, nil
		}
		return utils.ParseTimestamp(kind.StringValue)
	case *structpb.Value_NumberValue:
		return time.Unix(int64(kind.NumberValue), 0).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("end_time must be a timestamp string or unix seconds")
	}
}

// ToProtoLogSummary converts a log summary, including the matched lines.
func ToProtoLogSummary(s models.LogSummary) *structpb.Struct {
	matches := make([]*structpb.Value, 0, len(s.Matches))
	for _, m := range s.Matches {
		fields := map[string]*structpb.Value{"message": structpb.NewStringValue(m.Message)}
		if !m.Timestamp.IsZero() {
			fields["timestamp"] = structpb.NewStringValue(m.Timestamp.UTC().Format(time.RFC3339Nano))
		}
		matches = append(matches, structpb.NewStructValue(&structpb.Struct{Fields: fields}))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"summary": structpb.NewStringValue(s.Summary),
		"matches": structpb.NewListValue(&structpb.ListValue{Values: matches}),
	}}
}

// FromProtoRemediationRequest extracts the requested action. A missing action is passed
// through as empty so the handler can report it as unknown.
func FromProtoRemediationRequest(req *structpb.Struct) (models.RemediationRequest, error) {
	if req == nil {
		return models.RemediationRequest{}, fmt.Errorf("request is nil")
	}
	v, ok := req.GetFields()["action"]
	if !ok {
		return models.RemediationRequest{}, nil
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return models.RemediationRequest{Action: kind.StringValue}, nil
	case *structpb.Value_NullValue:
		return models.RemediationRequest{}, nil
	default:
		return models.RemediationRequest{}, fmt.Errorf("action must be a string")
	}
}

// ToProtoRemediationResult converts a remediation result.
func ToProtoRemediationResult(r models.RemediationResult) *structpb.Struct {
	fields := map[string]*structpb.Value{
		"status":   structpb.NewStringValue(r.Status),
		"message":  structpb.NewStringValue(r.Message),
		"notified": structpb.NewBoolValue(r.Notified),
	}
	if r.CommandID != "" {
		fields["command_id"] = structpb.NewStringValue(r.CommandID)
	}
	return &structpb.Struct{Fields: fields}
}
