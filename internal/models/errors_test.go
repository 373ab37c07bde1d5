package models

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("load: %w", ErrModelUnavailable), KindModelUnavailable},
		{fmt.Errorf("decode: %w", ErrSchemaMismatch), KindSchemaMismatch},
		{ErrDataUnavailable, KindDataUnavailable},
		{errors.New("boom"), KindInternal},
	}
	for _, tc := range cases {
		if got := ErrorKind(tc.err); got != tc.want {
			t.Fatalf("ErrorKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestSameSchema(t *testing.T) {
	if !SameSchema([]string{"cpu_utilization", "memory_usage"}) {
		t.Fatalf("expected schema to match")
	}
	if SameSchema([]string{"memory_usage", "cpu_utilization"}) {
		t.Fatalf("reordered schema must not match")
	}
	if SameSchema([]string{"cpu_utilization"}) {
		t.Fatalf("short schema must not match")
	}
}
