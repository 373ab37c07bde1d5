// Package loganalyzer summarises recent error logs pulled from the log-query service.
package loganalyzer

import (
	"context"
	"fmt"
	"time"

	"github.com/miradorstack/mirador-selfheal/internal/models"
)

// Status is the lifecycle state of an asynchronous log query.
type Status string

// Query states reported by the log-query service.
const (
	StatusScheduled Status = "Scheduled"
	StatusRunning   Status = "Running"
	StatusComplete  Status = "Complete"
	StatusFailed    Status = "Failed"
	StatusCancelled Status = "Cancelled"
	StatusTimeout   Status = "Timeout"
	StatusUnknown   Status = "Unknown"
)

// Pending reports whether the query has not reached a terminal state.
func (s Status) Pending() bool {
	return s == StatusScheduled || s == StatusRunning
}

// Query describes a log search over a time window.
type Query struct {
	LogGroup    string
	Start       time.Time
	End         time.Time
	QueryString string
	Limit       int
}

// Result is a snapshot of a running or finished query.
type Result struct {
	Status  Status
	Matches []models.LogMatch
}

// Querier is the log-query collaborator. Queries run asynchronously: StartQuery
// returns an id that Results is polled with.
type Querier interface {
	StartQuery(ctx context.Context, q Query) (string, error)
	Results(ctx context.Context, queryID string) (Result, error)
}

// Stopper is implemented by queriers that can abandon a running query.
type Stopper interface {
	StopQuery(ctx context.Context, queryID string) error
}

// BuildQuery renders the search for messages matching pattern, newest first.
func BuildQuery(pattern string, limit int) string {
	return fmt.Sprintf("fields @timestamp, @message\n| filter @message like /%s/\n| sort @timestamp desc\n| limit %d",
		pattern, limit)
}
