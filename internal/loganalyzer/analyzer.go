package loganalyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/miradorstack/mirador-selfheal/internal/metrics"
	"github.com/miradorstack/mirador-selfheal/internal/models"
	"github.com/miradorstack/mirador-selfheal/internal/retry"
	"github.com/miradorstack/mirador-selfheal/internal/utils"
)

// Defaults applied when Options fields are left zero.
const (
	DefaultWindow  = 5 * time.Minute
	DefaultPattern = `(?i)(error|failed|exception|timeout)`
	DefaultLimit   = 20
)

// NoErrorsSummary is reported when the window contains no matching logs.
const NoErrorsSummary = "No significant error logs found."

// ErrQueryFailed is returned when the log-query service ends a query unsuccessfully.
var ErrQueryFailed = errors.New("log query did not complete")

// Options configures an Analyzer.
type Options struct {
	LogGroup string
	Window   time.Duration
	Pattern  string
	Limit    int
	Poll     retry.Policy
	Logger   *slog.Logger
}

// Analyzer looks for error logs in the window preceding a point in time.
type Analyzer struct {
	querier Querier
	opts    Options
	logger  *slog.Logger
	now     func() time.Time
}

// NewAnalyzer constructs an Analyzer over querier.
func NewAnalyzer(querier Querier, opts Options) (*Analyzer, error) {
	if querier == nil {
		return nil, errors.New("log querier is required")
	}
	if opts.LogGroup == "" {
		return nil, errors.New("log group is required")
	}
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.Pattern == "" {
		opts.Pattern = DefaultPattern
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		querier: querier,
		opts:    opts,
		logger:  logger.With(slog.String("log_group", opts.LogGroup)),
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// Analyze queries the window ending at end (now when zero) and summarises the matches.
func (a *Analyzer) Analyze(ctx context.Context, end time.Time) (models.LogSummary, error) {
	start := time.Now()
	summary, err := a.analyze(ctx, end)
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
		a.logger.Error("log analysis failed", slog.Any("error", err))
	}
	metrics.ObserveLogQuery(time.Since(start), outcome)
	return summary, err
}

func (a *Analyzer) analyze(ctx context.Context, end time.Time) (models.LogSummary, error) {
	if end.IsZero() {
		end = a.now()
	}
	from, to := utils.WindowEndingAt(end, a.opts.Window)

	queryID, err := a.querier.StartQuery(ctx, Query{
		LogGroup:    a.opts.LogGroup,
		Start:       from,
		End:         to,
		QueryString: BuildQuery(a.opts.Pattern, a.opts.Limit),
		Limit:       a.opts.Limit,
	})
	if err != nil {
		return models.LogSummary{}, err
	}
	a.logger.Debug("log query started", slog.String("query_id", queryID),
		slog.Time("from", from), slog.Time("to", to))

	var result Result
	err = retry.Poll(ctx, a.opts.Poll, func(ctx context.Context) (bool, error) {
		res, err := a.querier.Results(ctx, queryID)
		if err != nil {
			return false, err
		}
		result = res
		return !res.Status.Pending(), nil
	})
	if err != nil {
		if errors.Is(err, retry.ErrTimeout) {
			a.stop(queryID)
		}
		return models.LogSummary{}, fmt.Errorf("wait for log query %s: %w", queryID, err)
	}
	if result.Status != StatusComplete {
		return models.LogSummary{}, fmt.Errorf("log query %s ended %s: %w", queryID, result.Status, ErrQueryFailed)
	}

	return models.LogSummary{Summary: Summarize(result.Matches), Matches: result.Matches}, nil
}

func (a *Analyzer) stop(queryID string) {
	stopper, ok := a.querier.(Stopper)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := stopper.StopQuery(ctx, queryID); err != nil {
		a.logger.Warn("stop log query failed", slog.String("query_id", queryID), slog.Any("error", err))
	}
}

// Summarize renders the operator-facing summary for matches, newest first.
func Summarize(matches []models.LogMatch) string {
	if len(matches) == 0 {
		return NoErrorsSummary
	}
	return fmt.Sprintf("Found %d potential error(s). First log: '%s'", len(matches), matches[0].Message)
}
