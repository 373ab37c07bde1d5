package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels operations that finished without error.
	OutcomeSuccess = "success"
	// OutcomeError labels failed operations (dependency or input issues).
	OutcomeError = "error"

	// VerdictAnomaly and VerdictNormal label scored vectors.
	VerdictAnomaly = "anomaly"
	VerdictNormal  = "normal"
)

const namespace = "selfheal"

var (
	scoresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scores_total",
			Help:      "Feature vectors scored, partitioned by verdict.",
		},
		[]string{"verdict"},
	)

	scoreErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "score_errors_total",
			Help:      "Scoring requests rejected, partitioned by error kind.",
		},
		[]string{"kind"},
	)

	scoreDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "score_seconds",
			Help:      "Scoring latency in seconds, excluding the first model load.",
			Buckets:   []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05},
		},
	)

	modelLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_loads_total",
			Help:      "Model artifact loads, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	modelLoadSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_load_seconds",
			Help:      "Model artifact fetch and decode latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	logQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_queries_total",
			Help:      "Log-analysis queries, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	logQuerySeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "log_query_seconds",
			Help:      "Log-analysis latency in seconds, polling included.",
			Buckets:   []float64{0.5, 1, 2, 4, 8, 15, 30, 60},
		},
	)

	remediationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remediations_total",
			Help:      "Remediation requests, partitioned by action and outcome.",
		},
		[]string{"action", "outcome"},
	)

	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Operator notifications, partitioned by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register attaches self-healing collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		scoresTotal,
		scoreErrorsTotal,
		scoreDurationSeconds,
		modelLoadsTotal,
		modelLoadSeconds,
		logQueriesTotal,
		logQuerySeconds,
		remediationsTotal,
		notificationsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveScore records a scoring latency and verdict.
func ObserveScore(duration time.Duration, anomalous bool) {
	verdict := VerdictNormal
	if anomalous {
		verdict = VerdictAnomaly
	}
	scoresTotal.WithLabelValues(verdict).Inc()
	scoreDurationSeconds.Observe(clamp(duration).Seconds())
}

// ObserveScoreError counts a rejected scoring request by taxonomy kind.
func ObserveScoreError(kind string) {
	scoreErrorsTotal.WithLabelValues(kind).Inc()
}

// ObserveModelLoad records a model load attempt.
func ObserveModelLoad(duration time.Duration, outcome string) {
	modelLoadsTotal.WithLabelValues(normalize(outcome)).Inc()
	modelLoadSeconds.Observe(clamp(duration).Seconds())
}

// ObserveLogQuery records a log-analysis run.
func ObserveLogQuery(duration time.Duration, outcome string) {
	logQueriesTotal.WithLabelValues(normalize(outcome)).Inc()
	logQuerySeconds.Observe(clamp(duration).Seconds())
}

// ObserveRemediation counts a remediation request.
func ObserveRemediation(action, outcome string) {
	remediationsTotal.WithLabelValues(action, normalize(outcome)).Inc()
}

// ObserveNotification counts a notification attempt.
func ObserveNotification(outcome string) {
	notificationsTotal.WithLabelValues(normalize(outcome)).Inc()
}

func normalize(outcome string) string {
	if outcome != OutcomeError {
		return OutcomeSuccess
	}
	return OutcomeError
}

func clamp(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
