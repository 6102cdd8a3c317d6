package observe

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/schmitthub/settle/pkg/check"
)

// Metrics records wait and retry activity as Prometheus metrics. Metric
// labels only take values from closed sets; predicate and operation labels
// are not recorded.
type Metrics struct {
	polls        *prometheus.CounterVec
	waits        *prometheus.CounterVec
	waitDuration *prometheus.HistogramVec
	retries      prometheus.Counter
	operations   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "settle",
			Name:      "predicate_evaluations_total",
			Help:      "Predicate evaluations performed by the polling engine.",
		}, []string{"result"}),
		waits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "settle",
			Name:      "waits_total",
			Help:      "Completed waits by outcome.",
		}, []string{"outcome"}),
		waitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "settle",
			Name:      "wait_duration_seconds",
			Help:      "Time spent in a wait before it returned.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"outcome"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "settle",
			Name:      "retry_attempts_failed_total",
			Help:      "Failed attempts that were followed by another attempt.",
		}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "settle",
			Name:      "retried_operations_total",
			Help:      "Operations run through the retry decorator by final status.",
		}, []string{"status"}),
	}

	for _, c := range []prometheus.Collector{m.polls, m.waits, m.waitDuration, m.retries, m.operations} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) OnPoll(_ context.Context, _ string, _ int, res check.PredicateResult) {
	result := "false"
	switch {
	case res.Result.Err() != nil:
		result = "error"
	case res.Satisfied():
		result = "true"
	}
	m.polls.WithLabelValues(result).Inc()
}

func (m *Metrics) OnWaitDone(_ context.Context, _ string, outcome Outcome, elapsed time.Duration, _ error) {
	m.waits.WithLabelValues(string(outcome)).Inc()
	m.waitDuration.WithLabelValues(string(outcome)).Observe(elapsed.Seconds())
}

func (m *Metrics) OnRetry(_ context.Context, _ string, _ int, _ error, _ time.Duration) {
	m.retries.Inc()
}

func (m *Metrics) OnRetryDone(_ context.Context, _ string, _ int, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.operations.WithLabelValues(status).Inc()
}
