package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/CSroseX/blocking-api-server/internal/blocking"
)

// Result label values for blocking_operations_total.
const (
	ResultCompleted   = "completed"
	ResultFallback    = "fallback"
	ResultInterrupted = "interrupted"
)

var durationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 10, 30}

// BlockingMetrics records simulator outcomes. It implements blocking.Recorder.
type BlockingMetrics struct {
	operations *prometheus.CounterVec
	target     *prometheus.HistogramVec
	elapsed    *prometheus.HistogramVec
}

// NewBlockingMetrics registers the blocking collectors on reg.
func NewBlockingMetrics(reg prometheus.Registerer) *BlockingMetrics {
	factory := promauto.With(reg)
	return &BlockingMetrics{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "blocking_operations_total",
			Help: "Blocking operations performed, by requested and executed type and result.",
		}, []string{"requested", "executed", "result"}),
		target: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "blocking_target_duration_seconds",
			Help:    "Drawn target duration of blocking operations.",
			Buckets: durationBuckets,
		}, []string{"executed"}),
		elapsed: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "blocking_elapsed_seconds",
			Help:    "Wall-clock time spent blocking.",
			Buckets: durationBuckets,
		}, []string{"executed"}),
	}
}

func (m *BlockingMetrics) RecordOperation(o blocking.Outcome) {
	executed := o.Executed.String()
	m.operations.WithLabelValues(o.Operation.String(), executed, Result(o)).Inc()
	m.target.WithLabelValues(executed).Observe(o.Duration.Seconds())
	m.elapsed.WithLabelValues(executed).Observe(o.Elapsed.Seconds())
}

// Result classifies an outcome for labelling. Interruption wins over fallback.
func Result(o blocking.Outcome) string {
	switch {
	case o.Interrupted:
		return ResultInterrupted
	case o.Fallback:
		return ResultFallback
	default:
		return ResultCompleted
	}
}
