package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/alejandrodnm/drawbot/internal/domain"
	"github.com/alejandrodnm/drawbot/internal/ports"
)

// Recorder implementa ports.Recorder con collectors de Prometheus registrados
// en un registry propio.
type Recorder struct {
	Registry *prometheus.Registry

	selections *prometheus.CounterVec
	failures   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	candidates *prometheus.GaugeVec
	warnings   prometheus.Counter
}

var _ ports.Recorder = (*Recorder)(nil)

// NewRecorder crea y registra los collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		Registry: prometheus.NewRegistry(),
		selections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "drawbot",
				Subsystem: "selection",
				Name:      "total",
				Help:      "Outcome selections by method and review flag.",
			},
			[]string{"method", "needs_review"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "drawbot",
				Subsystem: "selection",
				Name:      "failures_total",
				Help:      "Selections that ended in error, by kind.",
			},
			[]string{"kind"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "drawbot",
				Subsystem: "selection",
				Name:      "duration_seconds",
				Help:      "Wall time of one selection run.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms a ~4s
			},
			[]string{"method"},
		),
		candidates: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "drawbot",
				Subsystem: "selection",
				Name:      "candidates",
				Help:      "Candidates evaluated and passed in the last optimized run.",
			},
			[]string{"stage"},
		),
		warnings: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "drawbot",
				Subsystem: "selection",
				Name:      "partial_data_warnings_total",
				Help:      "Records skipped because their history could not be read.",
			},
		),
	}
	r.Registry.MustRegister(r.selections, r.failures, r.duration, r.candidates, r.warnings)
	return r
}

func (r *Recorder) RecordSelection(sel domain.Selection, elapsed time.Duration) {
	review := "false"
	if sel.NeedsReview() {
		review = "true"
	}
	method := string(sel.Method)
	r.selections.WithLabelValues(method, review).Inc()
	r.duration.WithLabelValues(method).Observe(elapsed.Seconds())

	if a := sel.Analysis; a != nil {
		r.warnings.Add(float64(len(a.Warnings)))
		if sel.Method == domain.MethodOptimized {
			r.candidates.WithLabelValues("evaluated").Set(float64(a.Evaluated))
			r.candidates.WithLabelValues("passed").Set(float64(a.Passed))
		}
	}
}

func (r *Recorder) RecordFailure(_ string, err error) {
	r.failures.WithLabelValues(failureKind(err)).Inc()
}

// failureKind reduce el error a una etiqueta de cardinalidad acotada.
func failureKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrEventCancelled):
		return "cancelled"
	case errors.Is(err, domain.ErrEmptyCatalog):
		return "empty_catalog"
	case errors.Is(err, domain.ErrMalformedRecord):
		return "malformed"
	case errors.Is(err, domain.ErrAlreadyResolved):
		return "already_resolved"
	case errors.Is(err, ports.ErrLockHeld):
		return "lock_held"
	default:
		return "other"
	}
}
