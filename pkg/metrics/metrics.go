// Package metrics records schedule generation metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Generation results
const (
	ResultSuccess    = "success"
	ResultInfeasible = "infeasible"
	ResultInvalid    = "invalid"
	ResultError      = "error"
)

// Recorder receives schedule generation events
type Recorder interface {
	// RecordGeneration records one generate run with its result, attempts used and duration
	RecordGeneration(result string, attempts int, seconds float64)

	// RecordWarning counts a relaxation or displacement tag on a generated day
	RecordWarning(tag string)

	// SetSingleDays sets the number of single-coverage days in the latest schedule
	SetSingleDays(count int)
}

// Nop discards every event
type Nop struct{}

var _ Recorder = Nop{}

func (Nop) RecordGeneration(_ string, _ int, _ float64) {}

func (Nop) RecordWarning(_ string) {}

func (Nop) SetSingleDays(_ int) {}

// Prometheus is a Recorder backed by Prometheus collectors.
// Collectors are created and registered on first use.
type Prometheus struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	runs       *prometheus.CounterVec
	attempts   prometheus.Histogram
	duration   prometheus.Histogram
	warnings   *prometheus.CounterVec
	singleDays prometheus.Gauge
}

var _ Recorder = (*Prometheus)(nil)

// NewPrometheus creates a Prometheus recorder.
// reg defaults to prometheus.DefaultRegisterer and namespace to "oncall".
func NewPrometheus(reg prometheus.Registerer, namespace string) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "oncall"
	}

	return &Prometheus{reg: reg, namespace: namespace}
}

func (p *Prometheus) ensureRegistered() {
	p.once.Do(func() {
		p.runs = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "scheduler",
			Name:      "runs_total",
			Help:      "Total schedule generation runs by result (success,infeasible,invalid,error).",
		}, []string{"result"})

		p.attempts = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "scheduler",
			Name:      "attempts",
			Help:      "Monte Carlo attempts used per generation run.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8), // 1 .. 16384
		})

		p.duration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "scheduler",
			Name:      "run_duration_seconds",
			Help:      "Duration of schedule generation runs in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		})

		p.warnings = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "scheduler",
			Name:      "day_warnings_total",
			Help:      "Total tagged days in generated schedules by tag.",
		}, []string{"tag"})

		p.singleDays = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "scheduler",
			Name:      "single_days",
			Help:      "Single-coverage days in the most recently generated schedule.",
		})

		p.reg.MustRegister(p.runs)
		p.reg.MustRegister(p.attempts)
		p.reg.MustRegister(p.duration)
		p.reg.MustRegister(p.warnings)
		p.reg.MustRegister(p.singleDays)
	})
}

// RecordGeneration counts the run and, for runs that searched, observes attempts and duration
func (p *Prometheus) RecordGeneration(result string, attempts int, seconds float64) {
	p.ensureRegistered()
	p.runs.WithLabelValues(result).Inc()
	if attempts > 0 {
		p.attempts.Observe(float64(attempts))
	}
	p.duration.Observe(seconds)
}

// RecordWarning increments the counter for the tag
func (p *Prometheus) RecordWarning(tag string) {
	p.ensureRegistered()
	p.warnings.WithLabelValues(tag).Inc()
}

// SetSingleDays sets the single-day gauge
func (p *Prometheus) SetSingleDays(count int) {
	p.ensureRegistered()
	p.singleDays.Set(float64(count))
}
