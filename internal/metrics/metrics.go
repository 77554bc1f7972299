package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Station holds the scanning station's Prometheus metrics. A nil *Station is valid and
// records nothing.
type Station struct {
	ScansReceived      *prometheus.CounterVec
	ScansDropped       *prometheus.CounterVec
	Outcomes           *prometheus.CounterVec
	OutcomesDiscarded  prometheus.Counter
	ResolutionDuration prometheus.Histogram
}

// NewStation creates and registers station metrics on reg.
func NewStation(reg prometheus.Registerer) *Station {
	f := promauto.With(reg)
	return &Station{
		ScansReceived: f.NewCounterVec(prometheus.CounterOpts{
			Name: "checkin_scans_received_total",
			Help: "Scan events produced by the input sources",
		}, []string{"source"}),
		ScansDropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "checkin_scans_dropped_total",
			Help: "Scan events dropped before resolution",
		}, []string{"reason"}),
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "checkin_outcomes_total",
			Help: "Resolved scan outcomes by kind",
		}, []string{"kind"}),
		OutcomesDiscarded: f.NewCounter(prometheus.CounterOpts{
			Name: "checkin_outcomes_discarded_total",
			Help: "Outcomes that completed after the session had moved on",
		}),
		ResolutionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "checkin_resolution_duration_seconds",
			Help:    "Time spent resolving a scan against the ledger",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Station) ScanReceived(source string) {
	if m == nil {
		return
	}
	m.ScansReceived.WithLabelValues(source).Inc()
}

func (m *Station) ScanDropped(reason string) {
	if m == nil {
		return
	}
	m.ScansDropped.WithLabelValues(reason).Inc()
}

func (m *Station) Outcome(kind string, seconds float64) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(kind).Inc()
	m.ResolutionDuration.Observe(seconds)
}

func (m *Station) OutcomeDiscarded() {
	if m == nil {
		return
	}
	m.OutcomesDiscarded.Inc()
}

// Ledger holds the ledger server's Prometheus metrics.
type Ledger struct {
	Checks *prometheus.CounterVec
	Marks  *prometheus.CounterVec
}

// NewLedger creates and registers ledger metrics on reg.
func NewLedger(reg prometheus.Registerer) *Ledger {
	f := promauto.With(reg)
	return &Ledger{
		Checks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "checkin_ledger_checks_total",
			Help: "Attendance status lookups by result",
		}, []string{"result"}),
		Marks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "checkin_ledger_marks_total",
			Help: "Attendance mark requests by category and result",
		}, []string{"category", "result"}),
	}
}

func (m *Ledger) Check(result string) {
	if m == nil {
		return
	}
	m.Checks.WithLabelValues(result).Inc()
}

func (m *Ledger) Mark(category, result string) {
	if m == nil {
		return
	}
	m.Marks.WithLabelValues(category, result).Inc()
}
