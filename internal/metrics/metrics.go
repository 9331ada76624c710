package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameHTTPRequestsTotal,
			Help: HelpTextHTTPRequestsTotal,
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameHTTPRequestDuration,
			Help:    HelpTextHTTPRequestDuration,
			Buckets: HTTPLatencyBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameHTTPRequestsInFlight,
			Help: HelpTextHTTPRequestsInFlight,
		},
	)
)

// Settlement Metrics
var (
	SettlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameSettlementsTotal,
			Help: HelpTextSettlementsTotal,
		},
		[]string{LabelTrigger},
	)

	OutputCredited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameOutputCredited,
			Help: HelpTextOutputCredited,
		},
		[]string{LabelResource},
	)

	TaxAccrued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameTaxAccrued,
			Help: HelpTextTaxAccrued,
		},
	)

	GrainConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameGrainConsumed,
			Help: HelpTextGrainConsumed,
		},
	)

	GrainExhaustedPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameGrainExhaustedPauses,
			Help: HelpTextGrainExhaustedPauses,
		},
	)
)

// Tool and synthesis Metrics
var (
	ToolsBroken = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameToolsBroken,
			Help: HelpTextToolsBroken,
		},
		[]string{LabelToolType},
	)

	SynthesisAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameSynthesisAttempts,
			Help: HelpTextSynthesisAttempts,
		},
		[]string{LabelOutput},
	)

	SynthesisSuccesses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameSynthesisSuccesses,
			Help: HelpTextSynthesisSuccesses,
		},
		[]string{LabelOutput},
	)
)

// Session Metrics
var (
	SessionsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameSessionsStarted,
			Help: HelpTextSessionsStarted,
		},
		[]string{LabelMiningType},
	)

	SessionsCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameSessionsCompleted,
			Help: HelpTextSessionsCompleted,
		},
	)

	LockAcquisitionBusy = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameLockAcquisitionBusy,
			Help: HelpTextLockAcquisitionBusy,
		},
	)
)
