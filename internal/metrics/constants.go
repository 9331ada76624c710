package metrics

// Metric names
const (
	MetricNameHTTPRequestsTotal    = "http_requests_total"
	MetricNameHTTPRequestDuration  = "http_request_duration_seconds"
	MetricNameHTTPRequestsInFlight = "http_requests_in_flight"

	MetricNameSettlementsTotal      = "settlements_total"
	MetricNameOutputCredited        = "settlement_output_credited_total"
	MetricNameTaxAccrued            = "settlement_tax_accrued_total"
	MetricNameGrainConsumed         = "settlement_grain_consumed_total"
	MetricNameGrainExhaustedPauses  = "settlement_grain_exhausted_pauses_total"
	MetricNameToolsBroken           = "tools_broken_total"
	MetricNameSynthesisAttempts     = "synthesis_attempts_total"
	MetricNameSynthesisSuccesses    = "synthesis_successes_total"
	MetricNameSessionsStarted       = "mining_sessions_started_total"
	MetricNameSessionsCompleted     = "mining_sessions_completed_total"
	MetricNameLockAcquisitionBusy   = "lock_acquisition_busy_total"
)

// Help texts
const (
	HelpTextHTTPRequestsTotal    = "Total number of HTTP requests processed"
	HelpTextHTTPRequestDuration  = "HTTP request latency in seconds"
	HelpTextHTTPRequestsInFlight = "Number of HTTP requests currently being served"

	HelpTextSettlementsTotal     = "Total number of settlement runs"
	HelpTextOutputCredited       = "Total user output credited by settlements"
	HelpTextTaxAccrued           = "Total tax accrued by settlements"
	HelpTextGrainConsumed        = "Total grain consumed by settlements"
	HelpTextGrainExhaustedPauses = "Sessions force-paused because grain ran out"
	HelpTextToolsBroken          = "Tools whose durability reached zero"
	HelpTextSynthesisAttempts    = "Synthesis units attempted"
	HelpTextSynthesisSuccesses   = "Synthesis units that succeeded"
	HelpTextSessionsStarted      = "Mining sessions started"
	HelpTextSessionsCompleted    = "Mining sessions completed"
	HelpTextLockAcquisitionBusy  = "Lock acquisitions that exhausted the retry budget"
)

// Label names
const (
	LabelMethod     = "method"
	LabelPath       = "path"
	LabelStatus     = "status"
	LabelResource   = "resource"
	LabelToolType   = "tool_type"
	LabelOutput     = "output"
	LabelMiningType = "mining_type"
	LabelTrigger    = "trigger"
)

// HTTPLatencyBuckets are the histogram buckets for request duration.
var HTTPLatencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
