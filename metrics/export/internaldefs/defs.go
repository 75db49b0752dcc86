package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// Series is one member of a counter family. Value is the label value and is
// empty for a family without a label.
type Series struct {
	ID    goSession.MetricID
	Value string
}

// CounterFamily is a set of engine counters exported under one name. Members
// differ only by the value of Label.
type CounterFamily struct {
	Name   string
	Help   string
	Label  string
	Series []Series
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// CounterFamilies lists every exported counter family in exposition order.
// Every engine counter belongs to exactly one family.
var CounterFamilies = []CounterFamily{
	{
		Name:   "gosession_session_issued_total",
		Help:   "Session tokens issued.",
		Series: []Series{{ID: goSession.MetricSessionIssued}},
	},
	{
		Name:  "gosession_token_decode_total",
		Help:  "Bearer tokens presented for decoding, by outcome.",
		Label: "result",
		Series: []Series{
			{ID: goSession.MetricTokenDecoded, Value: "ok"},
			{ID: goSession.MetricTokenInvalid, Value: "invalid"},
			{ID: goSession.MetricTokenExpired, Value: "expired"},
		},
	},
	{
		Name:  "gosession_rate_limited_total",
		Help:  "Issuance attempts rejected by the rate limiter, by the dimension that tripped.",
		Label: "dimension",
		Series: []Series{
			{ID: goSession.MetricRateLimitedIP, Value: "ip"},
			{ID: goSession.MetricRateLimitedInstall, Value: "install_id"},
		},
	},
	{
		Name:   "gosession_rate_limiter_unavailable_total",
		Help:   "Issuance attempts refused because the rate limiter backend failed.",
		Series: []Series{{ID: goSession.MetricRateLimiterUnavailable}},
	},
}

// AuditDroppedName and AuditDroppedHelp describe the audit backpressure
// counter, which is read from the dispatcher rather than the engine counters.
const (
	AuditDroppedName = "gosession_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped by dispatcher backpressure."
)

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricDecodeLatency, Name: "gosession_decode_latency_seconds", Help: "Token decode latency histogram."},
}

// HistogramBounds are the bucket upper bounds in seconds, matching the engine
// buckets of 10µs through 1ms.
var HistogramBounds = []string{
	"0.00001",
	"0.000025",
	"0.00005",
	"0.0001",
	"0.00025",
	"0.0005",
	"0.001",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds rendered for instrument names.
var HistogramBoundSuffix = []string{
	"0_00001",
	"0_000025",
	"0_00005",
	"0_0001",
	"0_00025",
	"0_0005",
	"0_001",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array, zero filling
// missing buckets and ignoring extras.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
