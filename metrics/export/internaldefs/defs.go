package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef defines a public type used by goSession APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by goSession APIs.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter of audit events lost to backpressure.
const AuditDroppedName = "gosession_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goSession.MetricLoginSuccess, Name: "gosession_login_success_total", Help: "Logins that installed a credential."},
	{ID: goSession.MetricLoginFailure, Name: "gosession_login_failure_total", Help: "Logins rejected by the endpoint or the token validator."},
	{ID: goSession.MetricLogout, Name: "gosession_logout_total", Help: "Domain logouts, including displacement and failed refreshes."},
	{ID: goSession.MetricLogoutAll, Name: "gosession_logout_all_total", Help: "Logout-all operations."},
	{ID: goSession.MetricCredentialsRejected, Name: "gosession_credentials_rejected_total", Help: "Credentials refused because of an invalid token or principal."},
	{ID: goSession.MetricUnauthorizedResponse, Name: "gosession_unauthorized_response_total", Help: "401 responses to authenticated requests."},
	{ID: goSession.MetricRequestRetried, Name: "gosession_request_retried_total", Help: "Requests re-sent after a successful refresh."},
	{ID: goSession.MetricRefreshSuccess, Name: "gosession_refresh_success_total", Help: "Refresh exchanges that renewed the token."},
	{ID: goSession.MetricRefreshFailure, Name: "gosession_refresh_failure_total", Help: "Refresh attempts that ended in logout."},
	{ID: goSession.MetricRefreshCoalesced, Name: "gosession_refresh_coalesced_total", Help: "Callers that waited on an in-flight refresh."},
	{ID: goSession.MetricRefreshSkipped, Name: "gosession_refresh_skipped_total", Help: "Refreshes answered by an already rotated token."},
	{ID: goSession.MetricProfileUpdated, Name: "gosession_profile_updated_total", Help: "Principal updates persisted without a token change."},
	{ID: goSession.MetricCleanupPurged, Name: "gosession_cleanup_purged_total", Help: "Stored domains purged by startup cleanup."},
	{ID: goSession.MetricGuardDenied, Name: "gosession_guard_denied_total", Help: "Route guard redirects."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricRefreshLatency, Name: "gosession_refresh_latency_seconds", Help: "Refresh endpoint latency."},
}

// HistogramUpperBounds are the bucket upper bounds in seconds, excluding +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, including +Inf, for exporters
// that flatten histograms into gauges.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, padding with zeros.
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
