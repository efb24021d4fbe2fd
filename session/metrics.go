package session

import "github.com/prometheus/client_golang/prometheus"

// Refresh outcomes
const (
	RefreshSuccess   = "success"
	RefreshExpired   = "expired"
	RefreshTransient = "transient"
	RefreshAbandoned = "abandoned"
)

// Dispatch outcomes
const (
	DispatchOK           = "ok"
	DispatchReplayed     = "replayed"
	DispatchUnauthorized = "unauthorized"
	DispatchFailed       = "failed"
)

// Metrics are the session manager's prometheus collectors.
type Metrics struct {
	Refreshes      *prometheus.CounterVec
	QueuedRequests prometheus.Counter
	Dispatches     *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg when reg is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stockscope",
			Subsystem: "session",
			Name:      "refresh_total",
			Help:      "Refresh endpoint calls by outcome.",
		}, []string{"outcome"}),
		QueuedRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stockscope",
			Subsystem: "session",
			Name:      "queued_requests_total",
			Help:      "Requests parked behind an in-flight refresh.",
		}),
		Dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stockscope",
			Subsystem: "session",
			Name:      "dispatch_total",
			Help:      "Dispatched requests by outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.Refreshes, m.QueuedRequests, m.Dispatches)
	}
	return m
}
