package metrics

import "github.com/prometheus/client_golang/prometheus"

// PortalMetrics exposes counters for the portal's session and booking flows.
type PortalMetrics struct {
	fetchTotal       *prometheus.CounterVec
	authFailures     prometheus.Counter
	bookingsTotal    *prometheus.CounterVec
	staleDiscards    prometheus.Counter
	sessionTeardowns prometheus.Counter
}

func NewPortalMetrics(reg prometheus.Registerer) *PortalMetrics {
	m := &PortalMetrics{
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "sync",
			Name:      "fetch_total",
			Help:      "Data loads by kind (roster, profile, availability) and outcome",
		}, []string{"kind", "status"}),
		authFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "auth",
			Name:      "failures_intercepted_total",
			Help:      "Authorization failures observed by the response interceptor",
		}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "booking",
			Name:      "submissions_total",
			Help:      "Booking submissions by outcome (success, rejected, invalid)",
		}, []string{"status"}),
		staleDiscards: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "availability",
			Name:      "stale_responses_discarded_total",
			Help:      "Availability responses dropped because the viewed doctor changed",
		}),
		sessionTeardowns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "auth",
			Name:      "session_teardowns_total",
			Help:      "Forced session teardowns (clear + redirect to login)",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.fetchTotal, m.authFailures, m.bookingsTotal, m.staleDiscards, m.sessionTeardowns)
	return m
}

func (m *PortalMetrics) ObserveFetch(kind, status string) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues(kind, status).Inc()
}

func (m *PortalMetrics) ObserveAuthFailure() {
	if m == nil {
		return
	}
	m.authFailures.Inc()
}

func (m *PortalMetrics) ObserveBooking(status string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(status).Inc()
}

func (m *PortalMetrics) ObserveStaleDiscard() {
	if m == nil {
		return
	}
	m.staleDiscards.Inc()
}

func (m *PortalMetrics) ObserveSessionTeardown() {
	if m == nil {
		return
	}
	m.sessionTeardowns.Inc()
}
