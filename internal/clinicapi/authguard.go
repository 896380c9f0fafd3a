package clinicapi

import (
	"net/http"
	"sync"

	"github.com/clinicware/patient-portal/internal/observability/metrics"
	"github.com/clinicware/patient-portal/internal/session"
	"github.com/clinicware/patient-portal/internal/ui"
	"github.com/clinicware/patient-portal/pkg/logging"
)

// AuthGuard is an http.RoundTripper installed once on the shared client. It
// observes every response, regardless of which component issued the request,
// and forces session teardown on authorization failures. The response is
// always returned unchanged so the caller's own error handling still runs.
type AuthGuard struct {
	next     http.RoundTripper
	session  *session.Store
	notifier ui.Notifier
	nav      ui.Navigator
	metrics  *metrics.PortalMetrics
	logger   *logging.Logger

	// Serializes teardown so simultaneous 401s clear and notify once.
	mu sync.Mutex
}

// NewAuthGuard creates the interceptor. Install it with Install before use.
func NewAuthGuard(sess *session.Store, notifier ui.Notifier, nav ui.Navigator, m *metrics.PortalMetrics, logger *logging.Logger) *AuthGuard {
	if logger == nil {
		logger = logging.Default()
	}
	return &AuthGuard{
		session:  sess,
		notifier: notifier,
		nav:      nav,
		metrics:  m,
		logger:   logger.Component("authguard"),
	}
}

// Install wraps the client's transport and returns an uninstall function
// that restores the previous one.
func (g *AuthGuard) Install(client *http.Client) (uninstall func()) {
	prev := client.Transport
	g.next = prev
	if g.next == nil {
		g.next = http.DefaultTransport
	}
	client.Transport = g
	return func() {
		client.Transport = prev
	}
}

func (g *AuthGuard) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := g.next.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	g.metrics.ObserveAuthFailure()

	g.mu.Lock()
	defer g.mu.Unlock()
	// A request that never carried a token (or raced a teardown that already
	// ran) still lands the user on login, but must not notify again.
	if !g.session.Present() {
		g.nav.NavigateTo(ui.RouteLogin)
		return resp, nil
	}
	if clearErr := g.session.Clear(req.Context()); clearErr != nil {
		g.logger.Error("failed to clear session after auth failure", "error", clearErr)
	}
	g.metrics.ObserveSessionTeardown()
	g.notifier.Error("Session expired. Please login again.")
	g.nav.NavigateTo(ui.RouteLogin)
	g.logger.Warn("authorization failure intercepted", "path", req.URL.Path)

	return resp, nil
}
