// Package ui holds the seams between the portal core and whatever renders
// it: user-visible notifications and route navigation. The core only ever
// talks to these interfaces; the presentation layer supplies the real thing.
package ui

import "github.com/clinicware/patient-portal/pkg/logging"

// Routes the portal core navigates to. The surrounding UI owns what these
// mean; the core only names them.
const (
	RouteHome     = "/"
	RouteLogin    = "/login"
	RouteDoctors  = "/doctors"
	RouteBookings = "/my-appointments"
)

// Notifier surfaces user-visible messages (the toast analog).
type Notifier interface {
	Success(message string)
	Error(message string)
	Warning(message string)
}

// Navigator performs route changes on behalf of the core.
type Navigator interface {
	NavigateTo(route string)
}

// LogNotifier reports notifications through the structured logger. It backs
// the CLI driver and any headless deployment.
type LogNotifier struct {
	logger *logging.Logger
}

func NewLogNotifier(logger *logging.Logger) *LogNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogNotifier{logger: logger.Component("notify")}
}

func (n *LogNotifier) Success(message string) { n.logger.Info(message, "kind", "success") }
func (n *LogNotifier) Error(message string)   { n.logger.Error(message, "kind", "error") }
func (n *LogNotifier) Warning(message string) { n.logger.Warn(message, "kind", "warning") }

// LogNavigator records navigation intents in the log; useful wherever no
// real router is mounted.
type LogNavigator struct {
	logger *logging.Logger
}

func NewLogNavigator(logger *logging.Logger) *LogNavigator {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogNavigator{logger: logger.Component("nav")}
}

func (n *LogNavigator) NavigateTo(route string) {
	n.logger.Info("navigate", "route", route)
}
