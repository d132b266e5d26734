// File: internal/browser/monitor.go
package browser

import (
	"context"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// MonitorCallbacks receive passive page-level failures as they happen. They
// are invoked from the CDP event goroutine and must not block.
type MonitorCallbacks struct {
	OnConsoleError func(text, url string)
	OnPageError    func(text, url string)
	OnNetworkError func(url string, status int)
}

// Monitor is a passive subscription to console errors, uncaught exceptions,
// and failing HTTP responses on one session's tab. It observes; it never
// drives the page.
type Monitor struct {
	session   *Session
	callbacks MonitorCallbacks
	logger    *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewMonitor builds a monitor bound to the session's tab. Nothing is
// subscribed until Start.
func (s *Session) NewMonitor(callbacks MonitorCallbacks) *Monitor {
	return &Monitor{
		session:   s,
		callbacks: callbacks,
		logger:    s.logger.Named("monitor"),
	}
}

// Start enables the runtime and network domains and registers the event
// handler. Stop unsubscribes; Start after Stop resubscribes.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return nil
	}

	if err := m.session.run(context.Background(), 0, runtime.Enable(), network.Enable()); err != nil {
		return err
	}

	listenCtx, cancel := context.WithCancel(m.session.sessionCtx)
	chromedp.ListenTarget(listenCtx, m.handle)
	m.cancel = cancel
	m.logger.Debug("Passive monitor started.")
	return nil
}

// Stop removes the event subscription. Events already in flight may still be
// delivered; callbacks must tolerate that.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel == nil {
		return
	}
	m.cancel()
	m.cancel = nil
	m.logger.Debug("Passive monitor stopped.")
}

func (m *Monitor) handle(ev any) {
	switch e := ev.(type) {
	case *runtime.EventConsoleAPICalled:
		if e.Type != runtime.APITypeError {
			return
		}
		if m.callbacks.OnConsoleError != nil {
			m.callbacks.OnConsoleError(consoleText(e.Args), "")
		}
	case *runtime.EventExceptionThrown:
		if m.callbacks.OnPageError != nil {
			m.callbacks.OnPageError(exceptionText(e.ExceptionDetails), e.ExceptionDetails.URL)
		}
	case *network.EventResponseReceived:
		if e.Response == nil || e.Response.Status < 400 {
			return
		}
		if m.callbacks.OnNetworkError != nil {
			m.callbacks.OnNetworkError(e.Response.URL, int(e.Response.Status))
		}
	}
}

// consoleText flattens console.error arguments into one line. Non-string
// arguments fall back to their CDP description.
func consoleText(args []*runtime.RemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		if arg == nil {
			continue
		}
		if arg.Type == runtime.TypeString && len(arg.Value) >= 2 {
			parts = append(parts, strings.Trim(string(arg.Value), `"`))
			continue
		}
		if arg.Description != "" {
			parts = append(parts, arg.Description)
		}
	}
	return strings.Join(parts, " ")
}

func exceptionText(details *runtime.ExceptionDetails) string {
	if details == nil {
		return "uncaught exception"
	}
	if details.Exception != nil && details.Exception.Description != "" {
		return details.Exception.Description
	}
	return details.Text
}
