// File: internal/browser/session.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const (
	sessionCloseTimeout = 15 * time.Second
	disposeTimeout      = 10 * time.Second
)

// SessionOptions shape the page environment a session presents to the target
// application.
type SessionOptions struct {
	// UserAgent is applied verbatim; the caller tags it with the session ID
	// so server logs can be joined against the telemetry stream.
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
}

func (o SessionOptions) withDefaults() SessionOptions {
	if o.ViewportWidth <= 0 {
		o.ViewportWidth = 1280
	}
	if o.ViewportHeight <= 0 {
		o.ViewportHeight = 720
	}
	return o
}

// Session is one isolated browser context plus the single tab inside it. It
// satisfies the page surfaces the interaction and scenario layers consume.
type Session struct {
	id     string
	logger *zap.Logger
	engine *Engine
	opts   SessionOptions

	sessionCtx       context.Context
	sessionCancel    context.CancelFunc
	browserContextID cdp.BrowserContextID

	mu       sync.Mutex
	isClosed bool
}

// NewSession creates an isolated browser context and an attached blank tab.
// The caller owns the session and must Close it.
func (e *Engine) NewSession(ctx context.Context, id string, opts SessionOptions) (*Session, error) {
	opts = opts.withDefaults()
	s := &Session{
		id:     id,
		logger: e.logger.With(zap.String("session_id", id)),
		engine: e,
		opts:   opts,
	}

	e.contextCreationLock.Lock()
	defer e.contextCreationLock.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled before creating browser context: %w", err)
	}

	browserContextID, err := target.CreateBrowserContext().Do(e.browserCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	targetID, err := target.CreateTarget("about:blank").
		WithBrowserContextID(browserContextID).
		Do(e.browserCtx)
	if err != nil {
		s.bestEffortDispose(browserContextID)
		return nil, fmt.Errorf("failed to create target: %w", err)
	}

	sessionCtx, cancelSession := chromedp.NewContext(e.browserCtx, chromedp.WithTargetID(targetID))
	s.sessionCtx = sessionCtx
	s.sessionCancel = cancelSession
	s.browserContextID = browserContextID
	e.wg.Add(1)

	if err := s.setup(); err != nil {
		s.Close(context.Background())
		return nil, fmt.Errorf("failed to set up session: %w", err)
	}

	s.logger.Debug("Session browser context ready.",
		zap.String("browser_context_id", string(browserContextID)))
	return s, nil
}

func (s *Session) setup() error {
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(s.opts.ViewportWidth), int64(s.opts.ViewportHeight)),
	}
	if s.opts.UserAgent != "" {
		tasks = append(tasks, emulation.SetUserAgentOverride(s.opts.UserAgent))
	}
	return chromedp.Run(s.sessionCtx, tasks)
}

func (s *Session) bestEffortDispose(id cdp.BrowserContextID) {
	if s.engine.browserCtx.Err() != nil {
		return
	}
	cleanupCtx, cancel := context.WithTimeout(s.engine.browserCtx, 5*time.Second)
	defer cancel()
	if err := target.DisposeBrowserContext(id).Do(cleanupCtx); err != nil {
		s.logger.Debug("Failed best-effort cleanup of orphaned browser context.",
			zap.String("browser_context_id", string(id)), zap.Error(err))
	}
}

// ID returns the session identifier the context was created for.
func (s *Session) ID() string { return s.id }

// run executes tasks against the session tab, bounded by both the caller's
// context and an explicit timeout when one is given.
func (s *Session) run(ctx context.Context, timeout time.Duration, tasks ...chromedp.Action) error {
	if err := s.sessionCtx.Err(); err != nil {
		return fmt.Errorf("session context is closed: %w", err)
	}
	runCtx, cancel := context.WithCancel(s.sessionCtx)
	defer cancel()
	if timeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, timeout)
		defer cancelTimeout()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, tasks...)
}

// Navigate drives the tab to url and waits for the document body to exist.
func (s *Session) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	s.logger.Debug("Navigating.", zap.String("url", url))
	return s.run(ctx, timeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// CurrentURL reports the tab's current location.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var url string
	err := s.run(ctx, 0, chromedp.Location(&url))
	return url, err
}

// DOMSnapshot returns the serialized document, used for dead-click detection.
func (s *Session) DOMSnapshot(ctx context.Context) (string, error) {
	var html string
	err := s.run(ctx, 0, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

// Click dispatches a real input click on the first match for selector.
func (s *Session) Click(ctx context.Context, selector string, timeout time.Duration) error {
	return s.run(ctx, timeout, chromedp.Click(selector, chromedp.ByQuery))
}

// MoveMouse dispatches a raw pointer move to viewport coordinates.
func (s *Session) MoveMouse(ctx context.Context, x, y float64) error {
	return s.run(ctx, 0, chromedp.ActionFunc(func(c context.Context) error {
		return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(c)
	}))
}

// ScrollBy scrolls the page by the given deltas.
func (s *Session) ScrollBy(ctx context.Context, dx, dy float64) error {
	expr := fmt.Sprintf("window.scrollBy(%.0f, %.0f)", dx, dy)
	return s.run(ctx, 0, chromedp.Evaluate(expr, nil))
}

// TypeInto focuses the first match for selector and types text into it.
func (s *Session) TypeInto(ctx context.Context, selector, text string, timeout time.Duration) error {
	return s.run(ctx, timeout,
		chromedp.Click(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	)
}

// Evaluate runs a JavaScript expression in the page and unmarshals the
// result into out. A nil out discards the result.
func (s *Session) Evaluate(ctx context.Context, expression string, out any) error {
	return s.run(ctx, 0, chromedp.Evaluate(expression, out))
}

// Close tears down the tab and disposes the isolated browser context. Safe
// to call more than once.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return
	}
	s.isClosed = true
	s.mu.Unlock()

	defer s.engine.wg.Done()
	s.logger.Debug("Closing session.")

	if s.sessionCancel != nil {
		s.sessionCancel()
	}

	browserCtx := s.engine.browserCtx
	if s.browserContextID != "" && browserCtx.Err() == nil {
		timeoutCtx, cancel := context.WithTimeout(browserCtx, disposeTimeout)
		defer cancel()
		if err := chromedp.Run(timeoutCtx, target.DisposeBrowserContext(s.browserContextID)); err != nil {
			if browserCtx.Err() == nil {
				s.logger.Warn("Failed to dispose of browser context. It may be orphaned.",
					zap.String("browser_context_id", string(s.browserContextID)),
					zap.Error(err))
			}
		}
	}

	if s.sessionCtx == nil {
		return
	}
	select {
	case <-s.sessionCtx.Done():
	case <-ctx.Done():
		s.logger.Warn("Context cancelled while waiting for session close.", zap.Error(ctx.Err()))
	case <-time.After(sessionCloseTimeout):
		s.logger.Warn("Timeout waiting for session to close.")
	}
}
