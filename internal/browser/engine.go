// File: internal/browser/engine.go
// Package browser owns the Chrome process and the per-session isolated
// contexts carved out of it. One Engine serves a whole run; each session gets
// its own incognito-style browser context so cookies, storage, and cache
// never bleed between sessions.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const launchProbeTimeout = 30 * time.Second

// EngineOptions configure the browser process for the run.
type EngineOptions struct {
	Headless bool
	// ExtraArgs are passed straight through as Chrome flags.
	ExtraArgs map[string]any
}

// Engine manages the single Chrome process all sessions share.
type Engine struct {
	logger *zap.Logger
	opts   EngineOptions

	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc

	// browserCtx is the controller connection to the browser target itself;
	// CDP browser-context and target creation run against it.
	browserCtx    context.Context
	browserCancel context.CancelFunc

	// contextCreationLock serializes CreateBrowserContext/CreateTarget pairs;
	// interleaved creation against one controller connection is racy.
	contextCreationLock sync.Mutex

	wg sync.WaitGroup
}

// NewEngine launches Chrome and verifies it responds before returning. A
// browser that cannot start is fatal for the run, so the error is returned
// rather than absorbed.
func NewEngine(ctx context.Context, opts EngineOptions, logger *zap.Logger) (*Engine, error) {
	e := &Engine{
		logger: logger.Named("browser_engine"),
		opts:   opts,
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, e.buildAllocatorOptions()...)
	e.allocatorCtx = allocCtx
	e.allocatorCancel = allocCancel

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	e.browserCtx = browserCtx
	e.browserCancel = browserCancel

	probeCtx, cancelProbe := context.WithTimeout(browserCtx, launchProbeTimeout)
	defer cancelProbe()
	if err := chromedp.Run(probeCtx, chromedp.Navigate("about:blank")); err != nil {
		e.allocatorCancel()
		return nil, fmt.Errorf("browser failed to start or respond: %w", err)
	}

	e.logger.Info("Browser launched successfully and is responsive.",
		zap.Bool("headless", opts.Headless))
	return e, nil
}

func (e *Engine) buildAllocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", e.opts.Headless),
		chromedp.Flag("disable-gpu", e.opts.Headless),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("mute-audio", true),
	)
	for name, value := range e.opts.ExtraArgs {
		opts = append(opts, chromedp.Flag(name, value))
	}
	return opts
}

// Shutdown closes the browser process after active sessions finish, or when
// ctx expires, whichever comes first.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.logger.Info("Shutting down browser engine.")

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Debug("All sessions released.")
	case <-ctx.Done():
		e.logger.Warn("Timeout waiting for sessions to close; forcing browser shutdown.", zap.Error(ctx.Err()))
	}

	e.browserCancel()
	e.allocatorCancel()
	e.logger.Info("Browser engine shutdown complete.")
	return nil
}
