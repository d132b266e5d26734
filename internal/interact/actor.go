// File: internal/interact/actor.go
// Package interact holds the atomic interaction primitives and the outcome
// detectors paired with them. An Actor drives one page for one session and
// reports everything it does through the session's telemetry logger. Failures
// of individual interactions are absorbed here, logged as part of the outcome
// rather than propagated; that is the point of the tool.
package interact

import (
	"context"
	"math/rand"
	"time"

	"github.com/aquilax/go-perlin"
	"go.uber.org/zap"

	"github.com/xkilldash9x/ghostwalk/internal/discovery"
	"github.com/xkilldash9x/ghostwalk/internal/telemetry"
	"github.com/xkilldash9x/ghostwalk/internal/timing"
)

// Page is the browser surface the actor needs. Defined here, consumer-side,
// so primitives are testable without a browser.
type Page interface {
	Click(ctx context.Context, selector string, timeout time.Duration) error
	CurrentURL(ctx context.Context) (string, error)
	DOMSnapshot(ctx context.Context) (string, error)
	MoveMouse(ctx context.Context, x, y float64) error
	ScrollBy(ctx context.Context, dx, dy float64) error
	TypeInto(ctx context.Context, selector, text string, timeout time.Duration) error
}

// Options tune the actor's timing model. Zero values fall back to defaults.
type Options struct {
	ClickTimeout   time.Duration
	SettleInterval time.Duration
	ViewportWidth  int
	ViewportHeight int
}

func (o Options) withDefaults() Options {
	if o.ClickTimeout <= 0 {
		o.ClickTimeout = 3 * time.Second
	}
	if o.SettleInterval <= 0 {
		o.SettleInterval = 500 * time.Millisecond
	}
	if o.ViewportWidth <= 0 {
		o.ViewportWidth = 1280
	}
	if o.ViewportHeight <= 0 {
		o.ViewportHeight = 720
	}
	return o
}

// Actor executes primitives against one page. One actor per session.
type Actor struct {
	page   Page
	events *telemetry.Logger
	rng    *rand.Rand
	logger *zap.Logger
	opts   Options

	// Perlin fields perturb shake trajectories so pointer paths never repeat
	// between sessions with different seeds.
	noiseX *perlin.Perlin
	noiseY *perlin.Perlin
}

// NewActor wires an actor to a page and a session telemetry logger. rng must
// be the session's seeded source.
func NewActor(page Page, events *telemetry.Logger, rng *rand.Rand, logger *zap.Logger, opts Options) *Actor {
	const (
		alpha = 2.0
		beta  = 2.0
		n     = 3
	)
	return &Actor{
		page:   page,
		events: events,
		rng:    rng,
		logger: logger.Named("actor"),
		opts:   opts.withDefaults(),
		noiseX: perlin.NewPerlin(alpha, beta, n, rng.Int63()),
		noiseY: perlin.NewPerlin(alpha, beta, n, rng.Int63()),
	}
}

// IsDeadClick is the conservative, syntactic "no visible effect" heuristic:
// dead if and only if the URL is unchanged and the DOM snapshot is
// byte-identical. It deliberately misses CSS-only feedback and structurally
// different but visually equivalent churn; do not refine it.
func IsDeadClick(beforeURL, afterURL, beforeDOM, afterDOM string) bool {
	return beforeURL == afterURL && beforeDOM == afterDOM
}

// Click targets the element with a bounded timeout and records whether the
// page URL changed. The click error, if any, is absorbed into the event
// metadata; the return value reports whether the raw click succeeded.
func (a *Actor) Click(ctx context.Context, el discovery.InteractiveElement) bool {
	beforeURL := a.pageURL(ctx)
	err := a.page.Click(ctx, el.Selector, a.opts.ClickTimeout)
	afterURL := a.pageURL(ctx)

	meta := map[string]any{"url_changed": err == nil && beforeURL != afterURL}
	if err != nil {
		meta["error"] = err.Error()
		a.logger.Debug("Click failed; absorbed.", zap.String("selector", el.Selector), zap.Error(err))
	}
	a.events.Emit(telemetry.EventClick, afterURL, el.Selector, meta)
	return err == nil
}

// ObservedClick runs dead-click detection around a single click: capture URL
// and DOM, click, wait the settle interval, capture again. Returns the
// classification.
func (a *Actor) ObservedClick(ctx context.Context, el discovery.InteractiveElement) bool {
	beforeURL := a.pageURL(ctx)
	beforeDOM := a.domSnapshot(ctx)

	clickErr := a.page.Click(ctx, el.Selector, a.opts.ClickTimeout)
	if clickErr != nil {
		a.logger.Debug("Observed click failed; absorbed.", zap.String("selector", el.Selector), zap.Error(clickErr))
	}
	if err := timing.Sleep(ctx, a.opts.SettleInterval); err != nil {
		a.logger.Debug("Settle interval interrupted.", zap.Error(err))
	}

	afterURL := a.pageURL(ctx)
	afterDOM := a.domSnapshot(ctx)
	dead := IsDeadClick(beforeURL, afterURL, beforeDOM, afterDOM)

	meta := map[string]any{
		"url_changed": beforeURL != afterURL,
		"dom_changed": beforeDOM != afterDOM,
	}
	if clickErr != nil {
		meta["error"] = clickErr.Error()
	}
	if dead {
		a.events.Emit(telemetry.EventDeadClick, afterURL, el.Selector, meta)
	} else {
		a.events.Emit(telemetry.EventClick, afterURL, el.Selector, meta)
	}
	return dead
}

// RageClick repeats a click count times with a short inter-click delay,
// classifying every repetition. One rage_click event is logged per completed
// repetition carrying its index, the planned total, and the dead verdict. A
// click failure aborts the remaining repetitions; the completed ones stand.
func (a *Actor) RageClick(ctx context.Context, el discovery.InteractiveElement, count int) int {
	completed := 0
	for i := 1; i <= count; i++ {
		beforeURL := a.pageURL(ctx)
		beforeDOM := a.domSnapshot(ctx)

		if err := a.page.Click(ctx, el.Selector, a.opts.ClickTimeout); err != nil {
			a.logger.Debug("Rage burst aborted.",
				zap.String("selector", el.Selector),
				zap.Int("click_number", i),
				zap.Error(err))
			break
		}

		if err := timing.SleepBetween(ctx, a.rng, 50*time.Millisecond, 150*time.Millisecond); err != nil {
			a.logger.Debug("Rage burst interrupted.", zap.Error(err))
		}

		afterURL := a.pageURL(ctx)
		afterDOM := a.domSnapshot(ctx)
		a.events.Emit(telemetry.EventRageClick, afterURL, el.Selector, map[string]any{
			"click_number": i,
			"total_clicks": count,
			"dead":         IsDeadClick(beforeURL, afterURL, beforeDOM, afterDOM),
		})
		completed++
	}
	return completed
}

// Refocus clicks the element, waits, and clicks it again. If the second click
// succeeds a distinct refocus event is logged (in addition to the two click
// events) carrying the elapsed time since the first click.
func (a *Actor) Refocus(ctx context.Context, el discovery.InteractiveElement) {
	start := time.Now()
	a.Click(ctx, el)

	if err := timing.SleepBetween(ctx, a.rng, 500*time.Millisecond, 1500*time.Millisecond); err != nil {
		a.logger.Debug("Refocus pause interrupted.", zap.Error(err))
	}

	if a.Click(ctx, el) {
		a.events.Emit(telemetry.EventRefocus, a.pageURL(ctx), el.Selector, map[string]any{
			"elapsed_ms": time.Since(start).Milliseconds(),
		})
	}
}

// MouseShake moves the pointer to iterations uniformly-random viewport
// coordinates with very short pauses, Perlin drift layered onto each target.
// Purely a perturbation primitive: one mouse_move event for the whole gesture.
func (a *Actor) MouseShake(ctx context.Context, iterations int) {
	for i := 0; i < iterations; i++ {
		t := float64(i) * 0.37
		x := a.rng.Float64()*float64(a.opts.ViewportWidth) + a.noiseX.Noise1D(t)*12
		y := a.rng.Float64()*float64(a.opts.ViewportHeight) + a.noiseY.Noise1D(t)*12
		x = clamp(x, 0, float64(a.opts.ViewportWidth))
		y = clamp(y, 0, float64(a.opts.ViewportHeight))

		if err := a.page.MoveMouse(ctx, x, y); err != nil {
			a.logger.Debug("Mouse move failed; absorbed.", zap.Error(err))
		}
		if err := timing.SleepBetween(ctx, a.rng, 10*time.Millisecond, 30*time.Millisecond); err != nil {
			return
		}
	}
	a.events.Emit(telemetry.EventMouseMove, a.pageURL(ctx), "", map[string]any{
		"gesture":    "shake",
		"iterations": iterations,
	})
}

// ErraticScroll scrolls by a random amount in a random direction, then
// reverses by the same amount shortly after. One scroll event tagged erratic.
func (a *Actor) ErraticScroll(ctx context.Context) {
	amount := float64(timing.IntBetween(a.rng, 120, 480))
	if a.rng.Intn(2) == 0 {
		amount = -amount
	}

	if err := a.page.ScrollBy(ctx, 0, amount); err != nil {
		a.logger.Debug("Scroll failed; absorbed.", zap.Error(err))
	}
	if err := timing.SleepBetween(ctx, a.rng, 150*time.Millisecond, 400*time.Millisecond); err != nil {
		a.logger.Debug("Scroll reversal interrupted.", zap.Error(err))
	}
	if err := a.page.ScrollBy(ctx, 0, -amount); err != nil {
		a.logger.Debug("Scroll reversal failed; absorbed.", zap.Error(err))
	}

	a.events.Emit(telemetry.EventScroll, a.pageURL(ctx), "", map[string]any{
		"erratic":  true,
		"delta_y":  amount,
		"reversed": true,
	})
}

// Scroll performs a single plain scroll by a moderate random amount.
func (a *Actor) Scroll(ctx context.Context) {
	amount := float64(timing.IntBetween(a.rng, 100, 400))
	if err := a.page.ScrollBy(ctx, 0, amount); err != nil {
		a.logger.Debug("Scroll failed; absorbed.", zap.Error(err))
	}
	a.events.Emit(telemetry.EventScroll, a.pageURL(ctx), "", map[string]any{
		"delta_y": amount,
	})
}

// TypeInto focuses a field and types text into it. Transient failure is
// absorbed; the return value reports success so scripts can drive the form
// state machine only on real interaction.
func (a *Actor) TypeInto(ctx context.Context, selector, text string) bool {
	if err := a.page.TypeInto(ctx, selector, text, a.opts.ClickTimeout); err != nil {
		a.logger.Debug("Typing failed; absorbed.", zap.String("selector", selector), zap.Error(err))
		return false
	}
	return true
}

// ClickSelector issues a click against a raw selector, logging the outcome as
// a click event. Used by the error archetype to provoke failures against
// selectors known not to exist; the caught error rides in the metadata.
func (a *Actor) ClickSelector(ctx context.Context, selector string) bool {
	err := a.page.Click(ctx, selector, a.opts.ClickTimeout)
	meta := map[string]any{"url_changed": false}
	if err != nil {
		meta["error"] = err.Error()
	}
	a.events.Emit(telemetry.EventClick, a.pageURL(ctx), selector, meta)
	return err == nil
}

func (a *Actor) pageURL(ctx context.Context) string {
	url, err := a.page.CurrentURL(ctx)
	if err != nil {
		a.logger.Debug("Could not read page URL.", zap.Error(err))
		return ""
	}
	return url
}

func (a *Actor) domSnapshot(ctx context.Context) string {
	dom, err := a.page.DOMSnapshot(ctx)
	if err != nil {
		a.logger.Debug("Could not capture DOM snapshot.", zap.Error(err))
		return ""
	}
	return dom
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
