// File: internal/scenario/env.go
package scenario

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/ghostwalk/internal/discovery"
	"github.com/xkilldash9x/ghostwalk/internal/interact"
	"github.com/xkilldash9x/ghostwalk/internal/telemetry"
	"github.com/xkilldash9x/ghostwalk/internal/timing"
)

// Page is the navigation surface a script drives directly; everything else
// goes through the Actor.
type Page interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	CurrentURL(ctx context.Context) (string, error)
}

// Actor is the primitive set scripts compose. Satisfied by *interact.Actor.
type Actor interface {
	Click(ctx context.Context, el discovery.InteractiveElement) bool
	ObservedClick(ctx context.Context, el discovery.InteractiveElement) bool
	RageClick(ctx context.Context, el discovery.InteractiveElement, count int) int
	Refocus(ctx context.Context, el discovery.InteractiveElement)
	MouseShake(ctx context.Context, iterations int)
	ErraticScroll(ctx context.Context)
	Scroll(ctx context.Context)
	TypeInto(ctx context.Context, selector, text string) bool
	ClickSelector(ctx context.Context, selector string) bool
}

// PassiveMonitor is the explicit subscription handle for browser-level
// console, exception, and response events. Start registers the handlers;
// Stop unsubscribes. Only the error archetype uses it.
type PassiveMonitor interface {
	Start() error
	Stop()
}

// Env is the per-session environment a script runs against. Scripts hold no
// state of their own across sessions; everything session-scoped lives here.
type Env struct {
	BaseURL  string
	Page     Page
	Actor    Actor
	Discover func(ctx context.Context) []discovery.InteractiveElement
	Events   *telemetry.Logger
	Monitor  PassiveMonitor
	Form     *interact.FormTracker
	RNG      *rand.Rand
	Logger   *zap.Logger
	Profile  Profile
}

// Result summarizes what a script did, surfaced in session_end metadata.
type Result struct {
	Actions       int
	FormState     interact.FormState
	FormAbandoned bool
}

// Script is one archetype behavior: a pure function over the environment.
type Script func(ctx context.Context, env *Env) (Result, error)

// Scripts is the closed archetype registry.
func Scripts() map[Archetype]Script {
	return map[Archetype]Script{
		ArchetypeNormal:     Normal,
		ArchetypeFrustrated: Frustrated,
		ArchetypeLost:       Lost,
		ArchetypeError:      Error,
	}
}

const defaultNavTimeout = 15 * time.Second

// navigate drives the page to url and logs a page_navigation event. The
// navigation error is returned so scripts can decide whether it is fatal.
func (env *Env) navigate(ctx context.Context, url string, timeout time.Duration) error {
	err := env.Page.Navigate(ctx, url, timeout)
	meta := map[string]any{"target": url}
	if err != nil {
		meta["error"] = err.Error()
	}
	env.Events.Emit(telemetry.EventPageNavigation, env.currentURL(ctx), "", meta)
	return err
}

// idle pauses for a random duration drawn from r and logs it as an idle
// event with the given label and the actual duration.
func (env *Env) idle(ctx context.Context, label string, r Range) {
	d := timing.DurationBetween(env.RNG, r.Min, r.Max)
	if err := timing.Sleep(ctx, d); err != nil {
		env.Logger.Debug("Idle pause interrupted.", zap.Error(err))
	}
	env.Events.Emit(telemetry.EventIdle, env.currentURL(ctx), "", map[string]any{
		"label":       label,
		"duration_ms": d.Milliseconds(),
	})
}

// pause sleeps for a random duration drawn from r without logging.
func (env *Env) pause(ctx context.Context, r Range) error {
	return timing.SleepBetween(ctx, env.RNG, r.Min, r.Max)
}

func (env *Env) currentURL(ctx context.Context) string {
	url, err := env.Page.CurrentURL(ctx)
	if err != nil {
		return ""
	}
	return url
}
