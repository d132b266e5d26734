// File: internal/scenario/error.go
package scenario

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/ghostwalk/internal/telemetry"
	"github.com/xkilldash9x/ghostwalk/internal/timing"
)

// unreachableURL refuses connections fast without a DNS dependency. The
// navigation failure it provokes is expected and logged, not a defect.
const unreachableURL = "http://127.0.0.1:1/unreachable"

const badNavTimeout = 5 * time.Second

// Known form controls on the target the script pokes to provoke client-side
// validation, with fallbacks for pages that lack the primary selector.
var (
	requiredFieldSelectors = []string{`input[required]`, `input[type="email"]`}
	nextControlSelectors   = []string{`button[type="submit"]`, `#next`}
)

// Error models a user who keeps hitting failures: a dead navigation, a
// rejected form, clicks on elements that are not there, and a naive retry
// loop. The passive monitor runs for the whole script so console errors,
// uncaught exceptions, and failing responses are captured as they occur,
// independent of the scripted actions.
func Error(ctx context.Context, env *Env) (Result, error) {
	var res Result

	if env.Monitor != nil {
		if err := env.Monitor.Start(); err != nil {
			env.Logger.Debug("Passive monitor failed to start.", zap.Error(err))
		} else {
			defer env.Monitor.Stop()
		}
	}

	// A navigation that cannot succeed. The failure is the point.
	if err := env.navigate(ctx, unreachableURL, badNavTimeout); err != nil {
		env.Events.Emit(telemetry.EventNetworkError, unreachableURL, "", map[string]any{
			"status": 404,
			"error":  err.Error(),
		})
	}

	if err := env.navigate(ctx, env.BaseURL, defaultNavTimeout); err != nil {
		return res, err
	}

	env.provokeValidationError(ctx)

	elements := env.Discover(ctx)

	iterations := timing.IntBetween(env.RNG, 2, 4)
	for i := 0; i < iterations; i++ {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		if timing.Chance(env.RNG, 0.3) {
			missing := fmt.Sprintf("#ghost-missing-%d", env.RNG.Intn(100000))
			env.Actor.ClickSelector(ctx, missing)
		} else if el, ok := timing.Choice(env.RNG, elements); ok {
			env.Actor.Click(ctx, el)
		}
		res.Actions++
		if err := env.pause(ctx, env.Profile.ErrorClickGap); err != nil {
			return res, err
		}
	}

	// Naive retry: the same element clicked three times, as if repetition
	// could change the outcome.
	if target, ok := timing.Choice(env.RNG, elements); ok {
		for i := 0; i < 3; i++ {
			env.Actor.Click(ctx, target)
			res.Actions++
			if err := env.pause(ctx, env.Profile.RetryGap); err != nil {
				return res, err
			}
		}
	}

	res.FormState = env.Form.State()
	res.FormAbandoned = env.Form.Abandoned(true)
	return res, nil
}

// provokeValidationError types an implausible value into a known required
// field and pushes the submit control, driving the form tracker through its
// transitions.
func (env *Env) provokeValidationError(ctx context.Context) {
	for _, sel := range requiredFieldSelectors {
		if env.Actor.TypeInto(ctx, sel, "not-an-email") {
			env.Form.FocusIn()
			break
		}
	}
	for _, sel := range nextControlSelectors {
		if env.Actor.ClickSelector(ctx, sel) {
			env.Form.Submit()
			break
		}
	}
}
