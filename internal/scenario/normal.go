// File: internal/scenario/normal.go
package scenario

import (
	"context"

	"github.com/xkilldash9x/ghostwalk/internal/timing"
)

// Normal is the calm baseline: land on the page, hesitate, perform a handful
// of unhurried actions with reading pauses between them, and leave. The first
// action runs dead-click detection; the rest are plain clicks.
func Normal(ctx context.Context, env *Env) (Result, error) {
	var res Result

	if err := env.navigate(ctx, env.BaseURL, defaultNavTimeout); err != nil {
		return res, err
	}

	env.idle(ctx, "initial_hesitancy", env.Profile.Hesitancy)

	elements := env.Discover(ctx)
	if len(elements) == 0 {
		env.idle(ctx, "trailing", env.Profile.Trailing)
		return res, nil
	}

	actions := timing.IntBetween(env.RNG, 3, 5)
	for i := 0; i < actions; i++ {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		if err := env.pause(ctx, env.Profile.ActionPacing); err != nil {
			return res, err
		}

		el, _ := timing.Choice(env.RNG, elements)
		if i == 0 {
			env.Actor.ObservedClick(ctx, el)
		} else {
			env.Actor.Click(ctx, el)
		}
		res.Actions++

		if timing.Chance(env.RNG, env.Profile.ScrollChance) {
			env.Actor.Scroll(ctx)
		}
	}

	env.idle(ctx, "trailing", env.Profile.Trailing)
	return res, nil
}
