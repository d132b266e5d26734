// File: internal/scenario/frustrated.go
package scenario

import (
	"context"

	"github.com/xkilldash9x/ghostwalk/internal/timing"
)

// Frustrated models a user losing patience: a short hesitation collapses into
// mouse shaking, a rage-click burst on one element, bursts of indecisive
// scrolling, and a volley of rapid clicks.
func Frustrated(ctx context.Context, env *Env) (Result, error) {
	var res Result

	if err := env.navigate(ctx, env.BaseURL, defaultNavTimeout); err != nil {
		return res, err
	}

	env.idle(ctx, "initial_hesitancy", env.Profile.Hesitancy)

	env.Actor.MouseShake(ctx, timing.IntBetween(env.RNG, 3, 7))

	elements := env.Discover(ctx)

	if target, ok := timing.Choice(env.RNG, elements); ok {
		count := timing.IntBetween(env.RNG, 4, 8)
		res.Actions += env.Actor.RageClick(ctx, target, count)
	}

	bursts := timing.IntBetween(env.RNG, 3, 6)
	for i := 0; i < bursts; i++ {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		env.Actor.ErraticScroll(ctx)
		if err := env.pause(ctx, env.Profile.ScrollBurstGap); err != nil {
			return res, err
		}
	}

	rapid := timing.IntBetween(env.RNG, 3, 5)
	for i := 0; i < rapid; i++ {
		el, ok := timing.Choice(env.RNG, elements)
		if !ok {
			break
		}
		env.Actor.Click(ctx, el)
		res.Actions++
		if err := env.pause(ctx, env.Profile.RapidClickGap); err != nil {
			return res, err
		}
	}

	return res, nil
}
