// File: internal/scenario/lost.go
package scenario

import (
	"context"
	"strings"

	"github.com/xkilldash9x/ghostwalk/internal/discovery"
	"github.com/xkilldash9x/ghostwalk/internal/telemetry"
	"github.com/xkilldash9x/ghostwalk/internal/timing"
)

// uTurnNominalMs is the fixed nominal duration label carried by u_turn
// events. Downstream pipelines treat it as a category marker, not a
// measurement.
const uTurnNominalMs = 7000

// Lost models a disoriented user: a long stare at the page, a wander between
// two elements, a retreat toward anything labeled "back", and repeated
// refocusing on one control before giving up.
func Lost(ctx context.Context, env *Env) (Result, error) {
	var res Result

	if err := env.navigate(ctx, env.BaseURL, defaultNavTimeout); err != nil {
		return res, err
	}

	env.idle(ctx, "initial_hesitancy", env.Profile.Hesitancy)

	elements := env.Discover(ctx)
	if len(elements) < 2 {
		// Nothing to wander between; the U-turn and refocus phases need at
		// least two distinct candidates.
		return res, nil
	}

	elA, elB := pickDistinctPair(env, elements)
	urlBeforeA := env.currentURL(ctx)

	env.Actor.Click(ctx, elA)
	res.Actions++
	if err := env.pause(ctx, env.Profile.WanderPause); err != nil {
		return res, err
	}

	env.Actor.Click(ctx, elB)
	res.Actions++
	if err := env.pause(ctx, env.Profile.RetreatPause); err != nil {
		return res, err
	}

	if env.currentURL(ctx) == urlBeforeA || timing.Chance(env.RNG, 0.5) {
		back := findBackElement(elements, elA)
		env.Actor.Click(ctx, back)
		res.Actions++
		env.Events.Emit(telemetry.EventUTurn, env.currentURL(ctx), back.Selector, map[string]any{
			"path":        []string{elA.Selector, elB.Selector, back.Selector},
			"duration_ms": uTurnNominalMs,
		})
	}

	if target, ok := timing.Choice(env.RNG, elements); ok {
		env.Actor.Refocus(ctx, target)
		res.Actions++
		if err := env.pause(ctx, env.Profile.RefocusGap); err != nil {
			return res, err
		}
		env.Actor.Refocus(ctx, target)
		res.Actions++
	}

	env.idle(ctx, "confusion", env.Profile.Confusion)
	return res, nil
}

// pickDistinctPair draws two distinct elements from the candidate list.
func pickDistinctPair(env *Env, elements []discovery.InteractiveElement) (discovery.InteractiveElement, discovery.InteractiveElement) {
	i := env.RNG.Intn(len(elements))
	j := env.RNG.Intn(len(elements) - 1)
	if j >= i {
		j++
	}
	return elements[i], elements[j]
}

// findBackElement searches for an element whose text or selector contains
// "back", falling back to the first element of the wander when none exists.
func findBackElement(elements []discovery.InteractiveElement, fallback discovery.InteractiveElement) discovery.InteractiveElement {
	for _, el := range elements {
		if strings.Contains(strings.ToLower(el.Text), "back") ||
			strings.Contains(strings.ToLower(el.Selector), "back") {
			return el
		}
	}
	return fallback
}
