// File: internal/scenario/profile.go
package scenario

import "time"

// Range is a bounded random duration interval; pauses draw uniformly from it.
type Range struct {
	Min time.Duration
	Max time.Duration
}

// Profile is the timing model an archetype runs with. Each session gets the
// default profile for its archetype; tests substitute compressed ones.
type Profile struct {
	// Hesitancy is the initial pause after landing on the target.
	Hesitancy Range
	// ActionPacing separates consecutive actions in the normal script.
	ActionPacing Range
	// Trailing is the idle pause before a normal session ends.
	Trailing Range
	// ScrollChance is the probability a normal action is followed by a scroll.
	ScrollChance float64
	// ScrollBurstGap separates erratic-scroll bursts.
	ScrollBurstGap Range
	// RapidClickGap separates the frustrated script's closing click volley.
	RapidClickGap Range
	// WanderPause follows the lost script's first exploratory click.
	WanderPause Range
	// RetreatPause follows the second click, before the U-turn decision.
	RetreatPause Range
	// RefocusGap separates the two refocus actions.
	RefocusGap Range
	// Confusion is the lost script's trailing idle.
	Confusion Range
	// ErrorClickGap separates the error script's provocation clicks.
	ErrorClickGap Range
	// RetryGap separates the naive retry clicks.
	RetryGap Range
}

// DefaultProfile returns the reference timing for an archetype. Only the
// initial hesitancy varies by temperament; the remaining ranges are fixed
// characteristics of the scripts that use them.
func DefaultProfile(a Archetype) Profile {
	p := Profile{
		ActionPacing:   Range{1 * time.Second, 3 * time.Second},
		Trailing:       Range{2 * time.Second, 4 * time.Second},
		ScrollChance:   0.65,
		ScrollBurstGap: Range{200 * time.Millisecond, 500 * time.Millisecond},
		RapidClickGap:  Range{100 * time.Millisecond, 300 * time.Millisecond},
		WanderPause:    Range{1 * time.Second, 2 * time.Second},
		RetreatPause:   Range{500 * time.Millisecond, 1500 * time.Millisecond},
		RefocusGap:     Range{1 * time.Second, 2 * time.Second},
		Confusion:      Range{3 * time.Second, 7 * time.Second},
		ErrorClickGap:  Range{300 * time.Millisecond, 800 * time.Millisecond},
		RetryGap:       Range{1 * time.Second, 2 * time.Second},
	}
	switch a {
	case ArchetypeFrustrated:
		p.Hesitancy = Range{500 * time.Millisecond, 1500 * time.Millisecond}
	case ArchetypeLost:
		p.Hesitancy = Range{5 * time.Second, 10 * time.Second}
	default:
		p.Hesitancy = Range{2 * time.Second, 5 * time.Second}
	}
	return p
}
