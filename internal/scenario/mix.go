// File: internal/scenario/mix.go
// Package scenario holds the four behavior archetypes and the weighted
// distribution that assigns one to each session. Archetypes are a closed
// registry of pure script functions; adding one means adding one variant and
// one weight slot, never touching dispatch logic.
package scenario

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

// Archetype selects which script and timing profile a session uses.
type Archetype string

const (
	ArchetypeNormal     Archetype = "normal"
	ArchetypeFrustrated Archetype = "frustrated"
	ArchetypeLost       Archetype = "lost"
	ArchetypeError      Archetype = "error"
)

// archetypeOrder is the fixed cumulative-sum order for weighted draws and the
// tie-break order when weights collide.
var archetypeOrder = []Archetype{ArchetypeNormal, ArchetypeFrustrated, ArchetypeLost, ArchetypeError}

// Mix is a probability distribution over the four archetypes. Weights are
// non-negative; Normalize scales them to sum to 1.
type Mix struct {
	Normal     float64
	Frustrated float64
	Lost       float64
	Error      float64
}

// DefaultMix is a calm-majority distribution that still exercises all four
// archetypes.
func DefaultMix() Mix {
	return Mix{Normal: 0.4, Frustrated: 0.3, Lost: 0.2, Error: 0.1}
}

func (m Mix) weight(a Archetype) float64 {
	switch a {
	case ArchetypeNormal:
		return m.Normal
	case ArchetypeFrustrated:
		return m.Frustrated
	case ArchetypeLost:
		return m.Lost
	default:
		return m.Error
	}
}

func (m *Mix) setWeight(a Archetype, w float64) {
	switch a {
	case ArchetypeNormal:
		m.Normal = w
	case ArchetypeFrustrated:
		m.Frustrated = w
	case ArchetypeLost:
		m.Lost = w
	case ArchetypeError:
		m.Error = w
	}
}

// Normalize scales the weights so they sum to 1.0. Negative weights and an
// all-zero distribution are rejected.
func (m Mix) Normalize() (Mix, error) {
	sum := 0.0
	for _, a := range archetypeOrder {
		w := m.weight(a)
		if w < 0 {
			return Mix{}, fmt.Errorf("scenario mix: weight for %q is negative", a)
		}
		sum += w
	}
	if sum == 0 {
		return Mix{}, fmt.Errorf("scenario mix: all weights are zero")
	}
	var out Mix
	for _, a := range archetypeOrder {
		out.setWeight(a, m.weight(a)/sum)
	}
	return out, nil
}

// Pick draws one archetype: a single cumulative-sum pass in fixed order, the
// archetype whose cumulative upper bound first exceeds the draw wins. The mix
// must already be normalized.
func (m Mix) Pick(rng *rand.Rand) Archetype {
	draw := rng.Float64()
	cum := 0.0
	for _, a := range archetypeOrder {
		cum += m.weight(a)
		if draw < cum {
			return a
		}
	}
	// Float dust can leave cum fractionally below 1; the last archetype with
	// a positive weight takes the remainder.
	for i := len(archetypeOrder) - 1; i >= 0; i-- {
		if m.weight(archetypeOrder[i]) > 0 {
			return archetypeOrder[i]
		}
	}
	return ArchetypeNormal
}

// ParseMix parses "name:weight,name:weight,..." into a normalized Mix.
// Unrecognized names are ignored; missing names default to weight zero.
func ParseMix(s string) (Mix, error) {
	var m Mix
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, raw, found := strings.Cut(pair, ":")
		if !found {
			return Mix{}, fmt.Errorf("scenario mix: malformed pair %q (want name:weight)", pair)
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return Mix{}, fmt.Errorf("scenario mix: bad weight in %q: %w", pair, err)
		}
		switch Archetype(strings.ToLower(strings.TrimSpace(name))) {
		case ArchetypeNormal:
			m.Normal = w
		case ArchetypeFrustrated:
			m.Frustrated = w
		case ArchetypeLost:
			m.Lost = w
		case ArchetypeError:
			m.Error = w
		default:
			// Unrecognized archetype names are ignored.
		}
	}
	return m.Normalize()
}
