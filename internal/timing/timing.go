// File: internal/timing/timing.go
// Package timing provides the bounded randomness every behavior script leans
// on: context-aware sleeps, random ranges, coin flips, and random choice.
// Keeping this in one place means every pause in the system respects
// cancellation the same way.
package timing

import (
	"context"
	"math/rand"
	"time"
)

// Sleep pauses for d, returning early with the context's error if it is
// cancelled first. A non-positive duration returns immediately.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SleepBetween sleeps for a uniformly random duration in [min, max].
func SleepBetween(ctx context.Context, rng *rand.Rand, min, max time.Duration) error {
	return Sleep(ctx, DurationBetween(rng, min, max))
}

// DurationBetween returns a uniformly random duration in [min, max].
// If max <= min it returns min.
func DurationBetween(rng *rand.Rand, min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rng.Int63n(int64(max-min)+1))
}

// IntBetween returns a uniformly random int in [min, max]. If max <= min it
// returns min.
func IntBetween(rng *rand.Rand, min, max int) int {
	if max <= min {
		return min
	}
	return min + rng.Intn(max-min+1)
}

// Chance returns true with probability p (clamped to [0, 1]).
func Chance(rng *rand.Rand, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return rng.Float64() < p
}

// Choice returns a uniformly random element of candidates. The second return
// is false when candidates is empty.
func Choice[T any](rng *rand.Rand, candidates []T) (T, bool) {
	var zero T
	if len(candidates) == 0 {
		return zero, false
	}
	return candidates[rng.Intn(len(candidates))], true
}
