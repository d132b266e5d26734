// File: internal/timing/timing_test.go
package timing

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSleepRespectsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Sleep(ctx, 5*time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second, "cancelled sleep must return promptly")
}

func TestSleepNonPositive(t *testing.T) {
	t.Parallel()
	require.NoError(t, Sleep(context.Background(), 0))
	require.NoError(t, Sleep(context.Background(), -time.Second))
}

func TestDurationBetweenBounds(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	min, max := 50*time.Millisecond, 150*time.Millisecond
	for i := 0; i < 1000; i++ {
		d := DurationBetween(rng, min, max)
		assert.GreaterOrEqual(t, d, min)
		assert.LessOrEqual(t, d, max)
	}

	// Degenerate range collapses to min.
	assert.Equal(t, min, DurationBetween(rng, min, min))
	assert.Equal(t, max, DurationBetween(rng, max, min))
}

func TestIntBetweenBounds(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	seen := make(map[int]bool)
	for i := 0; i < 1000; i++ {
		n := IntBetween(rng, 4, 8)
		assert.GreaterOrEqual(t, n, 4)
		assert.LessOrEqual(t, n, 8)
		seen[n] = true
	}
	// Both endpoints must be reachable.
	assert.True(t, seen[4])
	assert.True(t, seen[8])
}

func TestChance(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(99))
	assert.False(t, Chance(rng, 0))
	assert.True(t, Chance(rng, 1))

	hits := 0
	const draws = 10000
	for i := 0; i < draws; i++ {
		if Chance(rng, 0.6) {
			hits++
		}
	}
	ratio := float64(hits) / draws
	assert.InDelta(t, 0.6, ratio, 0.03)
}

func TestChoice(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(1))

	_, ok := Choice(rng, []string(nil))
	assert.False(t, ok)

	candidates := []string{"a", "b", "c"}
	counts := make(map[string]int)
	for i := 0; i < 3000; i++ {
		v, ok := Choice(rng, candidates)
		require.True(t, ok)
		counts[v]++
	}
	for _, c := range candidates {
		assert.Greater(t, counts[c], 0, "every candidate should be drawn eventually")
	}
}
