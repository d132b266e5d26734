// File: internal/orchestrator/orchestrator_test.go
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/xkilldash9x/ghostwalk/internal/scenario"
	"github.com/xkilldash9x/ghostwalk/internal/telemetry"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recordingSink captures records with counts per session and type.
type recordingSink struct {
	mu      sync.Mutex
	records []telemetry.Record
}

func (s *recordingSink) Append(rec telemetry.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) perSession(t telemetry.EventType) map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]int{}
	for _, rec := range s.records {
		if rec.EventType == t {
			out[rec.SessionID]++
		}
	}
	return out
}

func (s *recordingSink) bySession(id string) []telemetry.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []telemetry.Record
	for _, rec := range s.records {
		if rec.SessionID == id {
			out = append(out, rec)
		}
	}
	return out
}

// fakeSession satisfies Session with inert operations; the page never
// changes, so scripts run their full shape against it.
type fakeSession struct {
	url    string
	mu     sync.Mutex
	closed bool
}

func (f *fakeSession) Navigate(_ context.Context, url string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.url = url
	return nil
}

func (f *fakeSession) CurrentURL(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.url, nil
}

func (f *fakeSession) DOMSnapshot(context.Context) (string, error) { return "<html></html>", nil }
func (f *fakeSession) Click(context.Context, string, time.Duration) error {
	return errors.New("no such element")
}
func (f *fakeSession) MoveMouse(context.Context, float64, float64) error { return nil }
func (f *fakeSession) ScrollBy(context.Context, float64, float64) error  { return nil }
func (f *fakeSession) TypeInto(context.Context, string, string, time.Duration) error {
	return errors.New("no such element")
}
func (f *fakeSession) Evaluate(_ context.Context, _ string, out any) error {
	return errors.New("evaluate unavailable")
}
func (f *fakeSession) Close(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

type fakeMonitor struct{}

func (fakeMonitor) Start() error { return nil }
func (fakeMonitor) Stop()        {}

func normalOnlyMix(t *testing.T) scenario.Mix {
	t.Helper()
	mix, err := scenario.ParseMix("normal:1")
	require.NoError(t, err)
	return mix
}

// fastProfile compresses every pause to at most a millisecond so full
// lifecycles run in test time.
func fastProfile(a scenario.Archetype) scenario.Profile {
	p := scenario.DefaultProfile(a)
	r := scenario.Range{Min: 0, Max: time.Millisecond}
	p.Hesitancy, p.ActionPacing, p.Trailing = r, r, r
	p.ScrollBurstGap, p.RapidClickGap = r, r
	p.WanderPause, p.RetreatPause, p.RefocusGap = r, r, r
	p.Confusion, p.ErrorClickGap, p.RetryGap = r, r, r
	return p
}

func newTestOrchestrator(t *testing.T, cfg Config, sink telemetry.Sink) *Orchestrator {
	t.Helper()
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:3000"
	}
	cfg.StartInterval = time.Millisecond
	cfg.Profile = fastProfile
	o, err := New(cfg, sink, zap.NewNop())
	require.NoError(t, err)
	return o
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	factory := func(context.Context, string, string, *telemetry.Logger) (Session, scenario.PassiveMonitor, error) {
		return &fakeSession{}, fakeMonitor{}, nil
	}

	_, err := New(Config{Sessions: 1, Mix: scenario.DefaultMix()}, &recordingSink{}, zap.NewNop())
	assert.Error(t, err, "nil factory rejected")

	_, err = New(Config{Sessions: 0, Mix: scenario.DefaultMix(), NewSession: factory}, &recordingSink{}, zap.NewNop())
	assert.Error(t, err, "zero sessions rejected")

	_, err = New(Config{Sessions: 1, NewSession: factory}, &recordingSink{}, zap.NewNop())
	assert.Error(t, err, "zero-weight mix rejected")
}

func TestRunAllSessionFraming(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	var mu sync.Mutex
	var sessions []*fakeSession

	o := newTestOrchestrator(t, Config{
		Sessions:    3,
		Mix:         normalOnlyMix(t),
		Concurrency: 2,
		Seed:        42,
		NewSession: func(context.Context, string, string, *telemetry.Logger) (Session, scenario.PassiveMonitor, error) {
			s := &fakeSession{}
			mu.Lock()
			sessions = append(sessions, s)
			mu.Unlock()
			return s, fakeMonitor{}, nil
		},
	}, sink)

	summary, err := o.RunAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Sessions)
	assert.Equal(t, 3, summary.Completed)
	assert.Zero(t, summary.Failed)

	assert.Equal(t, map[scenario.Archetype]int{scenario.ArchetypeNormal: 3}, summary.PerArchetype)

	starts := sink.perSession(telemetry.EventSessionStart)
	ends := sink.perSession(telemetry.EventSessionEnd)
	require.Len(t, starts, 3)
	require.Len(t, ends, 3)
	for id, n := range starts {
		assert.Equal(t, 1, n, "one session_start for %s", id)
		assert.Equal(t, 1, ends[id], "one session_end for %s", id)

		// Framing: first record is session_start, last is session_end,
		// everything else strictly between.
		recs := sink.bySession(id)
		assert.Equal(t, telemetry.EventSessionStart, recs[0].EventType)
		assert.Equal(t, telemetry.EventSessionEnd, recs[len(recs)-1].EventType)
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, sessions, 3)
	for _, s := range sessions {
		assert.True(t, s.closed, "every session closed")
	}
}

func TestRunAllFactoryFailureStillFramed(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	o := newTestOrchestrator(t, Config{
		Sessions: 1,
		Mix:      normalOnlyMix(t),
		Seed:     7,
		NewSession: func(context.Context, string, string, *telemetry.Logger) (Session, scenario.PassiveMonitor, error) {
			return nil, nil, errors.New("browser exploded")
		},
	}, sink)

	summary, err := o.RunAll(context.Background())
	require.NoError(t, err, "session failures are absorbed, not returned")
	assert.Equal(t, 1, summary.Failed)
	assert.Zero(t, summary.Completed)

	starts := sink.perSession(telemetry.EventSessionStart)
	ends := sink.perSession(telemetry.EventSessionEnd)
	require.Len(t, starts, 1)
	require.Len(t, ends, 1)

	for id := range ends {
		recs := sink.bySession(id)
		last := recs[len(recs)-1]
		require.Equal(t, telemetry.EventSessionEnd, last.EventType)
		assert.Contains(t, last.Metadata["error"], "browser exploded")
	}
}

func TestRunAllScriptFailureStillFramed(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	o := newTestOrchestrator(t, Config{
		Sessions: 1,
		Mix:      normalOnlyMix(t),
		NewSession: func(context.Context, string, string, *telemetry.Logger) (Session, scenario.PassiveMonitor, error) {
			// Navigation fails mid-script, so the archetype script itself
			// returns an error after the session started cleanly.
			return &failingNavSession{}, fakeMonitor{}, nil
		},
	}, sink)

	summary, err := o.RunAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)

	ends := sink.perSession(telemetry.EventSessionEnd)
	require.Len(t, ends, 1)
	for id := range ends {
		recs := sink.bySession(id)
		last := recs[len(recs)-1]
		require.Equal(t, telemetry.EventSessionEnd, last.EventType)
		assert.NotEmpty(t, last.Metadata["error"])
	}
}

// failingNavSession refuses every navigation.
type failingNavSession struct {
	fakeSession
}

func (f *failingNavSession) Navigate(context.Context, string, time.Duration) error {
	return errors.New("net::ERR_CONNECTION_REFUSED")
}

func TestRunSessionPanicContained(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	o := newTestOrchestrator(t, Config{
		Sessions: 1,
		Mix:      normalOnlyMix(t),
		NewSession: func(context.Context, string, string, *telemetry.Logger) (Session, scenario.PassiveMonitor, error) {
			panic("factory went sideways")
		},
	}, sink)

	summary, err := o.RunAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)

	ends := sink.perSession(telemetry.EventSessionEnd)
	require.Len(t, ends, 1)
	for id := range ends {
		recs := sink.bySession(id)
		last := recs[len(recs)-1]
		assert.Contains(t, last.Metadata["error"], "session panic")
	}
}

func TestRunAllHonorsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &recordingSink{}
	o := newTestOrchestrator(t, Config{
		Sessions:    50,
		Mix:         normalOnlyMix(t),
		Concurrency: 1,
		NewSession: func(fctx context.Context, _ string, _ string, _ *telemetry.Logger) (Session, scenario.PassiveMonitor, error) {
			// Block until the run is cancelled, so dispatch stalls on the
			// concurrency gate with sessions still pending.
			<-fctx.Done()
			return nil, nil, fctx.Err()
		},
	}, sink)

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	summary, err := o.RunAll(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, summary.Sessions, 50, "cancellation stopped dispatch early")

	// Framing holds for every session that did start.
	starts := sink.perSession(telemetry.EventSessionStart)
	ends := sink.perSession(telemetry.EventSessionEnd)
	for id := range starts {
		assert.Equal(t, 1, ends[id], "session %s framed despite cancellation", id)
	}
}

func TestArchetypeSequenceDeterministic(t *testing.T) {
	t.Parallel()

	run := func(seed int64) []string {
		sink := &recordingSink{}
		o := newTestOrchestrator(t, Config{
			Sessions: 8,
			Mix:      scenario.DefaultMix(),
			Seed:     seed,
			NewSession: func(context.Context, string, string, *telemetry.Logger) (Session, scenario.PassiveMonitor, error) {
				return &fakeSession{}, fakeMonitor{}, nil
			},
		}, sink)
		_, err := o.RunAll(context.Background())
		require.NoError(t, err)

		sink.mu.Lock()
		defer sink.mu.Unlock()
		var archetypes []string
		for _, rec := range sink.records {
			if rec.EventType == telemetry.EventSessionStart {
				archetypes = append(archetypes, rec.Archetype)
			}
		}
		return archetypes
	}

	first := run(99)
	second := run(99)
	assert.Equal(t, first, second, "same seed yields the same archetype sequence")
}
