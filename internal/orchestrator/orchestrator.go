// File: internal/orchestrator/orchestrator.go
// Package orchestrator runs the session fleet: it draws an archetype per
// session, provisions an isolated browser session through an injected
// factory, executes the archetype script, and guarantees the telemetry
// stream's framing invariant. It is injected with interfaces, so the whole
// lifecycle is testable without a browser.
package orchestrator

import (
	"context"
	"fmt"
	"math/rand"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/ghostwalk/internal/discovery"
	"github.com/xkilldash9x/ghostwalk/internal/interact"
	"github.com/xkilldash9x/ghostwalk/internal/scenario"
	"github.com/xkilldash9x/ghostwalk/internal/telemetry"
)

// baseUserAgent is the stock UA the session tag is appended to, so server
// logs can be joined against the telemetry stream by session ID.
const baseUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// sessionStartInterval paces session starts so the fleet ramps up instead of
// stampeding the target.
const sessionStartInterval = 500 * time.Millisecond

// Session is one live browser tab, as the orchestrator sees it. Satisfied by
// *browser.Session.
type Session interface {
	interact.Page
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	Evaluate(ctx context.Context, expression string, out any) error
	Close(ctx context.Context)
}

// SessionFactory provisions an isolated session and its passive monitor.
// The session's telemetry logger is handed in so monitor callbacks can emit
// directly into the stream. The monitor may be nil.
type SessionFactory func(ctx context.Context, id, userAgent string, events *telemetry.Logger) (Session, scenario.PassiveMonitor, error)

// Config is everything a run needs.
type Config struct {
	BaseURL     string
	Sessions    int
	Mix         scenario.Mix
	Concurrency int
	Seed        int64

	NewSession SessionFactory

	// StartInterval paces session starts; zero means the default.
	StartInterval time.Duration
	// Profile overrides the per-archetype timing profile. Nil uses
	// scenario.DefaultProfile.
	Profile func(scenario.Archetype) scenario.Profile
}

// Summary is the tally reported when a run finishes.
type Summary struct {
	Sessions     int
	Completed    int
	Failed       int
	PerArchetype map[scenario.Archetype]int
	Elapsed      time.Duration
}

// Orchestrator drives one run.
type Orchestrator struct {
	cfg    Config
	runID  string
	sink   telemetry.Sink
	logger *zap.Logger
}

// New validates the run configuration and builds an orchestrator.
func New(cfg Config, sink telemetry.Sink, logger *zap.Logger) (*Orchestrator, error) {
	if cfg.NewSession == nil || sink == nil || logger == nil {
		return nil, fmt.Errorf("cannot initialize orchestrator with nil dependencies")
	}
	if cfg.Sessions <= 0 {
		return nil, fmt.Errorf("session count must be positive, got %d", cfg.Sessions)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.StartInterval <= 0 {
		cfg.StartInterval = sessionStartInterval
	}
	if cfg.Profile == nil {
		cfg.Profile = scenario.DefaultProfile
	}
	mix, err := cfg.Mix.Normalize()
	if err != nil {
		return nil, fmt.Errorf("invalid archetype mix: %w", err)
	}
	cfg.Mix = mix
	runID := uuid.New().String()
	return &Orchestrator{
		cfg:    cfg,
		runID:  runID,
		sink:   sink,
		logger: logger.Named("orchestrator").With(zap.String("run_id", runID)),
	}, nil
}

// RunAll executes the configured number of sessions and returns the tally.
// Individual session failures are absorbed into their session_end records;
// only context cancellation stops the run early.
func (o *Orchestrator) RunAll(ctx context.Context) (Summary, error) {
	start := time.Now()
	o.logger.Info("Run starting.",
		zap.String("base_url", o.cfg.BaseURL),
		zap.Int("sessions", o.cfg.Sessions),
		zap.Int("concurrency", o.cfg.Concurrency),
		zap.Int64("seed", o.cfg.Seed),
	)

	// The archetype draw happens on the dispatch goroutine with its own
	// source, so the archetype sequence is a pure function of the seed
	// regardless of concurrency.
	pickRNG := rand.New(rand.NewSource(o.cfg.Seed))
	limiter := rate.NewLimiter(rate.Every(o.cfg.StartInterval), 1)
	sem := semaphore.NewWeighted(int64(o.cfg.Concurrency))

	results := make(chan error, o.cfg.Sessions)
	g, gctx := errgroup.WithContext(ctx)

	dispatched := 0
	perArchetype := make(map[scenario.Archetype]int)
	for i := 0; i < o.cfg.Sessions; i++ {
		if err := limiter.Wait(gctx); err != nil {
			break
		}
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}

		index := i
		archetype := o.cfg.Mix.Pick(pickRNG)
		dispatched++
		perArchetype[archetype]++

		g.Go(func() error {
			defer sem.Release(1)
			results <- o.runSession(gctx, index, archetype)
			return nil
		})
	}

	_ = g.Wait()
	close(results)

	summary := Summary{Sessions: dispatched, PerArchetype: perArchetype}
	for err := range results {
		if err != nil {
			summary.Failed++
		} else {
			summary.Completed++
		}
	}
	summary.Elapsed = time.Since(start)

	archetypeCounts := make(map[string]int, len(perArchetype))
	for a, n := range perArchetype {
		archetypeCounts[string(a)] = n
	}
	o.logger.Info("Run complete.",
		zap.Int("sessions", summary.Sessions),
		zap.Int("completed", summary.Completed),
		zap.Int("failed", summary.Failed),
		zap.Any("archetypes", archetypeCounts),
		zap.Duration("elapsed", summary.Elapsed),
	)

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

// runSession executes one full session lifecycle. Whatever happens in
// between, exactly one session_start and one session_end reach the stream.
func (o *Orchestrator) runSession(ctx context.Context, index int, archetype scenario.Archetype) error {
	sessionID := fmt.Sprintf("s%04d-%x", index, time.Now().UnixNano())
	logger := o.logger.With(zap.String("session_id", sessionID), zap.String("archetype", string(archetype)))
	events := telemetry.NewLogger(o.sink, sessionID, string(archetype), logger)
	rng := rand.New(rand.NewSource(o.cfg.Seed + int64(index)))

	started := time.Now()
	events.Emit(telemetry.EventSessionStart, o.cfg.BaseURL, "", map[string]any{
		"index":  index,
		"run_id": o.runID,
	})

	res, stack, err := o.provisionAndRun(ctx, sessionID, archetype, events, rng, logger)

	endMeta := map[string]any{
		"actions":     res.Actions,
		"duration_ms": time.Since(started).Milliseconds(),
	}
	if archetype == scenario.ArchetypeError {
		endMeta["form_state"] = string(res.FormState)
		endMeta["form_abandoned"] = res.FormAbandoned
	}
	if err != nil {
		endMeta["error"] = err.Error()
		if stack != "" {
			endMeta["stack"] = stack
		}
		logger.Warn("Session failed.", zap.Error(err))
	}
	events.Emit(telemetry.EventSessionEnd, o.cfg.BaseURL, "", endMeta)
	return err
}

// provisionAndRun creates the browser session, assembles the script
// environment, and executes the archetype script. Panics inside a script are
// contained here so one broken session cannot take down the run.
func (o *Orchestrator) provisionAndRun(
	ctx context.Context,
	sessionID string,
	archetype scenario.Archetype,
	events *telemetry.Logger,
	rng *rand.Rand,
	logger *zap.Logger,
) (res scenario.Result, stack string, err error) {
	defer func() {
		if r := recover(); r != nil {
			stack = string(debug.Stack())
			err = fmt.Errorf("session panic: %v", r)
			logger.Error("Session panicked.",
				zap.Any("panic", r),
				zap.String("stack", stack),
			)
		}
	}()

	userAgent := fmt.Sprintf("%s ghostwalk/%s", baseUserAgent, sessionID)
	sess, monitor, err := o.cfg.NewSession(ctx, sessionID, userAgent, events)
	if err != nil {
		return res, "", fmt.Errorf("failed to provision session: %w", err)
	}
	defer sess.Close(context.Background())

	script, ok := scenario.Scripts()[archetype]
	if !ok {
		return res, "", fmt.Errorf("no script registered for archetype %q", archetype)
	}

	actor := interact.NewActor(sess, events, rng, logger, interact.Options{})
	env := &scenario.Env{
		BaseURL: o.cfg.BaseURL,
		Page:    sess,
		Actor:   actor,
		Discover: func(dctx context.Context) []discovery.InteractiveElement {
			return discovery.Discover(dctx, sess, logger)
		},
		Events:  events,
		Monitor: monitor,
		Form:    interact.NewFormTracker(),
		RNG:     rng,
		Logger:  logger,
		Profile: o.cfg.Profile(archetype),
	}

	res, err = script(ctx, env)
	return res, "", err
}
