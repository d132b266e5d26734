// File: cmd/run.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/ghostwalk/internal/browser"
	"github.com/xkilldash9x/ghostwalk/internal/config"
	"github.com/xkilldash9x/ghostwalk/internal/observability"
	"github.com/xkilldash9x/ghostwalk/internal/orchestrator"
	"github.com/xkilldash9x/ghostwalk/internal/scenario"
	"github.com/xkilldash9x/ghostwalk/internal/telemetry"
)

const engineShutdownGrace = 15 * time.Second

// newRunCmd creates and configures the `run` command.
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Runs a batch of synthetic user sessions against the target",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags to their viper keys so CLI flags override file and
			// env values with the right precedence.
			bindings := map[string]string{
				"run.base_url":     "url",
				"run.sessions":     "sessions",
				"run.mix":          "mix",
				"run.output":       "output",
				"run.concurrency":  "concurrency",
				"run.seed":         "seed",
				"browser.headless": "headless",
			}
			for key, flag := range bindings {
				if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return err
				}
			}
			return nil
		},
		RunE: runBatch,
	}

	runCmd.Flags().String("url", "http://localhost:3000", "target base URL")
	runCmd.Flags().IntP("sessions", "n", 50, "number of sessions to generate")
	runCmd.Flags().String("mix", "normal:0.4,frustrated:0.3,lost:0.2,error:0.1", "archetype mix as name:weight pairs")
	runCmd.Flags().StringP("output", "o", "", "telemetry destination (default ghostwalk-<timestamp>.ndjson, - for stdout)")
	runCmd.Flags().IntP("concurrency", "j", 1, "maximum concurrent sessions")
	runCmd.Flags().Int64("seed", 0, "random seed (0 derives one from the clock)")
	runCmd.Flags().Bool("headless", true, "run the browser headless")

	return runCmd
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := observability.GetLogger()

	cfg, err := config.NewFromViper(viper.GetViper())
	if err != nil {
		return err
	}

	mix, err := scenario.ParseMix(cfg.Run.Mix)
	if err != nil {
		return fmt.Errorf("invalid archetype mix: %w", err)
	}

	seed := cfg.Run.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	output := cfg.Run.Output
	if output == "" {
		output = fmt.Sprintf("ghostwalk-%s.ndjson", time.Now().Format("20060102-150405"))
	}
	sink, err := telemetry.NewSink(output)
	if err != nil {
		return fmt.Errorf("failed to open telemetry sink: %w", err)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logger.Warn("Failed to close telemetry sink.", zap.Error(err))
		}
	}()

	logger.Info("Starting run.",
		zap.String("base_url", cfg.Run.BaseURL),
		zap.Int("sessions", cfg.Run.Sessions),
		zap.String("mix", cfg.Run.Mix),
		zap.String("output", output),
		zap.Int("concurrency", cfg.Run.Concurrency),
		zap.Int64("seed", seed),
	)

	engine, err := browser.NewEngine(ctx, browser.EngineOptions{Headless: cfg.Browser.Headless}, logger)
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), engineShutdownGrace)
		defer cancel()
		if err := engine.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Browser engine shutdown failed.", zap.Error(err))
		}
	}()

	orch, err := orchestrator.New(orchestrator.Config{
		BaseURL:     cfg.Run.BaseURL,
		Sessions:    cfg.Run.Sessions,
		Mix:         mix,
		Concurrency: cfg.Run.Concurrency,
		Seed:        seed,
		NewSession:  newSessionFactory(engine, cfg),
	}, sink, logger)
	if err != nil {
		return err
	}

	summary, err := orch.RunAll(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("Run aborted by signal.",
				zap.Int("completed", summary.Completed),
				zap.Int("failed", summary.Failed),
			)
			return nil
		}
		return err
	}

	logger.Info("Telemetry written.", zap.String("output", output))
	return nil
}

// newSessionFactory adapts the browser engine to the orchestrator's session
// factory, wiring passive monitor callbacks straight into the session's
// telemetry stream.
func newSessionFactory(engine *browser.Engine, cfg *config.Config) orchestrator.SessionFactory {
	return func(ctx context.Context, id, userAgent string, events *telemetry.Logger) (orchestrator.Session, scenario.PassiveMonitor, error) {
		sess, err := engine.NewSession(ctx, id, browser.SessionOptions{
			UserAgent:      userAgent,
			ViewportWidth:  cfg.Browser.ViewportWidth,
			ViewportHeight: cfg.Browser.ViewportHeight,
		})
		if err != nil {
			return nil, nil, err
		}

		monitor := sess.NewMonitor(browser.MonitorCallbacks{
			OnConsoleError: func(text, url string) {
				events.Emit(telemetry.EventConsoleError, url, "", map[string]any{"message": text})
			},
			OnPageError: func(text, url string) {
				events.Emit(telemetry.EventPageError, url, "", map[string]any{"message": text})
			},
			OnNetworkError: func(url string, status int) {
				events.Emit(telemetry.EventNetworkError, url, "", map[string]any{"status": status})
			},
		})
		return sess, monitor, nil
	}
}
