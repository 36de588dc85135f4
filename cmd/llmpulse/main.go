package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/llmpulse/llmpulse/internal/bench"
	"github.com/llmpulse/llmpulse/internal/config"
	"github.com/llmpulse/llmpulse/internal/dashboard"
	"github.com/llmpulse/llmpulse/internal/jobs"
	"github.com/llmpulse/llmpulse/internal/llmclient"
	"github.com/llmpulse/llmpulse/internal/metrics"
	"github.com/llmpulse/llmpulse/internal/output"
	"github.com/llmpulse/llmpulse/internal/server"
	"github.com/llmpulse/llmpulse/internal/store"
	"github.com/llmpulse/llmpulse/internal/tracing"
)

const (
	progressInterval  = time.Second
	defaultResultsDir = "results"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(os.Stderr, cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tp, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("tracing shutdown failed")
		}
	}()

	if cfg.Serve {
		return runServer(ctx, *cfg, logger)
	}
	return runBenchmark(ctx, cancel, *cfg, logger, tp)
}

func runServer(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	dir := cfg.OutputFile
	if dir == "" {
		dir = defaultResultsDir
	}
	st, err := store.New(dir)
	if err != nil {
		return err
	}

	manager := jobs.NewManager(st, logger)
	srv := server.New(cfg, manager, st, logger)

	if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runBenchmark(ctx context.Context, cancel context.CancelFunc, cfg config.Config, logger zerolog.Logger, tp *tracing.Provider) error {
	client := llmclient.New(llmclient.Options{
		Endpoint:    cfg.Endpoint,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Timeout:     cfg.Timeout,
		Insecure:    cfg.Insecure,
		ForceHTTP:   cfg.ForceHTTP,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}, tp)

	collector := metrics.NewCollector(cfg.Requests)

	var observer bench.Observer = collector
	if cfg.LogErrors {
		observer = &loggingObserver{next: collector, log: logger}
	}

	runner := bench.NewRunner(bench.Options{
		Requests:        cfg.Requests,
		Pacing:          cfg.RequestDelay,
		Prompt:          cfg.Prompt,
		RandomizePrompt: cfg.RandomizePrompt,
		Buckets:         cfg.Buckets,
		Executor: &bench.Executor{
			Sender: client,
			Classifier: bench.DefaultClassifier{
				MaxRetries: cfg.MaxRetries,
				BaseDelay:  cfg.RetryDelay,
			},
		},
		Observer: observer,
	})

	var dash *dashboard.Dashboard
	if cfg.Dashboard {
		var err error
		dash, err = dashboard.New(collector, runConfigFor(cfg), cancel)
		if err != nil {
			return err
		}
		dash.Start()
	}

	var progress *output.ProgressReporter
	if !cfg.JSONOutput && !cfg.Dashboard {
		progress = output.NewProgressReporter(collector, progressInterval, os.Stdout)
		progress.Start()
	}

	collector.Start()
	result := runner.Run(ctx)
	report := output.BuildReport(cfg.Endpoint, cfg.Model, result)

	if progress != nil {
		progress.Stop()
	}
	if dash != nil {
		dash.Stop()
	}

	if cfg.JSONOutput {
		if err := output.PrintJSONReport(os.Stdout, report); err != nil {
			return err
		}
	} else {
		output.PrintReport(os.Stdout, report)
	}

	if cfg.OutputFile != "" {
		if err := store.WriteReport(cfg.OutputFile, report); err != nil {
			return err
		}
		logger.Info().Str("path", cfg.OutputFile).Msg("report written")
	}

	if report.Failures > 0 {
		return fmt.Errorf("%d of %d requests failed", report.Failures, report.Requests)
	}
	return nil
}

// newLogger builds the process logger; unknown levels fall back to info.
func newLogger(out io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	writer := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	return zerolog.New(writer).Level(lvl).With().Timestamp().Logger()
}

func runConfigFor(cfg config.Config) dashboard.RunConfig {
	return dashboard.RunConfig{
		Endpoint:     cfg.Endpoint,
		Model:        cfg.Model,
		Requests:     cfg.Requests,
		Timeout:      cfg.Timeout,
		MaxRetries:   cfg.MaxRetries,
		RetryDelay:   cfg.RetryDelay,
		RequestDelay: cfg.RequestDelay,
		ConfigFile:   cfg.ConfigFile,
	}
}

// loggingObserver mirrors outcomes to the collector and logs failures.
type loggingObserver struct {
	next bench.Observer
	log  zerolog.Logger
}

func (l *loggingObserver) Observe(o bench.Outcome) {
	if o.Status == bench.StatusFailed {
		l.log.Error().
			Int("request", o.Sequence).
			Int("attempts", o.Attempts).
			Str("failure", string(o.Failure)).
			Msg("request failed")
	}
	l.next.Observe(o)
}
