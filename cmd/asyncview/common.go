package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/EeroPaukkonen/django-celery-async-view/internal/config"
	"github.com/EeroPaukkonen/django-celery-async-view/internal/document"
	"github.com/EeroPaukkonen/django-celery-async-view/internal/downloader"
	asynchttp "github.com/EeroPaukkonen/django-celery-async-view/internal/http"
	"github.com/EeroPaukkonen/django-celery-async-view/internal/progress"
	"github.com/EeroPaukkonen/django-celery-async-view/pkg/asyncview"
)

const userAgent = "asyncview"

// commonFlags are the flags shared by view and download.
type commonFlags struct {
	url            *string
	bucket         *string
	object         *string
	pollInterval   *string
	maxPolls       *int
	requestTimeout *time.Duration
	configFile     *string
	envFile        *string
	progress       *bool
	verbose        *bool
}

func addCommonFlags(fs *flag.FlagSet, objectUsage string) *commonFlags {
	return &commonFlags{
		url:            fs.String("url", "", "Task endpoint URL"),
		bucket:         fs.String("bucket", "", "Destination bucket URL (required)"),
		object:         fs.String("object", "", objectUsage),
		pollInterval:   fs.String("poll-interval", "", "Poll interval: a duration, milliseconds or a comma separated schedule (default 500ms,2.5s,10s)"),
		maxPolls:       fs.Int("max-polls", 0, "Number of not-ready polls before giving up (default 20)"),
		requestTimeout: fs.Duration("request-timeout", 0, "Timeout of each request (default 2s)"),
		configFile:     fs.String("config", "", "YAML config file"),
		envFile:        fs.String("env-file", ".env", "Environment file, ignored if missing"),
		progress:       fs.Bool("progress", false, "Show progress output"),
		verbose:        fs.Bool("v", false, "Log every state transition"),
	}
}

// load builds the configuration from .env, the config file, the environment
// and the flags.
func (f *commonFlags) load() (config.Config, error) {
	if err := config.LoadDotEnv(*f.envFile); err != nil {
		return config.Config{}, err
	}

	cfg := config.Default()
	if *f.configFile != "" {
		fileCfg, err := config.LoadFromFile(*f.configFile)
		if err != nil {
			return config.Config{}, err
		}
		cfg = cfg.Merge(fileCfg)
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return config.Config{}, err
	}

	override := config.Config{
		BaseURL:        *f.url,
		Bucket:         *f.bucket,
		Object:         *f.object,
		MaxPolls:       *f.maxPolls,
		RequestTimeout: *f.requestTimeout,
		Progress:       *f.progress,
	}
	if *f.pollInterval != "" {
		s, err := asyncview.ParseSchedule(*f.pollInterval)
		if err != nil {
			return config.Config{}, fmt.Errorf("parse -poll-interval: %w", err)
		}
		override.PollInterval = s
	}
	return cfg.Merge(override), nil
}

func (f *commonFlags) logger() *slog.Logger {
	if !*f.verbose {
		return nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// flowOptions returns the flow options described by cfg. reporter may be nil.
func flowOptions(cfg config.Config, reporter *progress.Reporter, logger *slog.Logger) asyncview.Options {
	httpOpts := asynchttp.DefaultOptions()
	httpOpts.Timeout = cfg.RequestTimeout
	httpOpts.UserAgent = userAgent

	opts := asyncview.Options{
		Schedule:       cfg.PollInterval,
		MaxPolls:       cfg.MaxPolls,
		RequestTimeout: cfg.RequestTimeout,
		Transport:      asynchttp.NewClient(httpOpts),
		Logger:         logger,
	}
	if reporter != nil {
		opts.Observer = reporter.Transition
	}
	return opts
}

// downloadHTTPOptions configures the client that fetches finished files.
func downloadHTTPOptions(cfg config.Config) asynchttp.Options {
	opts := asynchttp.DefaultOptions()
	opts.RetryAttempts = cfg.Retry.Attempts
	opts.RetryBackoff = cfg.Retry.Backoff
	opts.RetryMaxBackoff = cfg.Retry.MaxBackoff
	opts.UserAgent = userAgent
	return opts
}

func newReporter(cfg config.Config, verbose bool) *progress.Reporter {
	if !cfg.Progress {
		return nil
	}
	return progress.NewReporter(progress.Options{
		MaxPolls: cfg.MaxPolls,
		Verbose:  verbose,
	})
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\n[asyncview] Received interrupt, shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// exitCode maps a flow error to an exit code and prints it.
func exitCode(ctx context.Context, err error) int {
	if ctx.Err() != nil {
		fmt.Fprintln(os.Stderr, "[asyncview] Interrupted")
		return ExitGeneralError
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)

	var transportErr *asyncview.TransportError
	switch {
	case errors.Is(err, asyncview.ErrBudgetExhausted):
		return ExitBudgetExhausted
	case errors.As(err, &transportErr):
		return ExitTransportError
	case errors.Is(err, document.ErrWrite), errors.Is(err, downloader.ErrStore):
		return ExitStorageError
	default:
		return ExitGeneralError
	}
}
