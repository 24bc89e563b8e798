package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"gocloud.dev/blob"

	"github.com/EeroPaukkonen/django-celery-async-view/internal/config"
	"github.com/EeroPaukkonen/django-celery-async-view/internal/downloader"
	"github.com/EeroPaukkonen/django-celery-async-view/internal/progress"
	"github.com/EeroPaukkonen/django-celery-async-view/pkg/asyncview"
)

// runDownload starts a file creation task, waits until the file is ready and
// saves it to a bucket.
func runDownload(args []string) int {
	fs := flag.NewFlagSet("download", flag.ExitOnError)

	flags := addCommonFlags(fs, "Key prefix for the saved file")
	retryAttempts := fs.Int("retry-attempts", 0, "Max retry attempts for the file transfer (default 3)")
	retryBackoff := fs.Duration("retry-backoff", 0, "Initial retry backoff (default 500ms)")
	retryMaxBackoff := fs.Duration("retry-max-backoff", 0, "Max retry backoff (default 10s)")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: asyncview download [options]

Request the creation endpoint, poll the returned task until the file is ready
and save the file under its attachment name in the bucket. Polls are never
retried; only the final file transfer is.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	cfg, err := flags.load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	cfg = cfg.Merge(config.Config{Retry: config.RetryConfig{
		Attempts:   *retryAttempts,
		Backoff:    *retryBackoff,
		MaxBackoff: *retryMaxBackoff,
	}})
	if err := cfg.ValidateDownload(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fs.Usage()
		return ExitInvalidArgs
	}

	ctx, cancel := signalContext()
	defer cancel()

	return download(ctx, cfg, *flags.verbose, flags.logger())
}

func download(ctx context.Context, cfg config.Config, verbose bool, logger *slog.Logger) int {
	bkt, err := blob.OpenBucket(ctx, cfg.Bucket)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening bucket: %v\n", err)
		return ExitStorageError
	}
	defer bkt.Close()

	reporter := newReporter(cfg, verbose)
	saver := downloader.NewSaver(bkt, downloader.Options{
		Prefix:      cfg.Object,
		HTTPOptions: downloadHTTPOptions(cfg),
		Progress:    reporter,
	})

	err = asyncview.RunDownload(ctx, asyncview.DownloadOptions{
		BaseURL:   cfg.BaseURL,
		Navigator: saver,
		Options:   flowOptions(cfg, reporter, logger),
	})
	if err != nil {
		return exitCode(ctx, err)
	}

	for _, f := range saver.Saved() {
		fmt.Fprintf(os.Stderr, "[asyncview] Saved %s (%s) from task %s\n", f.Key, progress.FormatBytes(f.Size), f.TaskID)
	}
	return ExitSuccess
}
