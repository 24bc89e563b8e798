package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
	"golang.org/x/sync/errgroup"

	"github.com/EeroPaukkonen/django-celery-async-view/internal/config"
	"github.com/EeroPaukkonen/django-celery-async-view/internal/document"
	"github.com/EeroPaukkonen/django-celery-async-view/internal/downloader"
	"github.com/EeroPaukkonen/django-celery-async-view/internal/progress"
	"github.com/EeroPaukkonen/django-celery-async-view/internal/trigger"
	"github.com/EeroPaukkonen/django-celery-async-view/pkg/asyncview"
)

// defaultDocumentKey is the object the view command writes when -object is
// not set.
const defaultDocumentKey = "index.html"

// runView polls a task until its HTML is ready and stores it in a bucket.
func runView(args []string) int {
	fs := flag.NewFlagSet("view", flag.ExitOnError)

	flags := addCommonFlags(fs, "Document object key (default index.html)")
	taskID := fs.String("task-id", "", "Task id to poll (required)")
	follow := fs.Bool("follow", false, "Start a download for every download button in the rendered HTML")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: asyncview view [options]

Poll the status endpoint of a task until it is ready and write the returned
HTML to the document object. With -follow, every async download button in the
HTML starts a download whose file is saved next to the document.

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
	cfg.TaskID = firstNonEmpty(*taskID, cfg.TaskID)
	cfg.Follow = *follow || cfg.Follow
	if cfg.Object == "" {
		cfg.Object = defaultDocumentKey
	}
	if err := cfg.ValidateView(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fs.Usage()
		return ExitInvalidArgs
	}

	ctx, cancel := signalContext()
	defer cancel()

	return view(ctx, cfg, *flags.verbose, flags.logger())
}

func view(ctx context.Context, cfg config.Config, verbose bool, logger *slog.Logger) int {
	bkt, err := blob.OpenBucket(ctx, cfg.Bucket)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening bucket: %v\n", err)
		return ExitStorageError
	}
	defer bkt.Close()

	doc := document.New(bkt, cfg.Object, cfg.BaseURL)
	reporter := newReporter(cfg, verbose)

	var rewrites asyncview.RewriteBus
	g, gctx := errgroup.WithContext(ctx)

	// Rewrites are published on the flow goroutine before RunView returns.
	followed := 0
	if cfg.Follow {
		saver := downloader.NewSaver(bkt, downloader.Options{
			Prefix:      downloadPrefix(cfg.Object),
			HTTPOptions: downloadHTTPOptions(cfg),
			Progress:    reporter,
		})
		unbind := trigger.Bind(&rewrites, func(ev asyncview.RewriteEvent, bindings []trigger.Binding, err error) {
			if err != nil {
				fmt.Fprintf(os.Stderr, "[asyncview] Cannot scan document for download buttons: %v\n", err)
				return
			}
			for _, b := range bindings {
				b := b
				href, err := b.Resolve(cfg.BaseURL)
				if err != nil {
					fmt.Fprintf(os.Stderr, "[asyncview] Skipping download button %q: %v\n", b.Label, err)
					continue
				}
				followed++
				g.Go(func() error {
					return followDownload(gctx, cfg, b, href, saver, reporter, logger)
				})
			}
		})
		defer unbind()
	}

	opts := flowOptions(cfg, reporter, logger)
	err = asyncview.RunView(ctx, asyncview.ViewOptions{
		BaseURL:  cfg.BaseURL,
		TaskID:   cfg.TaskID,
		Document: doc,
		Rewrites: &rewrites,
		Options:  opts,
	})
	if err != nil {
		return exitCode(ctx, err)
	}
	fmt.Fprintf(os.Stderr, "[asyncview] Task %s ready, document written to %s\n", cfg.TaskID, cfg.Object)

	if err := g.Wait(); err != nil {
		return exitCode(ctx, err)
	}
	if followed > 0 {
		fmt.Fprintf(os.Stderr, "[asyncview] Saved %d download(s)\n", followed)
	}
	return ExitSuccess
}

// followDownload runs the download flow of one download button.
func followDownload(ctx context.Context, cfg config.Config, b trigger.Binding, href string,
	saver *downloader.Saver, reporter *progress.Reporter, logger *slog.Logger) error {
	opts := flowOptions(cfg, reporter, logger)
	if b.Schedule != nil {
		opts.Schedule = b.Schedule
	}

	if err := asyncview.RunDownload(ctx, asyncview.DownloadOptions{
		BaseURL:   href,
		Navigator: saver,
		Options:   opts,
	}); err != nil {
		return fmt.Errorf("download %q: %w", b.Label, err)
	}
	return nil
}

// downloadPrefix places followed downloads next to the document.
func downloadPrefix(object string) string {
	if dir := path.Dir(object); dir != "." {
		return dir
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
