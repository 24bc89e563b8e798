package asyncview

import (
	"context"
	"fmt"
)

// ViewOptions configures a view flow.
type ViewOptions struct {
	// BaseURL is the status endpoint. Default: Document.Location().
	BaseURL string

	// TaskID identifies the server task. Required.
	TaskID string

	// Document receives the rendered markup once the task is ready.
	// Optional; without it the markup is only published on Rewrites.
	Document Document

	// Rewrites, if set, is notified after the document was replaced.
	Rewrites *RewriteBus

	Options
}

// StartView validates opts and starts polling in a new goroutine.
// Configuration errors are returned immediately and no flow is started.
func StartView(ctx context.Context, opts ViewOptions) (*Flow, error) {
	if opts.TaskID == "" {
		return nil, ErrMissingTaskID
	}
	if opts.BaseURL == "" && opts.Document != nil {
		opts.BaseURL = opts.Document.Location()
	}
	if opts.BaseURL == "" {
		return nil, ErrMissingBaseURL
	}
	if err := opts.applyDefaults(); err != nil {
		return nil, err
	}

	f := newFlow(opts.Options, Scheduled, opts.TaskID)
	go func() {
		f.finish(f.runView(ctx, opts))
	}()
	return f, nil
}

// RunView is StartView followed by Wait.
func RunView(ctx context.Context, opts ViewOptions) error {
	f, err := StartView(ctx, opts)
	if err != nil {
		return err
	}
	return f.Wait()
}

func (f *Flow) runView(ctx context.Context, opts ViewOptions) error {
	f.log.Debug("view flow started", "task_id", opts.TaskID, "base_url", opts.BaseURL)

	resp, err := f.pollUntilReady(ctx, opts.BaseURL, opts.TaskID)
	if err != nil {
		f.fail(err)
		return err
	}

	f.succeed()

	if opts.Document != nil {
		if err := opts.Document.Replace(ctx, resp.HTML); err != nil {
			return fmt.Errorf("replace document: %w", err)
		}
	}
	if opts.Rewrites != nil {
		opts.Rewrites.Publish(RewriteEvent{FlowID: f.id, TaskID: opts.TaskID, HTML: resp.HTML})
	}
	return nil
}
