package asyncview

import (
	"context"
	"errors"
	"fmt"
)

// DownloadOptions configures a download flow.
type DownloadOptions struct {
	// BaseURL is the creation and status endpoint. Required.
	BaseURL string

	// Navigator opens the download URL once the file is ready. Required.
	Navigator Navigator

	Options
}

// creationResponse is the body of a creation endpoint reply.
type creationResponse struct {
	TaskID string `json:"task_id"`
	Ready  bool   `json:"ready"`
}

// StartDownload validates opts and starts the file creation in a new
// goroutine. Configuration errors are returned immediately and no request is
// made.
func StartDownload(ctx context.Context, opts DownloadOptions) (*Flow, error) {
	if opts.BaseURL == "" {
		return nil, ErrMissingBaseURL
	}
	if opts.Navigator == nil {
		return nil, ErrMissingNavigator
	}
	if err := opts.applyDefaults(); err != nil {
		return nil, err
	}

	f := newFlow(opts.Options, Created, "")
	go func() {
		f.finish(f.runDownload(ctx, opts))
	}()
	return f, nil
}

// RunDownload is StartDownload followed by Wait.
func RunDownload(ctx context.Context, opts DownloadOptions) error {
	f, err := StartDownload(ctx, opts)
	if err != nil {
		return err
	}
	return f.Wait()
}

func (f *Flow) runDownload(ctx context.Context, opts DownloadOptions) error {
	f.log.Debug("download flow started", "base_url", opts.BaseURL)

	var created creationResponse
	if err := f.get(ctx, "create", opts.BaseURL, &created); err != nil {
		f.fail(err)
		return err
	}
	if created.TaskID == "" {
		err := &TransportError{Op: "create", URL: opts.BaseURL, Err: errors.New("response has no task_id")}
		f.fail(err)
		return err
	}
	f.setTaskID(created.TaskID)
	f.log.Debug("file creation started", "task_id", created.TaskID, "ready", created.Ready)

	// The readiness reported by the creation request is not a poll and does
	// not count against MaxPolls.
	if !created.Ready {
		if _, err := f.pollUntilReady(ctx, opts.BaseURL, created.TaskID); err != nil {
			f.fail(err)
			return err
		}
	}

	f.succeed()

	url := DownloadURL(opts.BaseURL, created.TaskID)
	if err := opts.Navigator.Navigate(ctx, url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}
