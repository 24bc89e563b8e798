// Package asyncview tracks long-running server tasks and reacts once they complete.
//
// A server computes a result asynchronously and identifies the job with an
// opaque task id. This package polls the server until the task reports ready
// and then performs one of two terminal actions:
//
//   - [StartView] polls a known task id and replaces a [Document] with the
//     rendered markup the server returns, then publishes a [RewriteEvent].
//   - [StartDownload] asks the server to create a file, polls until it is
//     ready, then hands the download URL to a [Navigator].
//
// # Server Contract
//
//	GET base_url                          -> {"task_id": "<id>", "ready": false}
//	GET base_url?task_id=<id>             -> {"ready": true, "html": "<p>done</p>"}
//	GET base_url?task_id=<id>&download=true -> file attachment
//
// # Polling
//
// Each flow is a small state machine:
//
//	Scheduled -> Polling -> Scheduled | Ready | Exhausted
//
// The wait before poll n (zero based) is [Schedule.NextDelay](n). A schedule
// is either a single interval or a graduated sequence whose last value is
// reused once the sequence runs out. A flow gives up after MaxPolls polls that
// report not ready. Any transport failure ends the flow immediately; it is
// never retried.
//
// # Callbacks
//
// [Callbacks] are dispatched exactly once per flow: OnSuccess or OnError,
// followed by OnComplete. For downloads, success means the download was
// handed to the Navigator, not that the file transfer finished.
//
// # Usage
//
//	flow, err := asyncview.StartDownload(ctx, asyncview.DownloadOptions{
//	    BaseURL:   "https://example.com/report",
//	    Navigator: saver,
//	    Options: asyncview.Options{
//	        Schedule: asyncview.Graduated(500*time.Millisecond, 2500*time.Millisecond),
//	        MaxPolls: 10,
//	    },
//	})
//	if err != nil {
//	    return err // configuration error, nothing was started
//	}
//	err = flow.Wait()
package asyncview
