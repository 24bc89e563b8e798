// Package progress reports the progress of asyncview flows.
//
// This package outputs human-readable status lines, one per poll and one per
// saved file. It is safe to share one Reporter between concurrent flows;
// lines are never interleaved.
//
// # Usage
//
//	reporter := progress.NewReporter(progress.Options{
//	    Output:   os.Stderr,
//	    MaxPolls: 20,
//	})
//
//	flow, err := asyncview.StartView(ctx, asyncview.ViewOptions{
//	    TaskID:  taskID,
//	    Options: asyncview.Options{Observer: reporter.Transition},
//	})
//
// # Output Format
//
//	[asyncview] Task 9f1c: first poll in 500ms
//	[asyncview] Task 9f1c: not ready after poll 1/20, next poll in 2.5s
//	[asyncview] Task 9f1c: ready after 2 polls (3.01s)
//	[asyncview] Saving exports/report.csv (1.20 MB)
//	[asyncview] Saved exports/report.csv: 1.20 MB in 0s
package progress
