package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/EeroPaukkonen/django-celery-async-view/pkg/asyncview"
)

// Options configures the progress reporter.
type Options struct {
	// Output is where to write progress output.
	// Default: os.Stderr
	Output io.Writer

	// MaxPolls is the poll budget shown next to the poll count.
	// Zero hides the budget.
	MaxPolls int

	// Verbose also prints a line when each poll request is issued.
	Verbose bool
}

// Reporter outputs human-readable progress information.
type Reporter struct {
	opts Options

	mu     sync.Mutex
	starts map[uuid.UUID]time.Time
}

// NewReporter creates a new progress reporter.
func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	return &Reporter{
		opts:   opts,
		starts: make(map[uuid.UUID]time.Time),
	}
}

// Transition prints a line for a flow state change. It has the signature of
// asyncview.Options.Observer.
func (r *Reporter) Transition(t asyncview.Transition) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start, ok := r.starts[t.FlowID]
	if !ok {
		start = time.Now()
		r.starts[t.FlowID] = start
	}

	task := t.TaskID
	if task == "" {
		task = "<pending>"
	}

	switch t.To {
	case asyncview.Scheduled:
		if t.Attempt == 0 {
			r.printf("Task %s: first poll in %s", task, formatDuration(t.Delay))
			return
		}
		r.printf("Task %s: not ready after poll %s, next poll in %s", task, r.count(t.Attempt), formatDuration(t.Delay))
	case asyncview.Polling:
		if r.opts.Verbose {
			r.printf("Task %s: polling (%s)", task, r.count(t.Attempt))
		}
	case asyncview.Ready:
		r.printf("Task %s: ready after %d polls (%s)", task, t.Attempt, formatDuration(time.Since(start)))
		delete(r.starts, t.FlowID)
	case asyncview.Exhausted:
		r.printf("Task %s: failed after %d polls (%s)", task, t.Attempt, formatDuration(time.Since(start)))
		delete(r.starts, t.FlowID)
	}
}

// FileStarted marks a file transfer as started. size may be -1 if unknown.
func (r *Reporter) FileStarted(key string, size int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if size < 0 {
		r.printf("Saving %s (unknown size)", key)
		return
	}
	r.printf("Saving %s (%s)", key, formatBytes(size))
}

// FileSaved marks a file transfer as completed.
func (r *Reporter) FileSaved(key string, size int64, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	speed := ""
	if secs := elapsed.Seconds(); secs >= 0.1 {
		speed = fmt.Sprintf(" (%s/s)", formatBytes(int64(float64(size)/secs)))
	}
	r.printf("Saved %s: %s in %s%s", key, formatBytes(size), formatDuration(elapsed), speed)
}

// FileFailed marks a file transfer as failed.
func (r *Reporter) FileFailed(key string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.printf("Failed to save %s: %v", key, err)
}

func (r *Reporter) count(n int) string {
	if r.opts.MaxPolls > 0 {
		return fmt.Sprintf("%d/%d", n, r.opts.MaxPolls)
	}
	return fmt.Sprintf("%d", n)
}

// printf writes one line. Callers hold r.mu.
func (r *Reporter) printf(format string, args ...any) {
	fmt.Fprintf(r.opts.Output, "[asyncview] "+format+"\n", args...)
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(b int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)

	switch {
	case b >= TB:
		return fmt.Sprintf("%.2f TB", float64(b)/float64(TB))
	case b >= GB:
		return fmt.Sprintf("%.2f GB", float64(b)/float64(GB))
	case b >= MB:
		return fmt.Sprintf("%.2f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.2f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	if d < time.Minute {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

// FormatBytes is exported for use by other packages.
func FormatBytes(b int64) string {
	return formatBytes(b)
}
