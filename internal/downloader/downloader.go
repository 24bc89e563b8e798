package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"sync"
	"time"

	"gocloud.dev/blob"

	asynchttp "github.com/EeroPaukkonen/django-celery-async-view/internal/http"
	"github.com/EeroPaukkonen/django-celery-async-view/internal/progress"
)

// DefaultFilename is used when the server names no file.
const DefaultFilename = "download"

// ErrStore wraps bucket errors raised while saving a file.
var ErrStore = errors.New("downloader: store failed")

// Options configures the saver.
type Options struct {
	// Prefix is prepended to every object key.
	Prefix string

	// HTTPOptions configures the HTTP client used for fetching.
	HTTPOptions asynchttp.Options

	// Progress is an optional progress reporter.
	Progress *progress.Reporter
}

// FileInfo describes a saved file.
type FileInfo struct {
	Key         string
	Filename    string
	ContentType string
	Size        int64
	SourceURL   string
	TaskID      string
}

// Saver fetches download URLs and stores the responses in a bucket.
// It is safe for concurrent use by several flows.
type Saver struct {
	client *asynchttp.Client
	bucket *blob.Bucket
	opts   Options

	mu    sync.Mutex
	saved []FileInfo
}

// NewSaver creates a saver writing into bucket.
func NewSaver(bucket *blob.Bucket, opts Options) *Saver {
	if opts.HTTPOptions.MaxIdleConnsPerHost == 0 {
		opts.HTTPOptions = asynchttp.DefaultOptions()
	}
	return &Saver{
		client: asynchttp.NewClient(opts.HTTPOptions),
		bucket: bucket,
		opts:   opts,
	}
}

// Navigate saves the file at rawURL. It implements asyncview.Navigator.
func (s *Saver) Navigate(ctx context.Context, rawURL string) error {
	_, err := s.Save(ctx, rawURL)
	return err
}

// Save fetches rawURL and writes the body to the bucket.
func (s *Saver) Save(ctx context.Context, rawURL string) (*FileInfo, error) {
	start := time.Now()

	file, err := s.client.Fetch(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer file.Body.Close()

	name := file.Filename
	if name == "" {
		name = DefaultFilename
	}
	info := FileInfo{
		Key:         path.Join(s.opts.Prefix, name),
		Filename:    name,
		ContentType: file.ContentType,
		SourceURL:   rawURL,
		TaskID:      taskID(rawURL),
	}

	if s.opts.Progress != nil {
		s.opts.Progress.FileStarted(info.Key, file.Size)
	}

	n, err := s.write(ctx, info, file.Body)
	if err != nil {
		if s.opts.Progress != nil {
			s.opts.Progress.FileFailed(info.Key, err)
		}
		return nil, err
	}
	info.Size = n

	if s.opts.Progress != nil {
		s.opts.Progress.FileSaved(info.Key, n, time.Since(start))
	}

	s.mu.Lock()
	s.saved = append(s.saved, info)
	s.mu.Unlock()

	return &info, nil
}

// write streams r into the bucket. Cancelling the writer context before
// Close discards the partial object.
func (s *Saver) write(ctx context.Context, info FileInfo, r io.Reader) (int64, error) {
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w, err := s.bucket.NewWriter(wctx, info.Key, &blob.WriterOptions{
		ContentType: info.ContentType,
		Metadata: map[string]string{
			"source_url": info.SourceURL,
			"task_id":    info.TaskID,
		},
	})
	if err != nil {
		return 0, fmt.Errorf("%w: create writer %s: %w", ErrStore, info.Key, err)
	}

	n, err := io.Copy(w, r)
	if err != nil {
		cancel()
		w.Close()
		return 0, fmt.Errorf("write %s: %w", info.Key, err)
	}

	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("%w: close %s: %w", ErrStore, info.Key, err)
	}
	return n, nil
}

// Saved returns the files saved so far, in completion order.
func (s *Saver) Saved() []FileInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]FileInfo, len(s.saved))
	copy(out, s.saved)
	return out
}

func taskID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Query().Get("task_id")
}
