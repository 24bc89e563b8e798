package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
)

// Common errors.
var (
	ErrNotFound     = errors.New("http: resource not found")
	ErrForbidden    = errors.New("http: access forbidden")
	ErrUnauthorized = errors.New("http: unauthorized")
	ErrBadRequest   = errors.New("http: bad request")
	ErrServerError  = errors.New("http: server error")
	ErrNotJSON      = errors.New("http: response is not JSON")
)

// Options configures the HTTP client.
type Options struct {
	// MaxIdleConnsPerHost sets the maximum idle connections per host.
	// Default: 16
	MaxIdleConnsPerHost int

	// Timeout for individual JSON requests.
	// Default: 2s
	Timeout time.Duration

	// DownloadTimeout for file downloads. Zero disables the timeout.
	// Default: 10m
	DownloadTimeout time.Duration

	// RetryAttempts is the maximum number of retry attempts for downloads.
	// Default: 3
	RetryAttempts int

	// RetryBackoff is the initial backoff duration.
	// Default: 500ms
	RetryBackoff time.Duration

	// RetryMaxBackoff is the maximum backoff duration.
	// Default: 10s
	RetryMaxBackoff time.Duration

	// UserAgent is sent with every request when set.
	UserAgent string
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		MaxIdleConnsPerHost: 16,
		Timeout:             2 * time.Second,
		DownloadTimeout:     10 * time.Minute,
		RetryAttempts:       3,
		RetryBackoff:        500 * time.Millisecond,
		RetryMaxBackoff:     10 * time.Second,
	}
}

// File is a downloaded attachment. The caller must close Body.
type File struct {
	Body        io.ReadCloser
	Filename    string
	ContentType string
	Size        int64 // -1 if unknown
}

// Client performs the requests issued by asyncview flows.
type Client struct {
	client   *http.Client
	download *http.Client
	opts     Options
}

// NewClient creates a new HTTP client with the given options.
func NewClient(opts Options) *Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: opts.MaxIdleConnsPerHost,
		MaxIdleConns:        opts.MaxIdleConnsPerHost * 2,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		download: &http.Client{
			Transport: transport,
			Timeout:   opts.DownloadTimeout,
		},
		opts: opts,
	}
}

// GetJSON performs a single GET request and decodes the JSON body into v.
// Non-2xx responses, timeouts and undecodable bodies are errors.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	req, err := c.newRequest(ctx, url)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatusCode(resp.StatusCode); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrNotJSON, err)
	}
	return nil
}

// Fetch downloads the resource at url. Server errors and network failures
// are retried with exponential backoff; other status codes fail immediately.
func (c *Client) Fetch(ctx context.Context, url string) (*File, error) {
	var (
		file      *File
		attempts  int
		retryable bool
	)

	operation := func() error {
		attempts++
		retryable = false

		req, err := c.newRequest(ctx, url)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.download.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			retryable = true
			return err
		}

		// Server errors are retryable
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			retryable = true
			return fmt.Errorf("%w: %d %s", ErrServerError, resp.StatusCode, resp.Status)
		}

		if err := checkStatusCode(resp.StatusCode); err != nil {
			resp.Body.Close()
			return backoff.Permanent(err)
		}

		file = &File{
			Body:        resp.Body,
			Filename:    filename(resp),
			ContentType: resp.Header.Get("Content-Type"),
			Size:        resp.ContentLength,
		}
		return nil
	}

	if err := backoff.Retry(operation, c.retryPolicy(ctx)); err != nil {
		if retryable && ctx.Err() == nil {
			return nil, fmt.Errorf("download failed after %d attempts: %w", attempts, err)
		}
		return nil, err
	}
	return file, nil
}

// retryPolicy doubles RetryBackoff up to RetryMaxBackoff with 0.5 to 1.5
// jitter and gives up after RetryAttempts retries.
func (c *Client) retryPolicy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.RetryBackoff
	b.MaxInterval = c.opts.RetryMaxBackoff
	b.RandomizationFactor = 0.5
	b.Multiplier = 2
	b.MaxElapsedTime = 0

	retries := c.opts.RetryAttempts
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

func (c *Client) newRequest(ctx context.Context, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}
	return req, nil
}

// checkStatusCode returns an appropriate error for non-success status codes.
func checkStatusCode(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusBadRequest:
		return ErrBadRequest
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusForbidden:
		return ErrForbidden
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	case code >= 500:
		return fmt.Errorf("%w: %d", ErrServerError, code)
	default:
		return fmt.Errorf("unexpected status code: %d", code)
	}
}

// filename picks the attachment name from Content-Disposition, falling back
// to the last path segment of the request URL.
func filename(resp *http.Response) string {
	if name := ParseContentDisposition(resp.Header.Get("Content-Disposition")); name != "" {
		return name
	}
	if resp.Request != nil && resp.Request.URL != nil {
		if base := path.Base(resp.Request.URL.Path); base != "/" && base != "." {
			return base
		}
	}
	return ""
}

// ParseContentDisposition returns the filename parameter of a
// Content-Disposition header, or "" if there is none. Directory components
// are stripped.
func ParseContentDisposition(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		// Servers often send unquoted names with spaces.
		const key = "filename="
		i := strings.Index(strings.ToLower(header), key)
		if i < 0 {
			return ""
		}
		name := strings.TrimSpace(header[i+len(key):])
		if j := strings.IndexByte(name, ';'); j >= 0 {
			name = name[:j]
		}
		return sanitize(strings.Trim(name, `"`))
	}
	return sanitize(params["filename"])
}

func sanitize(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = path.Base(name)
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}
