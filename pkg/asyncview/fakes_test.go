package asyncview

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
)

// fakeTransport answers requests with scripted JSON bodies.
type fakeTransport struct {
	mu      sync.Mutex
	urls    []string
	respond func(url string, n int) (string, error)
}

func (f *fakeTransport) GetJSON(ctx context.Context, url string, v any) error {
	f.mu.Lock()
	f.urls = append(f.urls, url)
	n := len(f.urls)
	f.mu.Unlock()

	body, err := f.respond(url, n)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(body), v)
}

func (f *fakeTransport) requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.urls))
	copy(out, f.urls)
	return out
}

// statusPolls counts requests that carried a task id.
func (f *fakeTransport) statusPolls() int {
	n := 0
	for _, u := range f.requests() {
		if strings.Contains(u, "task_id=") {
			n++
		}
	}
	return n
}

var errNetwork = errors.New("connection refused")

// recorder keeps the order of callbacks and side effects.
type recorder struct {
	mu     sync.Mutex
	events []string
	errs   []error
}

func (r *recorder) add(ev string) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnSuccess: func() { r.add("success") },
		OnError: func(err error) {
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
			r.add("error")
		},
		OnComplete: func() { r.add("complete") },
	}
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recorder) count(ev string) int {
	n := 0
	for _, e := range r.list() {
		if e == ev {
			n++
		}
	}
	return n
}

// fakeDocument records replacements into a recorder.
type fakeDocument struct {
	location string
	rec      *recorder
	html     string
	err      error
}

func (d *fakeDocument) Location() string { return d.location }

func (d *fakeDocument) Replace(ctx context.Context, html string) error {
	if d.err != nil {
		return d.err
	}
	d.html = html
	d.rec.add("replace")
	return nil
}

// fakeNavigator records navigations into a recorder.
type fakeNavigator struct {
	mu   sync.Mutex
	urls []string
	rec  *recorder
	err  error
}

func (n *fakeNavigator) Navigate(ctx context.Context, url string) error {
	n.mu.Lock()
	n.urls = append(n.urls, url)
	n.mu.Unlock()
	if n.rec != nil {
		n.rec.add("navigate")
	}
	return n.err
}
