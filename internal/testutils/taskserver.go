package testutils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"
)

// TaskPath is the path of the fake endpoint.
const TaskPath = "/report"

// TaskServerOptions configures the fake task server.
type TaskServerOptions struct {
	// TaskID is returned by the creation endpoint. Default: "task-1".
	TaskID string

	// ReadyOnCreate makes the creation endpoint report the task as ready.
	ReadyOnCreate bool

	// ReadyAfter is the number of status polls answered with ready=false
	// before the task is ready. Negative means never ready.
	ReadyAfter int

	// HTML is returned with the ready status.
	HTML string

	// File, Filename and ContentType make up the download response.
	File        []byte
	Filename    string
	ContentType string

	// FailPoll makes the status poll with this 1-based index answer 500.
	FailPoll int

	// StatusDelay delays every status response.
	StatusDelay time.Duration
}

// TaskServer is a fake server for a single asynchronous task.
type TaskServer struct {
	*httptest.Server
	opts TaskServerOptions

	mu        sync.Mutex
	creates   int
	polls     int
	downloads int
	requests  []string
}

// NewTaskServer starts a fake task server that is closed when the test ends.
func NewTaskServer(t *testing.T, opts TaskServerOptions) *TaskServer {
	t.Helper()

	if opts.TaskID == "" {
		opts.TaskID = "task-1"
	}
	if opts.ContentType == "" {
		opts.ContentType = "application/octet-stream"
	}

	s := &TaskServer{opts: opts}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// BaseURL returns the creation/status endpoint URL.
func (s *TaskServer) BaseURL() string {
	return s.URL + TaskPath
}

// Creates returns the number of creation requests served.
func (s *TaskServer) Creates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creates
}

// Polls returns the number of status requests served.
func (s *TaskServer) Polls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls
}

// Downloads returns the number of download requests served.
func (s *TaskServer) Downloads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.downloads
}

// Requests returns the request URIs served, in order.
func (s *TaskServer) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *TaskServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != TaskPath {
		http.NotFound(w, r)
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, r.URL.RequestURI())
	s.mu.Unlock()

	q := r.URL.Query()
	taskID := q.Get("task_id")
	switch {
	case taskID == "":
		s.create(w)
	case taskID != s.opts.TaskID:
		http.Error(w, "unknown task", http.StatusBadRequest)
	case q.Get("download") == "true":
		s.download(w)
	default:
		s.status(w)
	}
}

func (s *TaskServer) create(w http.ResponseWriter) {
	s.mu.Lock()
	s.creates++
	s.mu.Unlock()

	writeJSON(w, map[string]any{"task_id": s.opts.TaskID, "ready": s.opts.ReadyOnCreate})
}

func (s *TaskServer) status(w http.ResponseWriter) {
	s.mu.Lock()
	s.polls++
	n := s.polls
	s.mu.Unlock()

	if s.opts.StatusDelay > 0 {
		time.Sleep(s.opts.StatusDelay)
	}
	if n == s.opts.FailPoll {
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}

	ready := s.opts.ReadyAfter >= 0 && n > s.opts.ReadyAfter
	if !ready {
		writeJSON(w, map[string]any{"ready": false})
		return
	}
	writeJSON(w, map[string]any{"ready": true, "html": s.opts.HTML})
}

func (s *TaskServer) download(w http.ResponseWriter) {
	s.mu.Lock()
	s.downloads++
	s.mu.Unlock()

	w.Header().Set("Content-Type", s.opts.ContentType)
	if s.opts.Filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", s.opts.Filename))
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(s.opts.File)))
	w.Write(s.opts.File)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
