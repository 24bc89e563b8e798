package asyncview

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	asynchttp "github.com/EeroPaukkonen/django-celery-async-view/internal/http"
)

const (
	// DefaultMaxPolls is the poll budget used when Options.MaxPolls is zero.
	DefaultMaxPolls = 20

	// DefaultRequestTimeout bounds every creation and status request.
	DefaultRequestTimeout = 2000 * time.Millisecond
)

// Transport performs a GET request and decodes the JSON body into v.
type Transport interface {
	GetJSON(ctx context.Context, url string, v any) error
}

// Document is the rendered content a view flow replaces.
type Document interface {
	// Location is the base URL used when a view flow is started without one.
	Location() string

	// Replace discards the current content and stores html in its place.
	Replace(ctx context.Context, html string) error
}

// Navigator opens the download URL once a file is ready.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

// Options are shared by view and download flows.
type Options struct {
	// Schedule is the wait before each poll.
	// Default: DefaultSchedule()
	Schedule Schedule

	// MaxPolls is the number of not-ready polls before the flow fails.
	// Default: DefaultMaxPolls
	MaxPolls int

	// RequestTimeout bounds each individual request.
	// Default: DefaultRequestTimeout
	RequestTimeout time.Duration

	// Transport performs the HTTP requests.
	// Default: an internal/http client with default options.
	Transport Transport

	Callbacks Callbacks

	// Observer, if set, receives every state transition on the flow goroutine.
	Observer func(Transition)

	// Logger receives debug output. Default: discard.
	Logger *slog.Logger
}

func (o *Options) applyDefaults() error {
	if o.Schedule == nil {
		o.Schedule = DefaultSchedule()
	}
	if err := o.Schedule.Validate(); err != nil {
		return err
	}
	if o.MaxPolls == 0 {
		o.MaxPolls = DefaultMaxPolls
	}
	if o.MaxPolls < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxPolls, o.MaxPolls)
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}
	if o.Transport == nil {
		httpOpts := asynchttp.DefaultOptions()
		httpOpts.Timeout = o.RequestTimeout
		o.Transport = asynchttp.NewClient(httpOpts)
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return nil
}

// State is a poll loop state.
type State int

const (
	// Created is the state of a download flow waiting for its creation request.
	Created State = iota
	Scheduled
	Polling
	Ready
	Exhausted
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Scheduled:
		return "scheduled"
	case Polling:
		return "polling"
	case Ready:
		return "ready"
	case Exhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	return s == Ready || s == Exhausted
}

// Transition describes a state change of a flow.
type Transition struct {
	FlowID  uuid.UUID
	TaskID  string
	From    State
	To      State
	Attempt int           // polls issued so far
	Delay   time.Duration // wait before the next poll, set when To is Scheduled
}

// Flow is a running view or download flow.
type Flow struct {
	id   uuid.UUID
	opts Options
	log  *slog.Logger

	mu       sync.Mutex
	state    State
	attempts int
	taskID   string

	dispatch sync.Once
	done     chan struct{}
	err      error
}

func newFlow(opts Options, initial State, taskID string) *Flow {
	id := uuid.New()
	return &Flow{
		id:     id,
		opts:   opts,
		log:    opts.Logger.With("flow_id", id.String()),
		state:  initial,
		taskID: taskID,
		done:   make(chan struct{}),
	}
}

// ID identifies the flow in logs and transitions.
func (f *Flow) ID() uuid.UUID {
	return f.id
}

// TaskID returns the task id. For download flows it is empty until the
// creation request returned.
func (f *Flow) TaskID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.taskID
}

// State returns the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Attempts returns the number of status polls issued so far.
func (f *Flow) Attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

// Done is closed once the flow reached a terminal state and its terminal
// action returned.
func (f *Flow) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the flow is done and returns its error, if any.
func (f *Flow) Wait() error {
	<-f.done
	return f.err
}

func (f *Flow) setTaskID(taskID string) {
	f.mu.Lock()
	f.taskID = taskID
	f.mu.Unlock()
}

func (f *Flow) transition(to State, delay time.Duration) {
	f.mu.Lock()
	from := f.state
	f.state = to
	t := Transition{
		FlowID:  f.id,
		TaskID:  f.taskID,
		From:    from,
		To:      to,
		Attempt: f.attempts,
		Delay:   delay,
	}
	f.mu.Unlock()

	f.log.Debug("transition", "task_id", t.TaskID, "from", from.String(), "to", to.String(),
		"attempt", t.Attempt, "delay", delay)
	if f.opts.Observer != nil {
		f.opts.Observer(t)
	}
}

// fail moves the flow to Exhausted and dispatches the error outcome.
func (f *Flow) fail(err error) {
	f.transition(Exhausted, 0)
	f.log.Debug("flow failed", "error", err)
	f.dispatch.Do(func() { f.opts.Callbacks.Dispatch(Failure, err) })
}

// succeed moves the flow to Ready and dispatches the success outcome.
func (f *Flow) succeed() {
	f.transition(Ready, 0)
	f.dispatch.Do(func() { f.opts.Callbacks.Dispatch(Success, nil) })
}

func (f *Flow) finish(err error) {
	f.err = err
	close(f.done)
}

// statusResponse is the body of a status endpoint reply.
type statusResponse struct {
	Ready bool   `json:"ready"`
	HTML  string `json:"html,omitempty"`
}

// get issues one bounded request through the transport.
func (f *Flow) get(ctx context.Context, op, url string, v any) error {
	ctx, cancel := context.WithTimeout(ctx, f.opts.RequestTimeout)
	defer cancel()

	if err := f.opts.Transport.GetJSON(ctx, url, v); err != nil {
		return &TransportError{Op: op, URL: url, Err: err}
	}
	return nil
}

// pollUntilReady runs the Scheduled/Polling loop for one task until the
// status endpoint reports ready, the budget runs out or a request fails.
// attempts counts only polls issued by this loop.
func (f *Flow) pollUntilReady(ctx context.Context, baseURL, taskID string) (statusResponse, error) {
	url := TaskURL(baseURL, taskID)
	attempts := 0

	for {
		delay := f.opts.Schedule.NextDelay(attempts)
		f.transition(Scheduled, delay)
		if err := sleep(ctx, delay); err != nil {
			return statusResponse{}, &TransportError{Op: "wait", URL: url, Err: err}
		}

		attempts++
		f.mu.Lock()
		f.attempts = attempts
		f.mu.Unlock()
		f.transition(Polling, 0)

		var resp statusResponse
		if err := f.get(ctx, "status", url, &resp); err != nil {
			return statusResponse{}, err
		}
		if resp.Ready {
			return resp, nil
		}
		if attempts >= f.opts.MaxPolls {
			return statusResponse{}, &BudgetExhaustedError{TaskID: taskID, Attempts: attempts}
		}
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
