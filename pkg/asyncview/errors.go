package asyncview

import (
	"errors"
	"fmt"
)

// Configuration errors. These are returned synchronously by StartView and
// StartDownload; no flow is started.
var (
	ErrMissingTaskID    = errors.New("asyncview: task_id not defined")
	ErrMissingBaseURL   = errors.New("asyncview: base_url not defined")
	ErrMissingNavigator = errors.New("asyncview: navigator not defined")
	ErrInvalidSchedule  = errors.New("asyncview: invalid poll schedule")
	ErrInvalidMaxPolls  = errors.New("asyncview: max_polls must be positive")
)

// ErrBudgetExhausted matches any *BudgetExhaustedError.
var ErrBudgetExhausted = errors.New("asyncview: poll limit reached")

// TransportError is returned when a request fails, times out or the wait for
// the next poll is interrupted. It is always fatal to the flow.
type TransportError struct {
	Op  string // "create", "status" or "wait"
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("asyncview: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// BudgetExhaustedError is returned when the task is still not ready after
// MaxPolls polls.
type BudgetExhaustedError struct {
	TaskID   string
	Attempts int
}

func (e *BudgetExhaustedError) Error() string {
	return fmt.Sprintf("asyncview: task %s not ready after %d polls", e.TaskID, e.Attempts)
}

func (e *BudgetExhaustedError) Is(target error) bool {
	return target == ErrBudgetExhausted
}
