package asyncview

// Outcome is the terminal result of a flow.
type Outcome int

const (
	// Success means the task became ready and the terminal action was started.
	Success Outcome = iota
	// Failure means a transport error occurred or the poll budget ran out.
	Failure
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Failure:
		return "error"
	default:
		return "unknown"
	}
}

// Callbacks are caller hooks notified when a flow ends. All are optional.
type Callbacks struct {
	OnSuccess  func()
	OnError    func(err error)
	OnComplete func()
}

// Dispatch calls the hook matching o, then OnComplete. Panics raised by a
// hook are not recovered.
func (c Callbacks) Dispatch(o Outcome, err error) {
	switch o {
	case Success:
		if c.OnSuccess != nil {
			c.OnSuccess()
		}
	case Failure:
		if c.OnError != nil {
			c.OnError(err)
		}
	}
	if c.OnComplete != nil {
		c.OnComplete()
	}
}
