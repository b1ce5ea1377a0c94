package poller

// State is where the driver is in its round cycle.
type State int32

const (
	StateIdle State = iota
	StateDispatching
	StateAwaitingCompletion
	StateSleeping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDispatching:
		return "dispatching"
	case StateAwaitingCompletion:
		return "awaiting_completion"
	case StateSleeping:
		return "sleeping"
	}
	return "unknown"
}
