package profiler

// State is a pagination driver state.
type State int

const (
	StateRunning State = iota
	StateRetryBackoff
	StateRefreshingToken
	StateDoneSuccess
	StateDoneFailure
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "RUNNING"
	case StateRetryBackoff:
		return "RETRY_BACKOFF"
	case StateRefreshingToken:
		return "REFRESHING_TOKEN"
	case StateDoneSuccess:
		return "DONE_SUCCESS"
	case StateDoneFailure:
		return "DONE_FAILURE"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further calls are made from this state.
func (s State) Terminal() bool {
	return s == StateDoneSuccess || s == StateDoneFailure
}

// Transition describes one state change of a scenario.
type Transition struct {
	Scenario   string
	From       State
	To         State
	StatusCode int
	Offset     int
	Retries    int
}
