package capture

// State is the lifecycle phase of a capture session.
type State int

const (
	StateIdle State = iota
	StateRequesting
	StateRecording
	StateStopping
	StateFinalized
	StateCancelled
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:       "idle",
	StateRequesting: "requesting",
	StateRecording:  "recording",
	StateStopping:   "stopping",
	StateFinalized:  "finalized",
	StateCancelled:  "cancelled",
	StateFailed:     "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// IsTerminal reports whether the session has ended and released its resources.
func (s State) IsTerminal() bool {
	return s == StateFinalized || s == StateCancelled || s == StateFailed
}
