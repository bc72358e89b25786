package editor

// State is the edit-cycle phase of a Session.
//
// A cycle moves Idle -> Requesting -> Merging -> Idle on success and
// Idle -> Requesting -> Failed -> Idle on any failure. Only Idle accepts a
// new edit; the Requesting phase is the busy gate callers observe while a
// generation call is in flight.
type State int

const (
	// StateIdle means the session accepts a new edit.
	StateIdle State = iota

	// StateRequesting means a generation call is in flight.
	StateRequesting

	// StateMerging means a validated response is being applied to the store.
	StateMerging

	// StateFailed means the last cycle failed; the session returns to Idle
	// immediately after recording the failure.
	StateFailed
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateMerging:
		return "merging"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
