package uow

// State is the lifecycle state of a unit of work. Exactly one is current at
// any time.
//
// Transitions:
//
//	Inactive -> Active                      (Start)
//	Active   -> Committing  -> Committed    (Commit)
//	Active   -> RollingBack -> RolledBack   (Rollback)
//	Active | Committing | RollingBack -> Failed
//	                    (underlying transaction error, including timeout)
//
// Committed, RolledBack, and Failed are terminal: an instance runs at most one
// transaction cycle.
type State int32

// Lifecycle states
const (
	// StateInactive is the initial state, before Start
	StateInactive State = iota
	// StateActive means the transaction is open and the handle is live
	StateActive
	// StateCommitting means the commit signal has been issued
	StateCommitting
	// StateCommitted means the underlying transaction committed
	StateCommitted
	// StateRollingBack means the rollback signal has been issued
	StateRollingBack
	// StateRolledBack means the underlying transaction rolled back on request
	StateRolledBack
	// StateFailed means the transaction ended with an error not attributable
	// to an explicit rollback request
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateActive:
		return "active"
	case StateCommitting:
		return "committing"
	case StateCommitted:
		return "committed"
	case StateRollingBack:
		return "rolling_back"
	case StateRolledBack:
		return "rolled_back"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible from s.
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateRolledBack || s == StateFailed
}
