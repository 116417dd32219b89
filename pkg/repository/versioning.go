package repository

import "fmt"

// Versioned is implemented by entities whose updates are guarded by an
// optimistic-lock version column. GetVersion returns the version the entity
// was loaded with; the repository calls SetVersion only after a successful
// versioned update, so a conflicting entity keeps its loaded version.
type Versioned interface {
	GetVersion() int64
	SetVersion(version int64)
}

// OptimisticLockError reports a versioned update that matched no row because
// another transaction moved the version first. Actual is the version found in
// the table at conflict time; the caller decides whether to reload and retry
// or surface the conflict.
type OptimisticLockError struct {
	Table    string
	EntityID string
	Expected int64
	Actual   int64
}

func (e *OptimisticLockError) Error() string {
	return fmt.Sprintf("repository: optimistic lock conflict on %s id=%s: expected version %d, found %d",
		e.Table, e.EntityID, e.Expected, e.Actual)
}
