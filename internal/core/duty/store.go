package duty

import "context"

// RosterProvider supplies the ordered set of members eligible for a
// period. The order must be stable ascending by member ID and must not
// change while an arrangement for that period is computing.
type RosterProvider interface {
	EligibleMembers(ctx context.Context, period Period) ([]Member, error)
}

// CommitRequest carries everything one arrangement writes. The store
// must apply it as a single transaction: either all assignments, the
// arrangement record and the rotation state land, or nothing does.
type CommitRequest struct {
	Period      Period
	Generation  int
	Reason      string
	Assignments []Assignment
	// State is the engine's updated rotation state. State.Version holds
	// the version the engine read; the store must refuse the commit with
	// ErrStateConflict if the persisted version differs, and bump it on
	// success.
	State RotationState
}

// Store persists the assignment ledger, arrangement records and
// rotation state.
type Store interface {
	// ActiveDuties returns the duty catalog in stable slug order.
	ActiveDuties(ctx context.Context) ([]Duty, error)

	// Arrangement returns the current (non-superseded) arrangement
	// record for the period, or nil if the period was never committed.
	Arrangement(ctx context.Context, period Period) (*ArrangementRecord, error)

	// Assignments returns the current generation's committed
	// assignments for the period; empty when unarranged.
	Assignments(ctx context.Context, period Period) ([]AssignmentRecord, error)

	// AssignmentHistory returns all generations for the period, oldest
	// first, for audit.
	AssignmentHistory(ctx context.Context, period Period) ([]AssignmentRecord, error)

	// RotationState reads the persisted cursors, loads and version.
	RotationState(ctx context.Context) (RotationState, error)

	// Commit atomically persists one arrangement. For generations > 1 it
	// marks prior generations of the period superseded; prior assignment
	// rows are kept. Returns the committed record.
	Commit(ctx context.Context, req CommitRequest) (ArrangementRecord, error)
}
