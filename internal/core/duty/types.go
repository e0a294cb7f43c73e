package duty

import "time"

// UserID and DutyID are opaque identifiers (UUID strings in the
// persisted schema).
type (
	UserID string
	DutyID string
)

// Member is one roster entry: a household member eligible for
// assignment in some period.
type Member struct {
	ID   UserID
	Name string
}

// Duty is one recurring task needing exactly one assignee per period.
// Weight is the relative burden used for fairness accounting.
type Duty struct {
	ID     DutyID
	Slug   string
	Label  string
	Weight float64
}

// Policy configures the fairness rules applied by the engine.
type Policy struct {
	// Exclusive caps every member at one duty per period.
	Exclusive bool
}

// RotationState carries the per-duty cursors and per-member cumulative
// load counters between arrangements. It is a value: the engine reads
// one and produces an updated copy, only the store's commit mutates the
// persisted one. Version is the optimistic-concurrency token checked at
// commit time.
type RotationState struct {
	Cursors map[DutyID]int
	Loads   map[UserID]float64
	Version int64
}

// NewRotationState returns the zero state used before the first
// arrangement: every cursor 0, every counter 0.
func NewRotationState() RotationState {
	return RotationState{
		Cursors: make(map[DutyID]int),
		Loads:   make(map[UserID]float64),
	}
}

// Clone deep-copies the state so engine output never aliases the input.
func (s RotationState) Clone() RotationState {
	out := RotationState{
		Cursors: make(map[DutyID]int, len(s.Cursors)),
		Loads:   make(map[UserID]float64, len(s.Loads)),
		Version: s.Version,
	}
	for k, v := range s.Cursors {
		out.Cursors[k] = v
	}
	for k, v := range s.Loads {
		out.Loads[k] = v
	}
	return out
}

// Assignment pairs one duty with its assignee for a period.
type Assignment struct {
	Duty DutyID
	User UserID
}

// AssignmentRecord is a committed ledger row, enriched with display
// fields for API consumers.
type AssignmentRecord struct {
	Period      Period
	Generation  int
	Duty        DutyID
	DutySlug    string
	DutyLabel   string
	User        UserID
	UserName    string
	CommittedAt time.Time
}

// ArrangementRecord tracks commit status for one (period, generation).
// The commit flag is implicit: a record exists only once committed.
type ArrangementRecord struct {
	Period      Period
	Generation  int
	Superseded  bool
	Reason      string
	CommittedAt time.Time
}

// Plan is the engine's output: the assignment set for a period plus the
// rotation state that a successful commit should persist.
type Plan struct {
	Period      Period
	Assignments []Assignment
	State       RotationState
}
