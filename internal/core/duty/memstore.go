package duty

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemStore is an in-memory Store with the same transactional semantics
// as the PostgreSQL implementation: Commit is all-or-nothing and
// CAS-guards the rotation-state version. It backs tests and keeps the
// persistence contract exercisable without a database.
type MemStore struct {
	mu           sync.Mutex
	duties       []Duty
	state        RotationState
	arrangements map[Period][]ArrangementRecord
	ledger       map[Period][]AssignmentRecord

	// FailCommit, when set, makes the next Commit fail before writing
	// anything. Used to test the no-partial-state guarantee.
	FailCommit error
}

func NewMemStore(duties []Duty) *MemStore {
	return &MemStore{
		duties:       duties,
		state:        NewRotationState(),
		arrangements: make(map[Period][]ArrangementRecord),
		ledger:       make(map[Period][]AssignmentRecord),
	}
}

func (m *MemStore) ActiveDuties(ctx context.Context) ([]Duty, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Duty, len(m.duties))
	copy(out, m.duties)
	return out, nil
}

func (m *MemStore) Arrangement(ctx context.Context, period Period) (*ArrangementRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := m.arrangements[period]
	for i := len(recs) - 1; i >= 0; i-- {
		if !recs[i].Superseded {
			rec := recs[i]
			return &rec, nil
		}
	}
	return nil, nil
}

func (m *MemStore) Assignments(ctx context.Context, period Period) ([]AssignmentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := 0
	for _, rec := range m.arrangements[period] {
		if !rec.Superseded {
			cur = rec.Generation
		}
	}
	var out []AssignmentRecord
	for _, row := range m.ledger[period] {
		if row.Generation == cur {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *MemStore) AssignmentHistory(ctx context.Context, period Period) ([]AssignmentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]AssignmentRecord, len(m.ledger[period]))
	copy(out, m.ledger[period])
	return out, nil
}

func (m *MemStore) RotationState(ctx context.Context) (RotationState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone(), nil
}

func (m *MemStore) Commit(ctx context.Context, req CommitRequest) (ArrangementRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailCommit != nil {
		err := m.FailCommit
		m.FailCommit = nil
		return ArrangementRecord{}, err
	}
	if req.State.Version != m.state.Version {
		return ArrangementRecord{}, fmt.Errorf("expected version %d, have %d: %w",
			req.State.Version, m.state.Version, ErrStateConflict)
	}

	now := time.Now().UTC()
	for i := range m.arrangements[req.Period] {
		m.arrangements[req.Period][i].Superseded = true
	}
	rec := ArrangementRecord{
		Period:      req.Period,
		Generation:  req.Generation,
		Reason:      req.Reason,
		CommittedAt: now,
	}
	m.arrangements[req.Period] = append(m.arrangements[req.Period], rec)

	byID := make(map[DutyID]Duty, len(m.duties))
	for _, d := range m.duties {
		byID[d.ID] = d
	}
	for _, a := range req.Assignments {
		d := byID[a.Duty]
		m.ledger[req.Period] = append(m.ledger[req.Period], AssignmentRecord{
			Period:      req.Period,
			Generation:  req.Generation,
			Duty:        a.Duty,
			DutySlug:    d.Slug,
			DutyLabel:   d.Label,
			User:        a.User,
			CommittedAt: now,
		})
	}

	m.state = req.State.Clone()
	m.state.Version++
	return rec, nil
}

// StaticRoster is a RosterProvider serving a fixed member list,
// regardless of period. Tests and seed tooling use it.
type StaticRoster []Member

func (r StaticRoster) EligibleMembers(ctx context.Context, period Period) ([]Member, error) {
	out := make([]Member, len(r))
	copy(out, r)
	SortRoster(out)
	return out, nil
}
