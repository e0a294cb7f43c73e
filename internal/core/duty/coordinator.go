package duty

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Coordinator serializes arrangement requests per period and guarantees
// at-most-one committed generation per period under normal operation.
// The Arranging phase lives only inside the critical section; a crash
// before Commit leaves the period unarranged, so the commit transaction
// is the single durability point.
type Coordinator struct {
	store  Store
	roster RosterProvider
	policy Policy

	mu    sync.Mutex
	locks map[Period]*sync.Mutex
}

// ArrangementResult is the outcome of Arrange or ReArrange.
type ArrangementResult struct {
	Record      ArrangementRecord
	Assignments []AssignmentRecord
	// AlreadyArranged is true when the period was committed before this
	// call and no new computation ran.
	AlreadyArranged bool
}

func NewCoordinator(store Store, roster RosterProvider, policy Policy) *Coordinator {
	return &Coordinator{
		store:  store,
		roster: roster,
		policy: policy,
		locks:  make(map[Period]*sync.Mutex),
	}
}

// periodLock returns the mutex for the period, creating it on first
// use. Locks are never removed; the key space grows by one entry per
// month ever arranged.
func (c *Coordinator) periodLock(p Period) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[p]
	if !ok {
		l = &sync.Mutex{}
		c.locks[p] = l
	}
	return l
}

// Arrange computes and commits the assignment set for the period, or
// returns the existing one when the period is already committed.
// Concurrent callers for the same period serialize on the period lock;
// all but the first observe AlreadyArranged. Failures mutate nothing.
func (c *Coordinator) Arrange(ctx context.Context, period Period) (ArrangementResult, error) {
	// Committed-read fast path, no lock needed.
	if res, ok, err := c.committed(ctx, period); err != nil || ok {
		return res, err
	}

	l := c.periodLock(period)
	l.Lock()
	defer l.Unlock()

	// Re-check under the lock: another caller may have won the race.
	if res, ok, err := c.committed(ctx, period); err != nil || ok {
		return res, err
	}

	return c.arrangeLocked(ctx, period, 1, "")
}

// ReArrange supersedes a committed period with a freshly computed
// generation, recording the override reason. Prior assignments stay in
// history. Fails with ErrNotArranged when the period was never
// committed.
func (c *Coordinator) ReArrange(ctx context.Context, period Period, reason string) (ArrangementResult, error) {
	l := c.periodLock(period)
	l.Lock()
	defer l.Unlock()

	rec, err := c.store.Arrangement(ctx, period)
	if err != nil {
		return ArrangementResult{}, fmt.Errorf("read arrangement %s: %w", period, err)
	}
	if rec == nil {
		return ArrangementResult{}, fmt.Errorf("period %s: %w", period, ErrNotArranged)
	}

	return c.arrangeLocked(ctx, period, rec.Generation+1, reason)
}

// Assignments is a pure read of the current generation's committed
// assignments. An unarranged period yields an empty slice, not an
// error.
func (c *Coordinator) Assignments(ctx context.Context, period Period) ([]AssignmentRecord, error) {
	return c.store.Assignments(ctx, period)
}

// History returns every committed generation for the period, oldest
// first.
func (c *Coordinator) History(ctx context.Context, period Period) ([]AssignmentRecord, error) {
	return c.store.AssignmentHistory(ctx, period)
}

func (c *Coordinator) committed(ctx context.Context, period Period) (ArrangementResult, bool, error) {
	rec, err := c.store.Arrangement(ctx, period)
	if err != nil {
		return ArrangementResult{}, false, fmt.Errorf("read arrangement %s: %w", period, err)
	}
	if rec == nil {
		return ArrangementResult{}, false, nil
	}
	rows, err := c.store.Assignments(ctx, period)
	if err != nil {
		return ArrangementResult{}, false, fmt.Errorf("read assignments %s: %w", period, err)
	}
	return ArrangementResult{Record: *rec, Assignments: rows, AlreadyArranged: true}, true, nil
}

// maxCommitRetries bounds rotation-state CAS retries when another
// period's arrangement commits between our state read and our commit.
const maxCommitRetries = 5

// arrangeLocked runs roster fetch, engine and commit. Caller holds the
// period lock. The commit runs on a cancellation-detached context: once
// the engine has produced a plan, an abandoned request must not leave a
// half-written arrangement behind.
func (c *Coordinator) arrangeLocked(ctx context.Context, period Period, generation int, reason string) (ArrangementResult, error) {
	roster, err := c.roster.EligibleMembers(ctx, period)
	if err != nil {
		return ArrangementResult{}, fmt.Errorf("fetch roster %s: %w", period, err)
	}
	duties, err := c.store.ActiveDuties(ctx)
	if err != nil {
		return ArrangementResult{}, fmt.Errorf("fetch duties: %w", err)
	}

	var rec ArrangementRecord
	for attempt := 0; ; attempt++ {
		state, err := c.store.RotationState(ctx)
		if err != nil {
			return ArrangementResult{}, fmt.Errorf("read rotation state: %w", err)
		}

		plan, err := ComputeAssignments(period, roster, duties, state, c.policy)
		if err != nil {
			return ArrangementResult{}, err
		}

		rec, err = c.store.Commit(context.WithoutCancel(ctx), CommitRequest{
			Period:      period,
			Generation:  generation,
			Reason:      reason,
			Assignments: plan.Assignments,
			State:       plan.State,
		})
		if err == nil {
			break
		}
		if errors.Is(err, ErrStateConflict) && attempt < maxCommitRetries {
			// A concurrent arrangement for another period advanced the
			// rotation state. Re-read and recompute; the period lock
			// still guards this period.
			log.Debug().Str("period", period.Key()).Int("attempt", attempt+1).Msg("rotation state moved, recomputing")
			continue
		}
		return ArrangementResult{}, fmt.Errorf("commit arrangement %s: %w", period, err)
	}

	rows, err := c.store.Assignments(ctx, period)
	if err != nil {
		return ArrangementResult{}, fmt.Errorf("read assignments %s: %w", period, err)
	}

	log.Info().
		Str("period", period.Key()).
		Int("generation", generation).
		Int("duties", len(rows)).
		Int("roster", len(roster)).
		Msg("arrangement committed")

	return ArrangementResult{Record: rec, Assignments: rows}, nil
}
