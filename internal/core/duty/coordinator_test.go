package duty

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestCoordinator() (*Coordinator, *MemStore) {
	store := NewMemStore(testDuties)
	roster := StaticRoster(testRoster)
	return NewCoordinator(store, roster, Policy{Exclusive: true}), store
}

func TestArrangeCommitsOnce(t *testing.T) {
	t.Parallel()

	c, _ := newTestCoordinator()
	ctx := context.Background()
	p := Period{Year: 2024, Month: 1}

	first, err := c.Arrange(ctx, p)
	require.NoError(t, err)
	require.False(t, first.AlreadyArranged)
	require.Equal(t, 1, first.Record.Generation)
	require.Len(t, first.Assignments, len(testDuties))

	second, err := c.Arrange(ctx, p)
	require.NoError(t, err)
	require.True(t, second.AlreadyArranged)
	require.Equal(t, first.Record.Generation, second.Record.Generation)
	require.Equal(t, first.Assignments, second.Assignments)
}

func TestArrangeCoverage(t *testing.T) {
	t.Parallel()

	c, _ := newTestCoordinator()
	ctx := context.Background()

	p := Period{Year: 2024, Month: 1}
	for i := 0; i < 6; i++ {
		res, err := c.Arrange(ctx, p)
		require.NoError(t, err)

		byDuty := make(map[DutyID]int)
		for _, row := range res.Assignments {
			byDuty[row.Duty]++
		}
		require.Len(t, byDuty, len(testDuties))
		for id, count := range byDuty {
			require.Equal(t, 1, count, "duty %s", id)
		}
		p = p.Next()
	}
}

func TestAssignmentsUnarrangedIsEmpty(t *testing.T) {
	t.Parallel()

	c, _ := newTestCoordinator()
	rows, err := c.Assignments(context.Background(), Period{Year: 2030, Month: 4})
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestArrangeConcurrentSamePeriod(t *testing.T) {
	t.Parallel()

	c, store := newTestCoordinator()
	ctx := context.Background()
	p := Period{Year: 2024, Month: 1}

	const callers = 16
	results := make([]ArrangementResult, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Arrange(ctx, p)
		}(i)
	}
	wg.Wait()

	computed := 0
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, 1, results[i].Record.Generation)
		if !results[i].AlreadyArranged {
			computed++
		}
	}
	require.Equal(t, 1, computed, "exactly one caller should compute")

	// No duplicate or partial rows behind the results.
	rows, err := store.AssignmentHistory(ctx, p)
	require.NoError(t, err)
	require.Len(t, rows, len(testDuties))
}

func TestArrangeDifferentPeriodsIndependent(t *testing.T) {
	t.Parallel()

	c, _ := newTestCoordinator()
	ctx := context.Background()

	periods := []Period{
		{Year: 2024, Month: 1},
		{Year: 2024, Month: 2},
		{Year: 2024, Month: 3},
		{Year: 2024, Month: 4},
	}

	var wg sync.WaitGroup
	errs := make([]error, len(periods))
	for i, p := range periods {
		wg.Add(1)
		go func(i int, p Period) {
			defer wg.Done()
			_, errs[i] = c.Arrange(ctx, p)
		}(i, p)
	}
	wg.Wait()

	for i, p := range periods {
		require.NoError(t, errs[i])
		rows, err := c.Assignments(ctx, p)
		require.NoError(t, err)
		require.Len(t, rows, len(testDuties))
	}
}

func TestArrangeEmptyRosterMutatesNothing(t *testing.T) {
	t.Parallel()

	store := NewMemStore(testDuties)
	c := NewCoordinator(store, StaticRoster(nil), Policy{Exclusive: true})
	ctx := context.Background()
	p := Period{Year: 2024, Month: 1}

	_, err := c.Arrange(ctx, p)
	require.ErrorIs(t, err, ErrEmptyRoster)

	rec, err := store.Arrangement(ctx, p)
	require.NoError(t, err)
	require.Nil(t, rec)

	state, err := store.RotationState(ctx)
	require.NoError(t, err)
	require.Empty(t, state.Cursors)
	require.Empty(t, state.Loads)
}

func TestArrangeCommitFailureSelfHeals(t *testing.T) {
	t.Parallel()

	c, store := newTestCoordinator()
	ctx := context.Background()
	p := Period{Year: 2024, Month: 1}

	persistErr := errors.New("connection reset")
	store.FailCommit = persistErr

	_, err := c.Arrange(ctx, p)
	require.ErrorIs(t, err, persistErr)

	// Failed commit left no partial state: the period reads unarranged.
	rows, err := c.Assignments(ctx, p)
	require.NoError(t, err)
	require.Empty(t, rows)

	// Retry succeeds and commits a single clean generation.
	res, err := c.Arrange(ctx, p)
	require.NoError(t, err)
	require.False(t, res.AlreadyArranged)
	require.Len(t, res.Assignments, len(testDuties))
}

func TestCommitRejectsStaleState(t *testing.T) {
	t.Parallel()

	_, store := newTestCoordinator()
	ctx := context.Background()

	state, err := store.RotationState(ctx)
	require.NoError(t, err)
	state.Version += 5 // pretend we read a version that never existed

	_, err = store.Commit(ctx, CommitRequest{
		Period:      Period{Year: 2024, Month: 1},
		Generation:  1,
		Assignments: []Assignment{{Duty: "d-kitchen", User: "u-a"}},
		State:       state,
	})
	require.ErrorIs(t, err, ErrStateConflict)
}

func TestReArrange(t *testing.T) {
	t.Parallel()

	c, _ := newTestCoordinator()
	ctx := context.Background()
	p := Period{Year: 2024, Month: 1}

	first, err := c.Arrange(ctx, p)
	require.NoError(t, err)

	redo, err := c.ReArrange(ctx, p, "bob moved out mid-month")
	require.NoError(t, err)
	require.False(t, redo.AlreadyArranged)
	require.Equal(t, first.Record.Generation+1, redo.Record.Generation)
	require.Equal(t, "bob moved out mid-month", redo.Record.Reason)

	// Reads serve the new generation only.
	rows, err := c.Assignments(ctx, p)
	require.NoError(t, err)
	for _, row := range rows {
		require.Equal(t, redo.Record.Generation, row.Generation)
	}

	// Prior generation stays in history, not deleted.
	history, err := c.History(ctx, p)
	require.NoError(t, err)
	require.Len(t, history, 2*len(testDuties))

	generations := make(map[int]int)
	for _, row := range history {
		generations[row.Generation]++
	}
	require.Equal(t, map[int]int{1: len(testDuties), 2: len(testDuties)}, generations)
}

func TestReArrangeUnarrangedPeriod(t *testing.T) {
	t.Parallel()

	c, _ := newTestCoordinator()
	_, err := c.ReArrange(context.Background(), Period{Year: 2024, Month: 1}, "typo")
	require.ErrorIs(t, err, ErrNotArranged)
}

func TestArrangeOutOfOrderPeriods(t *testing.T) {
	t.Parallel()

	c, store := newTestCoordinator()
	ctx := context.Background()

	// Arranging March before February is permitted; rotation state just
	// accumulates in commit order.
	_, err := c.Arrange(ctx, Period{Year: 2024, Month: 3})
	require.NoError(t, err)
	_, err = c.Arrange(ctx, Period{Year: 2024, Month: 2})
	require.NoError(t, err)

	state, err := store.RotationState(ctx)
	require.NoError(t, err)
	var total float64
	for _, l := range state.Loads {
		total += l
	}
	require.Equal(t, float64(2*len(testDuties)), total)
	require.Equal(t, int64(2), state.Version)
}
