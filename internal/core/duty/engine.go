package duty

import (
	"fmt"
	"sort"
)

// ComputeAssignments picks one assignee per duty for the period and
// returns the updated rotation state alongside. It is a pure function:
// identical inputs always produce identical output, so a committed
// arrangement can be recomputed for audit.
//
// Per duty, in the order the catalog lists them, candidates are ranked
// by ascending cumulative load, ties broken by round-robin distance
// from the duty's cursor, final ties by member ID. Under the exclusive
// policy a member already assigned this period is skipped for the
// remaining duties.
func ComputeAssignments(period Period, roster []Member, duties []Duty, state RotationState, policy Policy) (Plan, error) {
	if len(roster) == 0 {
		return Plan{}, fmt.Errorf("period %s: %w", period, ErrEmptyRoster)
	}
	if len(duties) == 0 {
		return Plan{}, fmt.Errorf("period %s: %w", period, ErrNoDuties)
	}
	if policy.Exclusive && len(duties) > len(roster) {
		return Plan{}, fmt.Errorf("period %s: %d duties, %d members: %w",
			period, len(duties), len(roster), ErrUnsatisfiable)
	}

	next := state.Clone()
	if next.Cursors == nil {
		next.Cursors = make(map[DutyID]int)
	}
	if next.Loads == nil {
		next.Loads = make(map[UserID]float64)
	}

	n := len(roster)
	taken := make(map[UserID]bool, len(duties))
	assignments := make([]Assignment, 0, len(duties))

	for _, d := range duties {
		// Clamp the cursor: the roster may have shrunk since it was set.
		cursor := next.Cursors[d.ID] % n
		if cursor < 0 {
			cursor += n
		}

		best := -1
		for i := range roster {
			if policy.Exclusive && taken[roster[i].ID] {
				continue
			}
			if best < 0 || lessCandidate(roster, next.Loads, cursor, n, i, best) {
				best = i
			}
		}
		if best < 0 {
			return Plan{}, fmt.Errorf("period %s duty %s: %w", period, d.Slug, ErrUnsatisfiable)
		}

		assignee := roster[best]
		assignments = append(assignments, Assignment{Duty: d.ID, User: assignee.ID})
		taken[assignee.ID] = true
		next.Cursors[d.ID] = (best + 1) % n
		next.Loads[assignee.ID] += d.Weight
	}

	return Plan{Period: period, Assignments: assignments, State: next}, nil
}

// lessCandidate reports whether roster[i] outranks roster[j] for the
// duty whose cursor is given: lower load wins, then shorter wrap-around
// distance from the cursor, then lower member ID.
func lessCandidate(roster []Member, loads map[UserID]float64, cursor, n, i, j int) bool {
	li, lj := loads[roster[i].ID], loads[roster[j].ID]
	if li != lj {
		return li < lj
	}
	di := (i - cursor + n) % n
	dj := (j - cursor + n) % n
	if di != dj {
		return di < dj
	}
	return roster[i].ID < roster[j].ID
}

// SortRoster orders members ascending by ID, the canonical roster order
// used for cursor arithmetic and tie-breaking.
func SortRoster(members []Member) {
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
}
