package duty

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyRoster means no eligible members exist for the period.
	ErrEmptyRoster = errors.New("no eligible members for period")

	// ErrNoDuties means the duty catalog has no active entries.
	ErrNoDuties = errors.New("duty catalog is empty")

	// ErrUnsatisfiable means the exclusivity policy cannot be met with
	// the available roster (more duties than members).
	ErrUnsatisfiable = errors.New("insufficient members for exclusive assignment")

	// ErrStateConflict means the rotation-state version moved between
	// read and commit. Nothing was written; the caller may retry.
	ErrStateConflict = errors.New("rotation state modified concurrently")

	// ErrNotArranged means an operation requires a committed period.
	ErrNotArranged = errors.New("period has not been arranged")
)

// PeriodError reports a malformed year/month pair rejected at the
// boundary, before any scheduling work.
type PeriodError struct {
	Year   int
	Month  int
	Reason string
}

func (e *PeriodError) Error() string {
	return fmt.Sprintf("invalid period %d-%d: %s", e.Year, e.Month, e.Reason)
}
