package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/homeduty/homeduty/internal/core/duty"
	"github.com/stretchr/testify/require"
)

var handlerDuties = []duty.Duty{
	{ID: "d-kitchen", Slug: "kitchen", Label: "Kitchen", Weight: 1},
	{ID: "d-bathroom", Slug: "bathroom", Label: "Bathroom", Weight: 1},
}

func newDutiesHandler(roster duty.StaticRoster) *DutiesHandler {
	store := duty.NewMemStore(handlerDuties)
	coord := duty.NewCoordinator(store, roster, duty.Policy{Exclusive: true})
	return &DutiesHandler{
		coordinator: coord,
		now:         func() time.Time { return time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC) },
	}
}

func fullRoster() duty.StaticRoster {
	return duty.StaticRoster{
		{ID: "u-a", Name: "Alice"},
		{ID: "u-b", Name: "Bob"},
		{ID: "u-c", Name: "Carol"},
	}
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	var serr huma.StatusError
	require.ErrorAs(t, err, &serr)
	require.Equal(t, status, serr.GetStatus())
}

func TestArrangeDefaultsToCurrentPeriod(t *testing.T) {
	t.Parallel()

	h := newDutiesHandler(fullRoster())
	out, err := h.Arrange(context.Background(), &ArrangeInput{})
	require.NoError(t, err)

	require.Equal(t, "2024-05", out.Body.Data.Period)
	require.Equal(t, 2024, out.Body.Data.Year)
	require.Equal(t, 5, out.Body.Data.Month)
	require.False(t, out.Body.Data.AlreadyArranged)
	require.Len(t, out.Body.Data.Assignments, len(handlerDuties))
}

func TestArrangeIdempotentFlag(t *testing.T) {
	t.Parallel()

	h := newDutiesHandler(fullRoster())
	ctx := context.Background()

	input := &ArrangeInput{}
	input.Body.Year = 2024
	input.Body.Month = 1

	first, err := h.Arrange(ctx, input)
	require.NoError(t, err)
	require.False(t, first.Body.Data.AlreadyArranged)

	second, err := h.Arrange(ctx, input)
	require.NoError(t, err)
	require.True(t, second.Body.Data.AlreadyArranged)
	require.Equal(t, first.Body.Data.Assignments, second.Body.Data.Assignments)
}

func TestArrangeInvalidPeriodIs400(t *testing.T) {
	t.Parallel()

	h := newDutiesHandler(fullRoster())

	input := &ArrangeInput{}
	input.Body.Year = 2024
	input.Body.Month = 13

	_, err := h.Arrange(context.Background(), input)
	requireStatus(t, err, 400)
}

func TestArrangeEmptyRosterIs409(t *testing.T) {
	t.Parallel()

	h := newDutiesHandler(duty.StaticRoster{})
	_, err := h.Arrange(context.Background(), &ArrangeInput{})
	requireStatus(t, err, 409)
}

func TestArrangeUnsatisfiableIs409(t *testing.T) {
	t.Parallel()

	// One member, two duties, exclusive policy.
	h := newDutiesHandler(duty.StaticRoster{{ID: "u-a", Name: "Alice"}})
	_, err := h.Arrange(context.Background(), &ArrangeInput{})
	requireStatus(t, err, 409)
}

func TestGetUnarrangedPeriodIsEmptyList(t *testing.T) {
	t.Parallel()

	h := newDutiesHandler(fullRoster())
	out, err := h.Get(context.Background(), &PeriodInput{Year: 2031, Month: 7})
	require.NoError(t, err)
	require.Empty(t, out.Body.Data)
}

func TestReArrangeProducesNewGeneration(t *testing.T) {
	t.Parallel()

	h := newDutiesHandler(fullRoster())
	ctx := context.Background()

	_, err := h.Arrange(ctx, &ArrangeInput{})
	require.NoError(t, err)

	input := &ReArrangeInput{Year: 2024, Month: 5}
	input.Body.Reason = "guest room added to rotation"
	out, err := h.ReArrange(ctx, input)
	require.NoError(t, err)
	require.Equal(t, 2, out.Body.Data.Generation)
	require.Equal(t, "guest room added to rotation", out.Body.Data.Reason)

	history, err := h.History(ctx, &PeriodInput{Year: 2024, Month: 5})
	require.NoError(t, err)
	require.Len(t, history.Body.Data, 2*len(handlerDuties))
}

func TestReArrangeUnarrangedIs404(t *testing.T) {
	t.Parallel()

	h := newDutiesHandler(fullRoster())
	input := &ReArrangeInput{Year: 2024, Month: 1}
	input.Body.Reason = "nothing to override"
	_, err := h.ReArrange(context.Background(), input)
	requireStatus(t, err, 404)
}
