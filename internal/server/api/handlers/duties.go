package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/homeduty/homeduty/internal/core/duty"
	"github.com/homeduty/homeduty/internal/core/util"
	"github.com/homeduty/homeduty/internal/database"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DutiesHandler struct {
	coordinator *duty.Coordinator
	queries     *database.Queries
	// now decides which period an arrange request without an explicit
	// year/month falls into.
	now func() time.Time
}

func NewDutiesHandler(db *pgxpool.Pool, coordinator *duty.Coordinator, loc *time.Location) *DutiesHandler {
	return &DutiesHandler{
		coordinator: coordinator,
		queries:     database.New(db),
		now:         func() time.Time { return time.Now().In(loc) },
	}
}

// --- DTO types ---

type AssignmentDTO struct {
	Duty        string    `json:"duty" doc:"Duty slug"`
	DutyLabel   string    `json:"duty_label" doc:"Duty label"`
	UserID      string    `json:"user_id" doc:"Assignee user ID"`
	UserName    string    `json:"user_name" doc:"Assignee display name"`
	Generation  int       `json:"generation" doc:"Arrangement generation"`
	CommittedAt time.Time `json:"committed_at" doc:"Commit time"`
}

type ArrangementDTO struct {
	Period          string          `json:"period" doc:"Period key (YYYY-MM)"`
	Year            int             `json:"year" doc:"Period year"`
	Month           int             `json:"month" doc:"Period month"`
	Generation      int             `json:"generation" doc:"Committed generation"`
	AlreadyArranged bool            `json:"already_arranged" doc:"True when no new computation ran"`
	Reason          string          `json:"reason,omitempty" doc:"Override reason, for re-arrangements"`
	Assignments     []AssignmentDTO `json:"assignments" doc:"One entry per duty"`
}

func assignmentDTOs(rows []duty.AssignmentRecord) []AssignmentDTO {
	out := make([]AssignmentDTO, len(rows))
	for i, r := range rows {
		out[i] = AssignmentDTO{
			Duty:        r.DutySlug,
			DutyLabel:   r.DutyLabel,
			UserID:      string(r.User),
			UserName:    r.UserName,
			Generation:  r.Generation,
			CommittedAt: r.CommittedAt,
		}
	}
	return out
}

func arrangementDTO(res duty.ArrangementResult) ArrangementDTO {
	return ArrangementDTO{
		Period:          res.Record.Period.Key(),
		Year:            res.Record.Period.Year,
		Month:           res.Record.Period.Month,
		Generation:      res.Record.Generation,
		AlreadyArranged: res.AlreadyArranged,
		Reason:          res.Record.Reason,
		Assignments:     assignmentDTOs(res.Assignments),
	}
}

// mapDutyError translates scheduler errors to HTTP statuses: invalid
// period 400, roster/constraint problems 409, everything else 500.
func mapDutyError(err error) error {
	var perr *duty.PeriodError
	switch {
	case errors.As(err, &perr):
		return huma.Error400BadRequest(perr.Error())
	case errors.Is(err, duty.ErrEmptyRoster),
		errors.Is(err, duty.ErrNoDuties),
		errors.Is(err, duty.ErrUnsatisfiable),
		errors.Is(err, duty.ErrStateConflict):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, duty.ErrNotArranged):
		return huma.Error404NotFound(err.Error())
	default:
		return huma.Error500InternalServerError("arrangement failed", err)
	}
}

// --- Arrangement operations ---

type ArrangeInput struct {
	Body struct {
		Year  int `json:"year,omitempty" doc:"Period year; defaults to the current period"`
		Month int `json:"month,omitempty" doc:"Period month (1-12); defaults to the current period"`
	}
}

func (h *DutiesHandler) Arrange(ctx context.Context, input *ArrangeInput) (*DataOutput[ArrangementDTO], error) {
	period, err := h.resolvePeriod(input.Body.Year, input.Body.Month)
	if err != nil {
		return nil, mapDutyError(err)
	}

	res, err := h.coordinator.Arrange(ctx, period)
	if err != nil {
		return nil, mapDutyError(err)
	}
	return OK(arrangementDTO(res)), nil
}

type PeriodInput struct {
	Year  int `path:"year" minimum:"1970" maximum:"2100" doc:"Period year"`
	Month int `path:"month" minimum:"1" maximum:"12" doc:"Period month"`
}

func (h *DutiesHandler) Get(ctx context.Context, input *PeriodInput) (*DataOutput[[]AssignmentDTO], error) {
	period, err := duty.NewPeriod(input.Year, input.Month)
	if err != nil {
		return nil, mapDutyError(err)
	}

	rows, err := h.coordinator.Assignments(ctx, period)
	if err != nil {
		return nil, mapDutyError(err)
	}
	// Unarranged periods answer an empty list, not an error.
	return OK(assignmentDTOs(rows)), nil
}

type ReArrangeInput struct {
	Year  int `path:"year" minimum:"1970" maximum:"2100" doc:"Period year"`
	Month int `path:"month" minimum:"1" maximum:"12" doc:"Period month"`
	Body  struct {
		Reason string `json:"reason" minLength:"1" maxLength:"256" doc:"Why the committed arrangement is overridden"`
	}
}

func (h *DutiesHandler) ReArrange(ctx context.Context, input *ReArrangeInput) (*DataOutput[ArrangementDTO], error) {
	period, err := duty.NewPeriod(input.Year, input.Month)
	if err != nil {
		return nil, mapDutyError(err)
	}

	res, err := h.coordinator.ReArrange(ctx, period, input.Body.Reason)
	if err != nil {
		return nil, mapDutyError(err)
	}
	return OK(arrangementDTO(res)), nil
}

func (h *DutiesHandler) History(ctx context.Context, input *PeriodInput) (*DataOutput[[]AssignmentDTO], error) {
	period, err := duty.NewPeriod(input.Year, input.Month)
	if err != nil {
		return nil, mapDutyError(err)
	}

	rows, err := h.coordinator.History(ctx, period)
	if err != nil {
		return nil, mapDutyError(err)
	}
	return OK(assignmentDTOs(rows)), nil
}

func (h *DutiesHandler) resolvePeriod(year, month int) (duty.Period, error) {
	if year == 0 && month == 0 {
		return duty.PeriodOf(h.now()), nil
	}
	return duty.NewPeriod(year, month)
}

// --- Catalog operations ---

type DutyDTO struct {
	ID       string  `json:"id" doc:"Duty ID"`
	Slug     string  `json:"slug" doc:"Duty slug"`
	Label    string  `json:"label" doc:"Human label"`
	Weight   float64 `json:"weight" doc:"Relative burden"`
	IsActive bool    `json:"is_active" doc:"Included in future arrangements"`
}

func dutyDTO(d database.DutyRow) DutyDTO {
	return DutyDTO{
		ID:       util.UUIDToStr(d.ID),
		Slug:     d.Slug,
		Label:    d.Label,
		Weight:   d.Weight,
		IsActive: d.IsActive,
	}
}

func (h *DutiesHandler) ListCatalog(ctx context.Context, _ *EmptyInput) (*DataOutput[[]DutyDTO], error) {
	rows, err := h.queries.ListAllDuties(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list duties", err)
	}
	out := make([]DutyDTO, len(rows))
	for i, d := range rows {
		out[i] = dutyDTO(d)
	}
	return OK(out), nil
}

type CreateDutyInput struct {
	Body struct {
		Slug   string  `json:"slug" minLength:"1" maxLength:"64" pattern:"^[a-z0-9-]+$" doc:"Duty slug"`
		Label  string  `json:"label" minLength:"1" maxLength:"128" doc:"Human label"`
		Weight float64 `json:"weight,omitempty" minimum:"0" maximum:"100" doc:"Relative burden, default 1.0"`
	}
}

func (h *DutiesHandler) CreateDuty(ctx context.Context, input *CreateDutyInput) (*DataOutput[DutyDTO], error) {
	weight := input.Body.Weight
	if weight == 0 {
		weight = 1.0
	}
	d, err := h.queries.CreateDuty(ctx, database.CreateDutyParams{
		Slug:   input.Body.Slug,
		Label:  input.Body.Label,
		Weight: weight,
	})
	if err != nil {
		return nil, huma.Error409Conflict("duty slug already exists")
	}
	return OK(dutyDTO(d)), nil
}

type UpdateDutyInput struct {
	ID   string `path:"id" format:"uuid" doc:"Duty ID"`
	Body struct {
		Label  string  `json:"label" minLength:"1" maxLength:"128" doc:"Human label"`
		Weight float64 `json:"weight" minimum:"0" maximum:"100" doc:"Relative burden"`
	}
}

func (h *DutiesHandler) UpdateDuty(ctx context.Context, input *UpdateDutyInput) (*DataOutput[DutyDTO], error) {
	d, err := h.queries.UpdateDuty(ctx, database.UpdateDutyParams{
		ID:     util.TextToUUID(input.ID),
		Label:  input.Body.Label,
		Weight: input.Body.Weight,
	})
	if err != nil {
		return nil, huma.Error404NotFound("duty not found")
	}
	return OK(dutyDTO(d)), nil
}

type DutyIDInput struct {
	ID string `path:"id" format:"uuid" doc:"Duty ID"`
}

func (h *DutiesHandler) RetireDuty(ctx context.Context, input *DutyIDInput) (*DataOutput[DutyDTO], error) {
	d, err := h.queries.RetireDuty(ctx, util.TextToUUID(input.ID))
	if err != nil {
		return nil, huma.Error404NotFound("duty not found")
	}
	return OK(dutyDTO(d)), nil
}
