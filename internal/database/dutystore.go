package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/homeduty/homeduty/internal/core/duty"
	"github.com/homeduty/homeduty/internal/core/util"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DutyStore is the PostgreSQL duty.Store. Commit is one transaction and
// CAS-guards the rotation_version row, so a concurrent arrangement for
// another period forces a clean retry instead of a lost update.
type DutyStore struct {
	pool    *pgxpool.Pool
	queries *Queries
}

func NewDutyStore(pool *pgxpool.Pool) *DutyStore {
	return &DutyStore{pool: pool, queries: New(pool)}
}

func (s *DutyStore) ActiveDuties(ctx context.Context) ([]duty.Duty, error) {
	rows, err := s.queries.ListActiveDuties(ctx)
	if err != nil {
		return nil, err
	}
	duties := make([]duty.Duty, len(rows))
	for i, r := range rows {
		duties[i] = duty.Duty{
			ID:     duty.DutyID(util.UUIDToStr(r.ID)),
			Slug:   r.Slug,
			Label:  r.Label,
			Weight: r.Weight,
		}
	}
	return duties, nil
}

func (s *DutyStore) Arrangement(ctx context.Context, period duty.Period) (*duty.ArrangementRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT generation, superseded, reason, committed_at
		FROM arrangements
		WHERE period_year = $1 AND period_month = $2 AND NOT superseded
		ORDER BY generation DESC
		LIMIT 1`, period.Year, period.Month)

	rec := duty.ArrangementRecord{Period: period}
	var committedAt pgtype.Timestamptz
	err := row.Scan(&rec.Generation, &rec.Superseded, &rec.Reason, &committedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.CommittedAt = committedAt.Time
	return &rec, nil
}

const assignmentSelect = `
	SELECT a.generation, a.duty_id, d.slug, d.label, a.user_id,
	       COALESCE(NULLIF(u.display_name, ''), u.username), a.committed_at
	FROM assignments a
	JOIN duties d ON d.id = a.duty_id
	JOIN users u ON u.id = a.user_id
	WHERE a.period_year = $1 AND a.period_month = $2`

func (s *DutyStore) Assignments(ctx context.Context, period duty.Period) ([]duty.AssignmentRecord, error) {
	return s.queryAssignments(ctx, period, assignmentSelect+`
		AND a.generation = (
			SELECT generation FROM arrangements
			WHERE period_year = $1 AND period_month = $2 AND NOT superseded
			ORDER BY generation DESC LIMIT 1)
		ORDER BY d.slug`)
}

func (s *DutyStore) AssignmentHistory(ctx context.Context, period duty.Period) ([]duty.AssignmentRecord, error) {
	return s.queryAssignments(ctx, period, assignmentSelect+`
		ORDER BY a.generation, d.slug`)
}

func (s *DutyStore) queryAssignments(ctx context.Context, period duty.Period, sql string) ([]duty.AssignmentRecord, error) {
	rows, err := s.pool.Query(ctx, sql, period.Year, period.Month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []duty.AssignmentRecord
	for rows.Next() {
		rec := duty.AssignmentRecord{Period: period}
		var dutyID, userID pgtype.UUID
		var committedAt pgtype.Timestamptz
		if err := rows.Scan(&rec.Generation, &dutyID, &rec.DutySlug, &rec.DutyLabel,
			&userID, &rec.UserName, &committedAt); err != nil {
			return nil, err
		}
		rec.Duty = duty.DutyID(util.UUIDToStr(dutyID))
		rec.User = duty.UserID(util.UUIDToStr(userID))
		rec.CommittedAt = committedAt.Time
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *DutyStore) RotationState(ctx context.Context) (duty.RotationState, error) {
	state := duty.NewRotationState()

	if err := s.pool.QueryRow(ctx,
		`SELECT version FROM rotation_version WHERE id = 1`).Scan(&state.Version); err != nil {
		return duty.RotationState{}, fmt.Errorf("read rotation version: %w", err)
	}

	rows, err := s.pool.Query(ctx, `SELECT duty_id, cursor_pos FROM rotation_cursors`)
	if err != nil {
		return duty.RotationState{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var id pgtype.UUID
		var pos int
		if err := rows.Scan(&id, &pos); err != nil {
			return duty.RotationState{}, err
		}
		state.Cursors[duty.DutyID(util.UUIDToStr(id))] = pos
	}
	if err := rows.Err(); err != nil {
		return duty.RotationState{}, err
	}

	loadRows, err := s.pool.Query(ctx, `SELECT user_id, total_weight FROM user_loads`)
	if err != nil {
		return duty.RotationState{}, err
	}
	defer loadRows.Close()
	for loadRows.Next() {
		var id pgtype.UUID
		var weight float64
		if err := loadRows.Scan(&id, &weight); err != nil {
			return duty.RotationState{}, err
		}
		state.Loads[duty.UserID(util.UUIDToStr(id))] = weight
	}
	return state, loadRows.Err()
}

func (s *DutyStore) Commit(ctx context.Context, req duty.CommitRequest) (duty.ArrangementRecord, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return duty.ArrangementRecord{}, fmt.Errorf("begin commit tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// CAS: refuse the whole commit if the version moved since the read.
	tag, err := tx.Exec(ctx, `
		UPDATE rotation_version SET version = version + 1
		WHERE id = 1 AND version = $1`, req.State.Version)
	if err != nil {
		return duty.ArrangementRecord{}, fmt.Errorf("bump rotation version: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return duty.ArrangementRecord{}, duty.ErrStateConflict
	}

	if req.Generation > 1 {
		if _, err := tx.Exec(ctx, `
			UPDATE arrangements SET superseded = TRUE
			WHERE period_year = $1 AND period_month = $2 AND NOT superseded`,
			req.Period.Year, req.Period.Month); err != nil {
			return duty.ArrangementRecord{}, fmt.Errorf("supersede prior generations: %w", err)
		}
	}

	rec := duty.ArrangementRecord{
		Period:     req.Period,
		Generation: req.Generation,
		Reason:     req.Reason,
	}
	var committedAt pgtype.Timestamptz
	if err := tx.QueryRow(ctx, `
		INSERT INTO arrangements (period_year, period_month, generation, reason)
		VALUES ($1, $2, $3, $4)
		RETURNING committed_at`,
		req.Period.Year, req.Period.Month, req.Generation, req.Reason).Scan(&committedAt); err != nil {
		return duty.ArrangementRecord{}, fmt.Errorf("insert arrangement: %w", err)
	}
	rec.CommittedAt = committedAt.Time

	for _, a := range req.Assignments {
		if _, err := tx.Exec(ctx, `
			INSERT INTO assignments (period_year, period_month, generation, duty_id, user_id, committed_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			req.Period.Year, req.Period.Month, req.Generation,
			util.TextToUUID(string(a.Duty)), util.TextToUUID(string(a.User)), committedAt); err != nil {
			return duty.ArrangementRecord{}, fmt.Errorf("insert assignment: %w", err)
		}
	}

	for id, pos := range req.State.Cursors {
		if _, err := tx.Exec(ctx, `
			INSERT INTO rotation_cursors (duty_id, cursor_pos) VALUES ($1, $2)
			ON CONFLICT (duty_id) DO UPDATE SET cursor_pos = $2`,
			util.TextToUUID(string(id)), pos); err != nil {
			return duty.ArrangementRecord{}, fmt.Errorf("write cursor: %w", err)
		}
	}
	for id, weight := range req.State.Loads {
		if _, err := tx.Exec(ctx, `
			INSERT INTO user_loads (user_id, total_weight) VALUES ($1, $2)
			ON CONFLICT (user_id) DO UPDATE SET total_weight = $2`,
			util.TextToUUID(string(id)), weight); err != nil {
			return duty.ArrangementRecord{}, fmt.Errorf("write load: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return duty.ArrangementRecord{}, fmt.Errorf("commit arrangement tx: %w", err)
	}
	return rec, nil
}

// Roster is the RosterProvider backed by the users table: all active
// members, ordered ascending by id.
type Roster struct {
	queries *Queries
}

func NewRoster(pool *pgxpool.Pool) *Roster {
	return &Roster{queries: New(pool)}
}

func (r *Roster) EligibleMembers(ctx context.Context, period duty.Period) ([]duty.Member, error) {
	users, err := r.queries.ListActiveUsers(ctx)
	if err != nil {
		return nil, err
	}
	members := make([]duty.Member, len(users))
	for i, u := range users {
		name := u.DisplayName
		if name == "" {
			name = u.Username
		}
		members[i] = duty.Member{ID: duty.UserID(util.UUIDToStr(u.ID)), Name: name}
	}
	return members, nil
}
