package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

type DutyRow struct {
	ID        pgtype.UUID
	Slug      string
	Label     string
	Weight    float64
	IsActive  bool
	CreatedAt pgtype.Timestamptz
}

const dutyColumns = `id, slug, label, weight, is_active, created_at`

func scanDuty(row interface{ Scan(dest ...any) error }) (DutyRow, error) {
	var d DutyRow
	err := row.Scan(&d.ID, &d.Slug, &d.Label, &d.Weight, &d.IsActive, &d.CreatedAt)
	return d, err
}

func (q *Queries) listDuties(ctx context.Context, sql string) ([]DutyRow, error) {
	rows, err := q.db.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var duties []DutyRow
	for rows.Next() {
		d, err := scanDuty(rows)
		if err != nil {
			return nil, err
		}
		duties = append(duties, d)
	}
	return duties, rows.Err()
}

// ListActiveDuties returns the catalog in stable slug order, the order
// the scheduler processes duties in.
func (q *Queries) ListActiveDuties(ctx context.Context) ([]DutyRow, error) {
	return q.listDuties(ctx, `SELECT `+dutyColumns+` FROM duties WHERE is_active ORDER BY slug`)
}

func (q *Queries) ListAllDuties(ctx context.Context) ([]DutyRow, error) {
	return q.listDuties(ctx, `SELECT `+dutyColumns+` FROM duties ORDER BY slug`)
}

type CreateDutyParams struct {
	Slug   string
	Label  string
	Weight float64
}

func (q *Queries) CreateDuty(ctx context.Context, arg CreateDutyParams) (DutyRow, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO duties (slug, label, weight)
		VALUES ($1, $2, $3)
		RETURNING `+dutyColumns, arg.Slug, arg.Label, arg.Weight)
	return scanDuty(row)
}

type UpdateDutyParams struct {
	ID     pgtype.UUID
	Label  string
	Weight float64
}

func (q *Queries) UpdateDuty(ctx context.Context, arg UpdateDutyParams) (DutyRow, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE duties SET label = $2, weight = $3
		WHERE id = $1
		RETURNING `+dutyColumns, arg.ID, arg.Label, arg.Weight)
	return scanDuty(row)
}

// RetireDuty soft-deletes a duty: it leaves the rotation but committed
// history still references it.
func (q *Queries) RetireDuty(ctx context.Context, id pgtype.UUID) (DutyRow, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE duties SET is_active = FALSE
		WHERE id = $1
		RETURNING `+dutyColumns, id)
	return scanDuty(row)
}
