package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

type DeviceToken struct {
	Token     string
	UserID    pgtype.UUID
	Platform  string
	CreatedAt pgtype.Timestamptz
}

type SaveDeviceTokenParams struct {
	Token    string
	UserID   pgtype.UUID
	Platform string
}

// SaveDeviceToken upserts a push token. A token re-registered by a
// different user moves to that user.
func (q *Queries) SaveDeviceToken(ctx context.Context, arg SaveDeviceTokenParams) (DeviceToken, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO device_tokens (token, user_id, platform)
		VALUES ($1, $2, $3)
		ON CONFLICT (token) DO UPDATE SET user_id = $2, platform = $3
		RETURNING token, user_id, platform, created_at`,
		arg.Token, arg.UserID, arg.Platform)
	var d DeviceToken
	err := row.Scan(&d.Token, &d.UserID, &d.Platform, &d.CreatedAt)
	return d, err
}

type DeleteDeviceTokenParams struct {
	Token  string
	UserID pgtype.UUID
}

func (q *Queries) DeleteDeviceToken(ctx context.Context, arg DeleteDeviceTokenParams) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		DELETE FROM device_tokens WHERE token = $1 AND user_id = $2`,
		arg.Token, arg.UserID)
	return tag.RowsAffected(), err
}

func (q *Queries) ListDeviceTokens(ctx context.Context, userID pgtype.UUID) ([]DeviceToken, error) {
	rows, err := q.db.Query(ctx, `
		SELECT token, user_id, platform, created_at
		FROM device_tokens WHERE user_id = $1
		ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []DeviceToken
	for rows.Next() {
		var d DeviceToken
		if err := rows.Scan(&d.Token, &d.UserID, &d.Platform, &d.CreatedAt); err != nil {
			return nil, err
		}
		tokens = append(tokens, d)
	}
	return tokens, rows.Err()
}
