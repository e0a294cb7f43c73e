package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID          pgtype.UUID
	Username    string
	Email       string
	Password    string
	DisplayName string
	AvatarURL   string
	Role        string
	IsActive    bool
	ApiKey      pgtype.UUID
	CreatedAt   pgtype.Timestamptz
	UpdatedAt   pgtype.Timestamptz
}

const userColumns = `id, username, email, password, display_name, avatar_url, role, is_active, api_key, created_at, updated_at`

func scanUser(row interface{ Scan(dest ...any) error }) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.DisplayName,
		&u.AvatarURL, &u.Role, &u.IsActive, &u.ApiKey, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

type CreateUserParams struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
	Role        string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO users (username, email, password, display_name, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		arg.Username, arg.Email, arg.Password, arg.DisplayName, arg.Role)
	return scanUser(row)
}

func (q *Queries) GetUserByID(ctx context.Context, id pgtype.UUID) (User, error) {
	row := q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	row := q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return scanUser(row)
}

func (q *Queries) GetUserByAPIKey(ctx context.Context, apiKey pgtype.UUID) (User, error) {
	row := q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE api_key = $1`, apiKey)
	return scanUser(row)
}

type ListUsersParams struct {
	Limit  int32
	Offset int32
}

func (q *Queries) ListUsers(ctx context.Context, arg ListUsersParams) ([]User, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+userColumns+` FROM users
		ORDER BY username
		LIMIT $1 OFFSET $2`, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ListActiveUsers returns eligible members in roster order (ascending
// by id, the order the scheduler's cursors index into).
func (q *Queries) ListActiveUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE is_active
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

type UpdateProfileParams struct {
	ID          pgtype.UUID
	DisplayName string
}

func (q *Queries) UpdateProfile(ctx context.Context, arg UpdateProfileParams) (User, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE users SET display_name = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns, arg.ID, arg.DisplayName)
	return scanUser(row)
}

type UpdateAvatarParams struct {
	ID        pgtype.UUID
	AvatarURL string
}

func (q *Queries) UpdateAvatar(ctx context.Context, arg UpdateAvatarParams) (User, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE users SET avatar_url = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns, arg.ID, arg.AvatarURL)
	return scanUser(row)
}

type SetUserActiveParams struct {
	ID       pgtype.UUID
	IsActive bool
}

func (q *Queries) SetUserActive(ctx context.Context, arg SetUserActiveParams) (User, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE users SET is_active = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns, arg.ID, arg.IsActive)
	return scanUser(row)
}

func (q *Queries) RegenerateAPIKey(ctx context.Context, id pgtype.UUID) (User, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE users SET api_key = gen_random_uuid(), updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns, id)
	return scanUser(row)
}

func (q *Queries) DeleteUser(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}
