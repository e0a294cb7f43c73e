package util

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// TextToUUID parses a UUID string into pgtype.UUID. Invalid input
// yields the null UUID.
func TextToUUID(s string) pgtype.UUID {
	var u pgtype.UUID
	parsed, err := uuid.Parse(s)
	if err != nil {
		return u
	}
	u.Bytes = parsed
	u.Valid = true
	return u
}

// UUIDToStr formats a pgtype.UUID as a standard hyphenated UUID string.
func UUIDToStr(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

// NewUUID generates a random v4 UUID as pgtype.UUID.
func NewUUID() pgtype.UUID {
	return pgtype.UUID{Bytes: uuid.New(), Valid: true}
}
