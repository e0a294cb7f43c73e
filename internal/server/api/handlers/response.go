package handlers

import (
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// APIError implements huma.StatusError so error responses share the
// {success, error} envelope with success bodies.
type APIError struct {
	status  int
	Success bool   `json:"success"`
	Err     string `json:"error"`
}

func (e *APIError) Error() string  { return e.Err }
func (e *APIError) GetStatus() int { return e.status }

// InitErrors replaces huma's default error factory with the unified
// envelope. Call once before registering operations.
func InitErrors() {
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		detail := msg
		if len(errs) > 0 {
			parts := make([]string, len(errs))
			for i, e := range errs {
				parts[i] = e.Error()
			}
			detail = msg + ": " + strings.Join(parts, "; ")
		}
		return &APIError{status: status, Success: false, Err: detail}
	}
}

// DataBody wraps response payloads in the success envelope.
type DataBody[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

// DataOutput is the huma output wrapper for payload responses.
type DataOutput[T any] struct {
	Body DataBody[T]
}

func OK[T any](data T) *DataOutput[T] {
	return &DataOutput[T]{Body: DataBody[T]{Success: true, Data: data}}
}

// MsgBody is the envelope for message-only responses.
type MsgBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// MsgOutput is the huma output wrapper for message-only responses.
type MsgOutput struct {
	Body MsgBody
}

func Msg(message string) *MsgOutput {
	return &MsgOutput{Body: MsgBody{Success: true, Message: message}}
}
