package handler

import "github.com/crosslist/backend/internal/interfaces/http/dto"

// APIResponse is the standard response envelope with a typed data field.
// Handlers emit it through dto.NewSuccessResponse; tests use it to decode
// a response body without losing the data type.
type APIResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}

// CountData wraps a bare count in a response body, used by endpoints
// such as the unread notification count.
type CountData struct {
	Count int64 `json:"count"`
}
