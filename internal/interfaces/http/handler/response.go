package handler

import "github.com/briefing/backend/internal/interfaces/http/dto"

// APIResponse is a generic wrapper used for OpenAPI documentation.
// The runtime response is dto.Response; this type exists so swag can
// generate a concrete schema per endpoint.
type APIResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}

// ErrorResponse documents the error envelope.
type ErrorResponse struct {
	Success bool          `json:"success" example:"false"`
	Error   dto.ErrorInfo `json:"error"`
}

// SuccessResponse documents an empty success envelope.
type SuccessResponse struct {
	Success bool `json:"success" example:"true"`
}

// CountData wraps a bare count payload.
type CountData struct {
	Count int64 `json:"count" example:"42"`
}
