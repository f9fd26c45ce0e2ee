// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"formdesk/internal/core/notice"
)

// IDResponse is a simple ID response.
type IDResponse struct {
	ID string `json:"id"`
}

// SuccessResponse is a simple success response.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ListResponse wraps reference lists. Notices report degraded loads; the
// items are then the last good snapshot or empty.
type ListResponse struct {
	Items   any             `json:"items"`
	Count   int             `json:"count"`
	Notices []notice.Notice `json:"notices,omitempty"`
}

// NewListResponse builds a list response from a typed slice.
func NewListResponse[T any](items []T, notices ...notice.Notice) ListResponse {
	if items == nil {
		items = []T{}
	}
	return ListResponse{Items: items, Count: len(items), Notices: notices}
}
