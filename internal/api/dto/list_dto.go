package dto

import "github.com/forgecomply/forgecomply360/pkg/pagination"

// ListResponse is the envelope for every paginated list endpoint.
type ListResponse[T any] struct {
	Data       []T             `json:"data"`
	Pagination pagination.Page `json:"pagination"`
}

// NewListResponse wraps items; a nil slice renders as [].
func NewListResponse[T any](items []T, page pagination.Page) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Data: items, Pagination: page}
}
