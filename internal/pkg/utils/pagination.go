package utils

import (
	"net/http"
	"strconv"
)

// Page size bounds for list endpoints
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PaginationParams is a resolved page request
type PaginationParams struct {
	Page     int
	PageSize int
	Offset   int
}

// PaginatedResponse is one page of a list plus its totals
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalItems int64       `json:"total_items"`
	TotalPages int         `json:"total_pages"`
}

// ParsePaginationParams reads page and page_size from the query. Missing or
// unusable values fall back to the first page of DefaultPageSize; sizes
// above MaxPageSize are clamped.
func ParsePaginationParams(r *http.Request) PaginationParams {
	q := r.URL.Query()

	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(q.Get("page_size"))
	switch {
	case err != nil || size < 1:
		size = DefaultPageSize
	case size > MaxPageSize:
		size = MaxPageSize
	}

	return PaginationParams{Page: page, PageSize: size, Offset: (page - 1) * size}
}

// Paginate slices one page out of items
func Paginate[T any](items []T, p PaginationParams) PaginatedResponse {
	total := len(items)
	lo := min(p.Offset, total)
	hi := min(lo+p.PageSize, total)

	data := make([]T, hi-lo)
	copy(data, items[lo:hi])

	pages := 0
	if p.PageSize > 0 {
		pages = (total + p.PageSize - 1) / p.PageSize
	}
	return PaginatedResponse{
		Data:       data,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalItems: int64(total),
		TotalPages: pages,
	}
}
