package shared

import "math"

const (
	// DefaultPage is used when no page is requested.
	DefaultPage = 1
	// DefaultLimit is used when no page size is requested.
	DefaultLimit = 10
	// MaxLimit caps the requested page size.
	MaxLimit = 100
)

// PageRequest carries listing parameters from the transport layer.
type PageRequest struct {
	Page      int
	Limit     int
	Search    string
	SortBy    string
	SortOrder string
}

// Normalize clamps page and limit to sane values.
func (r PageRequest) Normalize() PageRequest {
	if r.Page <= 0 {
		r.Page = DefaultPage
	}
	if r.Limit <= 0 {
		r.Limit = DefaultLimit
	}
	if r.Limit > MaxLimit {
		r.Limit = MaxLimit
	}
	return r
}

// Offset computes the row offset for the requested page.
func (r PageRequest) Offset() int {
	offset := (r.Page - 1) * r.Limit
	if offset < 0 {
		return 0
	}
	return offset
}

// PageMeta contains metadata for paginated listings.
type PageMeta struct {
	Total      int  `json:"total"`
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// Page bundles a page of results with its metadata.
type Page[T any] struct {
	Data []T      `json:"data"`
	Meta PageMeta `json:"meta"`
}

// NewPageMeta computes pagination metadata.
func NewPageMeta(page, limit, total int) PageMeta {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if page <= 0 {
		page = DefaultPage
	}
	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	return PageMeta{
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}
