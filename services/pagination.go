package services

import "math"

const (
	DefaultPerPage = 15
	MaxPerPage     = 100
)

// Pagination is a 1-based page request
type Pagination struct {
	Page    int
	PerPage int
}

// NewPagination clamps page and per-page values, falling back to defaultPerPage
func NewPagination(page, perPage, defaultPerPage int) Pagination {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return Pagination{Page: page, PerPage: perPage}
}

// Offset is the number of rows to skip
func (p Pagination) Offset() int {
	if p.Page < 1 || p.PerPage < 1 {
		return 0
	}
	return (p.Page - 1) * p.PerPage
}

// PageMeta describes a page of results
type PageMeta struct {
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
	LastPage    int   `json:"last_page"`
}

// Meta builds the page description for a total row count
func (p Pagination) Meta(total int64) PageMeta {
	lastPage := 1
	if p.PerPage > 0 && total > 0 {
		lastPage = int(math.Ceil(float64(total) / float64(p.PerPage)))
	}
	return PageMeta{CurrentPage: p.Page, PerPage: p.PerPage, Total: total, LastPage: lastPage}
}
