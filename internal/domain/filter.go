package domain

import (
	"net/url"
	"strconv"
)

// PageSize is the fixed number of startups the backend returns per page.
const PageSize = 20

// DefaultOrdering sorts the catalog by most recently created first.
const DefaultOrdering = "-created_at"

// FilterState holds the active catalog search parameters.
type FilterState struct {
	Query    string `json:"q"`
	Industry string `json:"industry"`
	Location string `json:"location"`
	Stage    string `json:"stage"`
	Page     int    `json:"page"`
	Ordering string `json:"ordering"`
}

// DefaultFilters returns the filter state used on first load and after a reset.
func DefaultFilters() FilterState {
	return FilterState{Page: 1, Ordering: DefaultOrdering}
}

// FilterPatch is a partial filter update. Nil fields are left untouched.
type FilterPatch struct {
	Query    *string
	Industry *string
	Location *string
	Stage    *string
	Page     *int
	Ordering *string
}

// Merge returns f with every non-nil field of p applied.
func (f FilterState) Merge(p *FilterPatch) FilterState {
	if p == nil {
		return f
	}
	if p.Query != nil {
		f.Query = *p.Query
	}
	if p.Industry != nil {
		f.Industry = *p.Industry
	}
	if p.Location != nil {
		f.Location = *p.Location
	}
	if p.Stage != nil {
		f.Stage = *p.Stage
	}
	if p.Page != nil {
		f.Page = *p.Page
	}
	if p.Ordering != nil {
		f.Ordering = *p.Ordering
	}
	return f
}

// SameSearch reports whether f and o differ only in their page.
func (f FilterState) SameSearch(o FilterState) bool {
	f.Page, o.Page = 0, 0
	return f == o
}

// Values serializes the filter as query parameters, omitting empty fields.
func (f FilterState) Values() url.Values {
	v := url.Values{}
	if f.Query != "" {
		v.Set("q", f.Query)
	}
	if f.Industry != "" {
		v.Set("industry", f.Industry)
	}
	if f.Location != "" {
		v.Set("location", f.Location)
	}
	if f.Stage != "" {
		v.Set("stage", f.Stage)
	}
	if f.Page > 0 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	if f.Ordering != "" {
		v.Set("ordering", f.Ordering)
	}
	return v
}

// Pagination describes the position of the current catalog page.
type Pagination struct {
	TotalCount  int     `json:"count"`
	Next        *string `json:"next"`
	Previous    *string `json:"previous"`
	CurrentPage int     `json:"current_page"`
}

// TotalPages returns the number of pages needed to show TotalCount results.
func (p Pagination) TotalPages() int {
	if p.TotalCount <= 0 {
		return 0
	}
	return (p.TotalCount + PageSize - 1) / PageSize
}

// HasNext reports whether the backend advertised a following page.
func (p Pagination) HasNext() bool { return p.Next != nil && *p.Next != "" }

// HasPrevious reports whether the backend advertised a preceding page.
func (p Pagination) HasPrevious() bool { return p.Previous != nil && *p.Previous != "" }
