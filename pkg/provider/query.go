package provider

import (
	"net/url"
	"strconv"
	"strings"
)

// PaginationMode selects between server-side paging and the server's default
// unpaged response (used for small reference tables)
type PaginationMode string

const (
	PaginationServer PaginationMode = "server"
	PaginationOff    PaginationMode = "off"
)

// Pagination describes the requested page window
type Pagination struct {
	Mode     PaginationMode
	Page     int
	PageSize int
}

// Sorter describes one sort key; Desc maps to a leading "-" in the query
type Sorter struct {
	Field string
	Desc  bool
}

// Filters maps filter fields to one or more values. Only the recognized
// fields below reach the wire; everything else is silently dropped.
type Filters map[string][]string

// ListParams carries pagination, filters, and sorters for a List call
type ListParams struct {
	Pagination Pagination
	Filters    Filters
	Sorters    []Sorter
}

const (
	defaultPage     = 1
	defaultPageSize = 25
)

// buildQuery translates ListParams into the backend's query-string contract.
// Unrecognized filter fields are ignored, not an error: callers pass their
// whole filter form state through.
func buildQuery(params ListParams) url.Values {
	q := url.Values{}

	if params.Pagination.Mode == PaginationServer {
		page := params.Pagination.Page
		if page <= 0 {
			page = defaultPage
		}
		size := params.Pagination.PageSize
		if size <= 0 {
			size = defaultPageSize
		}
		q.Set("page", strconv.Itoa(page))
		q.Set("page_size", strconv.Itoa(size))
	}

	for field, values := range params.Filters {
		if len(values) == 0 {
			continue
		}
		switch field {
		case "q":
			q.Set("q", values[0])
		case "assigned_user", "assigned_user.id":
			q.Set("assigned_user_id", strings.Join(values, ","))
		case "lead_id":
			q.Set("lead_id", values[0])
		case "business_id":
			q.Set("business_id", values[0])
		}
	}

	for _, s := range params.Sorters {
		field := s.Field
		if s.Desc {
			field = "-" + field
		}
		q.Add("sort", field)
	}

	return q
}
