// Package query translates the grid's pagination, filter and sort parameters
// into store queries and shapes the resulting page.
package query

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"corpusdash/internal/domain"
)

const (
	DefaultSize        = 10
	DefaultSortField   = "timestamp"
	DefaultMaxPageSize = 1000
)

// Params are the five grid parameters as they travel in a query string.
// The same type encodes requests on the client and parses them on the server.
type Params struct {
	Start        int
	Size         int
	Filters      []domain.Filter
	GlobalFilter string
	Sorting      []domain.Sort
}

// PageStart converts a zero-based page index into a row offset.
func PageStart(pageIndex, pageSize int) int {
	if pageIndex < 0 || pageSize < 0 {
		return 0
	}
	return pageIndex * pageSize
}

// ParseParams reads start, size, filters, globalFilter and sorting from v.
// Absent keys take their defaults; present but malformed keys are a
// domain.ValidationError. An empty sorting list is left empty so the caller
// applies its own default sort.
func ParseParams(v url.Values) (Params, error) {
	p := Params{Size: DefaultSize, Filters: []domain.Filter{}}

	if raw := strings.TrimSpace(v.Get("start")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return Params{}, domain.ValidationError{Field: "start", Msg: "must be a non-negative integer", Err: err}
		}
		p.Start = n
	}
	if raw := strings.TrimSpace(v.Get("size")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return Params{}, domain.ValidationError{Field: "size", Msg: "must be a positive integer", Err: err}
		}
		p.Size = n
	}

	if raw := strings.TrimSpace(v.Get("filters")); raw != "" {
		var filters []domain.Filter
		if err := json.Unmarshal([]byte(raw), &filters); err != nil {
			return Params{}, domain.ValidationError{Field: "filters", Msg: "must be a JSON array of {id, value}", Err: err}
		}
		for _, f := range filters {
			if !domain.ValidFieldPath(f.ID) {
				return Params{}, domain.ValidationError{Field: "filters", Msg: fmt.Sprintf("invalid field %q", f.ID)}
			}
		}
		if filters != nil {
			p.Filters = filters
		}
	}

	p.GlobalFilter = strings.TrimSpace(v.Get("globalFilter"))

	if raw := strings.TrimSpace(v.Get("sorting")); raw != "" {
		var sorting []domain.Sort
		if err := json.Unmarshal([]byte(raw), &sorting); err != nil {
			return Params{}, domain.ValidationError{Field: "sorting", Msg: "must be a JSON array of {id, desc}", Err: err}
		}
		for _, s := range sorting {
			if !domain.ValidFieldPath(s.ID) {
				return Params{}, domain.ValidationError{Field: "sorting", Msg: fmt.Sprintf("invalid field %q", s.ID)}
			}
		}
		p.Sorting = sorting
	}

	return p, nil
}

// Encode writes p the way the grid sends it: integers for start and size,
// JSON arrays for filters and sorting.
func (p Params) Encode() (url.Values, error) {
	filters := p.Filters
	if filters == nil {
		filters = []domain.Filter{}
	}
	sorting := p.Sorting
	if sorting == nil {
		sorting = []domain.Sort{}
	}
	fb, err := json.Marshal(filters)
	if err != nil {
		return nil, fmt.Errorf("encode filters: %w", err)
	}
	sb, err := json.Marshal(sorting)
	if err != nil {
		return nil, fmt.Errorf("encode sorting: %w", err)
	}

	v := url.Values{}
	v.Set("start", strconv.Itoa(p.Start))
	v.Set("size", strconv.Itoa(p.Size))
	v.Set("filters", string(fb))
	v.Set("globalFilter", p.GlobalFilter)
	v.Set("sorting", string(sb))
	return v, nil
}
