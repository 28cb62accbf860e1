package domain

import "fmt"

// Row is one record returned by a data endpoint. Its shape belongs to the view that serves it.
type Row = map[string]any

// Filter is a single field-equality constraint coming from a grid column.
type Filter struct {
	ID    string `json:"id"`
	Value any    `json:"value"`
}

// Sort defines sorting preference. Only the first Sort of a request is applied.
type Sort struct {
	ID   string `json:"id"`
	Desc bool   `json:"desc"`
}

// PageRequest is an offset slice of a result set.
type PageRequest struct {
	Start int `json:"start"`
	Size  int `json:"size"`
}

// Query is a validated, store-independent request for one page.
type Query struct {
	Filters      []Filter
	GlobalFilter string
	Sort         Sort
	Page         PageRequest
}

// PageMeta carries totals computed before pagination.
type PageMeta struct {
	TotalRowCount int64 `json:"totalRowCount"`
}

// PageResponse is the payload of every table endpoint.
type PageResponse struct {
	Data []Row    `json:"data"`
	Meta PageMeta `json:"meta"`
}

// Collection names a collection inside one logical database.
type Collection struct {
	Database string
	Name     string
}

func (c Collection) String() string {
	if c.Database == "" {
		return c.Name
	}
	return fmt.Sprintf("%s.%s", c.Database, c.Name)
}
