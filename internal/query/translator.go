package query

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"corpusdash/internal/domain"
	"corpusdash/internal/store"

	"golang.org/x/sync/errgroup"
)

// Translator serves pages of one collection. Every table endpoint is a
// Translator with its own collection, default sort and search configuration.
type Translator struct {
	Store        store.Finder
	Collection   domain.Collection
	DefaultSort  domain.Sort
	SearchFields []string
	// FilterFields restricts column filters to these fields when non-empty.
	FilterFields []string
	MaxPageSize  int
}

func (t Translator) defaultSort() domain.Sort {
	if t.DefaultSort.ID == "" {
		return domain.Sort{ID: DefaultSortField, Desc: true}
	}
	return t.DefaultSort
}

func (t Translator) maxPageSize() int {
	if t.MaxPageSize <= 0 {
		return DefaultMaxPageSize
	}
	return t.MaxPageSize
}

// Translate validates p against the view and produces the store query.
// Only the first sort key is kept.
func (t Translator) Translate(p Params) (domain.Query, error) {
	size := p.Size
	if size == 0 {
		size = DefaultSize
	}
	if size < 0 {
		return domain.Query{}, domain.ValidationError{Field: "size", Msg: "must be a positive integer"}
	}
	if size > t.maxPageSize() {
		return domain.Query{}, domain.ValidationError{Field: "size", Msg: fmt.Sprintf("must be at most %d", t.maxPageSize())}
	}
	if p.Start < 0 {
		return domain.Query{}, domain.ValidationError{Field: "start", Msg: "must be a non-negative integer"}
	}

	var allowed map[string]bool
	if len(t.FilterFields) > 0 {
		allowed = make(map[string]bool, len(t.FilterFields))
		for _, f := range t.FilterFields {
			allowed[f] = true
		}
	}
	filters := make([]domain.Filter, 0, len(p.Filters))
	for _, f := range p.Filters {
		if !domain.ValidFieldPath(f.ID) {
			return domain.Query{}, domain.ValidationError{Field: "filters", Msg: fmt.Sprintf("invalid field %q", f.ID)}
		}
		if allowed != nil && !allowed[f.ID] {
			return domain.Query{}, domain.ValidationError{Field: "filters", Msg: fmt.Sprintf("filtering on %q is not supported", f.ID)}
		}
		filters = append(filters, f)
	}

	sort := t.defaultSort()
	if len(p.Sorting) > 0 {
		sort = p.Sorting[0]
	}
	if !domain.ValidFieldPath(sort.ID) {
		return domain.Query{}, domain.ValidationError{Field: "sorting", Msg: fmt.Sprintf("invalid field %q", sort.ID)}
	}

	return domain.Query{
		Filters:      filters,
		GlobalFilter: strings.TrimSpace(p.GlobalFilter),
		Sort:         sort,
		Page:         domain.PageRequest{Start: p.Start, Size: size},
	}, nil
}

// Execute fetches the page and the unpaginated total concurrently.
func (t Translator) Execute(ctx context.Context, q domain.Query) (domain.PageResponse, error) {
	if t.Store == nil {
		return domain.PageResponse{}, domain.UnavailableError{Store: t.Collection.Database}
	}
	opts := store.Options{SearchFields: t.SearchFields}

	var (
		rows  []domain.Row
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := t.Store.Find(gctx, t.Collection, q, opts)
		if err != nil {
			return fmt.Errorf("find %s: %w", t.Collection, err)
		}
		rows = r
		return nil
	})
	g.Go(func() error {
		n, err := t.Store.Count(gctx, t.Collection, q, opts)
		if err != nil {
			return fmt.Errorf("count %s: %w", t.Collection, err)
		}
		total = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.PageResponse{}, err
	}

	if rows == nil {
		rows = []domain.Row{}
	}
	return domain.PageResponse{Data: rows, Meta: domain.PageMeta{TotalRowCount: total}}, nil
}

// Page parses v, translates it and executes the query.
func (t Translator) Page(ctx context.Context, v url.Values) (domain.PageResponse, error) {
	p, err := ParseParams(v)
	if err != nil {
		return domain.PageResponse{}, err
	}
	q, err := t.Translate(p)
	if err != nil {
		return domain.PageResponse{}, err
	}
	return t.Execute(ctx, q)
}
