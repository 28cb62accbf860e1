// Package memstore evaluates queries over rows held in memory. It backs the
// dataset-file view and stands in for a real store in tests.
package memstore

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"corpusdash/internal/domain"
	"corpusdash/internal/store"
)

type Store struct {
	mu   sync.RWMutex
	data map[domain.Collection][]domain.Row
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{data: make(map[domain.Collection][]domain.Row)}
}

// Put replaces the rows of a collection. Row order is the insertion order used
// to break sort ties.
func (s *Store) Put(c domain.Collection, rows []domain.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[c] = rows
}

func (s *Store) Find(ctx context.Context, c domain.Collection, q domain.Query, opts store.Options) ([]domain.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.data[c]
	idx := matching(rows, q, opts)

	field := q.Sort.ID
	sort.SliceStable(idx, func(i, j int) bool {
		a, _ := Lookup(rows[idx[i]], field)
		b, _ := Lookup(rows[idx[j]], field)
		cmp := Compare(a, b)
		if q.Sort.Desc {
			return cmp > 0
		}
		return cmp < 0
	})

	start := min(max(q.Page.Start, 0), len(idx))
	end := len(idx)
	if q.Page.Size > 0 {
		end = min(start+q.Page.Size, len(idx))
	}

	out := make([]domain.Row, 0, end-start)
	for _, i := range idx[start:end] {
		out = append(out, rows[i])
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, c domain.Collection, q domain.Query, opts store.Options) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(matching(s.data[c], q, opts))), nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close(context.Context) error { return nil }

func matching(rows []domain.Row, q domain.Query, opts store.Options) []int {
	needle := strings.ToLower(q.GlobalFilter)
	idx := make([]int, 0, len(rows))
	for i, row := range rows {
		if !matchFilters(row, q.Filters) {
			continue
		}
		if needle != "" && !matchText(row, needle, opts.SearchFields) {
			continue
		}
		idx = append(idx, i)
	}
	return idx
}

func matchFilters(row domain.Row, filters []domain.Filter) bool {
	for _, f := range filters {
		v, _ := Lookup(row, f.ID)
		if !Equal(v, f.Value) {
			return false
		}
	}
	return true
}

func matchText(row domain.Row, needle string, fields []string) bool {
	if len(fields) == 0 {
		return containsText(row, needle)
	}
	for _, f := range fields {
		if v, ok := Lookup(row, f); ok && containsText(v, needle) {
			return true
		}
	}
	return false
}

func containsText(v any, needle string) bool {
	switch t := v.(type) {
	case string:
		return strings.Contains(strings.ToLower(t), needle)
	case map[string]any:
		for _, e := range t {
			if containsText(e, needle) {
				return true
			}
		}
	case []any:
		for _, e := range t {
			if containsText(e, needle) {
				return true
			}
		}
	}
	return false
}

// Lookup resolves a dotted field path inside nested maps.
func Lookup(row domain.Row, path string) (any, bool) {
	var cur any = row
	for _, seg := range domain.FieldSegments(path) {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Equal reports whether a stored value satisfies an equality filter. Numbers
// compare by value regardless of Go type, a nil filter matches missing or null
// fields, and an array field matches when any element is equal.
func Equal(stored, want any) bool {
	if arr, ok := stored.([]any); ok {
		if _, wantArr := want.([]any); !wantArr {
			for _, e := range arr {
				if Equal(e, want) {
					return true
				}
			}
			return false
		}
	}
	if a, ok := toFloat(stored); ok {
		b, ok := toFloat(want)
		return ok && a == b
	}
	switch a := stored.(type) {
	case nil:
		return want == nil
	case string:
		b, ok := want.(string)
		return ok && a == b
	case bool:
		b, ok := want.(bool)
		return ok && a == b
	}
	return reflect.DeepEqual(stored, want)
}

// Compare orders values the way a document store does: null, numbers,
// strings, objects, arrays, booleans.
func Compare(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch ra {
	case 0:
		return 0
	case 1:
		fa, _ := toFloat(a)
		fb, _ := toFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case 2:
		return strings.Compare(a.(string), b.(string))
	case 5:
		ba, bb := a.(bool), b.(bool)
		switch {
		case ba == bb:
			return 0
		case !ba:
			return -1
		}
		return 1
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func rank(v any) int {
	if v == nil {
		return 0
	}
	if _, ok := toFloat(v); ok {
		return 1
	}
	switch v.(type) {
	case string:
		return 2
	case map[string]any:
		return 3
	case []any:
		return 4
	case bool:
		return 5
	}
	return 6
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
