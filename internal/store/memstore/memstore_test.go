package memstore

import (
	"context"
	"testing"

	"corpusdash/internal/domain"
	"corpusdash/internal/store"
)

var corpus = domain.Collection{Database: "CorpusData", Name: "CorpusManager"}

func seed() *Store {
	s := New()
	s.Put(corpus, []domain.Row{
		{"name": "app.one", "lang": "en", "stat": "ok", "timestamp": "20240105000000", "result": map[string]any{"accuracy": 0.91}},
		{"name": "app.two", "lang": "es", "stat": "ok", "timestamp": "20240103000000", "tags": []any{"gdpr", "ccpa"}},
		{"name": "App.Three", "lang": "en", "stat": "failed", "timestamp": "20240104000000", "message": "Timeout while downloading"},
		{"name": "app.four", "lang": "en", "stat": "ok", "timestamp": "20240101000000", "result": map[string]any{"accuracy": 0.5}},
		{"name": "app.five", "lang": nil, "stat": "ok"},
	})
	return s
}

func names(rows []domain.Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r["name"].(string))
	}
	return out
}

func TestFindSortsAndPaginates(t *testing.T) {
	s := seed()
	q := domain.Query{Sort: domain.Sort{ID: "timestamp", Desc: true}, Page: domain.PageRequest{Start: 1, Size: 2}}

	rows, err := s.Find(context.Background(), corpus, q, store.Options{})
	if err != nil {
		t.Fatalf("Find returned error: %v", err)
	}
	got := names(rows)
	want := []string{"App.Three", "app.two"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("page = %v, want %v", got, want)
	}

	total, err := s.Count(context.Background(), corpus, q, store.Options{})
	if err != nil {
		t.Fatalf("Count returned error: %v", err)
	}
	if total != 5 {
		t.Fatalf("total = %d, want 5", total)
	}
}

func TestMissingSortFieldSortsFirstAscending(t *testing.T) {
	s := seed()
	q := domain.Query{Sort: domain.Sort{ID: "timestamp"}, Page: domain.PageRequest{Size: 10}}
	rows, err := s.Find(context.Background(), corpus, q, store.Options{})
	if err != nil {
		t.Fatalf("Find returned error: %v", err)
	}
	if got := names(rows)[0]; got != "app.five" {
		t.Fatalf("first row = %s, want app.five", got)
	}
}

func TestFiltersAreConjunctive(t *testing.T) {
	s := seed()
	q := domain.Query{
		Filters: []domain.Filter{{ID: "lang", Value: "en"}, {ID: "stat", Value: "ok"}},
		Sort:    domain.Sort{ID: "timestamp", Desc: true},
		Page:    domain.PageRequest{Size: 10},
	}
	rows, err := s.Find(context.Background(), corpus, q, store.Options{})
	if err != nil {
		t.Fatalf("Find returned error: %v", err)
	}
	got := names(rows)
	if len(got) != 2 || got[0] != "app.one" || got[1] != "app.four" {
		t.Fatalf("filtered rows = %v", got)
	}
}

func TestNestedNullAndArrayFilters(t *testing.T) {
	s := seed()
	cases := []struct {
		filter domain.Filter
		want   int64
	}{
		{domain.Filter{ID: "result.accuracy", Value: 0.5}, 1},
		{domain.Filter{ID: "lang", Value: nil}, 1},
		{domain.Filter{ID: "message", Value: nil}, 4},
		{domain.Filter{ID: "tags", Value: "gdpr"}, 1},
		{domain.Filter{ID: "stat", Value: 1}, 0},
	}
	for _, tc := range cases {
		q := domain.Query{Filters: []domain.Filter{tc.filter}, Sort: domain.Sort{ID: "timestamp"}}
		n, err := s.Count(context.Background(), corpus, q, store.Options{})
		if err != nil {
			t.Fatalf("Count returned error: %v", err)
		}
		if n != tc.want {
			t.Fatalf("filter %+v matched %d rows, want %d", tc.filter, n, tc.want)
		}
	}
}

func TestGlobalFilterUsesSearchFields(t *testing.T) {
	s := seed()
	q := domain.Query{GlobalFilter: "timeout", Sort: domain.Sort{ID: "timestamp"}}

	n, err := s.Count(context.Background(), corpus, q, store.Options{SearchFields: []string{"name"}})
	if err != nil {
		t.Fatalf("Count returned error: %v", err)
	}
	if n != 0 {
		t.Fatalf("search restricted to name matched %d rows", n)
	}

	n, err = s.Count(context.Background(), corpus, q, store.Options{})
	if err != nil {
		t.Fatalf("Count returned error: %v", err)
	}
	if n != 1 {
		t.Fatalf("search over all text matched %d rows, want 1", n)
	}

	q.GlobalFilter = "APP.T"
	n, _ = s.Count(context.Background(), corpus, q, store.Options{SearchFields: []string{"name"}})
	if n != 2 {
		t.Fatalf("case-insensitive search matched %d rows, want 2", n)
	}
}

func TestUnknownCollectionIsEmpty(t *testing.T) {
	s := seed()
	rows, err := s.Find(context.Background(), domain.Collection{Name: "nope"}, domain.Query{Page: domain.PageRequest{Size: 10}}, store.Options{})
	if err != nil {
		t.Fatalf("Find returned error: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := seed().Find(ctx, corpus, domain.Query{}, store.Options{}); err == nil {
		t.Fatalf("expected error for canceled context")
	}
}

func TestCompareOrdersByType(t *testing.T) {
	ordered := []any{nil, -1.0, 2, "a", "b", map[string]any{"x": 1}, []any{1}, false, true}
	for i := 0; i+1 < len(ordered); i++ {
		if Compare(ordered[i], ordered[i+1]) >= 0 {
			t.Fatalf("expected %v < %v", ordered[i], ordered[i+1])
		}
	}
	if Compare(3, 3.0) != 0 {
		t.Fatalf("numbers of different types should compare equal")
	}
}
