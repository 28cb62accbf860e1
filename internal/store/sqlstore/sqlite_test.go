package sqlstore_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"testing"

	"corpusdash/internal/domain"
	"corpusdash/internal/query"
	"corpusdash/internal/store"
	"corpusdash/internal/store/sqlstore"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var results = domain.Collection{Database: "DeepMountain", Name: "Results"}

func openSeeded(t *testing.T, docs []map[string]any) *sqlstore.Store {
	t.Helper()
	ctx := context.Background()
	s, err := sqlstore.Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(ctx) })

	_, err = s.DB.ExecContext(ctx, `CREATE TABLE "DeepMountain_Results" (id INTEGER PRIMARY KEY, doc TEXT NOT NULL)`)
	require.NoError(t, err)
	for i, doc := range docs {
		b, err := json.Marshal(doc)
		require.NoError(t, err)
		_, err = s.DB.ExecContext(ctx, `INSERT INTO "DeepMountain_Results" (id, doc) VALUES (?, ?)`, i+1, string(b))
		require.NoError(t, err)
	}
	return s
}

func runs(n int) []map[string]any {
	docs := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		k := (i * 11) % n
		docs = append(docs, map[string]any{
			"timestamp": fmt.Sprintf("20240201%06d", k),
			"algorithm": fmt.Sprintf("svm-%d", k%3),
			"corpus":    []string{"apps", "web"}[k%2],
			"done":      k%5 != 0,
			"result":    map[string]any{"accuracy": float64(k) / 100},
		})
	}
	return docs
}

func TestSQLiteSecondPageDescending(t *testing.T) {
	s := openSeeded(t, runs(25))
	tr := query.Translator{Store: s, Collection: results, SearchFields: []string{"algorithm", "corpus"}}

	page, err := tr.Page(context.Background(), url.Values{
		"start":   {"10"},
		"size":    {"10"},
		"sorting": {`[{"id":"timestamp","desc":true}]`},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 25, page.Meta.TotalRowCount)

	got := make([]string, 0, len(page.Data))
	for _, row := range page.Data {
		got = append(got, row["timestamp"].(string))
	}
	want := make([]string, 0, 10)
	for k := 14; k >= 5; k-- {
		want = append(want, fmt.Sprintf("20240201%06d", k))
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("page mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteFiltersAndSearch(t *testing.T) {
	s := openSeeded(t, runs(25))
	ctx := context.Background()
	opts := store.Options{SearchFields: []string{"algorithm"}}

	cases := []struct {
		name string
		q    domain.Query
		want int64
	}{
		{"string", domain.Query{Filters: []domain.Filter{{ID: "corpus", Value: "apps"}}}, 13},
		{"bool", domain.Query{Filters: []domain.Filter{{ID: "done", Value: false}}}, 5},
		{"nested number", domain.Query{Filters: []domain.Filter{{ID: "result.accuracy", Value: 0.12}}}, 1},
		{"missing is null", domain.Query{Filters: []domain.Filter{{ID: "user", Value: nil}}}, 25},
		{"conjunction", domain.Query{Filters: []domain.Filter{{ID: "corpus", Value: "apps"}, {ID: "done", Value: false}}}, 3},
		{"search", domain.Query{GlobalFilter: "SVM-2"}, 8},
		{"search escapes wildcards", domain.Query{GlobalFilter: "svm_"}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.q.Sort = domain.Sort{ID: "timestamp"}
			n, err := s.Count(ctx, results, tc.q, opts)
			require.NoError(t, err)
			assert.Equal(t, tc.want, n)

			tc.q.Page = domain.PageRequest{Size: 100}
			rows, err := s.Find(ctx, results, tc.q, opts)
			require.NoError(t, err)
			assert.Len(t, rows, int(tc.want))
		})
	}
}

func TestSQLiteTiesPaginateStably(t *testing.T) {
	docs := make([]map[string]any, 0, 12)
	for i := 0; i < 12; i++ {
		docs = append(docs, map[string]any{"timestamp": "20240301000000", "n": i})
	}
	s := openSeeded(t, docs)

	seen := map[any]bool{}
	for start := 0; start < 12; start += 5 {
		rows, err := s.Find(context.Background(), results, domain.Query{
			Sort: domain.Sort{ID: "timestamp", Desc: true},
			Page: domain.PageRequest{Start: start, Size: 5},
		}, store.Options{})
		require.NoError(t, err)
		for _, row := range rows {
			require.False(t, seen[row["_id"]], "row %v returned twice", row["_id"])
			seen[row["_id"]] = true
		}
	}
	assert.Len(t, seen, 12)
}

func TestSQLiteMissingTableIsEmpty(t *testing.T) {
	s := openSeeded(t, runs(3))
	ctx := context.Background()

	ok, err := s.HasTable(ctx, results)
	require.NoError(t, err)
	assert.True(t, ok)

	absent := domain.Collection{Database: "DeepMountain", Name: "Archive"}
	ok, err = s.HasTable(ctx, absent)
	require.NoError(t, err)
	assert.False(t, ok)

	q := domain.Query{Sort: domain.Sort{ID: "timestamp"}, Page: domain.PageRequest{Size: 10}}
	rows, err := s.Find(ctx, absent, q, store.Options{})
	require.NoError(t, err)
	assert.Empty(t, rows)
	n, err := s.Count(ctx, absent, q, store.Options{})
	require.NoError(t, err)
	assert.Zero(t, n)
}
