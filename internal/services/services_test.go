package services

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"corpusdash/internal/config"
	"corpusdash/internal/domain"
	"corpusdash/internal/files"
	"corpusdash/internal/store/memstore"
)

var deepView = config.ViewConfig{
	Route:        "dataDeep",
	Title:        "Deep Mountain",
	Kind:         config.KindStore,
	Database:     "DeepMountain",
	Collection:   "Results",
	SearchFields: []string{"algorithm"},
	Columns: []config.Column{
		{Field: "algorithm", Header: "Algoritmo"},
		{Field: "result.accuracy", Header: "Accuracy", Format: "percent"},
		{Field: "timestamp", Header: "Timestamp", Format: "timestamp"},
	},
}

var datasetView = config.ViewConfig{
	Route:        "datasetJson",
	Kind:         config.KindDataset,
	DefaultSort:  config.SortConfig{Field: "category"},
	SearchFields: []string{"category", "text"},
}

func seededTables(t *testing.T, n int) TableService {
	t.Helper()
	mem := memstore.New()
	rows := make([]domain.Row, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, domain.Row{
			"algorithm": fmt.Sprintf("svm-%d", i%2),
			"result":    map[string]any{"accuracy": float64(i) / float64(n)},
			"timestamp": fmt.Sprintf("20240401%06d", i),
		})
	}
	mem.Put(deepView.Target(), rows)
	return TableService{Store: mem}
}

func datasetDir(t *testing.T) files.Source {
	t.Helper()
	dir := t.TempDir()
	write := func(name, body string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("array.json", `[{"category":"gdpr","text":"share data"},{"category":"ccpa","text":"sell data"},{"category":"gdpr","text":"retain logs"},"loose"]`)
	write("object.json", `{"data":[{"category":"gdpr","text":"a"},{"category":"ccpa","text":"b"}]}`)
	write("scalar.json", `42`)
	write("broken.json", `[{"category":`)
	src, err := files.NewLocalSource(dir)
	if err != nil {
		t.Fatalf("NewLocalSource: %v", err)
	}
	t.Cleanup(func() { _ = src.Close() })
	return src
}

func TestTablePageUsesViewDefaults(t *testing.T) {
	svc := seededTables(t, 12)
	page, err := svc.Page(context.Background(), deepView, url.Values{"size": {"5"}, "globalFilter": {"svm-1"}})
	if err != nil {
		t.Fatalf("Page returned error: %v", err)
	}
	if page.Meta.TotalRowCount != 6 {
		t.Fatalf("total = %d, want 6", page.Meta.TotalRowCount)
	}
	if len(page.Data) != 5 {
		t.Fatalf("rows = %d, want 5", len(page.Data))
	}
	if got := page.Data[0]["timestamp"]; got != "20240401000011" {
		t.Fatalf("default sort should be timestamp desc, first row %v", got)
	}
}

func TestTablePageWithoutStore(t *testing.T) {
	_, err := TableService{}.Page(context.Background(), deepView, url.Values{})
	if !domain.IsUnavailable(err) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}

func TestDatasetPage(t *testing.T) {
	svc := TableService{Datasets: DatasetService{Files: datasetDir(t)}}

	page, err := svc.Page(context.Background(), datasetView, url.Values{
		"path":    {"array.json"},
		"filters": {`[{"id":"category","value":"gdpr"}]`},
		"size":    {"1"},
	})
	if err != nil {
		t.Fatalf("Page returned error: %v", err)
	}
	if page.Meta.TotalRowCount != 2 || len(page.Data) != 1 {
		t.Fatalf("unexpected page: total=%d rows=%d", page.Meta.TotalRowCount, len(page.Data))
	}

	page, err = svc.Page(context.Background(), datasetView, url.Values{"f": {"object.json"}, "globalFilter": {"CCPA"}})
	if err != nil {
		t.Fatalf("Page returned error: %v", err)
	}
	if page.Meta.TotalRowCount != 1 || page.Data[0]["text"] != "b" {
		t.Fatalf("unexpected search result: %+v", page)
	}

	page, err = svc.Page(context.Background(), datasetView, url.Values{"path": {"array.json"}, "size": {"10"}})
	if err != nil {
		t.Fatalf("Page returned error: %v", err)
	}
	if page.Meta.TotalRowCount != 4 {
		t.Fatalf("total = %d, want 4", page.Meta.TotalRowCount)
	}
	if page.Data[0]["value"] != "loose" {
		t.Fatalf("non-object elements should sort first wrapped as value, got %v", page.Data[0])
	}
}

func TestDatasetErrors(t *testing.T) {
	svc := TableService{Datasets: DatasetService{Files: datasetDir(t)}}
	cases := map[string]func(error) bool{
		"":             domain.IsValidation,
		"../etc":       domain.IsValidation,
		"scalar.json":  domain.IsValidation,
		"broken.json":  domain.IsValidation,
		"missing.json": domain.IsNotFound,
	}
	for path, check := range cases {
		_, err := svc.Page(context.Background(), datasetView, url.Values{"path": {path}})
		if !check(err) {
			t.Fatalf("path %q: unexpected error %v", path, err)
		}
	}

	small := TableService{Datasets: DatasetService{Files: datasetDir(t), MaxBytes: 10}}
	if _, err := small.Page(context.Background(), datasetView, url.Values{"path": {"array.json"}}); !domain.IsValidation(err) {
		t.Fatalf("oversized dataset should be rejected, got %v", err)
	}
}

func TestReportRender(t *testing.T) {
	svc := ReportService{
		Tables: seededTables(t, 60),
		Now:    func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local) },
	}
	pdf, filename, err := svc.Render(context.Background(), deepView, url.Values{"size": {"60"}})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("output is not a PDF")
	}
	if filename != "REPORT_dataDeep_20240501120000.pdf" {
		t.Fatalf("unexpected filename %s", filename)
	}

	if _, _, err := svc.Render(context.Background(), deepView, url.Values{"filters": {"nope"}}); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReportColumnsFallback(t *testing.T) {
	cols := DisplayColumns(nil, []domain.Row{{"b": 1, "a": 2}})
	if len(cols) != 2 || cols[0].Field != "a" || cols[1].Header != "b" {
		t.Fatalf("unexpected fallback columns: %+v", cols)
	}
	if cols := DisplayColumns(nil, nil); cols != nil {
		t.Fatalf("expected no columns without rows")
	}
	pdf, err := buildTablePDF(config.ViewConfig{Route: "empty"}, domain.PageResponse{}, 0, time.Now())
	if err != nil || !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("empty report failed: %v", err)
	}
}
