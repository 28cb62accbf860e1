package services

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"corpusdash/internal/config"
	"corpusdash/internal/domain"
	"corpusdash/internal/store/memstore"
	"corpusdash/internal/utils"

	"github.com/phpdave11/gofpdf"
	"go.uber.org/zap"
)

// ReportService renders the page a grid request would show as a PDF table.
type ReportService struct {
	Tables TableService
	Now    func() time.Time
}

func (s ReportService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s ReportService) Render(ctx context.Context, view config.ViewConfig, v url.Values) ([]byte, string, error) {
	page, err := s.Tables.Page(ctx, view, v)
	if err != nil {
		return nil, "", err
	}
	start := 0
	if p, err := parseStart(v); err == nil {
		start = p
	}

	generated := s.now()
	pdfBytes, err := buildTablePDF(view, page, start, generated)
	if err != nil {
		return nil, "", domain.InternalError{Msg: "render report", Err: err}
	}
	s.Tables.log().Info("report rendered",
		zap.String("view", view.Route),
		zap.Int("rows", len(page.Data)),
		zap.Int("bytes", len(pdfBytes)),
	)
	filename := fmt.Sprintf("REPORT_%s_%s.pdf", safeFilenamePart(view.Route), generated.Format(utils.LayoutRunTimestamp))
	return pdfBytes, filename, nil
}

func parseStart(v url.Values) (int, error) {
	return strconv.Atoi(strings.TrimSpace(v.Get("start")))
}

// DisplayColumns falls back to the keys of the first row, sorted, when a view
// configures no columns.
func DisplayColumns(columns []config.Column, rows []domain.Row) []config.Column {
	if len(columns) > 0 {
		return columns
	}
	if len(rows) == 0 {
		return nil
	}
	keys := make([]string, 0, len(rows[0]))
	for k := range rows[0] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	cols := make([]config.Column, 0, len(keys))
	for _, k := range keys {
		cols = append(cols, config.Column{Field: k, Header: k})
	}
	return cols
}

func buildTablePDF(view config.ViewConfig, page domain.PageResponse, start int, generated time.Time) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	title := safe(view.Title, view.Route)
	pdf.SetTitle(tr(title), false)
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 9, tr(title))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 10)
	summary := fmt.Sprintf("Rows %d-%d of %d   Generated %s",
		min(start+1, start+len(page.Data)), start+len(page.Data), page.Meta.TotalRowCount,
		utils.FormatDateTime(generated))
	pdf.Cell(0, 6, summary)
	pdf.Ln(9)

	cols := DisplayColumns(view.Columns, page.Data)
	if len(cols) == 0 {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.Cell(0, 7, "No rows.")
	} else {
		pageW, _ := pdf.GetPageSize()
		left, _, right, _ := pdf.GetMargins()
		width := (pageW - left - right) / float64(len(cols))
		maxChars := max(int(width/1.9), 4)

		header := func() {
			pdf.SetFont("Helvetica", "B", 9)
			pdf.SetFillColor(225, 230, 240)
			for _, c := range cols {
				pdf.CellFormat(width, 7, tr(utils.Truncate(c.Header, maxChars)), "1", 0, "L", true, 0, "")
			}
			pdf.Ln(-1)
			pdf.SetFont("Helvetica", "", 8)
		}
		header()

		_, pageH := pdf.GetPageSize()
		_, _, _, bottom := pdf.GetMargins()
		for _, row := range page.Data {
			if pdf.GetY()+6 > pageH-bottom {
				pdf.AddPage()
				header()
			}
			for _, c := range cols {
				v, _ := memstore.Lookup(row, c.Field)
				text := utils.NormalizeSpace(utils.FormatCell(c.Format, v))
				pdf.CellFormat(width, 6, tr(utils.Truncate(text, maxChars)), "1", 0, "L", false, 0, "")
			}
			pdf.Ln(-1)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func safe(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}

func safeFilenamePart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "NA"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")
	s = replacer.Replace(s)
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}
