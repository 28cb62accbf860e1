package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"corpusdash/internal/config"
	"corpusdash/internal/domain"
	"corpusdash/internal/services"
	"corpusdash/internal/store/memstore"
	"corpusdash/internal/tablestate"
	"corpusdash/internal/utils"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type browseOptions struct {
	page    int
	size    int
	filters []string
	search  string
	sort    string
	desc    bool
	path    string
	output  string
}

func addClientFlags(cmd *cobra.Command) {
	cmd.Flags().String("base-url", "", "corpusdash server URL (default http://localhost:5000)")
	cmd.Flags().Duration("timeout", 0, "per-request timeout (default 15s)")
}

func newViewsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "views",
		Short: "List the tables a server exposes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configFrom(cmd.Context())
			if cfg == nil {
				return errors.New("configuration not loaded")
			}
			client := tablestate.NewClient(cfg.Client.BaseURL, cfg.Client.Timeout)
			views, err := client.Views(cmd.Context())
			if err != nil {
				return err
			}
			renderViews(cmd.OutOrStdout(), views)
			return nil
		},
	}
	addClientFlags(cmd)
	return cmd
}

func newBrowseCommand() *cobra.Command {
	var opts browseOptions

	cmd := &cobra.Command{
		Use:   "browse <view>",
		Short: "Print one page of a table",
		Long: `Fetch one page of a view from a running server and print it.

Examples:
  corpusdash browse dataDeep --sort timestamp --desc --page 2
  corpusdash browse data --filter lang=en --search whatsapp
  corpusdash browse datasetJson --path datasets/policies.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd.Context())
			if cfg == nil {
				return errors.New("configuration not loaded")
			}
			return runBrowse(cmd.Context(), cmd.OutOrStdout(), cfg.Client, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.page, "page", 1, "page number, starting at 1")
	f.IntVar(&opts.size, "size", 0, "rows per page (default 10)")
	f.StringArrayVar(&opts.filters, "filter", nil, "column filter as field=value (repeatable)")
	f.StringVar(&opts.search, "search", "", "global search text")
	f.StringVar(&opts.sort, "sort", "", "sort field (default: the view's default sort)")
	f.BoolVar(&opts.desc, "desc", false, "sort descending")
	f.StringVar(&opts.path, "path", "", "dataset file for dataset views")
	f.StringVarP(&opts.output, "output", "o", "table", "output format (table|json)")
	addClientFlags(cmd)

	return cmd
}

// parseFilters turns field=value pairs into column filters. Values that parse
// as JSON scalars keep their type, so accuracy=0.5 matches a number.
func parseFilters(raw []string) ([]domain.Filter, error) {
	filters := make([]domain.Filter, 0, len(raw))
	for _, item := range raw {
		id, value, ok := strings.Cut(item, "=")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			return nil, fmt.Errorf("invalid filter %q: expected field=value", item)
		}
		var v any
		if err := json.Unmarshal([]byte(value), &v); err != nil {
			v = value
		}
		switch v.(type) {
		case map[string]any, []any:
			v = value
		}
		filters = append(filters, domain.Filter{ID: id, Value: v})
	}
	return filters, nil
}

func runBrowse(ctx context.Context, w io.Writer, cc config.ClientConfig, view string, opts browseOptions) error {
	if opts.page < 1 {
		return fmt.Errorf("invalid page %d: pages start at 1", opts.page)
	}
	if opts.output != "table" && opts.output != "json" {
		return fmt.Errorf("invalid output %q: expected table or json", opts.output)
	}
	filters, err := parseFilters(opts.filters)
	if err != nil {
		return err
	}

	client := tablestate.NewClient(cc.BaseURL, cc.Timeout)
	views, err := client.Views(ctx)
	if err != nil {
		return err
	}
	var info *tablestate.ViewInfo
	for i := range views {
		if views[i].Route == view {
			info = &views[i]
			break
		}
	}
	if info == nil {
		return fmt.Errorf("unknown view %q", view)
	}

	extra := url.Values{}
	if info.Kind == config.KindDataset {
		if opts.path == "" {
			return fmt.Errorf("view %q reads a dataset file: --path is required", view)
		}
		extra.Set("path", opts.path)
	}

	initial := tablestate.State{
		ColumnFilters: filters,
		GlobalFilter:  opts.search,
		Pagination:    tablestate.Pagination{PageIndex: opts.page - 1, PageSize: opts.size},
	}
	if opts.sort != "" {
		initial.Sorting = []domain.Sort{{ID: opts.sort, Desc: opts.desc}}
	}

	ctrl := tablestate.New(client, tablestate.Options{
		View:    view,
		Extra:   extra,
		Initial: initial,
		Timeout: cc.Timeout,
	})
	defer ctrl.Close()
	ctrl.Load()
	ctrl.Wait()

	v := ctrl.View()
	if v.IsError {
		return v.Err
	}
	if opts.output == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(domain.PageResponse{Data: v.Rows, Meta: domain.PageMeta{TotalRowCount: v.RowCount}})
	}
	renderPage(w, *info, v)
	return nil
}

func renderPage(w io.Writer, info tablestate.ViewInfo, v tablestate.View) {
	size := v.State.Pagination.PageSize
	start := v.State.Pagination.PageIndex * size

	if len(v.Rows) == 0 {
		_, _ = fmt.Fprintf(w, "(0 rows of %d)\n", v.RowCount)
		return
	}

	cols := services.DisplayColumns(info.Columns, v.Rows)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, 0, len(cols)+1)
	header = append(header, "#")
	for _, c := range cols {
		header = append(header, utils.FirstNonEmpty(c.Header, c.Field))
	}
	t.AppendHeader(header)

	for i, row := range v.Rows {
		r := make(table.Row, 0, len(cols)+1)
		r = append(r, start+i+1)
		for _, c := range cols {
			val, _ := memstore.Lookup(row, c.Field)
			r = append(r, utils.Truncate(utils.FormatCell(c.Format, val), 60))
		}
		t.AppendRow(r)
	}
	t.Render()

	pages := (v.RowCount + int64(size) - 1) / int64(size)
	_, _ = fmt.Fprintf(w, "rows %d-%d of %d (page %d/%d)\n",
		start+1, start+len(v.Rows), v.RowCount, v.State.Pagination.PageIndex+1, pages)
}

func renderViews(w io.Writer, views []tablestate.ViewInfo) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Route", "Title", "Kind", "Default sort", "Search"})
	for _, v := range views {
		order := "asc"
		if v.DefaultSort.Desc {
			order = "desc"
		}
		t.AppendRow(table.Row{v.Route, v.Title, v.Kind, v.DefaultSort.ID + " " + order, strings.Join(v.SearchFields, ", ")})
	}
	t.Render()
}
