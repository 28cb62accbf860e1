package services

import (
	"context"
	"net/url"

	"corpusdash/internal/config"
	"corpusdash/internal/domain"
	"corpusdash/internal/query"
	"corpusdash/internal/store"
	"corpusdash/internal/utils"

	"go.uber.org/zap"
)

// TableService answers grid requests for every configured view, from the
// document store or from a dataset file.
type TableService struct {
	Store       store.Finder
	Datasets    DatasetService
	MaxPageSize int
	Log         *zap.Logger
}

func (s TableService) log() *zap.Logger {
	if s.Log != nil {
		return s.Log
	}
	return zap.NewNop()
}

// Translator binds a view's configuration to a finder.
func (s TableService) Translator(view config.ViewConfig, f store.Finder) query.Translator {
	return query.Translator{
		Store:        f,
		Collection:   view.Target(),
		DefaultSort:  view.Sort(),
		SearchFields: view.SearchFields,
		FilterFields: view.FilterFields,
		MaxPageSize:  s.MaxPageSize,
	}
}

// FilePath reads the file parameter of a request. "f" and "file" are still
// accepted for links created before it was renamed to "path".
func FilePath(v url.Values) string {
	return utils.FirstNonEmpty(v.Get("path"), v.Get("f"), v.Get("file"))
}

func (s TableService) Page(ctx context.Context, view config.ViewConfig, v url.Values) (domain.PageResponse, error) {
	if view.Kind == config.KindDataset {
		return s.datasetPage(ctx, view, v)
	}
	page, err := s.Translator(view, s.Store).Page(ctx, v)
	if err != nil {
		return domain.PageResponse{}, err
	}
	s.log().Debug("table page",
		zap.String("view", view.Route),
		zap.Int("rows", len(page.Data)),
		zap.Int64("total", page.Meta.TotalRowCount),
	)
	return page, nil
}

func (s TableService) datasetPage(ctx context.Context, view config.ViewConfig, v url.Values) (domain.PageResponse, error) {
	params, err := query.ParseParams(v)
	if err != nil {
		return domain.PageResponse{}, err
	}
	path := FilePath(v)
	mem, c, err := s.Datasets.Open(ctx, path)
	if err != nil {
		return domain.PageResponse{}, err
	}
	tr := s.Translator(view, mem)
	tr.Collection = c
	q, err := tr.Translate(params)
	if err != nil {
		return domain.PageResponse{}, err
	}
	page, err := tr.Execute(ctx, q)
	if err != nil {
		return domain.PageResponse{}, err
	}
	s.log().Debug("dataset page",
		zap.String("view", view.Route),
		zap.String("path", path),
		zap.Int64("total", page.Meta.TotalRowCount),
	)
	return page, nil
}
