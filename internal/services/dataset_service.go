package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"corpusdash/internal/domain"
	"corpusdash/internal/files"
	"corpusdash/internal/store/memstore"
)

const DefaultMaxDatasetBytes = 64 << 20

// DatasetService loads JSON dataset files so they can be paged like a
// collection.
type DatasetService struct {
	Files    files.Source
	MaxBytes int64
}

// Load reads the records of a dataset file. The file holds either a JSON
// array or an object with a "data" array; elements that are not objects
// are wrapped as {"value": x}.
func (s DatasetService) Load(ctx context.Context, path string) ([]domain.Row, error) {
	if s.Files == nil {
		return nil, domain.UnavailableError{Store: "files"}
	}
	obj, err := s.Files.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer obj.Body.Close()

	limit := s.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxDatasetBytes
	}
	raw, err := io.ReadAll(io.LimitReader(obj.Body, limit+1))
	if err != nil {
		return nil, domain.InternalError{Msg: "read dataset " + path, Err: err}
	}
	if int64(len(raw)) > limit {
		return nil, domain.ValidationError{Field: "path", Msg: fmt.Sprintf("dataset larger than %d bytes", limit)}
	}
	return decodeDataset(raw)
}

func decodeDataset(raw []byte) ([]domain.Row, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, domain.ValidationError{Field: "path", Msg: "dataset is not valid JSON", Err: err}
		}
		return nil, domain.InternalError{Msg: "decode dataset", Err: err}
	}

	var items []any
	switch t := doc.(type) {
	case []any:
		items = t
	case map[string]any:
		data, ok := t["data"].([]any)
		if !ok {
			return nil, domain.ValidationError{Field: "path", Msg: `dataset object has no "data" array`}
		}
		items = data
	default:
		return nil, domain.ValidationError{Field: "path", Msg: "dataset must be a JSON array or an object with a data array"}
	}

	rows := make([]domain.Row, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			rows = append(rows, m)
			continue
		}
		rows = append(rows, domain.Row{"value": item})
	}
	return rows, nil
}

// Open loads path into a fresh memory store and returns the collection
// holding its rows.
func (s DatasetService) Open(ctx context.Context, path string) (*memstore.Store, domain.Collection, error) {
	rows, err := s.Load(ctx, path)
	if err != nil {
		return nil, domain.Collection{}, err
	}
	c := domain.Collection{Database: "dataset", Name: path}
	mem := memstore.New()
	mem.Put(c, rows)
	return mem, c, nil
}
