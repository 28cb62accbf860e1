// Package store defines the document store contract the table endpoints query.
package store

import (
	"context"

	"corpusdash/internal/domain"
)

// Options carries per-view settings a store needs to execute a query.
type Options struct {
	// SearchFields are the fields a global filter is matched against. MongoDB
	// ignores them and relies on the collection's text index.
	SearchFields []string
}

// Finder runs the two halves of a page request.
type Finder interface {
	// Find returns the sorted, skipped and limited rows matching q.
	Find(ctx context.Context, c domain.Collection, q domain.Query, opts Options) ([]domain.Row, error)
	// Count returns how many rows match q before pagination.
	Count(ctx context.Context, c domain.Collection, q domain.Query, opts Options) (int64, error)
}

// Store is a connected document store.
type Store interface {
	Finder
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
