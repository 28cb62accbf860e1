package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"corpusdash/internal/domain"
)

// HasTable reports whether the table backing c exists.
func (s *Store) HasTable(ctx context.Context, c domain.Collection) (bool, error) {
	query, args, err := s.Dialect.TableExists(c)
	if err != nil {
		return false, err
	}
	var name sql.NullString
	err = s.DB.QueryRowContext(ctx, query, args...).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, s.classify(err)
	}
	return name.Valid && name.String != "", nil
}

// missingTable is consulted after a failed query. A collection without a
// table reads as empty, the same as an absent MongoDB collection.
func (s *Store) missingTable(ctx context.Context, c domain.Collection, queryErr error) bool {
	if IsConnError(queryErr) || ctx.Err() != nil {
		return false
	}
	ok, err := s.HasTable(ctx, c)
	return err == nil && !ok
}
