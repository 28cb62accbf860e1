// Package sqlstore keeps each collection as a table of JSON documents,
// (id, doc), and serves grid queries over it on MySQL, PostgreSQL or SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"corpusdash/internal/domain"
	"corpusdash/internal/store"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Store struct {
	DB      *sql.DB
	Dialect Dialect
}

var _ store.Store = (*Store)(nil)

func New(db *sql.DB, d Dialect) *Store {
	return &Store{DB: db, Dialect: d}
}

// Open connects with the driver registered for the named dialect and pings
// before returning.
func Open(ctx context.Context, driverName, dsn string) (*Store, error) {
	d, err := DialectFor(driverName)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Name(), err)
	}

	if _, ok := d.(SQLite); ok {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
	}
	db.SetConnMaxLifetime(10 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	s := New(db, d)
	if err := s.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.DB.PingContext(ctx); err != nil {
		return domain.UnavailableError{Store: s.Dialect.Name(), Err: err}
	}
	return nil
}

func (s *Store) Close(context.Context) error {
	return s.DB.Close()
}

type builder struct {
	d    Dialect
	args []any
}

func (b *builder) next() int { return len(b.args) + 1 }

func (b *builder) where(q domain.Query, opts store.Options) (string, error) {
	var parts []string
	for _, f := range q.Filters {
		if !domain.ValidFieldPath(f.ID) {
			return "", domain.ValidationError{Field: "filters", Msg: fmt.Sprintf("invalid field %q", f.ID)}
		}
		expr, args, err := b.d.Equal(f.ID, f.Value, b.next())
		if err != nil {
			return "", err
		}
		parts = append(parts, expr)
		b.args = append(b.args, args...)
	}

	needle := strings.TrimSpace(q.GlobalFilter)
	if needle != "" && len(opts.SearchFields) > 0 {
		pattern := "%" + escapeLike(strings.ToLower(needle)) + "%"
		ors := make([]string, 0, len(opts.SearchFields))
		for _, field := range opts.SearchFields {
			if !domain.ValidFieldPath(field) {
				return "", domain.InternalError{Msg: fmt.Sprintf("invalid search field %q", field)}
			}
			ors = append(ors, b.d.Like(field, b.next()))
			b.args = append(b.args, pattern)
		}
		parts = append(parts, "("+strings.Join(ors, " OR ")+")")
	}

	if len(parts) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(parts, " AND "), nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(s)
}

// SelectSQL builds the page query. Ties on the sort field are broken by id.
func SelectSQL(d Dialect, c domain.Collection, q domain.Query, opts store.Options) (string, []any, error) {
	table, err := d.Table(c)
	if err != nil {
		return "", nil, err
	}
	if !domain.ValidFieldPath(q.Sort.ID) {
		return "", nil, domain.ValidationError{Field: "sorting", Msg: fmt.Sprintf("invalid field %q", q.Sort.ID)}
	}
	b := &builder{d: d}
	where, err := b.where(q, opts)
	if err != nil {
		return "", nil, err
	}
	dir := "ASC"
	if q.Sort.Desc {
		dir = "DESC"
	}
	query := fmt.Sprintf("SELECT id, doc FROM %s%s ORDER BY %s %s, id ASC LIMIT %d OFFSET %d",
		table, where, d.Extract(q.Sort.ID), dir, q.Page.Size, q.Page.Start)
	return query, b.args, nil
}

// CountSQL builds the unpaginated count for the same predicate.
func CountSQL(d Dialect, c domain.Collection, q domain.Query, opts store.Options) (string, []any, error) {
	table, err := d.Table(c)
	if err != nil {
		return "", nil, err
	}
	b := &builder{d: d}
	where, err := b.where(q, opts)
	if err != nil {
		return "", nil, err
	}
	return "SELECT COUNT(*) FROM " + table + where, b.args, nil
}

func (s *Store) Find(ctx context.Context, c domain.Collection, q domain.Query, opts store.Options) ([]domain.Row, error) {
	query, args, err := SelectSQL(s.Dialect, c, q, opts)
	if err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		if s.missingTable(ctx, c, err) {
			return []domain.Row{}, nil
		}
		return nil, s.classify(err)
	}
	defer rows.Close()

	out := []domain.Row{}
	for rows.Next() {
		var (
			id  any
			doc []byte
		)
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, s.classify(err)
		}
		row := domain.Row{}
		if len(doc) > 0 {
			if err := json.Unmarshal(doc, &row); err != nil {
				return nil, domain.InternalError{Msg: fmt.Sprintf("decode document %v in %s", id, c), Err: err}
			}
		}
		if _, ok := row["_id"]; !ok {
			row["_id"] = normalizeID(id)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, s.classify(err)
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, c domain.Collection, q domain.Query, opts store.Options) (int64, error) {
	query, args, err := CountSQL(s.Dialect, c, q, opts)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.DB.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		if s.missingTable(ctx, c, err) {
			return 0, nil
		}
		return 0, s.classify(err)
	}
	return n, nil
}

func normalizeID(id any) any {
	switch v := id.(type) {
	case []byte:
		return string(v)
	default:
		return v
	}
}

// classify wraps connection-level failures as domain.UnavailableError and
// leaves query errors as they are.
func (s *Store) classify(err error) error {
	if IsConnError(err) {
		return domain.UnavailableError{Store: s.Dialect.Name(), Err: err}
	}
	return err
}

func IsConnError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var connectErr *pgconn.ConnectError
	return errors.As(err, &connectErr)
}
