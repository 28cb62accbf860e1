package sqlstore

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"corpusdash/internal/domain"
)

// Dialect renders the JSON-document expressions of one SQL engine. Field
// paths reaching a dialect have already passed domain.ValidFieldPath and are
// inlined; values always travel as arguments.
type Dialect interface {
	Name() string
	DriverName() string
	Table(c domain.Collection) (string, error)
	Placeholder(n int) string
	// Equal returns the predicate for path == value. n is the 1-based
	// position of the first argument it adds.
	Equal(path string, value any, n int) (string, []any, error)
	// Like returns a case-insensitive LIKE predicate over path, with '!' as
	// the escape character.
	Like(path string, n int) string
	Extract(path string) string
	// TableExists returns a query yielding one row when c has a table.
	TableExists(c domain.Collection) (string, []any, error)
}

var identRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

func checkIdent(kind, s string) error {
	if !identRe.MatchString(s) {
		return domain.InternalError{Msg: fmt.Sprintf("invalid %s name %q", kind, s)}
	}
	return nil
}

// DialectFor maps a configured driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "mysql":
		return MySQL{}, nil
	case "postgres", "postgresql", "pgx":
		return Postgres{}, nil
	case "sqlite", "sqlite3":
		return SQLite{}, nil
	}
	return nil, fmt.Errorf("unsupported sql driver %q", driver)
}

func jsonArg(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", domain.ValidationError{Field: "filters", Msg: "value is not JSON encodable", Err: err}
	}
	return string(b), nil
}

type MySQL struct{}

func (MySQL) Name() string       { return "mysql" }
func (MySQL) DriverName() string { return "mysql" }

func (MySQL) Table(c domain.Collection) (string, error) {
	if err := checkIdent("collection", c.Name); err != nil {
		return "", err
	}
	if c.Database == "" {
		return "`" + c.Name + "`", nil
	}
	if err := checkIdent("database", c.Database); err != nil {
		return "", err
	}
	return "`" + c.Database + "`.`" + c.Name + "`", nil
}

func (MySQL) Placeholder(int) string { return "?" }

func (d MySQL) Extract(path string) string {
	return "JSON_EXTRACT(doc, '$." + path + "')"
}

func (d MySQL) Equal(path string, value any, _ int) (string, []any, error) {
	expr := d.Extract(path)
	if value == nil {
		return fmt.Sprintf("(%s IS NULL OR JSON_TYPE(%s) = 'NULL')", expr, expr), nil, nil
	}
	arg, err := jsonArg(value)
	if err != nil {
		return "", nil, err
	}
	return expr + " = CAST(? AS JSON)", []any{arg}, nil
}

func (d MySQL) Like(path string, _ int) string {
	return "LOWER(JSON_UNQUOTE(" + d.Extract(path) + ")) LIKE ? ESCAPE '!'"
}

func (d MySQL) TableExists(c domain.Collection) (string, []any, error) {
	if _, err := d.Table(c); err != nil {
		return "", nil, err
	}
	if c.Database == "" {
		return "SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ? LIMIT 1",
			[]any{c.Name}, nil
	}
	return "SELECT table_name FROM information_schema.tables WHERE table_schema = ? AND table_name = ? LIMIT 1",
		[]any{c.Database, c.Name}, nil
}

type Postgres struct{}

func (Postgres) Name() string       { return "postgres" }
func (Postgres) DriverName() string { return "pgx" }

func (Postgres) Table(c domain.Collection) (string, error) {
	if err := checkIdent("collection", c.Name); err != nil {
		return "", err
	}
	if c.Database == "" {
		return `"` + c.Name + `"`, nil
	}
	if err := checkIdent("database", c.Database); err != nil {
		return "", err
	}
	return `"` + c.Database + `"."` + c.Name + `"`, nil
}

func (Postgres) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func pgPath(path string) string {
	return "'{" + strings.Join(domain.FieldSegments(path), ",") + "}'"
}

func (Postgres) Extract(path string) string {
	return "doc #> " + pgPath(path)
}

func (d Postgres) Equal(path string, value any, n int) (string, []any, error) {
	expr := d.Extract(path)
	if value == nil {
		return fmt.Sprintf("(%s IS NULL OR %s = 'null'::jsonb)", expr, expr), nil, nil
	}
	arg, err := jsonArg(value)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("%s = $%d::jsonb", expr, n), []any{arg}, nil
}

func (Postgres) Like(path string, n int) string {
	return fmt.Sprintf("doc #>> %s ILIKE $%d ESCAPE '!'", pgPath(path), n)
}

func (d Postgres) TableExists(c domain.Collection) (string, []any, error) {
	if _, err := d.Table(c); err != nil {
		return "", nil, err
	}
	if c.Database == "" {
		return "SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1 LIMIT 1",
			[]any{c.Name}, nil
	}
	return "SELECT table_name FROM information_schema.tables WHERE table_schema = $1 AND table_name = $2 LIMIT 1",
		[]any{c.Database, c.Name}, nil
}

type SQLite struct{}

func (SQLite) Name() string       { return "sqlite" }
func (SQLite) DriverName() string { return "sqlite" }

// Table flattens database and collection into one table name since a
// single SQLite file has no schemas.
func (SQLite) Table(c domain.Collection) (string, error) {
	if err := checkIdent("collection", c.Name); err != nil {
		return "", err
	}
	if c.Database == "" {
		return `"` + c.Name + `"`, nil
	}
	if err := checkIdent("database", c.Database); err != nil {
		return "", err
	}
	return `"` + c.Database + "_" + c.Name + `"`, nil
}

func (SQLite) Placeholder(int) string { return "?" }

func (SQLite) Extract(path string) string {
	return "json_extract(doc, '$." + path + "')"
}

func (d SQLite) Equal(path string, value any, _ int) (string, []any, error) {
	expr := d.Extract(path)
	switch v := value.(type) {
	case nil:
		return expr + " IS NULL", nil, nil
	case bool:
		if v {
			return expr + " = 1", nil, nil
		}
		return expr + " = 0", nil, nil
	case string, float64, float32, int, int64, int32:
		return expr + " = ?", []any{v}, nil
	}
	arg, err := jsonArg(value)
	if err != nil {
		return "", nil, err
	}
	return expr + " = json(?)", []any{arg}, nil
}

func (d SQLite) Like(path string, _ int) string {
	return "LOWER(" + d.Extract(path) + ") LIKE ? ESCAPE '!'"
}

func (d SQLite) TableExists(c domain.Collection) (string, []any, error) {
	table, err := d.Table(c)
	if err != nil {
		return "", nil, err
	}
	return "SELECT name FROM sqlite_master WHERE type = 'table' AND name = ? LIMIT 1",
		[]any{strings.Trim(table, `"`)}, nil
}
