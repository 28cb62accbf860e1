package sqlstore

import (
	"context"
	"errors"
	"net"
	"testing"

	"corpusdash/internal/domain"
	"corpusdash/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var manager = domain.Collection{Database: "CorpusData", Name: "CorpusManager"}

func newMock(t *testing.T, d Dialect) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db, d), mock
}

func TestMySQLFindBuildsJSONQuery(t *testing.T) {
	s, mock := newMock(t, MySQL{})
	q := domain.Query{
		Filters:      []domain.Filter{{ID: "lang", Value: "en"}},
		GlobalFilter: "50%",
		Sort:         domain.Sort{ID: "timestamp", Desc: true},
		Page:         domain.PageRequest{Start: 20, Size: 10},
	}

	mock.ExpectQuery("SELECT id, doc FROM `CorpusData`.`CorpusManager` WHERE JSON_EXTRACT(doc, '$.lang') = CAST(? AS JSON) AND " +
		"(LOWER(JSON_UNQUOTE(JSON_EXTRACT(doc, '$.name'))) LIKE ? ESCAPE '!' OR LOWER(JSON_UNQUOTE(JSON_EXTRACT(doc, '$.type'))) LIKE ? ESCAPE '!') " +
		"ORDER BY JSON_EXTRACT(doc, '$.timestamp') DESC, id ASC LIMIT 10 OFFSET 20").
		WithArgs(`"en"`, "%50!%%", "%50!%%").
		WillReturnRows(sqlmock.NewRows([]string{"id", "doc"}).
			AddRow(int64(7), []byte(`{"name":"app.one","lang":"en","timestamp":"20240101000000"}`)).
			AddRow([]byte("abc"), []byte(`{"_id":"kept","name":"app.two"}`)))

	rows, err := s.Find(context.Background(), manager, q, store.Options{SearchFields: []string{"name", "type"}})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(7), rows[0]["_id"])
	assert.Equal(t, "app.one", rows[0]["name"])
	assert.Equal(t, "kept", rows[1]["_id"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCountBuildsJSONBQuery(t *testing.T) {
	s, mock := newMock(t, Postgres{})
	q := domain.Query{
		Filters: []domain.Filter{
			{ID: "result.accuracy", Value: 0.5},
			{ID: "corpus", Value: nil},
		},
		GlobalFilter: "svm",
		Sort:         domain.Sort{ID: "timestamp"},
	}

	mock.ExpectQuery(`SELECT COUNT(*) FROM "DeepMountain"."Results" WHERE doc #> '{result,accuracy}' = $1::jsonb AND ` +
		`(doc #> '{corpus}' IS NULL OR doc #> '{corpus}' = 'null'::jsonb) AND ` +
		`(doc #>> '{algorithm}' ILIKE $2 ESCAPE '!' OR doc #>> '{user}' ILIKE $3 ESCAPE '!')`).
		WithArgs("0.5", "%svm%", "%svm%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(42)))

	n, err := s.Count(context.Background(), domain.Collection{Database: "DeepMountain", Name: "Results"}, q,
		store.Options{SearchFields: []string{"algorithm", "user"}})
	require.NoError(t, err)
	assert.EqualValues(t, 42, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGlobalFilterIgnoredWithoutSearchFields(t *testing.T) {
	query, args, err := CountSQL(SQLite{}, manager, domain.Query{GlobalFilter: "anything"}, store.Options{})
	require.NoError(t, err)
	assert.Equal(t, `SELECT COUNT(*) FROM "CorpusData_CorpusManager"`, query)
	assert.Empty(t, args)
}

func TestSQLiteEqualUsesNativeValues(t *testing.T) {
	d := SQLite{}
	expr, args, err := d.Equal("stat", true, 1)
	require.NoError(t, err)
	assert.Equal(t, "json_extract(doc, '$.stat') = 1", expr)
	assert.Empty(t, args)

	expr, args, err = d.Equal("tags", []any{"a"}, 1)
	require.NoError(t, err)
	assert.Equal(t, "json_extract(doc, '$.tags') = json(?)", expr)
	assert.Equal(t, []any{`["a"]`}, args)
}

func TestRejectsUnsafeNames(t *testing.T) {
	_, _, err := SelectSQL(MySQL{}, domain.Collection{Database: "x`; DROP", Name: "y"}, domain.Query{Sort: domain.Sort{ID: "timestamp"}}, store.Options{})
	assert.True(t, domain.IsInternal(err))

	_, _, err = SelectSQL(MySQL{}, manager, domain.Query{Sort: domain.Sort{ID: "timestamp') DESC; --"}}, store.Options{})
	assert.True(t, domain.IsValidation(err))

	_, _, err = CountSQL(Postgres{}, manager, domain.Query{Filters: []domain.Filter{{ID: "$where", Value: 1}}}, store.Options{})
	assert.True(t, domain.IsValidation(err))
}

func TestConnectionFailuresAreUnavailable(t *testing.T) {
	s, mock := newMock(t, MySQL{})
	reset := &net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset by peer")}
	mock.ExpectQuery("SELECT COUNT(*) FROM `CorpusData`.`CorpusManager`").WillReturnError(reset)

	_, err := s.Count(context.Background(), manager, domain.Query{Sort: domain.Sort{ID: "timestamp"}}, store.Options{})
	require.Error(t, err)
	assert.True(t, domain.IsUnavailable(err))
	assert.ErrorIs(t, err, reset)
}

func TestQueryErrorsStayUnclassified(t *testing.T) {
	s, mock := newMock(t, MySQL{})
	mock.ExpectQuery("SELECT COUNT(*) FROM `CorpusData`.`CorpusManager`").WillReturnError(errors.New("Error 3143: invalid JSON path expression"))
	mock.ExpectQuery("SELECT table_name FROM information_schema.tables WHERE table_schema = ? AND table_name = ? LIMIT 1").
		WithArgs("CorpusData", "CorpusManager").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("CorpusManager"))

	_, err := s.Count(context.Background(), manager, domain.Query{}, store.Options{})
	require.Error(t, err)
	assert.False(t, domain.IsUnavailable(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMissingTableReadsAsEmpty(t *testing.T) {
	s, mock := newMock(t, Postgres{})
	results := domain.Collection{Database: "DeepMountain", Name: "Results"}
	mock.ExpectQuery(`SELECT id, doc FROM "DeepMountain"."Results" ORDER BY doc #> '{timestamp}' ASC, id ASC LIMIT 10 OFFSET 0`).
		WillReturnError(errors.New(`ERROR: relation "DeepMountain.Results" does not exist (SQLSTATE 42P01)`))
	mock.ExpectQuery("SELECT table_name FROM information_schema.tables WHERE table_schema = $1 AND table_name = $2 LIMIT 1").
		WithArgs("DeepMountain", "Results").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}))

	rows, err := s.Find(context.Background(), results,
		domain.Query{Sort: domain.Sort{ID: "timestamp"}, Page: domain.PageRequest{Size: 10}}, store.Options{})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NotNil(t, rows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDialectFor(t *testing.T) {
	for name, want := range map[string]string{"mysql": "mysql", "Postgres": "pgx", "sqlite": "sqlite"} {
		d, err := DialectFor(name)
		require.NoError(t, err)
		assert.Equal(t, want, d.DriverName())
	}
	_, err := DialectFor("oracle")
	assert.Error(t, err)
}
