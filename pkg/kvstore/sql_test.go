package kvstore

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLMock(t *testing.T) (*SQL, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewSQL(sqlx.NewDb(db, "sqlmock"), DialectPostgres, nil), mock, func() { db.Close() }
}

func TestSQLEnsureSchema(t *testing.T) {
	store, mock, cleanup := newSQLMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS kv_store")).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLGetMissing(t *testing.T) {
	store, mock, cleanup := newSQLMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(selectValueQuery)).
		WithArgs("rooms").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	value, found, err := store.Get(context.Background(), "rooms")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLGetFound(t *testing.T) {
	store, mock, cleanup := newSQLMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(selectValueQuery)).
		WithArgs("rooms").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte(`[{"building":"B1"}]`)))

	value, found, err := store.Get(context.Background(), "rooms")
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `[{"building":"B1"}]`, string(value))
}

func TestSQLSetThenPollIgnoresOwnWrite(t *testing.T) {
	store, mock, cleanup := newSQLMock(t)
	defer cleanup()
	ctx := context.Background()

	var notified []string
	store.Subscribe(func(key string) { notified = append(notified, key) })

	mock.ExpectQuery(regexp.QuoteMeta(selectVersionsQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"key", "version"}).AddRow("rooms", 1).AddRow("students", 4))
	require.NoError(t, store.Poll(ctx))
	assert.Empty(t, notified)

	mock.ExpectQuery("INSERT INTO kv_store").
		WithArgs("rooms", `[]`, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(2))
	require.NoError(t, store.Set(ctx, "rooms", json.RawMessage(`[]`)))

	mock.ExpectQuery(regexp.QuoteMeta(selectVersionsQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"key", "version"}).AddRow("rooms", 2).AddRow("students", 5))
	require.NoError(t, store.Poll(ctx))

	assert.Equal(t, []string{"students"}, notified)
	assert.NoError(t, mock.ExpectationsWereMet())
}
