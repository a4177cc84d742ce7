package store

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clenisa/discounted-cashflow-analysis/pkg/models"
)

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := NewSQLStore(db, DialectPostgres)
	s.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	return s, mock
}

func TestRebind(t *testing.T) {
	q := `UPDATE scenarios SET sort_order = ? WHERE id = ?`
	assert.Equal(t, `UPDATE scenarios SET sort_order = $1 WHERE id = $2`, DialectPostgres.rebind(q))
	assert.Equal(t, q, DialectSQLite.rebind(q))
}

func TestParseDialect(t *testing.T) {
	for in, want := range map[string]Dialect{"postgres": DialectPostgres, "PGX": DialectPostgres, "sqlite3": DialectSQLite} {
		got, err := ParseDialect(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseDialect("oracle")
	assert.Error(t, err)

	assert.Equal(t, "pgx", DialectPostgres.DriverName())
	assert.Equal(t, "sqlite", DialectSQLite.DriverName())
}

func TestSQLStore_Postgres_SaveNewModel(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO models (id, model_name, company_name, created_unix, updated_unix, payload) VALUES ($1, $2, $3, $4, $5, $6)`)).
		WithArgs(sqlmock.AnyArg(), "Base", "Acme", s.now().UnixNano(), s.now().UnixNano(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := s.SaveModel(context.Background(), &models.Model{ModelName: "Base", CompanyName: "Acme"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Postgres_LoadModelNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT payload FROM models WHERE id = $1`)).
		WithArgs("abc").
		WillReturnError(sql.ErrNoRows)

	_, err := s.LoadModel(context.Background(), "abc")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Postgres_LoadModel(t *testing.T) {
	s, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"payload"}).
		AddRow(`{"id":"abc","modelName":"Base","dataSet":{"ebitdaData":{"2024":5},"parameters":{"discountRate":10}}}`)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT payload FROM models WHERE id = $1`)).
		WithArgs("abc").
		WillReturnRows(rows)

	m, err := s.LoadModel(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "Base", m.ModelName)
	assert.Equal(t, 5.0, m.DataSet.EBITDAData[2024])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Postgres_DeleteMissingModelRollsBack(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM scenarios WHERE model_id = $1`)).
		WithArgs("abc").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM models WHERE id = $1`)).
		WithArgs("abc").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.DeleteModel(context.Background(), "abc")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Postgres_ReorderScenarios(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM scenarios WHERE model_id = $1`)).
		WithArgs("m1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("s1").AddRow("s2"))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE scenarios SET sort_order = $1 WHERE id = $2`)).
		WithArgs(0, "s2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE scenarios SET sort_order = $1 WHERE id = $2`)).
		WithArgs(1, "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.ReorderScenarios(context.Background(), "m1", []string{"s2", "s1"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Postgres_ListScenariosUsesSortColumn(t *testing.T) {
	s, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"sort_order", "payload"}).
		AddRow(0, `{"id":"s2","modelId":"m1","scenarioName":"B","sortOrder":1}`).
		AddRow(1, `{"id":"s1","modelId":"m1","scenarioName":"A","sortOrder":0}`)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT sort_order, payload FROM scenarios WHERE model_id = $1 ORDER BY sort_order ASC, created_unix ASC`)).
		WithArgs("m1").
		WillReturnRows(rows)

	list, err := s.ListScenarios(context.Background(), "m1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "s2", list[0].ID)
	assert.Equal(t, 0, list[0].SortOrder)
	assert.Equal(t, 1, list[1].SortOrder)
	assert.NoError(t, mock.ExpectationsWereMet())
}
