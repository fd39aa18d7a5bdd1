package consents

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/consentkeeper/internal/common"
	"github.com/dmitrijs2005/consentkeeper/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const insertQuery = `(?s)^INSERT\s+INTO\s+consent_records\s*\(template_id,\s*user_id,\s*signed_at,\s*ip_address,\s*status,\s*signature_hash,\s*audit_log,\s*content_hash\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6,\s*\$7,\s*\$8\)\s*RETURNING\s+id\s*$`

var columns = []string{"id", "template_id", "user_id", "signed_at", "ip_address", "status", "signature_hash", "audit_log", "content_hash"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

func record(ip string) *models.ConsentRecord {
	signed := time.Date(2026, 5, 4, 3, 2, 1, 123456000, time.UTC)
	return models.NewSignedRecord(1, 2, signed, ip, "abc", `{"action":"SIGNED"}`, "def")
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rec := record("10.0.0.1")
	mock.ExpectQuery(insertQuery).
		WithArgs(int64(1), int64(2), rec.SignedAt, "10.0.0.1", "SIGNED", "abc", `{"action":"SIGNED"}`, "def").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))

	got, err := repo.Create(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, int64(11), got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_EmptyAddressStoredAsNull(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rec := record("")
	mock.ExpectQuery(insertQuery).
		WithArgs(int64(1), int64(2), rec.SignedAt, nil, "SIGNED", "abc", `{"action":"SIGNED"}`, "def").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(12)))

	_, err := repo.Create(context.Background(), rec)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_UniqueViolation(t *testing.T) {
	for _, constraint := range []string{"consent_records_user_template_key", "consent_records_signature_hash_key"} {
		t.Run(constraint, func(t *testing.T) {
			repo, mock, db := newRepoWithMock(t)
			defer db.Close()

			mock.ExpectQuery(insertQuery).
				WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: constraint})

			_, err := repo.Create(context.Background(), record("1.1.1.1"))
			assert.ErrorIs(t, err, common.ErrorAlreadyExists)
			assert.Contains(t, err.Error(), constraint)
		})
	}
}

func TestCreate_OtherError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQuery).
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "consent_records_template_id_fkey"})

	_, err := repo.Create(context.Background(), record(""))
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestExistsByUserAndTemplate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+EXISTS\s*\(SELECT\s+1\s+FROM\s+consent_records\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+template_id\s*=\s*\$2\)$`
	mock.ExpectQuery(q).WithArgs(int64(2), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(q).WithArgs(int64(3), int64(1)).
		WillReturnError(errors.New("timeout"))

	ok, err := repo.ExistsByUserAndTemplate(context.Background(), 2, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = repo.ExistsByUserAndTemplate(context.Background(), 3, 1)
	assert.ErrorContains(t, err, "db error: timeout")
}

func TestGetByID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	signed := time.Now().UTC()
	mock.ExpectQuery(`(?s)FROM\s+consent_records\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(5), int64(1), int64(2), signed, nil, "SIGNED", "h", "{}", "c"))
	mock.ExpectQuery(`(?s)FROM\s+consent_records\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs(int64(6)).
		WillReturnError(sql.ErrNoRows)

	got, err := repo.GetByID(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "", got.IPAddress)
	assert.Equal(t, models.StatusSigned, got.Status)

	_, err = repo.GetByID(context.Background(), 6)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestLists(t *testing.T) {
	signed := time.Now().UTC()
	rows := func() *sqlmock.Rows {
		return sqlmock.NewRows(columns).
			AddRow(int64(1), int64(1), int64(2), signed, "1.2.3.4", "SIGNED", "h1", "{}", "c").
			AddRow(int64(2), int64(3), int64(2), signed, nil, "SIGNED", "h2", "{}", "c")
	}

	tests := []struct {
		name  string
		query string
		args  []driver.Value
		call  func(r *PostgresRepository) ([]*models.ConsentRecord, error)
	}{
		{
			name:  "by user",
			query: `(?s)WHERE\s+user_id\s*=\s*\$1\s+ORDER\s+BY\s+id`,
			args:  []driver.Value{int64(2)},
			call: func(r *PostgresRepository) ([]*models.ConsentRecord, error) {
				return r.ListByUser(context.Background(), 2)
			},
		},
		{
			name:  "by template",
			query: `(?s)WHERE\s+template_id\s*=\s*\$1\s+ORDER\s+BY\s+id`,
			args:  []driver.Value{int64(1)},
			call: func(r *PostgresRepository) ([]*models.ConsentRecord, error) {
				return r.ListByTemplate(context.Background(), 1)
			},
		},
		{
			name:  "all",
			query: `(?s)FROM\s+consent_records\s+ORDER\s+BY\s+id`,
			call: func(r *PostgresRepository) ([]*models.ConsentRecord, error) {
				return r.ListAll(context.Background())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, db := newRepoWithMock(t)
			defer db.Close()

			exp := mock.ExpectQuery(tt.query)
			if tt.args != nil {
				exp.WithArgs(tt.args...)
			}
			exp.WillReturnRows(rows())

			got, err := tt.call(repo)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "1.2.3.4", got[0].IPAddress)
			assert.Equal(t, "", got[1].IPAddress)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestList_QueryError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+consent_records`).WillReturnError(errors.New("boom"))

	_, err := repo.ListAll(context.Background())
	assert.ErrorContains(t, err, "failed to select consent records: boom")
}
