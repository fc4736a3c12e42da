package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/bulk-resumes/internal/common"
	"github.com/joseph-ayodele/bulk-resumes/internal/entity"
)

func newMockRepo(t *testing.T) (ApplicantRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo, err := NewApplicantRepository(sqlx.NewDb(db, "postgres"), "bulk_applicants", zap.NewNop())
	require.NoError(t, err)
	return repo, mock
}

func sampleApplicant() *entity.Applicant {
	return &entity.Applicant{
		Name:              entity.Str("Rahul Sharma"),
		Mobile:            entity.Str("N/A"),
		Email:             entity.Str("rahul@example.com"),
		ResumeURL:         entity.Str("https://storage.example.com/bulk_resumes/batch_20250101_120000/a.pdf"),
		CandidateCategory: entity.Str("good"),
		SpecialRemarks:    entity.Str("other_state"),
		Justification:     entity.Str("Two years at iQor."),
	}
}

func TestApplicantRepository_InsertPostgres(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO bulk_applicants`)+`(?s).*`+regexp.QuoteMeta(`VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`)).
		WithArgs("Rahul Sharma", "N/A", "rahul@example.com", sqlmock.AnyArg(), "good", "other_state", "Two years at iQor.").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	a := sampleApplicant()
	id, err := repo.Insert(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, int64(42), a.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicantRepository_InsertError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`INSERT INTO bulk_applicants`).WillReturnError(sql.ErrConnDone)

	_, err := repo.Insert(context.Background(), sampleApplicant())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDatabase)
}

func TestApplicantRepository_ClearPostgres(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM bulk_applicants WHERE id <> 0`)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.Clear(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicantRepository_ListAllPostgres(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()
	cols := []string{"id", "name", "mobile", "email", "resume_url", "candidate_category", "special_remarks", "justification", "created_at"}
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, mobile, email, resume_url, candidate_category, special_remarks, justification, created_at FROM bulk_applicants`)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(int64(1), "A", nil, "a@example.com", "u1", "good", "northeast", "j", now).
			AddRow(int64(2), "B", "123", nil, "u2", "average", "other_state", "j", now))

	rows, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Nil(t, rows[0].Mobile)
	assert.Equal(t, "123", entity.Deref(rows[1].Mobile))
	assert.Nil(t, rows[1].Email)
	assert.Equal(t, now, rows[1].CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewApplicantRepository_RejectsBadTableName(t *testing.T) {
	_, err := NewApplicantRepository(nil, "bulk_applicants; DROP TABLE x", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func openMemory(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()
	db, err := OpenSQLite(ctx, ":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { Close(db, zap.NewNop()) })
	require.NoError(t, EnsureSchema(ctx, db, "bulk_applicants"))
	return db
}

func TestApplicantRepository_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)
	repo, err := NewApplicantRepository(db, "bulk_applicants", zap.NewNop())
	require.NoError(t, err)

	first, err := repo.Insert(ctx, sampleApplicant())
	require.NoError(t, err)
	partial := sampleApplicant()
	partial.Mobile = nil
	second, err := repo.Insert(ctx, partial)
	require.NoError(t, err)
	assert.Greater(t, second, first)

	rows, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Rahul Sharma", entity.Deref(rows[0].Name))
	assert.Nil(t, rows[1].Mobile)
	assert.False(t, rows[0].CreatedAt.IsZero())

	n, err := repo.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	rows, err = repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestOpen_SQLiteCreatesTable(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, common.DatabaseConfig{Driver: common.DriverSQLite, Table: "bulk_applicants"}, zap.NewNop())
	require.NoError(t, err)
	defer Close(db, zap.NewNop())

	require.NoError(t, HealthCheck(ctx, db, 0, zap.NewNop()))
	var count int
	require.NoError(t, db.GetContext(ctx, &count, `SELECT COUNT(*) FROM bulk_applicants`))
	assert.Zero(t, count)
}

func TestEnsureSchema_RejectsBadTableName(t *testing.T) {
	db := openMemory(t)
	err := EnsureSchema(context.Background(), db, "1bad")
	require.Error(t, err)
}
