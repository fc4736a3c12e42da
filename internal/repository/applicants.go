package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/bulk-resumes/internal/common"
	"github.com/joseph-ayodele/bulk-resumes/internal/entity"
)

type ApplicantRepository interface {
	// Insert writes one row and returns the id the database assigned.
	Insert(ctx context.Context, a *entity.Applicant) (int64, error)
	// Clear deletes every row and reports how many were removed.
	Clear(ctx context.Context) (int64, error)
	// ListAll returns every row in the backend's default order.
	ListAll(ctx context.Context) ([]entity.Applicant, error)
}

type applicantRepo struct {
	db     *sqlx.DB
	table  string
	logger *zap.Logger
}

func NewApplicantRepository(db *sqlx.DB, table string, logger *zap.Logger) (ApplicantRepository, error) {
	if !identRe.MatchString(table) {
		return nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("invalid table name %q", table), common.ErrInvalidInput)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &applicantRepo{db: db, table: table, logger: logger.With(zap.String("table", table))}, nil
}

func (r *applicantRepo) Insert(ctx context.Context, a *entity.Applicant) (int64, error) {
	q := r.db.Rebind(fmt.Sprintf(`INSERT INTO %s
	(name, mobile, email, resume_url, candidate_category, special_remarks, justification)
	VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`, r.table))

	var id int64
	err := r.db.QueryRowxContext(ctx, q,
		a.Name, a.Mobile, a.Email, a.ResumeURL, a.CandidateCategory, a.SpecialRemarks, a.Justification,
	).Scan(&id)
	if err != nil {
		r.logger.Error("db.insert.failed", zap.String("resume_url", entity.Deref(a.ResumeURL)), zap.Error(err))
		return 0, fmt.Errorf("%w: insert applicant: %v", common.ErrDatabase, err)
	}
	a.ID = id
	r.logger.Debug("db.insert.ok", zap.Int64("id", id))
	return id, nil
}

func (r *applicantRepo) Clear(ctx context.Context) (int64, error) {
	// id <> 0 keeps the statement acceptable to stores that refuse unfiltered deletes.
	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id <> 0`, r.table))
	if err != nil {
		r.logger.Error("db.clear.failed", zap.Error(err))
		return 0, fmt.Errorf("%w: clear applicants: %v", common.ErrDatabase, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: rows affected: %v", common.ErrDatabase, err)
	}
	return n, nil
}

func (r *applicantRepo) ListAll(ctx context.Context) ([]entity.Applicant, error) {
	rows := make([]entity.Applicant, 0)
	q := fmt.Sprintf(`SELECT id, name, mobile, email, resume_url, candidate_category, special_remarks, justification, created_at FROM %s`, r.table)
	if err := r.db.SelectContext(ctx, &rows, q); err != nil {
		r.logger.Error("db.list.failed", zap.Error(err))
		return nil, fmt.Errorf("%w: list applicants: %v", common.ErrDatabase, err)
	}
	return rows, nil
}
