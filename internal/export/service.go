package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/bulk-resumes/internal/entity"
	"github.com/joseph-ayodele/bulk-resumes/internal/repository"
)

const fileTimeLayout = "20060102_150405"

// ColumnNulls is the number of NULL values in one report column.
type ColumnNulls struct {
	Column string `json:"column"`
	Nulls  int    `json:"nulls"`
}

// Report is the tabular view of the applicants table.
type Report struct {
	Columns    []string           `json:"columns"`
	Rows       []entity.Applicant `json:"rows"`
	NullCounts []ColumnNulls      `json:"null_counts"`
}

// HasNulls reports whether any column contains a NULL.
func (r Report) HasNulls() bool {
	for _, c := range r.NullCounts {
		if c.Nulls > 0 {
			return true
		}
	}
	return false
}

// ColumnsWithNulls returns only the columns that have at least one NULL.
func (r Report) ColumnsWithNulls() []ColumnNulls {
	out := make([]ColumnNulls, 0, len(r.NullCounts))
	for _, c := range r.NullCounts {
		if c.Nulls > 0 {
			out = append(out, c)
		}
	}
	return out
}

// BuildReport computes the per-column null counts for rows.
func BuildReport(rows []entity.Applicant) Report {
	counts := make([]ColumnNulls, len(entity.ApplicantColumns))
	for i, c := range entity.ApplicantColumns {
		counts[i].Column = c
	}
	for _, row := range rows {
		for i, v := range row.Values() {
			if v == nil {
				counts[i].Nulls++
			}
		}
	}
	if rows == nil {
		rows = []entity.Applicant{}
	}
	return Report{Columns: entity.ApplicantColumns, Rows: rows, NullCounts: counts}
}

// CSVFileName names the export for a run finished at now.
func CSVFileName(now time.Time) string {
	return "resume_analysis_" + now.Format(fileTimeLayout) + ".csv"
}

// XLSXFileName is CSVFileName for the workbook export.
func XLSXFileName(now time.Time) string {
	return "resume_analysis_" + now.Format(fileTimeLayout) + ".xlsx"
}

// WriteCSV writes a header line and one line per row. NULL columns are empty.
func WriteCSV(w io.Writer, rows []entity.Applicant) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(entity.ApplicantColumns); err != nil {
		return fmt.Errorf("csv header: %w", err)
	}
	rec := make([]string, len(entity.ApplicantColumns))
	for _, row := range rows {
		for i, v := range row.Values() {
			rec[i] = entity.Deref(v)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("csv row %d: %w", row.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Service reads the applicants table and renders it for download.
type Service struct {
	repo   repository.ApplicantRepository
	logger *zap.Logger
}

func NewService(repo repository.ApplicantRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger}
}

// Report loads every row and builds the report.
func (s *Service) Report(ctx context.Context) (Report, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list applicants: %w", err)
	}
	return BuildReport(rows), nil
}

// ExportApplicantsXLSX returns an XLSX workbook (as bytes) with one sheet of applicants.
func (s *Service) ExportApplicantsXLSX(rows []entity.Applicant) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("export.xlsx.close_failed", zap.Error(err))
		}
	}()

	const sheet = "Applicants"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	for i, h := range entity.ApplicantColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	last, _ := excelize.CoordinatesToCellName(len(entity.ApplicantColumns), 1)
	_ = f.SetCellStyle(sheet, "A1", last, headerStyle)

	for r, row := range rows {
		for c, v := range row.Values() {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if c == 0 {
				_ = f.SetCellValue(sheet, cell, row.ID)
				continue
			}
			if v != nil {
				_ = f.SetCellValue(sheet, cell, *v)
			}
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 8)  // id
	_ = f.SetColWidth(sheet, "B", "D", 24) // contact
	_ = f.SetColWidth(sheet, "E", "E", 60) // url
	_ = f.SetColWidth(sheet, "F", "G", 16) // category, remarks
	_ = f.SetColWidth(sheet, "H", "H", 80) // justification

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		zap.Int("rows", len(rows)),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return buf.Bytes(), nil
}
