package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/bulk-resumes/internal/entity"
	"github.com/joseph-ayodele/bulk-resumes/internal/export"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the applicants table and write it to CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := setup()
		if err != nil {
			pterm.Error.Printf("Configuration: %v\n", err)
			return err
		}
		defer func() { _ = log.Sync() }()

		store, err := openStore(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer store.Close()

		rep, err := store.Reports.Report(cmd.Context())
		if err != nil {
			pterm.Error.Printf("Could not read applicants: %v\n", err)
			return err
		}
		printReport(rep)

		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = cfg.Pipeline.OutputDir
		}
		if out == "" || len(rep.Rows) == 0 {
			return nil
		}
		path, err := writeCSV(out, rep.Rows, time.Now())
		if err != nil {
			pterm.Error.Printf("CSV export failed: %v\n", err)
			return err
		}
		pterm.Success.Printf("Report written to %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringP("out", "o", "", "also write resume_analysis_<ts>.csv into this directory")
}

// printReport renders the rows and warns about columns holding NULLs.
func printReport(rep export.Report) {
	if len(rep.Rows) == 0 {
		pterm.Info.Println("No applicants stored.")
		return
	}
	data := pterm.TableData{rep.Columns}
	for _, row := range rep.Rows {
		line := make([]string, 0, len(rep.Columns))
		for _, v := range row.Values() {
			line = append(line, entity.Deref(v))
		}
		data = append(data, line)
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		pterm.Warning.Printf("Could not render table: %v\n", err)
	}

	if rep.HasNulls() {
		pterm.Warning.Println("Some columns contain missing values:")
		for _, c := range rep.ColumnsWithNulls() {
			pterm.Warning.Printf("  %s: %d\n", c.Column, c.Nulls)
		}
	}
}

func writeCSV(dir string, rows []entity.Applicant, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, export.CSVFileName(now))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if err := export.WriteCSV(f, rows); err != nil {
		_ = f.Close()
		return "", err
	}
	return path, f.Close()
}
