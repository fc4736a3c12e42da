package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/bulk-resumes/constants"
	"github.com/joseph-ayodele/bulk-resumes/internal/app"
	"github.com/joseph-ayodele/bulk-resumes/internal/common"
	"github.com/joseph-ayodele/bulk-resumes/internal/export"
	"github.com/joseph-ayodele/bulk-resumes/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run <archive.zip>",
	Short: "Upload, parse, classify and store every resume in a zip archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("out", "o", "", "directory for the CSV and XLSX report (default: OUTPUT_DIR or .)")
	runCmd.Flags().Duration("pace", 0, "pause between documents (default: PACE_DELAY or 1s)")
	runCmd.Flags().Bool("xlsx", false, "also write an XLSX report")

	bindFlags(runCmd.Flags(), map[string]string{
		"pipeline.output_dir": "out",
		"pipeline.pace_delay": "pace",
		"xlsx":                "xlsx",
	})
}

func run(parent context.Context, archivePath string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, err := setup()
	if err != nil {
		pterm.Error.Printf("Configuration: %v\n", err)
		return err
	}
	defer func() { _ = log.Sync() }()

	if viper.GetBool("inmem") {
		cfg.Database.Driver = common.DriverSQLite
	}
	if err := cfg.Validate(); err != nil {
		pterm.Error.Printf("Configuration: %v\n", err)
		return err
	}

	data, err := os.ReadFile(archivePath)
	if err != nil {
		pterm.Error.Printf("Cannot read %s: %v\n", archivePath, err)
		return err
	}

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	var bar *pterm.ProgressbarPrinter
	progress := func(ev pipeline.ProgressEvent) {
		if bar == nil {
			bar, _ = pterm.DefaultProgressbar.WithTotal(ev.Total).WithTitle("Processing resumes").Start()
		}
		switch {
		case ev.Err != nil:
			pterm.Error.Printf("%s: %s failed: %v\n", ev.Filename, ev.Stage, ev.Err)
			bar.Increment()
		case ev.Stage == pipeline.StageDone:
			pterm.Success.Printf("%s saved\n", ev.Filename)
			bar.Increment()
		}
	}

	processor, err := app.NewProcessor(ctx, cfg, store, log, pipeline.WithProgress(progress))
	if err != nil {
		pterm.Error.Printf("Setup failed: %v\n", err)
		return err
	}

	pterm.Info.Printf("Processing %s\n", filepath.Base(archivePath))
	sum, err := processor.Run(ctx, filepath.Base(archivePath), data)
	if bar != nil {
		_, _ = bar.Stop()
	}
	if err != nil {
		if errors.Is(err, common.ErrInvalidArchive) {
			pterm.Error.Println("The uploaded file is not a valid zip archive.")
		} else {
			pterm.Error.Printf("Run aborted: %v\n", err)
		}
		return err
	}
	if sum.Status == constants.RunNoFiles {
		pterm.Warning.Println("No PDF, DOC or DOCX files found in the archive.")
		return nil
	}

	for _, w := range sum.Warnings {
		pterm.Warning.Println(w)
	}
	pterm.Success.Printf("Processed %d resumes: %d succeeded, %d failed\n", len(sum.Documents), sum.Succeeded, sum.Failed)

	return writeReports(store, cfg.Pipeline.OutputDir, sum, log)
}

func writeReports(store *app.Store, outDir string, sum *pipeline.RunSummary, log *zap.Logger) error {
	if len(sum.Rows) == 0 {
		pterm.Warning.Println("No data was saved to the database; no report written.")
		return nil
	}
	if outDir == "" {
		outDir = "."
	}
	printReport(export.BuildReport(sum.Rows))
	now := time.Now()
	csvPath, err := writeCSV(outDir, sum.Rows, now)
	if err != nil {
		pterm.Error.Printf("CSV export failed: %v\n", err)
		return err
	}
	pterm.Success.Printf("Report written to %s\n", csvPath)

	if viper.GetBool("xlsx") {
		data, err := store.Reports.ExportApplicantsXLSX(sum.Rows)
		if err != nil {
			pterm.Error.Printf("XLSX export failed: %v\n", err)
			return err
		}
		xlsxPath := filepath.Join(outDir, export.XLSXFileName(now))
		if err := os.WriteFile(xlsxPath, data, 0o644); err != nil {
			return fmt.Errorf("write xlsx: %w", err)
		}
		pterm.Success.Printf("Workbook written to %s\n", xlsxPath)
	}
	log.Info("cli.run.done", zap.String("run_id", sum.RunID), zap.String("csv", csvPath))
	return nil
}
