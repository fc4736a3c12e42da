package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/bulk-resumes/internal/app"
	"github.com/joseph-ayodele/bulk-resumes/internal/common"
	"github.com/joseph-ayodele/bulk-resumes/internal/logger"
)

const appName = "resume-batch"

var (
	cfgFile string
	envFile string

	rootCmd = &cobra.Command{
		Use:           appName,
		Short:         "Classify a zip of resumes and export the results",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().Bool("inmem", false, "use an in-memory SQLite database instead of DB_URL")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("table", "", "applicants table name")

	bindFlags(rootCmd.PersistentFlags(), map[string]string{
		"log.debug":      "debug",
		"log.json":       "json",
		"database.table": "table",
		"inmem":          "inmem",
	})
}

// bindFlags binds config keys to the named flags of fs.
func bindFlags(fs *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		_ = viper.BindPFlag(key, fs.Lookup(name))
	}
}

// setup loads configuration and builds the logger every subcommand shares.
func setup() (*common.Config, *zap.Logger, error) {
	if err := common.LoadDotEnv(envFile); err != nil {
		return nil, nil, err
	}
	cfg, err := common.LoadConfig(viper.GetViper(), cfgFile)
	if err != nil {
		return nil, nil, err
	}
	// the CLI logs to the console unless --json or LOG_JSON says otherwise
	if !rootCmd.PersistentFlags().Changed("json") && os.Getenv("LOG_JSON") == "" {
		cfg.Log.JSON = false
	}
	log, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		return nil, nil, fmt.Errorf("creating a logger: %w", err)
	}
	return cfg, log, nil
}

func openStore(ctx context.Context, cfg *common.Config, log *zap.Logger) (*app.Store, error) {
	store, err := app.OpenStore(ctx, cfg.Database, viper.GetBool("inmem"), log)
	if err != nil {
		pterm.Error.Printf("Database unavailable: %v\n", err)
		return nil, err
	}
	return store, nil
}
