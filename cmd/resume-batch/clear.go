package main

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every stored applicant",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			ok, _ := pterm.DefaultInteractiveConfirm.WithDefaultValue(false).Show("Delete all stored applicants?")
			if !ok {
				pterm.Info.Println("Nothing deleted.")
				return nil
			}
		}

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

		n, err := store.Applicants.Clear(cmd.Context())
		if err != nil {
			pterm.Error.Printf("Clear failed: %v\n", err)
			return err
		}
		log.Info("cli.clear.ok", zap.Int64("rows_removed", n))
		pterm.Success.Printf("Removed %d applicants\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clearCmd)
	clearCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
}
