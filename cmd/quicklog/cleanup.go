package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AstraSolis/quicklog/internal/store"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Enforce the retention limits now",
	Long: `cleanup removes archives older than retention-days and trims the
archive count down to max-files, oldest first. The stricter limit wins.`,
	RunE: runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	removed, err := store.CleanupDir(cfg.Dir, cfg.RetentionDays, cfg.MaxFiles)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d archives\n", removed)
	return nil
}
