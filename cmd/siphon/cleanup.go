package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	apperrors "github.com/kevinreber/siphon/internal/errors"
	"github.com/kevinreber/siphon/internal/resilience"
)

var cleanupDays int

func init() {
	rootCmd.AddCommand(cleanupCmd)
	cleanupCmd.Flags().IntVar(&cleanupDays, "days", 0, "retention window in days (default from config)")
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete events past the retention window and compact the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		days := cleanupDays
		if days <= 0 {
			days = cfg.Storage.RetentionDays
		}

		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer apperrors.SafeClose(st, "store")

		deleted, err := st.Cleanup(days)
		if err != nil {
			return err
		}
		// VACUUM takes an exclusive lock; a running daemon can hold the
		// database briefly, so retry the handful of transient lock errors.
		if err := resilience.Retry(cmd.Context(), st.Vacuum); err != nil {
			return err
		}

		size, err := st.Size()
		if err != nil {
			return err
		}

		fmt.Printf("Deleted %d events older than %d days; database is now %s\n",
			deleted, days, humanize.Bytes(uint64(size)))
		return nil
	},
}
