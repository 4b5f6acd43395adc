package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kevinreber/siphon/internal/collect"
	"github.com/kevinreber/siphon/internal/display"
	apperrors "github.com/kevinreber/siphon/internal/errors"
)

var collectSince string

func init() {
	rootCmd.AddCommand(collectCmd)
	collectCmd.Flags().StringVar(&collectSince, "since", "24h", "how far back to pull from each source")
}

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Pull events from shell history, git logs, and browser history",
	Long: `Reads sources that were never wired to the daemon — shell history
files, git logs of configured repositories, browser history databases —
and imports what it finds. Sources that cannot be read are skipped, and
re-running never duplicates already-imported events.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		since, err := time.ParseDuration(collectSince)
		if err != nil || since <= 0 {
			return fmt.Errorf("invalid --since %q (want something like 24h or 90m)", collectSince)
		}

		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer apperrors.SafeClose(st, "store")

		runner := collect.FromConfig(cfg.Collect, nil, nil)
		events, results := runner.CollectAll(cmd.Context(), time.Now().Add(-since))

		inserted, skipped, err := st.InsertNewEvents(events)
		if err != nil {
			return err
		}

		fmt.Println(display.CollectorResults(results))
		fmt.Printf("Imported %d new events (%d already stored)\n", inserted, skipped)
		return nil
	},
}
