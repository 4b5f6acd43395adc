package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kevinreber/siphon/internal/collect"
	"github.com/kevinreber/siphon/internal/display"
	apperrors "github.com/kevinreber/siphon/internal/errors"
)

var (
	analyzeSince   string
	analyzeFrom    string
	analyzeTo      string
	analyzeJSON    bool
	analyzeCollect bool
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeSince, "since", "", "relative lookback (e.g. 24h, 90m)")
	analyzeCmd.Flags().StringVar(&analyzeFrom, "from", "", "window start (RFC3339)")
	analyzeCmd.Flags().StringVar(&analyzeTo, "to", "", "window end (RFC3339, default now)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "emit the raw analysis result as JSON")
	analyzeCmd.Flags().BoolVar(&analyzeCollect, "collect", false, "run the collectors before analyzing")
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Find topics, sessions, struggles, and content ideas in stored events",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		start, end, err := resolveWindow(analyzeSince, analyzeFrom, analyzeTo, cfg.Analysis.WindowHours)
		if err != nil {
			return err
		}

		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer apperrors.SafeClose(st, "store")

		if analyzeCollect {
			runner := collect.FromConfig(cfg.Collect, nil, nil)
			events, results := runner.CollectAll(cmd.Context(), start)
			if _, _, err := st.InsertNewEvents(events); err != nil {
				return err
			}
			fmt.Println(display.CollectorResults(results))
		}

		result, err := analyzeWindow(st, start, end)
		if err != nil {
			return err
		}

		if analyzeJSON {
			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		if result.Summary.TotalEvents == 0 {
			fmt.Printf("No events between %s and %s. Run 'siphon collect' or start the daemon.\n",
				start.Format(time.RFC3339), end.Format(time.RFC3339))
			return nil
		}

		fmt.Println(display.Result(result))
		return nil
	},
}
