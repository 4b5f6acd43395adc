package main

import (
	"fmt"
	"os"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	apperrors "github.com/kevinreber/siphon/internal/errors"
	"github.com/kevinreber/siphon/internal/export"
)

var (
	promptSince string
	promptFrom  string
	promptTo    string
	promptCopy  bool
)

func init() {
	rootCmd.AddCommand(promptCmd)

	promptCmd.Flags().StringVar(&promptSince, "since", "", "relative lookback (e.g. 24h, 90m)")
	promptCmd.Flags().StringVar(&promptFrom, "from", "", "window start (RFC3339)")
	promptCmd.Flags().StringVar(&promptTo, "to", "", "window end (RFC3339, default now)")
	promptCmd.Flags().BoolVar(&promptCopy, "copy", false, "copy the prompt to the clipboard")
}

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Build a summarization prompt from the analyzed window",
	Long: `Serializes the analyzed clusters, struggles, and ideas into a prompt
you can paste into any writing assistant to get a narrative day summary.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		start, end, err := resolveWindow(promptSince, promptFrom, promptTo, cfg.Analysis.WindowHours)
		if err != nil {
			return err
		}

		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer apperrors.SafeClose(st, "store")

		result, err := analyzeWindow(st, start, end)
		if err != nil {
			return err
		}

		prompt := export.BuildPrompt(result)

		if promptCopy {
			if err := clipboard.WriteAll(prompt); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not copy to clipboard: %v\n", err)
			} else {
				fmt.Println("Prompt copied to clipboard.")
				return nil
			}
		}

		fmt.Println(prompt)
		return nil
	},
}
