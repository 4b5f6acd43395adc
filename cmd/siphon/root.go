package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kevinreber/siphon/internal/analysis"
	"github.com/kevinreber/siphon/internal/config"
	"github.com/kevinreber/siphon/internal/store"
)

var version = "0.4.0"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "siphon",
	Short: "Capture developer activity and mine it for stories worth telling",
	Long: `siphon records what you actually do all day — shell commands, editor
saves, git operations, browser visits — into a local SQLite database, then
finds the sessions, struggles, and breakthroughs hiding in it and turns
them into content ideas.

Everything stays on your machine. The daemon listens on loopback only.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.siphon/config.yaml)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

func openStore(cfg *config.Config) (*store.Store, error) {
	return store.Open(cfg.Storage.DataDir)
}

// resolveWindow turns the shared --since/--from/--to flags into a concrete
// time range. Explicit endpoints win over the relative lookback.
func resolveWindow(since, from, to string, fallbackHours int) (time.Time, time.Time, error) {
	now := time.Now()

	if from != "" || to != "" {
		start, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from %q (want RFC3339): %w", from, err)
		}
		end := now
		if to != "" {
			end, err = time.Parse(time.RFC3339, to)
			if err != nil {
				return time.Time{}, time.Time{}, fmt.Errorf("invalid --to %q (want RFC3339): %w", to, err)
			}
		}
		if end.Before(start) {
			return time.Time{}, time.Time{}, fmt.Errorf("--to is before --from")
		}
		return start, end, nil
	}

	if since != "" {
		d, err := time.ParseDuration(since)
		if err != nil || d <= 0 {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --since %q (want something like 24h or 90m)", since)
		}
		return now.Add(-d), now, nil
	}

	return now.Add(-time.Duration(fallbackHours) * time.Hour), now, nil
}

// analyzeWindow loads the stored events for a window and runs the pipeline.
func analyzeWindow(st *store.Store, start, end time.Time) (*analysis.AnalysisResult, error) {
	events, err := st.EventsBetween(start, end)
	if err != nil {
		return nil, err
	}
	return analysis.NewAnalyzer().Analyze(events)
}
