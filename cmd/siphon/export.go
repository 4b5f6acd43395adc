package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	apperrors "github.com/kevinreber/siphon/internal/errors"
	"github.com/kevinreber/siphon/internal/export"
)

var (
	exportFormat string
	exportOut    string
	exportSince  string
	exportFrom   string
	exportTo     string
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportFormat, "format", "md", "output format: md, json, rss, or notion")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file (default <output_dir>/siphon-<day>.<ext>)")
	exportCmd.Flags().StringVar(&exportSince, "since", "", "relative lookback (e.g. 24h, 90m)")
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "window start (RFC3339)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "window end (RFC3339, default now)")
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export an analysis report as Markdown, JSON, RSS, or Notion blocks",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := export.ParseFormat(exportFormat)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		start, end, err := resolveWindow(exportSince, exportFrom, exportTo, cfg.Analysis.WindowHours)
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

		path := exportOut
		if path == "" {
			name := "siphon-" + end.Format("2006-01-02") + format.Extension()
			path = filepath.Join(cfg.Export.OutputDir, name)
		}

		if err := export.NewExporter(nil).WriteFile(result, format, path); err != nil {
			return err
		}

		fmt.Printf("Exported %d events as %s to %s\n", result.Summary.TotalEvents, format, path)
		return nil
	},
}
