package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kevinreber/siphon/internal/display"
	apperrors "github.com/kevinreber/siphon/internal/errors"
)

func init() {
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show what the local store holds",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer apperrors.SafeClose(st, "store")

		total, err := st.TotalCount()
		if err != nil {
			return err
		}
		size, err := st.Size()
		if err != nil {
			return err
		}

		storage := [][2]string{
			{"Database", st.Path()},
			{"Events", humanize.Comma(total)},
			{"Size", humanize.Bytes(uint64(size))},
		}
		if oldest, newest, ok, err := st.TimeRange(); err == nil && ok {
			storage = append(storage,
				[2]string{"Oldest event", humanize.Time(oldest)},
				[2]string{"Newest event", humanize.Time(newest)},
			)
		}
		fmt.Println(display.Table("Storage", storage))

		bySource, err := st.CountBySource()
		if err != nil {
			return err
		}
		if len(bySource) > 0 {
			rows := make([][2]string, 0, len(bySource))
			for _, sc := range bySource {
				rows = append(rows, [2]string{sc.Source, humanize.Comma(sc.Count)})
			}
			fmt.Println(display.Table("By source", rows))
		}

		byProject, err := st.CountByProject(10)
		if err != nil {
			return err
		}
		if len(byProject) > 0 {
			rows := make([][2]string, 0, len(byProject))
			for _, pc := range byProject {
				rows = append(rows, [2]string{pc.Project, humanize.Comma(pc.Count)})
			}
			fmt.Println(display.Table("Top projects", rows))
		}

		daily, err := st.DailyCounts(7)
		if err != nil {
			return err
		}
		if len(daily) > 0 {
			rows := make([][2]string, 0, len(daily))
			for _, dc := range daily {
				day, err := time.Parse("2006-01-02", dc.Day)
				label := dc.Day
				if err == nil {
					label = day.Format("Mon Jan 2")
				}
				rows = append(rows, [2]string{label, humanize.Comma(dc.Count)})
			}
			fmt.Println(display.Table("Last 7 days", rows))
		}

		return nil
	},
}
