package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	apperrors "github.com/kevinreber/siphon/internal/errors"
	"github.com/kevinreber/siphon/internal/monitoring"
	"github.com/kevinreber/siphon/internal/server"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the capture daemon",
	Long: `Starts the local HTTP daemon that shell hooks, editor plugins, and
browser scripts post events to. Stops cleanly on SIGINT or SIGTERM,
draining in-flight requests first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		level, err := monitoring.ParseLevel(cfg.Log.Level)
		if err != nil {
			return err
		}
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})))

		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer apperrors.SafeClose(st, "store")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return server.New(cfg, st, version).Run(ctx)
	},
}
