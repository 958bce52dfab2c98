package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	rootCmd := &cobra.Command{
		Use:          "tournament-engine",
		Short:        "Multi-stage tournament engine for the admin panel",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(serveCmd(logger))
	rootCmd.AddCommand(migrateCmd(logger))
	rootCmd.AddCommand(createAdminCmd(logger))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
