// Daylog - daily sales activity logging bot
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ashureev/daylog/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		envFile string
		debug   bool
	)

	root := &cobra.Command{
		Use:           "daylog",
		Short:         "Discord bot that collects daily sales activity reports",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			setupLogger(debug)
			loadEnv(envFile)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				slog.Error("Failed to load configuration", "error", err)
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(newCheckConfigCmd())
	return root
}

func newCheckConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Validate configuration and print the enabled delivery targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				slog.Error("Failed to load configuration", "error", err)
				return err
			}
			targets := cfg.Targets()
			if len(targets) == 0 {
				targets = []string{"none"}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration ok\ndelivery targets: %s\nreply timeout: %s\nconsole enabled: %t\n",
				strings.Join(targets, ", "), cfg.ReplyTimeout, cfg.ConsoleEnabled)
			return nil
		},
	}
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}

func loadEnv(path string) {
	if err := godotenv.Load(path); err != nil {
		slog.Info("No .env file found, using environment variables", "path", path)
	}
}
