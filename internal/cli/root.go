// Package cli holds the smogdash command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"smogdash/internal/app"
	"smogdash/internal/config"
	"smogdash/internal/logging"
	"smogdash/internal/modules/smog/types"
)

const appName = "smogdash"

func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           appName,
		Short:         "School air quality dashboard",
		Long:          "Polls the ESA smog feed for station " + types.TargetPostCode + " and serves it as a live dashboard.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newServeCommand(version), newShowCommand(version))
	return rootCmd
}

// loadConfig reads an optional .env file and then the environment.
func loadConfig() (config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return config.Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return config.Config{}, fmt.Errorf("config error: %w", err)
	}
	return cfg, nil
}

func newServeCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard HTTP server and refresh loop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			logger := logging.New(cfg, version, appName)
			slog.SetDefault(logger)
			logger.Info("starting",
				"app", appName,
				"version", version,
				"env", cfg.AppEnv,
				"log_level", cfg.LogLevel.String(),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := app.Run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("run failed", "err", err)
				return err
			}
			logger.Info("shutting down")
			return nil
		},
	}
}

func newShowCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Fetch the station once and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			if err := validateOutput(output); err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := logging.NewWithWriter(cmd.ErrOrStderr(), cfg, version, appName)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return Show(ctx, cmd.OutOrStdout(), cfg, output, logger)
		},
	}
	cmd.Flags().StringP("output", "o", outputText, "Output format (text, json)")
	return cmd
}
