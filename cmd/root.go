// Package cmd defines and implements the CLI commands for the boardpulse
// executable.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/boardkit/boardpulse/internal/app"
	"github.com/boardkit/boardpulse/internal/config"
	"github.com/boardkit/boardpulse/internal/logging"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// newApp is the application factory. It is a variable so tests can replace
// it with a mock factory.
var newApp = func(ctx context.Context, cfg config.Config) (*app.App, error) {
	return app.NewApp(ctx, cfg)
}

// newRootCmd creates and configures the root command. The application
// container is built in PersistentPreRunE and injected into the command
// context so subcommands share one set of services.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "boardpulse",
		Short: "Task board subtask progress service",
		Long: `boardpulse tracks subtask completion across task board cards. It
computes progress percentages, drives board indicators and detail views, and
mirrors every subtask change into a remote document store.`,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			appInstance, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(*app.App); ok && appInstance != nil {
				appInstance.Close(cmd.Context())
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is environment only)")

	cmd.AddCommand(newServeCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	logging.InitLogger()

	if err := newRootCmd().Execute(); err != nil {
		logging.L.Fatal("command execution failed", zap.Error(err))
	}
}
