package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/wxvisuals/warnmap/internal/app"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// newApp is the application factory. It's a variable so tests can
// replace it with a factory that returns a fake service graph.
var newApp = func(flags *pflag.FlagSet) (*app.App, error) {
	return app.New(cfgFile, flags)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "warnmap",
		Short: "Watches severe weather alerts and renders shareable warning maps.",
		Long: `warnmap polls the National Weather Service alert feed, renders each
new warning's polygon onto a styled map image, and delivers the result
to a webhook. It runs continuously on a self-healing schedule.`,

		// Runs after flags are parsed and before the subcommand's RunE,
		// so every subcommand finds a wired App in its context.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Flags())
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(*app.App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is built-in defaults plus WARNMAP_* env)")
	cmd.PersistentFlags().String("feed-url", "", "alert feed URL")
	cmd.PersistentFlags().String("output", "", "directory for rendered map images")
	cmd.PersistentFlags().Duration("interval", 0, "poll interval")
	cmd.PersistentFlags().String("webhook", "", "webhook endpoint for delivery")
	cmd.PersistentFlags().Duration("max-age", 0, "age past which rendered artifacts are cleaned up")

	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newOnceCmd())

	return cmd
}

func appFromContext(cmd *cobra.Command) (*app.App, error) {
	appInstance, ok := cmd.Context().Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		return nil, fmt.Errorf("application not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
