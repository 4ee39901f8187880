package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newWatchCmd runs the poller on its schedule until interrupted.
func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run the alert watcher continuously.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := appFromContext(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if appInstance.Metrics != nil {
				appInstance.Metrics.Start()
			}
			if err := appInstance.Runner.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()
			appInstance.Logger.Info("shutdown signal received")
			if err := appInstance.Runner.Stop(); err != nil {
				appInstance.Logger.Error("stopping runner", zap.Error(err))
				return err
			}
			return nil
		},
	}
}
