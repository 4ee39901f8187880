package cmd

import (
	"github.com/spf13/cobra"
)

// newOnceCmd runs a single poll cycle and exits. Useful for cron-style
// operation and for verifying configuration.
func newOnceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Poll the feed a single time, then exit.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := appFromContext(cmd)
			if err != nil {
				return err
			}
			return appInstance.Runner.RunOnce(cmd.Context())
		},
	}
}
