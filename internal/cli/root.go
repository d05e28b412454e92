package cli

import (
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// RootCmd represents the base command when called without any subcommands
var RootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "pageprof",
		Short:   "Profile paginated, token-protected HTTP APIs",
		Version: version,
		Long: `pageprof pages through list endpoints of a bearer-token API one call at a
time, refreshing the token on 401 and backing off on errors, then reports
latency per status code and projects how long larger result sets would take.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			// If no subcommand is provided, print help
			cmd.Help()
		},
	}

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute runs the root command. Cobra prints the error.
func Execute() error {
	return RootCmd.Execute()
}
