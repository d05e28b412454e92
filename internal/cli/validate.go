package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/pageprof/internal/config"
	"github.com/wesleyorama2/pageprof/internal/output"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <scenario-file>",
		Short: "Check a scenario file without calling the API",
		Long: `Validate loads a YAML or JSON scenario file, applies defaults and reports
every problem found. Connection settings are not required since they are
usually supplied through the environment at run time.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(args[0])
			if err != nil {
				return err
			}
			cfg.ApplyDefaults()
			if err := cfg.ValidateFile(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s is valid (%d scenarios, page size %d, retry limit %d)\n",
				output.SuccessIcon(true), args[0], len(cfg.Scenarios), cfg.PageSize, cfg.RetryLimit)
			for _, sc := range cfg.ProfilerScenarios() {
				fmt.Fprintf(out, "  %s: /%s\n", sc.Name, sc.Path)
			}
			return nil
		},
	}
}
