package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/throttle/internal/config"
	"github.com/SmitUplenchwar2687/throttle/internal/recorder"
	"github.com/SmitUplenchwar2687/throttle/pkg/generate"
)

func newGenerateCmd(root *rootOptions) *cobra.Command {
	var (
		output string
		cfgOut string
		opts   = generate.DefaultOptions()
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate sample traffic files and config",
		Long: `Generates sample data for testing and experimentation.

Use "generate traffic" to create a sample traffic JSON file.
Use "generate config" to create an example YAML or JSON config file.`,
	}

	trafficCmd := &cobra.Command{
		Use:   "traffic",
		Short: "Generate a sample traffic JSON file",
		Long: `Creates a traffic file with configurable parameters.

Patterns:
  steady    Evenly distributed requests
  burst     Concentrated bursts with quiet periods
  ramp      Gradually increasing request rate`,
		Example: `  throttle generate traffic --output traffic.json --count 100 --keys 5
  throttle generate traffic --output burst.json --count 200 --pattern burst --duration 10m --max-units 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := generate.GenerateTraffic(&opts)
			if err != nil {
				return err
			}
			if err := recorder.WriteFile(output, records); err != nil {
				return err
			}
			root.logger.Debug("generated traffic", "records", len(records), "seed", opts.Seed)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Generated %d traffic records to %s\n", len(records), output)
			fmt.Fprintf(out, "  Keys:     %d\n", opts.Keys)
			fmt.Fprintf(out, "  Duration: %s\n", opts.Duration)
			fmt.Fprintf(out, "  Pattern:  %s\n", opts.Pattern)
			return nil
		},
	}

	trafficCmd.Flags().StringVar(&output, "output", "traffic.json", "output file path")
	trafficCmd.Flags().IntVar(&opts.Count, "count", opts.Count, "number of records to generate")
	trafficCmd.Flags().IntVar(&opts.Keys, "keys", opts.Keys, "number of distinct user keys")
	trafficCmd.Flags().DurationVar(&opts.Duration, "duration", opts.Duration, "time span for generated traffic")
	trafficCmd.Flags().StringVar(&opts.Pattern, "pattern", opts.Pattern, "traffic pattern (steady, burst, ramp)")
	trafficCmd.Flags().Uint32Var(&opts.MaxUnits, "max-units", opts.MaxUnits, "each record asks for 1..max-units units")
	trafficCmd.Flags().StringVar(&opts.KeyPrefix, "key-prefix", "user-", "prefix for generated keys")
	trafficCmd.Flags().Int64Var(&opts.Seed, "seed", 0, "random seed (0 = time based)")

	configCmd := &cobra.Command{
		Use:     "config",
		Short:   "Generate an example config file",
		Example: `  throttle generate config --output throttle.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteExample(cfgOut); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated example config at %s\n", cfgOut)
			return nil
		},
	}

	configCmd.Flags().StringVar(&cfgOut, "output", "throttle.yaml", "output file path (.yaml, .yml or .json)")

	cmd.AddCommand(trafficCmd, configCmd)
	return cmd
}
