package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/campusai/campus/pkg/cliui"
	"github.com/campusai/campus/pkg/config"
)

const setLongDesc string = `Set a configuration value.

Sets the given key to the provided value in the config.toml file stored in
the .campus/ directory. Numeric and duration keys are validated before the
file is written.

Examples:
  campus config set gateway.rate_limit_rps 0.5
  campus config set auth.token_ttl 12h
  campus config set eventstream.kafka_brokers kafka-1:9092,kafka-2:9092`

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "set <key> <value>",
		Short:             "Set a configuration value",
		Long:              setLongDesc,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runSet(cmd, args[0], args[1], configDir)
		},
	}
}

func runSet(cmd *cobra.Command, key, value, configDir string) error {
	if err := checkKey(key); err != nil {
		return err
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	printTarget(cmd, cfger)

	if err := cfger.SetConfigValue(key, value); err != nil {
		return err
	}

	shown := value
	if config.IsSecretKey(key) {
		shown = config.RedactedValue
	}
	fmt.Fprintf(cmd.OutOrStdout(), "  %s Set %s = %s\n\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(key),
		cliui.ValueStyle.Render(shown),
	)
	return nil
}
