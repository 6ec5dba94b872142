// Package configcmder provides the config command for managing persistent
// campus configuration stored in the .campus/ directory.
package configcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/campusai/campus/pkg/cliui"
	"github.com/campusai/campus/pkg/config"
)

const configLongDesc string = `Manage persistent campus configuration.

Configuration is stored as config.toml in the .campus/ directory and provides
default values for command flags. CLI flags and CAMPUS_* environment
variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  gateway.listen, gateway.provider, gateway.upstream, gateway.model,
  gateway.default_persona, gateway.personas_file,
  gateway.rate_limit_rps, gateway.rate_limit_burst,
  auth.jwt_secret, auth.issuer, auth.token_ttl,
  storage.sqlite_path, storage.postgres_dsn,
  eventstream.kafka_brokers, eventstream.kafka_topic,
  client.gateway_target, client.token

Use subcommands to get, set, or list configuration values:
  campus config set <key> <value>    Set a configuration value
  campus config get <key>            Get a configuration value
  campus config list                 List all configuration values

Examples:
  campus config set gateway.model gpt-4o-mini
  campus config set storage.sqlite_path ~/.campus/news.db
  campus config get gateway.default_persona
  campus config list`

const configShortDesc string = "Manage persistent campus configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func checkKey(key string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}
	return nil
}

func printTarget(cmd *cobra.Command, cfger *config.Configer) {
	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}
