// Package configcmder provides the config command for managing persistent
// recall configuration stored in the .recall/ directory.
package configcmder

import (
	"strings"

	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent recall configuration.

Configuration is stored as config.toml in the .recall/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  storage.sqlite_path, storage.postgres_dsn,
  vector_store.provider, vector_store.target, vector_store.collection, vector_store.api_key,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions, embedding.api_key,
  dedup.enabled, dedup.threshold, dedup.policy,
  metadata.max_items, metadata.max_item_length,
  search.default_limit, api.listen,
  events.provider, events.brokers, events.topic,
  client.api_target, client.user_id, client.project_id

Use subcommands to get, set, or list configuration values:
  recall config set <key> <value>    Set a configuration value
  recall config get <key>            Get a configuration value
  recall config list                 List all configuration values

Examples:
  recall config set client.user_id alice
  recall config set vector_store.provider qdrant
  recall config set dedup.policy merge
  recall config get embedding.model
  recall config list`

const configShortDesc string = "Manage persistent recall configuration"

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

// display masks secret values so "config get" and "config list" never echo
// credentials to the terminal.
func display(key, value string) string {
	if value == "" || !strings.HasSuffix(key, ".api_key") {
		return value
	}
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}
