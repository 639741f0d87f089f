// Package recallcmder is the root recall command.
package recallcmder

import (
	"github.com/spf13/cobra"

	addcmder "github.com/papercomputeco/recall/cmd/recall/add"
	configcmder "github.com/papercomputeco/recall/cmd/recall/config"
	deletecmder "github.com/papercomputeco/recall/cmd/recall/delete"
	getcmder "github.com/papercomputeco/recall/cmd/recall/get"
	initcmder "github.com/papercomputeco/recall/cmd/recall/init"
	searchcmder "github.com/papercomputeco/recall/cmd/recall/search"
	servecmder "github.com/papercomputeco/recall/cmd/recall/serve"
	versioncmder "github.com/papercomputeco/recall/cmd/version"
)

const recallLongDesc string = `Recall is a memory store for agents and people.

Memories are short pieces of text with tags, people and a topic, searchable
by meaning, metadata and time ("weekends", "last_week", "morning").

Run the server, then add and search memories:
  recall serve
  recall add "Had coffee with Sam" --tags coffee --people sam -u alice
  recall search "coffee" --when this_week -u alice`

const recallShortDesc string = "Recall - memory for agents"

func NewRecallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "recall",
		Short:        recallShortDesc,
		Long:         recallLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .recall/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(addcmder.NewAddCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(getcmder.NewGetCmd())
	cmd.AddCommand(deletecmder.NewDeleteCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
