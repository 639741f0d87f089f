// Package getcmder provides the get command for showing one memory.
package getcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/recall/cmd/recall/clientflags"
	"github.com/papercomputeco/recall/pkg/cliui"
)

type getCommander struct {
	client clientflags.Options

	raw     bool
	jsonOut bool
}

const getLongDesc string = `Show a memory from a running recall server.

On a terminal the memory content is rendered as markdown. Use --raw to print
it as stored, or --json for the full API response.

Examples:
  recall get 3f1c2a9e-8d4b-4c8e-9b61-1f5e1a7c0d42
  recall get 3f1c2a9e-8d4b-4c8e-9b61-1f5e1a7c0d42 --json`

const getShortDesc string = "Show a memory"

func NewGetCmd() *cobra.Command {
	cmder := &getCommander{}

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: getShortDesc,
		Long:  getLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.client.Resolve(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), args[0])
		},
	}

	cmder.client.Register(cmd)
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print content without markdown rendering")
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print the raw JSON response")

	return cmd
}

func (c *getCommander) run(ctx context.Context, id string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cl, err := c.client.Client()
	if err != nil {
		return err
	}

	result, err := cl.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("getting memory %s: %w", id, err)
	}

	if c.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	markdown := !c.raw && term.IsTerminal(int(os.Stdout.Fd()))
	cliui.WriteMemory(os.Stdout, result, markdown)
	return nil
}
