// Package deletecmder provides the delete command for removing memories.
package deletecmder

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/cmd/recall/clientflags"
	"github.com/papercomputeco/recall/pkg/client"
	"github.com/papercomputeco/recall/pkg/cliui"
)

type deleteCommander struct {
	client clientflags.Options
}

const deleteLongDesc string = `Delete memories from a running recall server.

Only memories owned by the given user and project can be deleted.

Examples:
  recall delete 3f1c2a9e-8d4b-4c8e-9b61-1f5e1a7c0d42
  recall delete $(recall search --tags scratch --json | jq -r '.results[].id')`

const deleteShortDesc string = "Delete memories"

func NewDeleteCmd() *cobra.Command {
	cmder := &deleteCommander{}

	cmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: deleteShortDesc,
		Long:  deleteLongDesc,
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.client.Resolve(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd.OutOrStdout(), args)
		},
	}

	cmder.client.Register(cmd)

	return cmd
}

func (c *deleteCommander) run(ctx context.Context, w io.Writer, ids []string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cl, err := c.client.Client()
	if err != nil {
		return err
	}

	failed := 0
	for _, id := range ids {
		err := cl.Delete(ctx, id)
		switch {
		case err == nil:
			fmt.Fprintf(w, "  %s Deleted %s\n", cliui.SuccessMark, cliui.KeyStyle.Render(id))
		case client.IsNotFound(err):
			failed++
			fmt.Fprintf(w, "  %s %s %s\n", cliui.FailMark, cliui.KeyStyle.Render(id), cliui.DimStyle.Render("not found"))
		default:
			return fmt.Errorf("deleting memory %s: %w", id, err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d memories not found", failed, len(ids))
	}
	return nil
}
