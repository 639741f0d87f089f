// Package addcmder provides the add command for storing a memory.
package addcmder

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/recall/cmd/recall/clientflags"
	"github.com/papercomputeco/recall/pkg/cliui"
	"github.com/papercomputeco/recall/pkg/memory/dedup"
	"github.com/papercomputeco/recall/pkg/memory/engine"
)

type addCommander struct {
	client clientflags.Options

	tags      []string
	people    []string
	topic     string
	policy    string
	threshold float64
	force     bool
}

const addLongDesc string = `Store a memory on a running recall server.

The memory text is taken from the arguments, or read from stdin when no
arguments are given and stdin is not a terminal. Near-duplicates of an
existing memory are skipped unless --policy says otherwise.

Examples:
  recall add "Had coffee with Sam at the harbour" --tags coffee --people sam
  recall add "Sprint review went well" --topic work --policy merge
  echo "Remember to renew the passport" | recall add --tags todo`

const addShortDesc string = "Store a memory"

func NewAddCmd() *cobra.Command {
	cmder := &addCommander{}

	cmd := &cobra.Command{
		Use:   "add [content]",
		Short: addShortDesc,
		Long:  addLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.client.Resolve(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readContent(args, os.Stdin)
			if err != nil {
				return err
			}
			return cmder.run(cmd.Context(), cmd.OutOrStdout(), content)
		},
	}

	cmder.client.Register(cmd)
	cmd.Flags().StringSliceVarP(&cmder.tags, "tags", "t", nil, "Tags for the memory (comma-separated)")
	cmd.Flags().StringSliceVar(&cmder.people, "people", nil, "People the memory mentions (comma-separated)")
	cmd.Flags().StringVar(&cmder.topic, "topic", "", "Topic category")
	cmd.Flags().StringVar(&cmder.policy, "policy", "", "Duplicate policy for this memory (skip, merge, add)")
	cmd.Flags().Float64Var(&cmder.threshold, "threshold", 0, "Duplicate similarity threshold in [0, 1] (default: server setting)")
	cmd.Flags().BoolVarP(&cmder.force, "force", "f", false, "Skip the duplicate check")

	return cmd
}

func (c *addCommander) run(ctx context.Context, w io.Writer, content string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if c.policy != "" {
		if _, err := dedup.ParsePolicy(c.policy); err != nil {
			return err
		}
	}

	cl, err := c.client.Client()
	if err != nil {
		return err
	}

	var result *engine.AddResult
	err = cliui.Step(w, "Adding memory", func() error {
		var err error
		result, err = cl.Add(ctx, engine.AddRequest{
			Content:            content,
			Tags:               c.tags,
			People:             c.people,
			Topic:              c.topic,
			SkipDuplicateCheck: c.force,
			Policy:             dedup.Policy(c.policy),
			Threshold:          c.threshold,
		})
		return err
	})
	if err != nil {
		return err
	}

	switch result.Action {
	case dedup.ActionSkipped:
		fmt.Fprintf(w, "  %s %s %s\n", cliui.DimStyle.Render("duplicate of"),
			cliui.KeyStyle.Render(result.ID), similarity(result))
	case dedup.ActionMerged:
		fmt.Fprintf(w, "  %s %s %s\n", cliui.DimStyle.Render("merged into"),
			cliui.KeyStyle.Render(result.ID), similarity(result))
	default:
		fmt.Fprintf(w, "  %s %s\n", cliui.DimStyle.Render("id"), cliui.KeyStyle.Render(result.ID))
	}
	return nil
}

func similarity(r *engine.AddResult) string {
	if r.Similarity == nil {
		return ""
	}
	return cliui.DimStyle.Render(fmt.Sprintf("(similarity %.3f)", *r.Similarity))
}

// readContent joins args, or reads piped stdin when there are none.
func readContent(args []string, stdin *os.File) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	if term.IsTerminal(int(stdin.Fd())) {
		return "", fmt.Errorf("no memory content: pass it as an argument or pipe it on stdin")
	}

	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}

	content := strings.TrimSpace(string(b))
	if content == "" {
		return "", fmt.Errorf("no memory content on stdin")
	}
	return content, nil
}
