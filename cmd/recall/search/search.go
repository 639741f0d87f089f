// Package searchcmder provides the search command for querying memories on a
// running recall server.
package searchcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/cmd/recall/clientflags"
	"github.com/papercomputeco/recall/pkg/cliui"
	"github.com/papercomputeco/recall/pkg/memory/engine"
	"github.com/papercomputeco/recall/pkg/memory/temporal"
)

type searchCommander struct {
	client clientflags.Options

	tags      []string
	matchAll  bool
	people    []string
	topic     string
	when      string
	limit     int
	threshold float64
	jsonOut   bool
}

const searchShortDesc string = "Search memories"

func searchLongDesc() string {
	return `Search memories on a running recall server.

With a query, memories are ranked by semantic similarity. Without one, the
newest memories matching the filters are listed. Filters combine with AND.

Time expressions for --when:
  ` + strings.Join(temporal.Keywords(), ", ") + `

Examples:
  recall search "coffee with friends"
  recall search --tags work,meeting --match-all --when this_week
  recall search "travel plans" --people sam --limit 5 --threshold 0.6
  recall search --topic health --json`
}

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: searchShortDesc,
		Long:  searchLongDesc(),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.client.Resolve(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			req := cmder.request(strings.Join(args, " "))
			if cmd.Flags().Changed("threshold") {
				req.Threshold = &cmder.threshold
			}
			return cmder.run(cmd.Context(), cmd.OutOrStdout(), req)
		},
	}

	cmder.client.Register(cmd)
	cmd.Flags().StringSliceVarP(&cmder.tags, "tags", "t", nil, "Only memories with these tags (comma-separated)")
	cmd.Flags().BoolVar(&cmder.matchAll, "match-all", false, "Require every tag instead of any")
	cmd.Flags().StringSliceVar(&cmder.people, "people", nil, "Only memories mentioning these people (comma-separated)")
	cmd.Flags().StringVar(&cmder.topic, "topic", "", "Only memories in this topic")
	cmd.Flags().StringVarP(&cmder.when, "when", "w", "", "Time expression (e.g. weekends, last_week)")
	cmd.Flags().IntVarP(&cmder.limit, "limit", "k", 0, "Number of results to return (default: server setting)")
	cmd.Flags().Float64Var(&cmder.threshold, "threshold", 0, "Minimum similarity in [0, 1]")
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print the raw JSON response")

	return cmd
}

func (c *searchCommander) request(query string) engine.SearchRequest {
	return engine.SearchRequest{
		Query:    query,
		Tags:     c.tags,
		MatchAll: c.matchAll,
		People:   c.people,
		Topic:    c.topic,
		Temporal: c.when,
		Limit:    c.limit,
	}
}

func (c *searchCommander) run(ctx context.Context, w io.Writer, req engine.SearchRequest) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cl, err := c.client.Client()
	if err != nil {
		return err
	}

	resp, err := cl.Search(ctx, req)
	if err != nil {
		return err
	}

	if c.jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	if req.Query != "" {
		fmt.Fprintf(w, "\n%s %s\n\n",
			cliui.HeaderStyle.Render("Memories matching:"),
			cliui.KeyStyle.Render(fmt.Sprintf("%q", req.Query)),
		)
	} else {
		fmt.Fprintf(w, "\n%s\n\n", cliui.HeaderStyle.Render("Newest memories:"))
	}

	cliui.WriteResults(w, resp)
	return nil
}
