// Package cliui provides reusable terminal UI helpers (spinners, step
// indicators, memory rendering and markdown) for recall CLI commands.
package cliui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/papercomputeco/recall/pkg/memory/engine"
	"github.com/papercomputeco/recall/pkg/utils"
)

var (
	SuccessMark  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	StepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	KeyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	ValueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	DimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	HeaderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))

	rankStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	scoreStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	idStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	tagStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
	matchedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
)

var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// previewLen caps the content shown per search result.
const previewLen = 100

// Step prints an animated spinner while fn runs, then replaces it with
// a ✓ or ✗ checkmark and elapsed time.
func Step(w io.Writer, msg string, fn func() error) error {
	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)

		frame := 0
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for {
			fmt.Fprintf(w, "\r  %s %s",
				spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]),
				msg,
			)

			select {
			case <-done:
				return
			case <-ticker.C:
				frame++
			}
		}
	}()

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	close(done)
	<-stopped

	// Clear the spinner line and print final result
	fmt.Fprintf(w, "\r  %s %s %s\n",
		Mark(err),
		msg,
		StepStyle.Render(fmt.Sprintf("(%s)", FormatDuration(elapsed))),
	)

	return err
}

// Mark returns a ✓ for nil errors or ✗ for non-nil errors.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// FormatDuration formats a duration for display (e.g. "12ms" or "3.2s").
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// RenderMarkdown renders markdown content for terminal display using glamour.
func RenderMarkdown(content string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return content, err
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content, err
	}

	return rendered, nil
}

// WriteResults prints a ranked list of search results.
func WriteResults(w io.Writer, resp *engine.SearchResponse) {
	if resp.TemporalIgnored {
		fmt.Fprintf(w, "  %s\n\n", DimStyle.Render("(time expression not recognized; showing all times)"))
	}

	if resp.Count == 0 {
		fmt.Fprintln(w, "No memories found.")
		return
	}

	for i, r := range resp.Results {
		score := DimStyle.Render("newest")
		if r.Score != nil {
			score = scoreStyle.Render(fmt.Sprintf("score: %.4f", *r.Score))
		}

		fmt.Fprintf(w, "  %s  %s  %s\n",
			rankStyle.Render(fmt.Sprintf("#%d", i+1)),
			score,
			idStyle.Render(r.ID),
		)

		preview := strings.ReplaceAll(r.Content, "\n", " ")
		fmt.Fprintf(w, "  %s\n", ValueStyle.Render(utils.Truncate(preview, previewLen)))

		if meta := metaLine(r); meta != "" {
			fmt.Fprintf(w, "  %s\n", meta)
		}
		fmt.Fprintln(w)
	}
}

// WriteMemory prints one memory in full. Content is rendered as markdown
// when markdown is set.
func WriteMemory(w io.Writer, r *engine.Result, markdown bool) {
	fmt.Fprintf(w, "\n  %s %s\n", KeyStyle.Render("id:"), idStyle.Render(r.ID))
	fmt.Fprintf(w, "  %s %s\n", KeyStyle.Render("created:"),
		DimStyle.Render(fmt.Sprintf("%s (%s, week %d)",
			r.CreatedAt.Format(time.RFC3339), r.Temporal.DayOfWeek, r.Temporal.WeekOfYear)))
	if !r.UpdatedAt.Equal(r.CreatedAt) {
		fmt.Fprintf(w, "  %s %s\n", KeyStyle.Render("updated:"), DimStyle.Render(r.UpdatedAt.Format(time.RFC3339)))
	}
	if meta := metaLine(*r); meta != "" {
		fmt.Fprintf(w, "  %s\n", meta)
	}
	fmt.Fprintln(w)

	if markdown {
		if rendered, err := RenderMarkdown(r.Content); err == nil {
			fmt.Fprint(w, rendered)
			return
		}
	}
	fmt.Fprintf(w, "  %s\n\n", r.Content)
}

func metaLine(r engine.Result) string {
	var parts []string
	if len(r.Tags) > 0 {
		parts = append(parts, "tags: "+highlight(r.Tags, r.Matched.Tags))
	}
	if len(r.PeopleMentioned) > 0 {
		parts = append(parts, "people: "+highlight(r.PeopleMentioned, r.Matched.People))
	}
	if r.TopicCategory != "" {
		parts = append(parts, "topic: "+tagStyle.Render(r.TopicCategory))
	}
	return strings.Join(parts, DimStyle.Render("  ·  "))
}

func highlight(values, matched []string) string {
	hit := make(map[string]bool, len(matched))
	for _, m := range matched {
		hit[m] = true
	}

	out := make([]string, 0, len(values))
	for _, v := range values {
		if hit[v] {
			out = append(out, matchedStyle.Render(v))
		} else {
			out = append(out, tagStyle.Render(v))
		}
	}
	return strings.Join(out, ", ")
}
