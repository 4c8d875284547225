package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/Protocol-Lattice/inbox-agent/src/mail"
	"github.com/Protocol-Lattice/inbox-agent/src/pipeline"
	"github.com/Protocol-Lattice/inbox-agent/src/refine"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA")).Background(lipgloss.Color("#7D56F4")).Padding(0, 1)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
)

// reporter prints drafts as they are generated and one status line per
// finished item.
type reporter struct {
	mu  sync.Mutex
	out io.Writer
}

func newReporter(out io.Writer) *reporter {
	return &reporter{out: out}
}

func (r *reporter) Generated(item pipeline.Item, d mail.Draft) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "\n%s %s\n%s\n", titleStyle.Render("Draft"), mutedStyle.Render("reply to "+item.Sender), mail.Format(d))
}

func (r *reporter) Finished(o pipeline.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, statusLine(o))
}

func statusLine(o pipeline.Outcome) string {
	who := o.Item.Sender
	category := string(o.Classification.Category)
	switch o.State() {
	case pipeline.StateIgnored:
		return mutedStyle.Render(fmt.Sprintf("- %s ignored (%s)", who, category))
	case pipeline.StateFailed:
		return errorStyle.Render(fmt.Sprintf("x %s failed: %v", who, o.Err))
	}

	line := fmt.Sprintf("✓ %s %s", who, category)
	if o.Refined != nil {
		line += fmt.Sprintf(", template revised to r%d", o.Refined.Revision)
	}
	if o.SentID != "" {
		line += ", sent " + o.SentID
	}
	if o.SendErr != nil {
		return warningStyle.Render(line + fmt.Sprintf(", send failed: %v", o.SendErr))
	}
	return successStyle.Render(line)
}

// writeSummary prints per-state counts and the refinement journal.
func writeSummary(w io.Writer, outcomes []pipeline.Outcome, journal []refine.JournalEntry) {
	counts := pipeline.Summary(outcomes)
	states := make([]string, 0, len(counts))
	for s := range counts {
		states = append(states, string(s))
	}
	sort.Strings(states)

	parts := make([]string, 0, len(states))
	for _, s := range states {
		parts = append(parts, fmt.Sprintf("%s=%d", strings.ToLower(s), counts[pipeline.State(s)]))
	}
	fmt.Fprintf(w, "\n%s %d items: %s\n", titleStyle.Render("Summary"), len(outcomes), strings.Join(parts, " "))

	for _, e := range journal {
		if e.Accepted {
			fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("  %s template updated to r%d", e.Category, e.Revision)))
			continue
		}
		fmt.Fprintln(w, warningStyle.Render(fmt.Sprintf("  %s refinement rejected: %s", e.Category, e.Error)))
	}
}
