package main

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"

	"github.com/Protocol-Lattice/inbox-agent/src/mail"
	"github.com/Protocol-Lattice/inbox-agent/src/pipeline"
)

// promptFeedback asks the operator about each draft. The draft itself has
// already been printed by the reporter.
type promptFeedback struct {
	in         io.Reader
	out        io.Writer
	accessible bool
}

func newPromptFeedback(in io.Reader, out io.Writer) *promptFeedback {
	return &promptFeedback{in: in, out: out, accessible: !isTerminal(in)}
}

func (p *promptFeedback) Interactive() bool { return true }

func (p *promptFeedback) Feedback(ctx context.Context, item pipeline.Item, _ mail.Draft) (string, error) {
	var feedback string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Feedback on the reply to "+item.Sender).
				Description("Leave empty to skip improving this template.").
				Value(&feedback),
		),
	).
		WithInput(p.in).
		WithOutput(p.out).
		WithAccessible(p.accessible)

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(feedback), nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
