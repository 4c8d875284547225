package mail

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#2196F3"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#2a3850")).Padding(0, 1)
)

// Format renders a draft as a bordered card for terminal output.
func Format(d Draft) string {
	var b strings.Builder
	if d.To != "" {
		b.WriteString(labelStyle.Render("To: ") + d.To + "\n")
	}
	b.WriteString(labelStyle.Render("Subject: ") + headerStyle.Render(d.Subject) + "\n\n")
	b.WriteString(d.Body)
	return boxStyle.Render(b.String())
}

// ConsoleOutbox "sends" by printing the draft.
type ConsoleOutbox struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsoleOutbox(w io.Writer) *ConsoleOutbox {
	return &ConsoleOutbox{w: w}
}

func (o *ConsoleOutbox) Send(_ context.Context, d Draft) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := uuid.NewString()
	if _, err := fmt.Fprintf(o.w, "%s\n%s\n", Format(d), labelStyle.Render("sent "+id)); err != nil {
		return "", err
	}
	return id, nil
}

var _ Outbox = (*ConsoleOutbox)(nil)
