package pipeline

import (
	"context"
	"strings"

	"github.com/Protocol-Lattice/inbox-agent/src/mail"
	"github.com/Protocol-Lattice/inbox-agent/src/templates"
	"github.com/Protocol-Lattice/inbox-agent/src/triage"
)

// Item is one inbound email.
type Item struct {
	ID       string `json:"id,omitempty" yaml:"id,omitempty"`
	Text     string `json:"text" yaml:"text" validate:"required"`
	Sender   string `json:"sender" yaml:"sender" validate:"required"`
	Feedback string `json:"feedback,omitempty" yaml:"feedback,omitempty"`
}

// State is a step of the per-item state machine.
type State string

const (
	StateReceived   State = "RECEIVED"
	StateClassified State = "CLASSIFIED"
	StateIgnored    State = "IGNORED"
	StateRendering  State = "RENDERING"
	StateRendered   State = "RENDERED"
	StateGenerating State = "GENERATING"
	StateGenerated  State = "GENERATED"
	StateRefining   State = "REFINING"
	StateDone       State = "DONE"
	StateFailed     State = "FAILED"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateIgnored || s == StateDone || s == StateFailed
}

// Outcome is everything that happened to one item.
type Outcome struct {
	Item           Item
	Trail          []State
	Classification triage.Result
	Template       templates.Template
	Prompt         string
	Draft          mail.Draft
	Feedback       string
	Refined        *templates.Template
	SentID         string
	SendErr        error
	Err            error
}

// State returns the last state reached.
func (o *Outcome) State() State {
	if len(o.Trail) == 0 {
		return ""
	}
	return o.Trail[len(o.Trail)-1]
}

func (o *Outcome) enter(s State) { o.Trail = append(o.Trail, s) }

func (o *Outcome) fail(err error) {
	o.Err = err
	o.enter(StateFailed)
}

// Visited reports whether the item passed through s.
func (o *Outcome) Visited(s State) bool {
	for _, v := range o.Trail {
		if v == s {
			return true
		}
	}
	return false
}

// FeedbackSource supplies human feedback on a generated draft. An empty
// string means no feedback.
type FeedbackSource interface {
	Feedback(ctx context.Context, item Item, draft mail.Draft) (string, error)
}

// Interactive is implemented by sources that talk to a terminal; the
// pipeline runs them on a single worker.
type Interactive interface {
	Interactive() bool
}

// NoFeedback never asks.
type NoFeedback struct{}

func (NoFeedback) Feedback(context.Context, Item, mail.Draft) (string, error) { return "", nil }

// ScriptedFeedback replays the feedback carried on each item.
type ScriptedFeedback struct{}

func (ScriptedFeedback) Feedback(_ context.Context, item Item, _ mail.Draft) (string, error) {
	return strings.TrimSpace(item.Feedback), nil
}

// FeedbackFunc adapts a function to FeedbackSource.
type FeedbackFunc func(ctx context.Context, item Item, draft mail.Draft) (string, error)

func (f FeedbackFunc) Feedback(ctx context.Context, item Item, draft mail.Draft) (string, error) {
	return f(ctx, item, draft)
}

// Reporter observes progress. Calls may come from several workers at once.
type Reporter interface {
	Generated(item Item, draft mail.Draft)
	Finished(o Outcome)
}

type nopReporter struct{}

func (nopReporter) Generated(Item, mail.Draft) {}
func (nopReporter) Finished(Outcome)           {}
