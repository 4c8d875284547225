// Package refine rewrites prompt templates from human feedback on the
// drafts they produced.
package refine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Protocol-Lattice/inbox-agent/src/mail"
	"github.com/Protocol-Lattice/inbox-agent/src/models"
	"github.com/Protocol-Lattice/inbox-agent/src/prompt"
	"github.com/Protocol-Lattice/inbox-agent/src/templates"
	"github.com/Protocol-Lattice/inbox-agent/src/triage"
)

// ErrNoFeedback is returned for blank feedback; nothing is refined.
var ErrNoFeedback = errors.New("refine: feedback is empty")

// FeedbackEvent carries one piece of human feedback on a draft. Each event
// triggers at most one template write.
type FeedbackEvent struct {
	ID        string             `json:"id"`
	Category  triage.Category    `json:"category"`
	Previous  templates.Template `json:"previous"`
	Output    mail.Draft         `json:"output"`
	Feedback  string             `json:"feedback"`
	CreatedAt time.Time          `json:"created_at"`
}

// NewFeedbackEvent stamps an event with a fresh ID. c is the category the
// email was classified as; prev may be a fallback template of another
// category, and the rewrite is still stored under c.
func NewFeedbackEvent(c triage.Category, prev templates.Template, out mail.Draft, feedback string) FeedbackEvent {
	return FeedbackEvent{
		ID:        uuid.NewString(),
		Category:  c,
		Previous:  prev,
		Output:    out,
		Feedback:  feedback,
		CreatedAt: time.Now(),
	}
}

// RejectedError means the model's rewrite failed the validation gate.
type RejectedError struct {
	Category triage.Category
	Body     string
	Err      error
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("refine: rewrite for %s rejected: %v", e.Category, e.Err)
}

func (e *RejectedError) Unwrap() error { return e.Err }

// TemplateWriter is the store surface the refiner writes through.
type TemplateWriter interface {
	Put(ctx context.Context, c triage.Category, body string) (templates.Template, error)
}

// JournalEntry records one refinement attempt.
type JournalEntry struct {
	EventID  string          `json:"event_id"`
	Category triage.Category `json:"category"`
	Feedback string          `json:"feedback"`
	Accepted bool            `json:"accepted"`
	Revision int             `json:"revision,omitempty"`
	Error    string          `json:"error,omitempty"`
	At       time.Time       `json:"at"`
}

// Refiner asks a model for an improved template and stores it.
type Refiner struct {
	store     TemplateWriter
	gen       models.TextGenerator
	signature string
	validate  bool
	log       zerolog.Logger

	mu      sync.Mutex
	journal []JournalEntry
}

type Option func(*Refiner)

func WithSignature(sig string) Option { return func(r *Refiner) { r.signature = sig } }

// WithValidation toggles the dry-run gate applied before a rewrite is stored.
func WithValidation(on bool) Option { return func(r *Refiner) { r.validate = on } }

func WithLogger(l zerolog.Logger) Option { return func(r *Refiner) { r.log = l } }

func New(store TemplateWriter, gen models.TextGenerator, opts ...Option) *Refiner {
	r := &Refiner{
		store:     store,
		gen:       gen,
		signature: templates.DefaultSignature,
		validate:  true,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Refine produces a new template for ev.Category and replaces the stored
// one. On any failure the store is left untouched and the error returned.
func (r *Refiner) Refine(ctx context.Context, ev FeedbackEvent) (templates.Template, error) {
	if ev.Category == "" {
		ev.Category = ev.Previous.Category
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	logger := r.log.With().Str("event", ev.ID).Str("category", ev.Category.String()).Logger()

	tpl, err := r.refine(ctx, ev, logger)
	entry := JournalEntry{
		EventID:  ev.ID,
		Category: ev.Category,
		Feedback: ev.Feedback,
		Accepted: err == nil,
		Revision: tpl.Revision,
		At:       time.Now(),
	}
	if err != nil {
		entry.Error = err.Error()
		logger.Warn().Err(err).Msg("template refinement failed")
	} else {
		logger.Info().Int("revision", tpl.Revision).Msg("template refined")
	}
	r.mu.Lock()
	r.journal = append(r.journal, entry)
	r.mu.Unlock()
	return tpl, err
}

func (r *Refiner) refine(ctx context.Context, ev FeedbackEvent, logger zerolog.Logger) (templates.Template, error) {
	if strings.TrimSpace(ev.Feedback) == "" {
		return templates.Template{}, ErrNoFeedback
	}

	meta := MetaPrompt(ev, r.signature)
	logger.Debug().Int("chars", len(meta)).Msg("requesting template rewrite")
	out, err := r.gen.Generate(ctx, meta)
	if err != nil {
		return templates.Template{}, err
	}

	body := cleanResponse(out)
	if body == "" {
		return templates.Template{}, &RejectedError{Category: ev.Category, Err: models.ErrEmptyResponse}
	}
	if r.validate {
		family := templates.Family(ev.Category)
		if err := prompt.Validate(body, family, family); err != nil {
			return templates.Template{}, &RejectedError{Category: ev.Category, Body: body, Err: err}
		}
	}
	return r.store.Put(ctx, ev.Category, body)
}

// Journal returns a copy of every attempt so far, oldest first.
func (r *Refiner) Journal() []JournalEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]JournalEntry(nil), r.journal...)
}

// cleanResponse trims whitespace and a surrounding Markdown code fence.
func cleanResponse(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
