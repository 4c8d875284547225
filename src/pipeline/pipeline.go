// Package pipeline drives emails through classification, rendering,
// generation and optional feedback-driven refinement.
package pipeline

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Protocol-Lattice/inbox-agent/src/concurrent"
	"github.com/Protocol-Lattice/inbox-agent/src/mail"
	"github.com/Protocol-Lattice/inbox-agent/src/models"
	"github.com/Protocol-Lattice/inbox-agent/src/prompt"
	"github.com/Protocol-Lattice/inbox-agent/src/refine"
	"github.com/Protocol-Lattice/inbox-agent/src/templates"
	"github.com/Protocol-Lattice/inbox-agent/src/triage"
)

// Classifier maps raw text to a category.
type Classifier interface {
	Classify(text, sender string) triage.Result
}

// TemplateSource hands out the current template for a category.
type TemplateSource interface {
	Get(c triage.Category) templates.Template
}

// Refiner rewrites a template from feedback.
type Refiner interface {
	Refine(ctx context.Context, ev refine.FeedbackEvent) (templates.Template, error)
}

// Pipeline holds the collaborators shared by every item. It is safe for
// concurrent use when its collaborators are.
type Pipeline struct {
	classifier Classifier
	templates  TemplateSource
	gen        models.TextGenerator
	refiner    Refiner
	feedback   FeedbackSource
	reporter   Reporter
	outbox     mail.Outbox
	workers    int
	log        zerolog.Logger
}

type Option func(*Pipeline)

// WithRefiner enables refinement; without one feedback is collected but
// never applied.
func WithRefiner(r Refiner) Option { return func(p *Pipeline) { p.refiner = r } }

func WithFeedback(f FeedbackSource) Option { return func(p *Pipeline) { p.feedback = f } }

func WithReporter(r Reporter) Option { return func(p *Pipeline) { p.reporter = r } }

// WithOutbox delivers each finished draft.
func WithOutbox(o mail.Outbox) Option { return func(p *Pipeline) { p.outbox = o } }

// WithWorkers sets how many items Run processes at once.
func WithWorkers(n int) Option { return func(p *Pipeline) { p.workers = n } }

func WithLogger(l zerolog.Logger) Option { return func(p *Pipeline) { p.log = l } }

func New(c Classifier, t TemplateSource, gen models.TextGenerator, opts ...Option) *Pipeline {
	p := &Pipeline{
		classifier: c,
		templates:  t,
		gen:        gen,
		feedback:   NoFeedback{},
		reporter:   nopReporter{},
		workers:    1,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Workers reports the effective concurrency of Run.
func (p *Pipeline) Workers() int {
	if i, ok := p.feedback.(Interactive); ok && i.Interactive() {
		return 1
	}
	if p.workers < 1 {
		return 1
	}
	return p.workers
}

// Run processes items and returns one outcome per item in input order.
// Per-item failures are reported in the outcomes, never returned.
func (p *Pipeline) Run(ctx context.Context, items []Item) []Outcome {
	out := make([]Outcome, len(items))
	_ = concurrent.ForEach(ctx, len(items), p.Workers(), func(ctx context.Context, i int) error {
		out[i] = p.Process(ctx, items[i])
		return nil
	})
	for i := range out {
		if len(out[i].Trail) == 0 {
			// never started: the run was cancelled first
			out[i] = Outcome{Item: items[i], Trail: []State{StateReceived}}
			out[i].fail(ctx.Err())
			p.reporter.Finished(out[i])
		}
	}
	return out
}

// Process takes one item to a terminal state.
func (p *Pipeline) Process(ctx context.Context, item Item) Outcome {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	o := Outcome{Item: item}
	o.enter(StateReceived)
	p.process(ctx, &o)
	p.reporter.Finished(o)

	ev := p.log.Info()
	if o.Err != nil {
		ev = p.log.Warn().Err(o.Err)
	}
	ev.Str("item", item.ID).
		Str("sender", item.Sender).
		Str("category", o.Classification.Category.String()).
		Str("state", string(o.State())).
		Msg("item processed")
	return o
}

func (p *Pipeline) process(ctx context.Context, o *Outcome) {
	item := o.Item
	logger := p.log.With().Str("item", item.ID).Logger()

	o.Classification = p.classifier.Classify(item.Text, item.Sender)
	o.enter(StateClassified)
	if o.Classification.Ignore {
		o.enter(StateIgnored)
		return
	}

	o.enter(StateRendering)
	o.Template = p.templates.Get(o.Classification.Category)
	rendered, err := prompt.Render(o.Template, WriterValues(item, o.Classification))
	if err != nil {
		o.fail(err)
		return
	}
	o.Prompt = rendered
	o.enter(StateRendered)

	o.enter(StateGenerating)
	text, err := p.gen.Generate(ctx, rendered)
	if err != nil {
		o.Draft = failedDraft(item, o.Classification, err)
		p.reporter.Generated(item, o.Draft)
		o.fail(err)
		return
	}
	o.Draft = mail.Draft{To: item.Sender, Subject: Subject(o.Classification.Category), Body: text}
	o.enter(StateGenerated)
	p.reporter.Generated(item, o.Draft)

	fb, err := p.feedback.Feedback(ctx, item, o.Draft)
	if err != nil {
		o.fail(err)
		return
	}
	o.Feedback = fb
	if fb != "" && p.refiner != nil {
		o.enter(StateRefining)
		tpl, err := p.refiner.Refine(ctx, refine.NewFeedbackEvent(o.Classification.Category, o.Template, o.Draft, fb))
		if err != nil {
			o.fail(err)
			return
		}
		o.Refined = &tpl
	}
	o.enter(StateDone)

	if p.outbox != nil {
		id, err := p.outbox.Send(ctx, o.Draft)
		if err != nil {
			logger.Warn().Err(err).Msg("draft delivery failed")
			o.SendErr = err
			return
		}
		o.SentID = id
	}
}

// Summary counts outcomes by terminal state.
func Summary(outcomes []Outcome) map[State]int {
	counts := make(map[State]int, 3)
	for i := range outcomes {
		counts[outcomes[i].State()]++
	}
	return counts
}

// IsGenerationFailure reports whether err came from the model call.
func IsGenerationFailure(err error) bool {
	var gerr *models.GenerationError
	return errors.As(err, &gerr)
}
