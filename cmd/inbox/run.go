package main

import (
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Protocol-Lattice/inbox-agent/src/models"
	"github.com/Protocol-Lattice/inbox-agent/src/pipeline"
	"github.com/Protocol-Lattice/inbox-agent/src/refine"
)

func newRunCommand(a *app) *cobra.Command {
	var (
		input string
		send  bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Triage a batch of emails and draft replies",
		Long: `Classifies every email, drafts a reply for the ones that need one and, when feedback
is given on a draft, rewrites that category's template for the rest of the run.

Without --input the built-in demo inbox is processed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := loadItems(input, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return a.run(cmd, items, send)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "YAML or JSON list of emails, - for stdin")
	cmd.Flags().Int("workers", 0, "items processed in parallel (interactive feedback always uses 1)")
	cmd.Flags().String("feedback", "", "feedback source: interactive, scripted or none")
	cmd.Flags().BoolVar(&send, "send", false, "deliver finished drafts through the configured outbox")

	return cmd
}

func (a *app) run(cmd *cobra.Command, items []pipeline.Item, send bool) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	agent, err := a.agent(ctx, a.cfg.Model, a.cfg.Cache.Size > 0)
	if err != nil {
		return err
	}
	refineAgent := agent
	if a.cfg.RefineModel != "" && a.cfg.RefineModel != a.cfg.Model {
		if refineAgent, err = a.agent(ctx, a.cfg.RefineModel, false); err != nil {
			return err
		}
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	refiner := refine.New(store, a.generator(refineAgent, "refine"),
		refine.WithSignature(a.cfg.Signature),
		refine.WithValidation(a.cfg.Refine.Validate),
		refine.WithLogger(a.log.With().Str("component", "refine").Logger()),
	)

	opts := []pipeline.Option{
		pipeline.WithRefiner(refiner),
		pipeline.WithFeedback(a.feedbackSource(cmd)),
		pipeline.WithReporter(newReporter(out)),
		pipeline.WithWorkers(a.cfg.Workers),
		pipeline.WithLogger(a.log.With().Str("component", "pipeline").Logger()),
	}
	if send {
		outbox, err := a.outbox(out)
		if err != nil {
			return err
		}
		opts = append(opts, pipeline.WithOutbox(outbox))
	}

	p := pipeline.New(a.classifier(), store, a.generator(agent, "draft"), opts...)
	a.log.Info().Int("items", len(items)).Int("workers", p.Workers()).Msg("processing inbox")

	outcomes := p.Run(ctx, items)
	writeSummary(out, outcomes, refiner.Journal())

	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

func (a *app) generator(agent models.Agent, op string) *models.Generator {
	return models.NewGenerator(agent,
		models.WithTimeout(a.cfg.GenerationTimeout),
		models.WithOp(op),
		models.WithLogger(a.log.With().Str("component", "models").Str("op", op).Logger()),
	)
}

func (a *app) feedbackSource(cmd *cobra.Command) pipeline.FeedbackSource {
	switch a.cfg.Feedback {
	case "none":
		return pipeline.NoFeedback{}
	case "scripted":
		return pipeline.ScriptedFeedback{}
	default:
		return newPromptFeedback(cmd.InOrStdin(), cmd.OutOrStdout())
	}
}

var itemValidator = validator.New()

// loadItems reads the batch from path. YAML is a superset of JSON so one
// decoder covers both.
func loadItems(path string, stdin io.Reader) ([]pipeline.Item, error) {
	if path == "" {
		return demoInbox(), nil
	}

	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	var items []pipeline.Item
	if err := yaml.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode input %s: %w", path, err)
	}
	for i, item := range items {
		if err := itemValidator.Struct(item); err != nil {
			return nil, fmt.Errorf("input item %d: %w", i, err)
		}
	}
	return items, nil
}

// demoInbox is the sample batch used when no input is given.
func demoInbox() []pipeline.Item {
	return []pipeline.Item{
		{Text: "Hi team, could you please provide some information about the upcoming company picnic?", Sender: "alice@example.com"},
		{Text: "Hello, I'd like to schedule a meeting with you to discuss the new project proposal. Are you free next week?", Sender: "bob@example.com"},
		{Text: "Limited time offer! Buy now and get rich quick!!! SPAM SPAM SPAM", Sender: "scammer@badsite.com"},
		{Text: "Thanks for the update! Appreciate it.", Sender: "charlie@example.com"},
		{
			Text:     "URGENT: Need your immediate feedback on the attached document. Action required by end of day!",
			Sender:   "manager@example.com",
			Feedback: "Keep it to three sentences and give a concrete time for the follow-up.",
		},
	}
}
