package main

import (
	"context"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"

	"github.com/Protocol-Lattice/inbox-agent/src/config"
	"github.com/Protocol-Lattice/inbox-agent/src/mail"
	"github.com/Protocol-Lattice/inbox-agent/src/models"
	"github.com/Protocol-Lattice/inbox-agent/src/templates"
	"github.com/Protocol-Lattice/inbox-agent/src/tools"
	"github.com/Protocol-Lattice/inbox-agent/src/triage"
)

func openBackend(ctx context.Context, cfg config.TemplatesConfig) (templates.Backend, error) {
	switch cfg.Backend {
	case "json":
		return &templates.FileBackend{Path: cfg.Path, Codec: templates.JSONCodec{}}, nil
	case "yaml":
		return &templates.FileBackend{Path: cfg.Path, Codec: templates.YAMLCodec{}}, nil
	case "sqlite":
		return templates.NewSQLiteBackend(ctx, cfg.Path)
	case "postgres":
		return templates.NewPostgresBackend(ctx, cfg.DSN)
	case "mongo":
		return templates.NewMongoBackend(ctx, cfg.DSN, cfg.Database, cfg.Collection)
	case "redis":
		return templates.NewRedisBackend(ctx, &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, cfg.RedisKey)
	default:
		return nil, fmt.Errorf("unknown templates backend %q", cfg.Backend)
	}
}

func (a *app) openStore(ctx context.Context) (*templates.Store, error) {
	backend, err := openBackend(ctx, a.cfg.Templates)
	if err != nil {
		return nil, err
	}
	store, err := templates.Open(ctx, backend,
		templates.WithSignature(a.cfg.Signature),
		templates.WithLogger(a.log.With().Str("component", "templates").Logger()),
	)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return store, nil
}

func (a *app) classifier() *triage.Classifier {
	opts := []triage.Option{
		triage.WithPreferences(tools.NewCalendar()),
		triage.WithLogger(a.log.With().Str("component", "triage").Logger()),
	}
	if len(a.cfg.Triage.Rules) > 0 {
		opts = append(opts, triage.WithRules(a.cfg.Triage.Rules))
	}
	return triage.NewClassifier(opts...)
}

// agent resolves the provider for model. The credential check inside
// ProviderConfig makes a missing key fatal before any item is touched.
func (a *app) agent(ctx context.Context, model string, cached bool) (models.Agent, error) {
	pc, err := a.cfg.ProviderConfig(model)
	if err != nil {
		return nil, err
	}
	agent, err := models.NewLLMProvider(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("init %s provider: %w", pc.Provider, err)
	}
	if cached {
		c := models.NewCachedLLM(agent, a.cfg.Cache.Size, a.cfg.Cache.TTL, a.cfg.Cache.Path)
		c.Log = a.log.With().Str("component", "cache").Logger()
		agent = c
	}
	return agent, nil
}

func (a *app) outbox(w io.Writer) (mail.Outbox, error) {
	switch a.cfg.Outbox.Kind {
	case "resend":
		return mail.NewResendOutbox(a.cfg.Outbox.APIKey, a.cfg.Outbox.From)
	default:
		return mail.NewConsoleOutbox(w), nil
	}
}
