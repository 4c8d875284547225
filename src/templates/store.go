package templates

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/Protocol-Lattice/inbox-agent/src/triage"
)

// snapshot is never mutated after it is published.
type snapshot map[triage.Category]Template

// Store owns the current template per category. Readers load an immutable
// snapshot; writers build a copy, persist it, then publish it.
type Store struct {
	mu        sync.Mutex // serializes writers
	current   atomic.Pointer[snapshot]
	backend   Backend
	signature string
	log       zerolog.Logger
	now       func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithSignature sets the sign-off used in default templates.
func WithSignature(sig string) Option {
	return func(s *Store) { s.signature = sig }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithClock overrides time.Now; used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open loads the persisted templates, or seeds and persists the defaults
// when the backend has nothing yet.
func Open(ctx context.Context, backend Backend, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, errors.New("templates: backend is required")
	}
	s := &Store{
		backend:   backend,
		signature: DefaultSignature,
		log:       zerolog.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	raw, err := backend.Load(ctx)
	partial := errors.Is(err, ErrPartialSnapshot)
	switch {
	case errors.Is(err, ErrNoSnapshot):
		if err := s.seed(ctx); err != nil {
			return nil, err
		}
		return s, nil
	case err != nil && !partial:
		return nil, &IOError{Op: "load", Err: err}
	}

	snap := s.normalize(raw)
	if partial {
		if err := s.complete(ctx, snap); err != nil {
			return nil, err
		}
	}
	s.current.Store(&snap)
	s.log.Debug().Int("templates", len(snap)).Msg("loaded prompt templates")
	return s, nil
}

// normalize maps stored keys to categories. Keys are visited in sorted
// order and a canonical key wins over a legacy label for the same category,
// so duplicates resolve the same way on every load.
func (s *Store) normalize(raw map[string]string) snapshot {
	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	now := s.now()
	snap := make(snapshot, len(raw))
	source := make(map[triage.Category]string, len(raw))
	for _, key := range keys {
		cat, known := triage.ParseCategory(key)
		if !known {
			cat = triage.Category(key)
		}
		if prev, dup := source[cat]; dup {
			kept, dropped := prev, key
			if key == string(cat) {
				kept, dropped = key, prev
			}
			s.log.Warn().
				Str("category", cat.String()).
				Str("kept", kept).
				Str("dropped", dropped).
				Msg("duplicate template keys")
			if kept != key {
				continue
			}
		}
		source[cat] = key
		snap[cat] = Template{Category: cat, Body: raw[key], Revision: 1, UpdatedAt: now}
	}
	return snap
}

// complete adds the default for every category missing from snap and
// persists the result.
func (s *Store) complete(ctx context.Context, snap snapshot) error {
	now := s.now()
	var added int
	for cat, body := range Defaults(s.signature) {
		if _, ok := snap[cat]; ok {
			continue
		}
		snap[cat] = Template{Category: cat, Body: body, Revision: 1, UpdatedAt: now}
		added++
	}
	if err := s.backend.Save(ctx, snap.raw(), ""); err != nil {
		return &IOError{Op: "seed", Err: err}
	}
	s.log.Warn().Int("added", added).Msg("completed partially seeded prompt templates")
	return nil
}

func (s *Store) seed(ctx context.Context) error {
	now := s.now()
	snap := snapshot{}
	for cat, body := range Defaults(s.signature) {
		snap[cat] = Template{Category: cat, Body: body, Revision: 1, UpdatedAt: now}
	}
	if err := s.backend.Save(ctx, snap.raw(), ""); err != nil {
		return &IOError{Op: "seed", Err: err}
	}
	s.current.Store(&snap)
	s.log.Info().Int("templates", len(snap)).Msg("seeded default prompt templates")
	return nil
}

// Get returns the template for c, falling back to the fallback category and
// finally to the built-in default. It never fails.
func (s *Store) Get(c triage.Category) Template {
	snap := *s.current.Load()
	if t, ok := snap[c]; ok {
		return t
	}
	if t, ok := snap[triage.Fallback]; ok {
		return t
	}
	return Template{Category: triage.Fallback, Body: DefaultBody(triage.Fallback, s.signature)}
}

// Lookup is Get without fallback.
func (s *Store) Lookup(c triage.Category) (Template, bool) {
	t, ok := (*s.current.Load())[c]
	return t, ok
}

// Put replaces the template for c. The new value is visible only after the
// backend reports success; on failure Get keeps returning the old value.
func (s *Store) Put(ctx context.Context, c triage.Category, body string) (Template, error) {
	if c == "" {
		return Template{}, fmt.Errorf("templates: category is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := *s.current.Load()
	next := make(snapshot, len(prev)+1)
	for k, v := range prev {
		next[k] = v
	}
	tpl := Template{
		Category:  c,
		Body:      body,
		Revision:  prev[c].Revision + 1,
		UpdatedAt: s.now(),
	}
	next[c] = tpl

	if err := s.backend.Save(ctx, next.raw(), string(c)); err != nil {
		s.log.Error().Err(err).Str("category", c.String()).Msg("persisting template failed")
		return Template{}, &IOError{Op: "put", Category: c, Err: err}
	}
	s.current.Store(&next)
	s.log.Info().Str("category", c.String()).Int("revision", tpl.Revision).Msg("template updated")
	return tpl, nil
}

// Reset restores the built-in default for c.
func (s *Store) Reset(ctx context.Context, c triage.Category) (Template, error) {
	return s.Put(ctx, c, DefaultBody(c, s.signature))
}

// List returns every stored template ordered by category.
func (s *Store) List() []Template {
	snap := *s.current.Load()
	out := make([]Template, 0, len(snap))
	for _, t := range snap {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// Signature reports the sign-off used for default templates.
func (s *Store) Signature() string { return s.signature }

func (s *Store) Close() error { return s.backend.Close() }

func (snap snapshot) raw() map[string]string {
	out := make(map[string]string, len(snap))
	for c, t := range snap {
		out[string(c)] = t.Body
	}
	return out
}
