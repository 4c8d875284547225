package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTimeout bounds a single generation call.
const DefaultTimeout = 60 * time.Second

// ErrEmptyResponse is wrapped when a provider answers with no text.
var ErrEmptyResponse = errors.New("empty response")

// GenerationError is a failed or timed-out generation call.
type GenerationError struct {
	Op      string
	Timeout bool
	Err     error
}

func (e *GenerationError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("generation %s timed out: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("generation %s failed: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// TextGenerator is what the pipeline and refiner consume.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Generator turns an Agent into a TextGenerator with a bounded timeout and
// typed failures. It never retries.
type Generator struct {
	agent   Agent
	op      string
	timeout time.Duration
	log     zerolog.Logger
}

type GeneratorOption func(*Generator)

func WithTimeout(d time.Duration) GeneratorOption {
	return func(g *Generator) { g.timeout = d }
}

// WithOp labels errors and log lines, e.g. "draft" or "refine".
func WithOp(op string) GeneratorOption {
	return func(g *Generator) { g.op = op }
}

func WithLogger(l zerolog.Logger) GeneratorOption {
	return func(g *Generator) { g.log = l }
}

func NewGenerator(agent Agent, opts ...GeneratorOption) *Generator {
	g := &Generator{agent: agent, op: "generate", timeout: DefaultTimeout, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate calls the agent once. The call is abandoned when the timeout
// elapses even if the provider ignores its context.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	type result struct {
		out any
		err error
	}
	done := make(chan result, 1)
	start := time.Now()
	go func() {
		out, err := g.agent.Generate(ctx, prompt)
		done <- result{out, err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		res = result{err: ctx.Err()}
	}

	if res.err != nil {
		timeout := errors.Is(res.err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
		g.log.Warn().Err(res.err).Str("op", g.op).Bool("timeout", timeout).Dur("elapsed", time.Since(start)).Msg("generation failed")
		return "", &GenerationError{Op: g.op, Timeout: timeout, Err: res.err}
	}

	text := strings.TrimSpace(TextOf(res.out))
	if text == "" {
		return "", &GenerationError{Op: g.op, Err: ErrEmptyResponse}
	}
	g.log.Debug().Str("op", g.op).Dur("elapsed", time.Since(start)).Int("chars", len(text)).Msg("generation complete")
	return text, nil
}
