package models

import (
	"context"
	"strings"
	"unicode"
)

// DummyLLM answers offline. With Reply set it returns that text for every
// prompt; otherwise it echoes the last non-empty prompt line after Prefix.
type DummyLLM struct {
	Prefix string
	Reply  string
}

func NewDummyLLM(prefix string) *DummyLLM {
	if strings.TrimSpace(prefix) == "" {
		prefix = "Dummy response:"
	}
	return &DummyLLM{Prefix: prefix}
}

func (d *DummyLLM) Generate(ctx context.Context, prompt string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.Reply != "" {
		return d.Reply, nil
	}
	return d.Prefix + " " + lastLine(prompt), nil
}

func lastLine(s string) string {
	s = strings.TrimRightFunc(s, unicode.IsSpace)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	if s = strings.TrimSpace(s); s == "" {
		return "<empty prompt>"
	}
	return s
}

var _ Agent = (*DummyLLM)(nil)
