package models

import (
	"context"
	"fmt"
	"strings"
)

// Agent is a text-generation backend. Implementations return either a
// string or a value whose text can be recovered with TextOf.
type Agent interface {
	Generate(context.Context, string) (any, error)
}

// TextOf extracts the generated text from a provider response.
func TextOf(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func withPrefix(prefix, prompt, sep string) string {
	if strings.TrimSpace(prefix) == "" {
		return prompt
	}
	return prefix + sep + prompt
}
