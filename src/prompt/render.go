// Package prompt substitutes {name} placeholders in prompt templates.
//
// A placeholder is an identifier wrapped in single braces. "{{" and "}}"
// produce literal braces; any other brace is copied through unchanged.
package prompt

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Protocol-Lattice/inbox-agent/src/templates"
	"github.com/Protocol-Lattice/inbox-agent/src/triage"
)

// Values maps placeholder names to their run-time values.
type Values map[string]any

// MissingPlaceholderError reports placeholders the template references but
// the caller did not supply. Key is the first one encountered.
type MissingPlaceholderError struct {
	Category triage.Category
	Key      string
	Keys     []string
}

func (e *MissingPlaceholderError) Error() string {
	if e.Category != "" {
		return fmt.Sprintf("prompt: template %s references missing placeholder %q", e.Category, e.Key)
	}
	return fmt.Sprintf("prompt: missing placeholder %q", e.Key)
}

// Render substitutes values into t.Body.
func Render(t templates.Template, values Values) (string, error) {
	out, err := RenderBody(t.Body, values)
	if mp, ok := err.(*MissingPlaceholderError); ok {
		mp.Category = t.Category
	}
	return out, err
}

// RenderBody substitutes values into body. Output is a pure function of its
// inputs; on a missing value nothing is returned.
func RenderBody(body string, values Values) (string, error) {
	var (
		b       strings.Builder
		missing []string
	)
	b.Grow(len(body))
	scan(body, func(lit string) {
		b.WriteString(lit)
	}, func(name string) {
		v, ok := values[name]
		if !ok {
			if !contains(missing, name) {
				missing = append(missing, name)
			}
			return
		}
		b.WriteString(Stringify(v))
	})
	if len(missing) > 0 {
		return "", &MissingPlaceholderError{Key: missing[0], Keys: missing}
	}
	return b.String(), nil
}

// Placeholders lists the distinct names referenced by body in order of first
// appearance.
func Placeholders(body string) []string {
	var names []string
	scan(body, func(string) {}, func(name string) {
		if !contains(names, name) {
			names = append(names, name)
		}
	})
	return names
}

// Stringify converts a value to the text inserted into a prompt: strings as
// they are, Stringers via String, everything else as indented JSON with
// sorted keys.
func Stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	case nil:
		return "null"
	}
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}

// ValidationError describes why a body cannot serve as a template.
type ValidationError struct {
	Unknown []string // referenced but not allowed
	Missing []string // required but never referenced
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Unknown) > 0 {
		parts = append(parts, "unknown placeholders "+strings.Join(e.Unknown, ", "))
	}
	if len(e.Missing) > 0 {
		parts = append(parts, "missing placeholders "+strings.Join(e.Missing, ", "))
	}
	return "prompt: invalid template: " + strings.Join(parts, "; ")
}

// Validate dry-runs body against placeholder values for every allowed name
// and checks that each required name is referenced.
func Validate(body string, allowed, required []string) error {
	dummy := make(Values, len(allowed))
	for _, name := range allowed {
		dummy[name] = "<" + name + ">"
	}
	verr := &ValidationError{}
	if _, err := RenderBody(body, dummy); err != nil {
		if mp, ok := err.(*MissingPlaceholderError); ok {
			verr.Unknown = mp.Keys
		} else {
			return err
		}
	}
	used := Placeholders(body)
	for _, name := range required {
		if !contains(used, name) {
			verr.Missing = append(verr.Missing, name)
		}
	}
	if len(verr.Unknown) == 0 && len(verr.Missing) == 0 {
		return nil
	}
	sort.Strings(verr.Missing)
	return verr
}

// scan walks body once, handing literal runs to lit and placeholder names
// to ph.
func scan(body string, lit func(string), ph func(string)) {
	start := 0
	for i := 0; i < len(body); {
		switch body[i] {
		case '{':
			if i+1 < len(body) && body[i+1] == '{' {
				lit(body[start:i] + "{")
				i += 2
				start = i
				continue
			}
			if end := identEnd(body, i+1); end > i+1 && end < len(body) && body[end] == '}' {
				lit(body[start:i])
				ph(body[i+1 : end])
				i = end + 1
				start = i
				continue
			}
		case '}':
			if i+1 < len(body) && body[i+1] == '}' {
				lit(body[start:i] + "}")
				i += 2
				start = i
				continue
			}
		}
		i++
	}
	lit(body[start:])
}

// identEnd returns the index just past the identifier starting at i.
func identEnd(s string, i int) int {
	j := i
	for j < len(s) {
		c := s[j]
		isLetter := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		isDigit := c >= '0' && c <= '9'
		if !isLetter && !(isDigit && j > i) {
			break
		}
		j++
	}
	return j
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
