package triage

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/Protocol-Lattice/inbox-agent/src/tools"
)

// MeetingDetailsKey is the Result.Context key holding scheduling preferences.
const MeetingDetailsKey = "meeting_details"

const defaultSummary = "Requires a general response."

// Result is the outcome of classifying one email.
type Result struct {
	Category Category       `json:"action_required"`
	Ignore   bool           `json:"ignore"`
	Summary  string         `json:"response_summary"`
	Context  map[string]any `json:"context,omitempty"`
	Rule     string         `json:"rule,omitempty"`
}

// PreferenceLookup resolves meeting preferences for a sender.
type PreferenceLookup interface {
	LookupPreferences(identity string) tools.Preferences
}

// Classifier applies an ordered rule table; the first matching rule wins.
type Classifier struct {
	rules []Rule
	prefs PreferenceLookup
	log   zerolog.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithRules replaces the default rule table.
func WithRules(rules []Rule) Option {
	return func(c *Classifier) {
		c.rules = normalizeRules(rules)
	}
}

// WithPreferences attaches the scheduling-preferences collaborator.
func WithPreferences(p PreferenceLookup) Option {
	return func(c *Classifier) { c.prefs = p }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Classifier) { c.log = l }
}

// NewClassifier builds a classifier over DefaultRules unless overridden.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{
		rules: normalizeRules(DefaultRules()),
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Rules returns a copy of the active rule table.
func (c *Classifier) Rules() []Rule {
	return append([]Rule(nil), c.rules...)
}

// Classify never fails: unmatched text falls back to a general response.
func (c *Classifier) Classify(text, sender string) Result {
	lower := strings.ToLower(text)

	res := Result{Category: Fallback, Summary: defaultSummary}
	for _, rule := range c.rules {
		if !rule.Match(lower) {
			continue
		}
		res.Category = rule.Category
		res.Rule = rule.Name
		if rule.Summary != "" {
			res.Summary = strings.ReplaceAll(rule.Summary, "{sender_email}", sender)
		}
		break
	}
	res.Ignore = !res.Category.Responds()

	if res.Category == ScheduleMeeting && c.prefs != nil {
		res.Context = map[string]any{
			MeetingDetailsKey: c.prefs.LookupPreferences(sender),
		}
	}

	c.log.Debug().
		Str("sender", sender).
		Str("category", res.Category.String()).
		Str("rule", res.Rule).
		Bool("ignore", res.Ignore).
		Msg("triage decision")
	return res
}
