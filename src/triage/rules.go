package triage

import "strings"

// Rule maps keyword containment to a category. Keywords are matched as
// case-insensitive substrings; any keyword is enough.
type Rule struct {
	Name     string   `json:"name" yaml:"name" mapstructure:"name"`
	Keywords []string `json:"keywords" yaml:"keywords" mapstructure:"keywords"`
	Category Category `json:"category" yaml:"category" mapstructure:"category"`
	Summary  string   `json:"summary,omitempty" yaml:"summary,omitempty" mapstructure:"summary"`
}

// Match reports whether lower (already lower-cased) contains any keyword.
func (r Rule) Match(lower string) bool {
	for _, kw := range r.Keywords {
		if kw != "" && strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// DefaultRules is the built-in triage table. Order is significant: ignore
// rules come first so that spam mentioning a meeting is still ignored.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:     "spam",
			Keywords: []string{"spam", "unsubscribing", "unsubscribe", "newsletter"},
			Category: Ignore,
			Summary:  "Marked as spam/unimportant. No response needed.",
		},
		{
			Name:     "acknowledgement",
			Keywords: []string{"thank you", "thanks for", "acknowledgement"},
			Category: Ignore,
			Summary:  "Simple thank you email, no response needed.",
		},
		{
			Name:     "meeting",
			Keywords: []string{"meeting request", "schedule a meeting", "schedule a call"},
			Category: ScheduleMeeting,
			Summary:  "Meeting request from {sender_email}. Needs scheduling.",
		},
		{
			Name:     "question",
			Keywords: []string{"question about", "information about"},
			Category: ProvideInformation,
			Summary:  "Email asks a question. Needs information.",
		},
		{
			Name:     "urgent",
			Keywords: []string{"urgent", "action required"},
			Category: UrgentResponse,
			Summary:  "Address urgently and state that immediate steps are being taken.",
		},
	}
}

func normalizeRules(in []Rule) []Rule {
	out := make([]Rule, 0, len(in))
	for _, r := range in {
		kws := make([]string, 0, len(r.Keywords))
		for _, kw := range r.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				kws = append(kws, kw)
			}
		}
		if len(kws) == 0 {
			continue
		}
		cat, _ := ParseCategory(string(r.Category))
		out = append(out, Rule{Name: r.Name, Keywords: kws, Category: cat, Summary: r.Summary})
	}
	return out
}
