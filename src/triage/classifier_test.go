package triage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Protocol-Lattice/inbox-agent/src/tools"
)

func TestClassifyDefaultRules(t *testing.T) {
	c := NewClassifier(WithPreferences(tools.NewCalendar()))

	cases := []struct {
		name     string
		text     string
		sender   string
		category Category
		ignore   bool
	}{
		{"spam", "Limited time offer! Buy now and get rich quick!!! SPAM SPAM SPAM", "scammer@badsite.com", Ignore, true},
		{"unsubscribing", "I am unsubscribing from this list.", "x@example.com", Ignore, true},
		{"thanks", "Thank you for the update.", "charlie@example.com", Ignore, true},
		{"thanks for", "Thanks for the update! Appreciate it.", "charlie@example.com", Ignore, true},
		{"meeting", "Hello, I'd like to schedule a meeting with you to discuss the new project proposal.", "bob@example.com", ScheduleMeeting, false},
		{"question", "I have a question about invoices.", "dana@example.com", ProvideInformation, false},
		{"information", "Could you please provide some information about the upcoming company picnic?", "alice@example.com", ProvideInformation, false},
		{"urgent", "URGENT: Need your immediate feedback. Action required by end of day!", "manager@example.com", UrgentResponse, false},
		{"default", "Hi, hope you are well.", "eve@example.com", DraftResponse, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := c.Classify(tc.text, tc.sender)
			assert.Equal(t, tc.category, res.Category)
			assert.Equal(t, tc.ignore, res.Ignore)
			assert.NotEmpty(t, res.Summary)
		})
	}
}

func TestIgnoreKeywordWinsOverLaterRules(t *testing.T) {
	c := NewClassifier()
	texts := []string{
		"URGENT meeting request, but this is a newsletter",
		"Question about the schedule a call feature. Unsubscribe here.",
		"Thank you! Also: action required on the meeting request.",
	}
	for _, text := range texts {
		for _, variant := range []string{text, strings.ToUpper(text), strings.ToLower(text)} {
			res := c.Classify(variant, "someone@example.com")
			assert.True(t, res.Ignore, variant)
			assert.Equal(t, Ignore, res.Category, variant)
		}
	}
}

func TestScheduleMeetingAttachesPreferences(t *testing.T) {
	c := NewClassifier(WithPreferences(tools.NewCalendar()))
	res := c.Classify("Hello, I'd like to schedule a meeting...", "bob@example.com")

	require.Equal(t, ScheduleMeeting, res.Category)
	assert.Equal(t, "Meeting request from bob@example.com. Needs scheduling.", res.Summary)
	prefs, ok := res.Context[MeetingDetailsKey].(tools.Preferences)
	require.True(t, ok)
	assert.Equal(t, []string{"Tuesday", "Thursday"}, prefs.PreferredDays)
	assert.Equal(t, "morning", prefs.PreferredTimeSlot)
}

func TestScheduleMeetingWithoutPreferenceLookup(t *testing.T) {
	res := NewClassifier().Classify("meeting request for friday", "bob@example.com")
	assert.Equal(t, ScheduleMeeting, res.Category)
	assert.Nil(t, res.Context)
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := NewClassifier(WithPreferences(tools.NewCalendar()))
	text := "Could you schedule a call? It's urgent."
	first := c.Classify(text, "alice@example.com")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, c.Classify(text, "alice@example.com"))
	}
	assert.Equal(t, ScheduleMeeting, first.Category, "rule order beats specificity")
}

func TestWithRulesNormalizes(t *testing.T) {
	c := NewClassifier(WithRules([]Rule{
		{Name: "empty", Keywords: []string{"  "}, Category: Ignore},
		{Name: "invoice", Keywords: []string{" INVOICE "}, Category: "provide information"},
	}))

	rules := c.Rules()
	require.Len(t, rules, 1)
	assert.Equal(t, []string{"invoice"}, rules[0].Keywords)
	assert.Equal(t, ProvideInformation, rules[0].Category)

	res := c.Classify("Where is my Invoice?", "a@b.c")
	assert.Equal(t, ProvideInformation, res.Category)
	assert.Equal(t, defaultSummary, res.Summary, "rules without summary keep the default")
	assert.Equal(t, "invoice", res.Rule)
}

func TestParseCategory(t *testing.T) {
	cases := map[string]Category{
		"schedule_meeting":       ScheduleMeeting,
		"Schedule Meeting":       ScheduleMeeting,
		"urgent action/response": UrgentResponse,
		"draft response":         DraftResponse,
		" provide_information ":  ProvideInformation,
	}
	for in, want := range cases {
		got, ok := ParseCategory(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	got, ok := ParseCategory("Follow Up")
	assert.False(t, ok)
	assert.Equal(t, Category("follow up"), got)
}
