package pipeline

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Protocol-Lattice/inbox-agent/src/mail"
	"github.com/Protocol-Lattice/inbox-agent/src/prompt"
	"github.com/Protocol-Lattice/inbox-agent/src/templates"
	"github.com/Protocol-Lattice/inbox-agent/src/triage"
)

var subjects = map[triage.Category]string{
	triage.ScheduleMeeting:    "Following up on your meeting request",
	triage.ProvideInformation: "Regarding your question",
	triage.UrgentResponse:     "URGENT: Regarding your email",
}

const defaultSubject = "Re: Your Email"

// Subject picks the reply subject for a category.
func Subject(c triage.Category) string {
	if s, ok := subjects[c]; ok {
		return s
	}
	return defaultSubject
}

// SenderName derives a greeting name from an address: the local part with
// the first letter upper-cased and the rest lower-cased.
func SenderName(sender string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(sender), "@")
	if local == "" {
		return ""
	}
	first, size := utf8.DecodeRuneInString(local)
	return string(unicode.ToUpper(first)) + strings.ToLower(local[size:])
}

// WriterValues are the placeholder values a draft template is rendered with.
func WriterValues(item Item, res triage.Result) prompt.Values {
	values := prompt.Values{
		templates.KeySenderEmail:        item.Sender,
		templates.KeySenderName:         SenderName(item.Sender),
		templates.KeyResponseSummary:    res.Summary,
		templates.KeyMeetingDetailsJSON: "{}",
	}
	if details, ok := res.Context[triage.MeetingDetailsKey]; ok && details != nil {
		values[templates.KeyMeetingDetailsJSON] = details
	}
	return values
}

// failedDraft is shown in place of a reply the model could not produce.
func failedDraft(item Item, res triage.Result, err error) mail.Draft {
	return mail.Draft{
		To:      item.Sender,
		Subject: Subject(res.Category),
		Body: fmt.Sprintf("ERROR: Could not generate email due to LLM issue. Problem: %v\n\nOriginal Action: %s\nSummary: %s",
			err, res.Category, res.Summary),
	}
}
