package triage

import "strings"

// Category selects the prompt template used to answer an email.
type Category string

const (
	DraftResponse      Category = "draft_response"
	UrgentResponse     Category = "urgent_response"
	ScheduleMeeting    Category = "schedule_meeting"
	ProvideInformation Category = "provide_information"
	Ignore             Category = "ignore"
)

// Fallback is used whenever no better category or template is available.
const Fallback = DraftResponse

// Known lists every category in a stable order.
var Known = []Category{DraftResponse, UrgentResponse, ScheduleMeeting, ProvideInformation, Ignore}

// legacy labels written by older template files.
var aliases = map[string]Category{
	"draft response":         DraftResponse,
	"general response":       DraftResponse,
	"urgent action/response": UrgentResponse,
	"urgent response":        UrgentResponse,
	"schedule meeting":       ScheduleMeeting,
	"provide information":    ProvideInformation,
}

// ParseCategory normalizes s and reports whether it names a known category.
func ParseCategory(s string) (Category, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, c := range Known {
		if string(c) == key {
			return c, true
		}
	}
	if c, ok := aliases[key]; ok {
		return c, true
	}
	return Category(key), false
}

func (c Category) String() string { return string(c) }

// Responds reports whether emails in this category get a drafted reply.
func (c Category) Responds() bool { return c != Ignore }
