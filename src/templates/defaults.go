package templates

import (
	"fmt"
	"strings"

	"github.com/Protocol-Lattice/inbox-agent/src/triage"
)

// DefaultSignature is the sign-off used when none is configured.
const DefaultSignature = "EmailBot"

const preamble = "You are an AI assistant tasked with writing polite and professional email responses. " +
	"Your goal is to draft the BODY of an email (do NOT include the subject line). " +
	"The original email was from: {sender_email}. Address the recipient as '{sender_name}'. " +
	"Sign the email with '%s'. --- Instructions for Email Content Generation --- " +
	"Based on the triage decision, the primary action required is: '%s'. " +
	"The specific context or action to be performed is: '{response_summary}'. "

const closing = " Do NOT use square brackets or fill-in-the-blank text. " +
	"Ensure the email is professional, concise, and friendly. Conclude with a standard closing."

// signatures are literal text, never placeholders.
var braceEscaper = strings.NewReplacer("{", "{{", "}", "}}")

var instructions = map[triage.Category]string{
	triage.DraftResponse: "Draft a general polite response email to {sender_name}. " +
		"Acknowledge their email and provide a brief, professional response that fulfills the purpose described by the summary.",
	triage.UrgentResponse: "Draft an urgent email response to {sender_name}. " +
		"Acknowledge the urgency and state that immediate action is being taken. " +
		"Propose a next update by the next business day.",
	triage.ScheduleMeeting: "The sender's preferred meeting details are: {meeting_details_json}. " +
		"Draft an email to {sender_name} to follow up on their meeting request. " +
		"Suggest a concrete time that fits their preferences, or ask for their general availability.",
	triage.ProvideInformation: "Draft an email to {sender_name} to provide information. " +
		"Acknowledge their question and directly provide the information as described by the summary.",
}

// DefaultBody returns the built-in template for c, or the fallback's when c
// has no template of its own.
func DefaultBody(c triage.Category, signature string) string {
	if strings.TrimSpace(signature) == "" {
		signature = DefaultSignature
	}
	signature = braceEscaper.Replace(signature)
	body, ok := instructions[c]
	if !ok {
		c = triage.Fallback
		body = instructions[c]
	}
	return fmt.Sprintf(preamble, signature, c) + body + closing
}

// Defaults returns the built-in template body for every responding category.
func Defaults(signature string) map[triage.Category]string {
	out := make(map[triage.Category]string, len(instructions))
	for c := range instructions {
		out[c] = DefaultBody(c, signature)
	}
	return out
}

// Placeholder names supplied by the writer at render time.
const (
	KeySenderEmail        = "sender_email"
	KeySenderName         = "sender_name"
	KeyResponseSummary    = "response_summary"
	KeyMeetingDetailsJSON = "meeting_details_json"
)

// Family lists the placeholders every template for c is rendered with.
func Family(c triage.Category) []string {
	names := []string{KeySenderEmail, KeySenderName, KeyResponseSummary}
	if c == triage.ScheduleMeeting {
		names = append(names, KeyMeetingDetailsJSON)
	}
	return names
}
