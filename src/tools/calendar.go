package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Preferences describes when an attendee likes to meet.
type Preferences struct {
	PreferredDays     []string `json:"preferred_days" yaml:"preferred_days"`
	PreferredTimeSlot string   `json:"preferred_time_slot" yaml:"preferred_time_slot"`
}

// Calendar is a static stand-in for a real calendar backend.
type Calendar struct {
	known    map[string]Preferences
	fallback Preferences
}

// NewCalendar returns the built-in preference table.
func NewCalendar() *Calendar {
	return &Calendar{
		known: map[string]Preferences{
			"bob":   {PreferredDays: []string{"Tuesday", "Thursday"}, PreferredTimeSlot: "morning"},
			"alice": {PreferredDays: []string{"Wednesday", "Friday"}, PreferredTimeSlot: "afternoon"},
		},
		fallback: Preferences{PreferredDays: []string{"any day"}, PreferredTimeSlot: "any time"},
	}
}

// LookupPreferences accepts a bare name or an email address.
func (c *Calendar) LookupPreferences(identity string) Preferences {
	name := strings.ToLower(strings.TrimSpace(identity))
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	prefs, ok := c.known[name]
	if !ok {
		prefs = c.fallback
	}
	prefs.PreferredDays = append([]string(nil), prefs.PreferredDays...)
	return prefs
}

// PreferencesTool exposes Calendar.LookupPreferences as a tool returning JSON.
type PreferencesTool struct {
	Calendar *Calendar
}

func (t *PreferencesTool) Name() string { return "meeting_preferences" }
func (t *PreferencesTool) Description() string {
	return "Returns the preferred meeting days and time slot for an attendee."
}

func (t *PreferencesTool) Run(_ context.Context, input string) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", fmt.Errorf("attendee name is required")
	}
	cal := t.Calendar
	if cal == nil {
		cal = NewCalendar()
	}
	raw, err := json.Marshal(cal.LookupPreferences(input))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// MeetingRequest is the JSON input accepted by ScheduleMeetingTool.
type MeetingRequest struct {
	Attendees []string `json:"attendees"`
	Date      string   `json:"date"`
	Time      string   `json:"time"`
	Topic     string   `json:"topic"`
}

// ScheduleMeetingTool pretends to book a meeting.
type ScheduleMeetingTool struct{}

func (t *ScheduleMeetingTool) Name() string { return "schedule_meeting" }
func (t *ScheduleMeetingTool) Description() string {
	return `Books a meeting. Input: {"attendees":[...],"date":"...","time":"...","topic":"..."}.`
}

func (t *ScheduleMeetingTool) Run(_ context.Context, input string) (string, error) {
	var req MeetingRequest
	if err := json.Unmarshal([]byte(input), &req); err != nil {
		return "", fmt.Errorf("decode meeting request: %w", err)
	}
	if len(req.Attendees) == 0 {
		return "", fmt.Errorf("at least one attendee is required")
	}
	if req.Date == "" || req.Time == "" {
		return "", fmt.Errorf("date and time are required")
	}
	return fmt.Sprintf("Meeting '%s' scheduled for %s at %s with %s. (Simulated)",
		req.Topic, req.Date, req.Time, strings.Join(req.Attendees, ", ")), nil
}

// TimeTool reports the current local time as DD-MM-YYYY HH:MM.
type TimeTool struct {
	Now func() time.Time
}

func (t *TimeTool) Name() string        { return "current_time" }
func (t *TimeTool) Description() string { return "Returns the current time (DD-MM-YYYY HH:MM)." }

func (t *TimeTool) Run(_ context.Context, _ string) (string, error) {
	now := time.Now
	if t.Now != nil {
		now = t.Now
	}
	return now().Format("02-01-2006 15:04"), nil
}
