package tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalendarLookupPreferences(t *testing.T) {
	cal := NewCalendar()

	cases := []struct {
		identity string
		want     Preferences
	}{
		{"bob@example.com", Preferences{PreferredDays: []string{"Tuesday", "Thursday"}, PreferredTimeSlot: "morning"}},
		{"Bob", Preferences{PreferredDays: []string{"Tuesday", "Thursday"}, PreferredTimeSlot: "morning"}},
		{"ALICE@example.com", Preferences{PreferredDays: []string{"Wednesday", "Friday"}, PreferredTimeSlot: "afternoon"}},
		{"carol@example.com", Preferences{PreferredDays: []string{"any day"}, PreferredTimeSlot: "any time"}},
	}
	for _, tc := range cases {
		t.Run(tc.identity, func(t *testing.T) {
			assert.Equal(t, tc.want, cal.LookupPreferences(tc.identity))
		})
	}
}

func TestCalendarReturnsCopies(t *testing.T) {
	cal := NewCalendar()
	prefs := cal.LookupPreferences("bob")
	prefs.PreferredDays[0] = "Sunday"

	assert.Equal(t, "Tuesday", cal.LookupPreferences("bob").PreferredDays[0])
}

func TestPreferencesTool(t *testing.T) {
	tool := &PreferencesTool{Calendar: NewCalendar()}
	out, err := tool.Run(context.Background(), "alice")
	require.NoError(t, err)

	var prefs Preferences
	require.NoError(t, json.Unmarshal([]byte(out), &prefs))
	assert.Equal(t, "afternoon", prefs.PreferredTimeSlot)

	_, err = tool.Run(context.Background(), "  ")
	assert.Error(t, err)
}

func TestScheduleMeetingTool(t *testing.T) {
	tool := &ScheduleMeetingTool{}
	out, err := tool.Run(context.Background(), `{"attendees":["Bob","Amrita"],"date":"2025-06-04","time":"10:00","topic":"Proposal"}`)
	require.NoError(t, err)
	assert.Equal(t, "Meeting 'Proposal' scheduled for 2025-06-04 at 10:00 with Bob, Amrita. (Simulated)", out)

	_, err = tool.Run(context.Background(), `{"attendees":[]}`)
	assert.Error(t, err)
	_, err = tool.Run(context.Background(), `not json`)
	assert.Error(t, err)
}

func TestTimeTool(t *testing.T) {
	fixed := time.Date(2025, time.June, 3, 9, 5, 0, 0, time.UTC)
	tool := &TimeTool{Now: func() time.Time { return fixed }}
	out, err := tool.Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "03-06-2025 09:05", out)
}

func TestCatalog(t *testing.T) {
	catalog := DefaultCatalog(NewCalendar())

	names := make([]string, 0)
	for _, tool := range catalog.Tools() {
		names = append(names, tool.Name())
	}
	assert.Equal(t, []string{"meeting_preferences", "schedule_meeting", "current_time"}, names)

	_, ok := catalog.Lookup("  CURRENT_TIME ")
	assert.True(t, ok)

	assert.Error(t, catalog.Register(&TimeTool{}), "duplicate names are rejected")
	assert.Error(t, catalog.Register(nil))

	_, err := catalog.Run(context.Background(), "missing", "")
	assert.Error(t, err)
}
