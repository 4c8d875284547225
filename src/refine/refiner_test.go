package refine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Protocol-Lattice/inbox-agent/src/mail"
	"github.com/Protocol-Lattice/inbox-agent/src/models"
	"github.com/Protocol-Lattice/inbox-agent/src/templates"
	"github.com/Protocol-Lattice/inbox-agent/src/triage"
)

type memBackend struct {
	data    map[string]string
	saveErr error
}

func (m *memBackend) Load(context.Context) (map[string]string, error) {
	if m.data == nil {
		return nil, templates.ErrNoSnapshot
	}
	return m.data, nil
}

func (m *memBackend) Save(_ context.Context, snap map[string]string, _ string) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data = snap
	return nil
}

func (m *memBackend) Close() error { return nil }

type fakeGen struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeGen) Generate(_ context.Context, p string) (string, error) {
	f.prompts = append(f.prompts, p)
	return f.reply, f.err
}

func openStore(t *testing.T, be *memBackend) *templates.Store {
	t.Helper()
	s, err := templates.Open(context.Background(), be)
	require.NoError(t, err)
	return s
}

func event(s *templates.Store, c triage.Category, feedback string) FeedbackEvent {
	return NewFeedbackEvent(c, s.Get(c), mail.Draft{Subject: "Re: Your Email", Body: "Hi Bob, ..."}, feedback)
}

const goodBody = "Write to {sender_name} at {sender_email} about {response_summary}. Sign off as 'EmailBot'."

func TestRefineStoresValidRewrite(t *testing.T) {
	be := &memBackend{}
	store := openStore(t, be)
	gen := &fakeGen{reply: "```text\n" + goodBody + "\n```"}
	r := New(store, gen)

	tpl, err := r.Refine(context.Background(), event(store, triage.DraftResponse, "be shorter"))
	require.NoError(t, err)

	assert.Equal(t, goodBody, tpl.Body)
	assert.Equal(t, 2, tpl.Revision)
	assert.Equal(t, goodBody, store.Get(triage.DraftResponse).Body)
	assert.Equal(t, goodBody, be.data["draft_response"])

	journal := r.Journal()
	require.Len(t, journal, 1)
	assert.True(t, journal[0].Accepted)
	assert.Equal(t, "be shorter", journal[0].Feedback)
}

func TestRefineWritesEventCategoryNotFallback(t *testing.T) {
	be := &memBackend{data: map[string]string{"draft_response": "General reply to {sender_name}."}}
	store := openStore(t, be)
	prev := store.Get(triage.UrgentResponse)
	require.Equal(t, triage.DraftResponse, prev.Category)

	gen := &fakeGen{reply: goodBody}
	r := New(store, gen)
	ev := NewFeedbackEvent(triage.UrgentResponse, prev, mail.Draft{Subject: "URGENT: Regarding your email"}, "shorter")

	tpl, err := r.Refine(context.Background(), ev)
	require.NoError(t, err)

	assert.Equal(t, triage.UrgentResponse, tpl.Category)
	assert.Equal(t, goodBody, be.data["urgent_response"])
	assert.Equal(t, "General reply to {sender_name}.", be.data["draft_response"])
	assert.Contains(t, gen.prompts[0], "next business day")
}

func TestRefineRejectsUnknownPlaceholder(t *testing.T) {
	store := openStore(t, &memBackend{})
	before := store.Get(triage.DraftResponse)
	gen := &fakeGen{reply: goodBody + " Include {calendar_link}."}
	r := New(store, gen)

	_, err := r.Refine(context.Background(), event(store, triage.DraftResponse, "add a link"))

	var rej *RejectedError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, triage.DraftResponse, rej.Category)
	assert.Equal(t, before, store.Get(triage.DraftResponse))
	assert.False(t, r.Journal()[0].Accepted)
}

func TestRefineRejectsDroppedPlaceholder(t *testing.T) {
	store := openStore(t, &memBackend{})
	gen := &fakeGen{reply: "Write to {sender_name} about {response_summary}."}
	r := New(store, gen)

	_, err := r.Refine(context.Background(), event(store, triage.ScheduleMeeting, "mention times"))

	var rej *RejectedError
	require.ErrorAs(t, err, &rej)
	assert.Contains(t, err.Error(), "meeting_details_json")
}

func TestRefineWithoutValidationAcceptsAnything(t *testing.T) {
	store := openStore(t, &memBackend{})
	r := New(store, &fakeGen{reply: "Just say hi."}, WithValidation(false))

	tpl, err := r.Refine(context.Background(), event(store, triage.DraftResponse, "simpler"))
	require.NoError(t, err)
	assert.Equal(t, "Just say hi.", tpl.Body)
}

func TestRefineGenerationFailureLeavesStore(t *testing.T) {
	store := openStore(t, &memBackend{})
	before := store.Get(triage.UrgentResponse)
	cause := &models.GenerationError{Op: "refine", Timeout: true, Err: context.DeadlineExceeded}
	r := New(store, &fakeGen{err: cause})

	_, err := r.Refine(context.Background(), event(store, triage.UrgentResponse, "more urgency"))

	var gerr *models.GenerationError
	require.ErrorAs(t, err, &gerr)
	assert.True(t, gerr.Timeout)
	assert.Equal(t, before, store.Get(triage.UrgentResponse))
}

func TestRefineStoreFailureIsReported(t *testing.T) {
	be := &memBackend{}
	store := openStore(t, be)
	be.saveErr = errors.New("read-only filesystem")
	r := New(store, &fakeGen{reply: goodBody})

	_, err := r.Refine(context.Background(), event(store, triage.DraftResponse, "tweak"))

	var ioErr *templates.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, templates.DefaultBody(triage.DraftResponse, templates.DefaultSignature), store.Get(triage.DraftResponse).Body)
}

func TestRefineBlankFeedback(t *testing.T) {
	store := openStore(t, &memBackend{})
	gen := &fakeGen{reply: goodBody}
	r := New(store, gen)

	_, err := r.Refine(context.Background(), event(store, triage.DraftResponse, "   "))
	assert.ErrorIs(t, err, ErrNoFeedback)
	assert.Empty(t, gen.prompts)
}

func TestMetaPrompt(t *testing.T) {
	store := openStore(t, &memBackend{})

	urgent := MetaPrompt(event(store, triage.UrgentResponse, "  too formal  "), "Jane")
	assert.Contains(t, urgent, "sign off as 'Jane'")
	assert.Contains(t, urgent, "next business day")
	assert.Contains(t, urgent, "{sender_email}, {sender_name}, {response_summary}")
	assert.Contains(t, urgent, "square brackets")
	assert.Contains(t, urgent, "\ntoo formal\n")
	assert.Contains(t, urgent, "Subject: Re: Your Email")

	meeting := MetaPrompt(event(store, triage.ScheduleMeeting, "x"), "Jane")
	assert.Contains(t, meeting, "{meeting_details_json}")
	assert.NotContains(t, meeting, "next business day")
	// the output-email restriction never uses curly braces
	for _, line := range strings.Split(meeting, "\n") {
		if strings.Contains(line, "square brackets") {
			assert.NotContains(t, line, "{")
		}
	}
}

func TestCleanResponse(t *testing.T) {
	assert.Equal(t, "body", cleanResponse("  body \n"))
	assert.Equal(t, "body", cleanResponse("```\nbody\n```"))
	assert.Equal(t, "a\nb", cleanResponse("```markdown\na\nb\n```\n"))
	assert.Equal(t, "", cleanResponse("```\n```"))
}
