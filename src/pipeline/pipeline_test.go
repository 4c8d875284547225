package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Protocol-Lattice/inbox-agent/src/mail"
	"github.com/Protocol-Lattice/inbox-agent/src/models"
	"github.com/Protocol-Lattice/inbox-agent/src/prompt"
	"github.com/Protocol-Lattice/inbox-agent/src/refine"
	"github.com/Protocol-Lattice/inbox-agent/src/templates"
	"github.com/Protocol-Lattice/inbox-agent/src/tools"
	"github.com/Protocol-Lattice/inbox-agent/src/triage"
)

type fakeGen struct {
	mu      sync.Mutex
	reply   func(prompt string) (string, error)
	prompts []string
}

func (f *fakeGen) Generate(_ context.Context, p string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, p)
	f.mu.Unlock()
	if f.reply == nil {
		return "Hello, thanks for reaching out.\n\nBest,\nEmailBot", nil
	}
	return f.reply(p)
}

func (f *fakeGen) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type recorder struct {
	mu        sync.Mutex
	generated []mail.Draft
	finished  []Outcome
}

func (r *recorder) Generated(_ Item, d mail.Draft) {
	r.mu.Lock()
	r.generated = append(r.generated, d)
	r.mu.Unlock()
}

func (r *recorder) Finished(o Outcome) {
	r.mu.Lock()
	r.finished = append(r.finished, o)
	r.mu.Unlock()
}

type outboxFunc func(context.Context, mail.Draft) (string, error)

func (f outboxFunc) Send(ctx context.Context, d mail.Draft) (string, error) { return f(ctx, d) }

func newStore(t *testing.T) *templates.Store {
	t.Helper()
	s, err := templates.Open(context.Background(), templates.NewFileBackend(filepath.Join(t.TempDir(), "prompt_templates.json")))
	require.NoError(t, err)
	return s
}

func newClassifier() *triage.Classifier {
	return triage.NewClassifier(triage.WithPreferences(tools.NewCalendar()))
}

func TestScheduleMeetingEndToEnd(t *testing.T) {
	gen := &fakeGen{}
	p := New(newClassifier(), newStore(t), gen)

	o := p.Process(context.Background(), Item{
		Text:   "Hello, I'd like to schedule a meeting to discuss the Q3 roadmap.",
		Sender: "bob@example.com",
	})

	require.NoError(t, o.Err)
	assert.Equal(t, triage.ScheduleMeeting, o.Classification.Category)
	prefs, ok := o.Classification.Context[triage.MeetingDetailsKey].(tools.Preferences)
	require.True(t, ok)
	assert.Equal(t, []string{"Tuesday", "Thursday"}, prefs.PreferredDays)
	assert.Equal(t, "morning", prefs.PreferredTimeSlot)

	assert.True(t, strings.HasPrefix(o.Draft.Subject, "Following up"))
	assert.NotEmpty(t, o.Draft.Body)
	assert.Contains(t, o.Prompt, "\"preferred_days\": [")
	assert.Contains(t, o.Prompt, "Address the recipient as 'Bob'")
	assert.Equal(t, []State{StateReceived, StateClassified, StateRendering, StateRendered, StateGenerating, StateGenerated, StateDone}, o.Trail)
	assert.Equal(t, 1, gen.calls())
}

func TestIgnoredItemSkipsEverything(t *testing.T) {
	gen := &fakeGen{}
	rec := &recorder{}
	p := New(newClassifier(), newStore(t), gen, WithReporter(rec), WithFeedback(FeedbackFunc(
		func(context.Context, Item, mail.Draft) (string, error) {
			t.Fatal("feedback must not be requested for ignored items")
			return "", nil
		})))

	o := p.Process(context.Background(), Item{
		Text:   "URGENT: I am unsubscribing from your newsletter.",
		Sender: "alice@example.com",
	})

	assert.True(t, o.Classification.Ignore)
	assert.Equal(t, StateIgnored, o.State())
	assert.False(t, o.Visited(StateRendering))
	assert.Empty(t, o.Prompt)
	assert.Zero(t, gen.calls())
	assert.Empty(t, rec.generated)
	require.Len(t, rec.finished, 1)
}

func TestGenerationFailureYieldsLabeledDraft(t *testing.T) {
	gen := &fakeGen{reply: func(string) (string, error) {
		return "", &models.GenerationError{Op: "draft", Timeout: true, Err: context.DeadlineExceeded}
	}}
	rec := &recorder{}
	asked := false
	p := New(newClassifier(), newStore(t), gen, WithReporter(rec), WithFeedback(FeedbackFunc(
		func(context.Context, Item, mail.Draft) (string, error) {
			asked = true
			return "", nil
		})))

	o := p.Process(context.Background(), Item{Text: "Urgent: server down", Sender: "ops@example.com"})

	assert.Equal(t, StateFailed, o.State())
	assert.True(t, o.Visited(StateGenerating))
	assert.True(t, IsGenerationFailure(o.Err))
	assert.True(t, strings.HasPrefix(o.Draft.Body, "ERROR: Could not generate email"))
	assert.Equal(t, "URGENT: Regarding your email", o.Draft.Subject)
	assert.False(t, asked)
	require.Len(t, rec.generated, 1)
	assert.Equal(t, o.Draft, rec.generated[0])
}

type brokenStore struct{ body string }

func (b brokenStore) Get(c triage.Category) templates.Template {
	return templates.Template{Category: c, Body: b.body}
}

func TestRenderFailureStopsBeforeGeneration(t *testing.T) {
	gen := &fakeGen{}
	p := New(newClassifier(), brokenStore{body: "Hi {sender_name}, see {attachment_link}"}, gen)

	o := p.Process(context.Background(), Item{Text: "a question about pricing", Sender: "carol@example.com"})

	var mp *prompt.MissingPlaceholderError
	require.ErrorAs(t, o.Err, &mp)
	assert.Equal(t, "attachment_link", mp.Key)
	assert.Equal(t, StateFailed, o.State())
	assert.False(t, o.Visited(StateGenerating))
	assert.Zero(t, gen.calls())
}

func TestFeedbackRefinesTemplate(t *testing.T) {
	store := newStore(t)
	newBody := "Reply briefly to {sender_name} ({sender_email}) about {response_summary}. Sign off as 'EmailBot'."
	draftGen := &fakeGen{}
	refineGen := &fakeGen{reply: func(string) (string, error) { return newBody, nil }}
	r := refine.New(store, refineGen)

	p := New(newClassifier(), store, draftGen, WithRefiner(r), WithFeedback(ScriptedFeedback{}))
	o := p.Process(context.Background(), Item{
		Text:     "Could you send information about your API limits?",
		Sender:   "dave@example.com",
		Feedback: "  Too long, keep it to two sentences. ",
	})

	require.NoError(t, o.Err)
	assert.Equal(t, StateDone, o.State())
	assert.True(t, o.Visited(StateRefining))
	assert.Equal(t, "Too long, keep it to two sentences.", o.Feedback)
	require.NotNil(t, o.Refined)
	assert.Equal(t, newBody, store.Get(triage.ProvideInformation).Body)
	assert.Contains(t, refineGen.prompts[0], "Too long, keep it to two sentences.")
}

func TestFeedbackOnFallbackTemplateRefinesClassifiedCategory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prompt_templates.json")
	general := "Write a short reply to {sender_name} about {response_summary}."
	require.NoError(t, os.WriteFile(path, []byte(`{"draft response": "`+general+`"}`), 0o644))
	store, err := templates.Open(ctx, templates.NewFileBackend(path))
	require.NoError(t, err)
	_, ok := store.Lookup(triage.UrgentResponse)
	require.False(t, ok)

	urgent := "Reply urgently to {sender_name} ({sender_email}) about {response_summary}. Promise an update by the next business day."
	refineGen := &fakeGen{reply: func(string) (string, error) { return urgent, nil }}
	p := New(newClassifier(), store, &fakeGen{},
		WithRefiner(refine.New(store, refineGen)), WithFeedback(ScriptedFeedback{}))

	o := p.Process(ctx, Item{
		Text:     "URGENT: the release is blocked, action required today.",
		Sender:   "ops@example.com",
		Feedback: "shorter",
	})

	require.NoError(t, o.Err)
	assert.Equal(t, StateDone, o.State())
	assert.Equal(t, triage.DraftResponse, o.Template.Category, "draft used the fallback template")
	require.NotNil(t, o.Refined)
	assert.Equal(t, triage.UrgentResponse, o.Refined.Category)

	got, ok := store.Lookup(triage.UrgentResponse)
	require.True(t, ok)
	assert.Equal(t, urgent, got.Body)
	assert.Equal(t, general, store.Get(triage.DraftResponse).Body)

	reopened, err := templates.Open(ctx, templates.NewFileBackend(path))
	require.NoError(t, err)
	assert.Equal(t, urgent, reopened.Get(triage.UrgentResponse).Body)
	assert.Equal(t, general, reopened.Get(triage.DraftResponse).Body)
}

func TestRefineFailureLeavesTemplate(t *testing.T) {
	store := newStore(t)
	before := store.Get(triage.DraftResponse)
	refineGen := &fakeGen{reply: func(string) (string, error) {
		return "", &models.GenerationError{Op: "refine", Err: errors.New("quota")}
	}}
	p := New(newClassifier(), store, &fakeGen{},
		WithRefiner(refine.New(store, refineGen)), WithFeedback(ScriptedFeedback{}))

	o := p.Process(context.Background(), Item{Text: "Hi there", Sender: "erin@example.com", Feedback: "warmer"})

	assert.Equal(t, StateFailed, o.State())
	assert.True(t, o.Visited(StateRefining))
	assert.True(t, IsGenerationFailure(o.Err))
	assert.Equal(t, before, store.Get(triage.DraftResponse))
}

func TestEmptyFeedbackSkipsRefine(t *testing.T) {
	store := newStore(t)
	refineGen := &fakeGen{}
	p := New(newClassifier(), store, &fakeGen{},
		WithRefiner(refine.New(store, refineGen)), WithFeedback(ScriptedFeedback{}))

	o := p.Process(context.Background(), Item{Text: "Hi there", Sender: "erin@example.com"})

	assert.Equal(t, StateDone, o.State())
	assert.False(t, o.Visited(StateRefining))
	assert.Zero(t, refineGen.calls())
}

func TestOutboxDelivery(t *testing.T) {
	var sent []mail.Draft
	ob := outboxFunc(func(_ context.Context, d mail.Draft) (string, error) {
		sent = append(sent, d)
		return "msg-1", nil
	})
	p := New(newClassifier(), newStore(t), &fakeGen{}, WithOutbox(ob))

	o := p.Process(context.Background(), Item{Text: "Hello", Sender: "frank@example.com"})
	assert.Equal(t, "msg-1", o.SentID)
	require.Len(t, sent, 1)
	assert.Equal(t, "frank@example.com", sent[0].To)
	assert.Equal(t, "Re: Your Email", sent[0].Subject)

	failing := New(newClassifier(), newStore(t), &fakeGen{}, WithOutbox(outboxFunc(
		func(context.Context, mail.Draft) (string, error) { return "", errors.New("smtp down") })))
	o = failing.Process(context.Background(), Item{Text: "Hello", Sender: "frank@example.com"})
	assert.Equal(t, StateDone, o.State())
	assert.EqualError(t, o.SendErr, "smtp down")
}

func TestRunParallelKeepsOrder(t *testing.T) {
	gen := &fakeGen{reply: func(p string) (string, error) {
		time.Sleep(time.Duration(len(p)%5) * time.Millisecond)
		return "ok", nil
	}}
	p := New(newClassifier(), newStore(t), gen, WithWorkers(4))

	items := []Item{
		{ID: "1", Text: "schedule a meeting", Sender: "bob@example.com"},
		{ID: "2", Text: "newsletter", Sender: "x@example.com"},
		{ID: "3", Text: "question about billing", Sender: "c@example.com"},
		{ID: "4", Text: "urgent fix", Sender: "d@example.com"},
		{ID: "5", Text: "hello", Sender: "e@example.com"},
		{ID: "6", Text: "thank you!", Sender: "f@example.com"},
	}
	out := p.Run(context.Background(), items)

	require.Len(t, out, len(items))
	for i := range items {
		assert.Equal(t, items[i].ID, out[i].Item.ID)
		assert.True(t, out[i].State().Terminal())
	}
	counts := Summary(out)
	assert.Equal(t, 4, counts[StateDone])
	assert.Equal(t, 2, counts[StateIgnored])
	assert.Equal(t, 4, gen.calls())
}

type interactiveSource struct{ NoFeedback }

func (interactiveSource) Interactive() bool { return true }

func TestInteractiveFeedbackForcesOneWorker(t *testing.T) {
	p := New(newClassifier(), newStore(t), &fakeGen{}, WithWorkers(8), WithFeedback(interactiveSource{}))
	assert.Equal(t, 1, p.Workers())
	assert.Equal(t, 1, New(nil, nil, nil, WithWorkers(0)).Workers())
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := New(newClassifier(), newStore(t), &fakeGen{})

	out := p.Run(ctx, []Item{{Text: "hello", Sender: "a@example.com"}})
	require.Len(t, out, 1)
	assert.Equal(t, StateFailed, out[0].State())
	assert.ErrorIs(t, out[0].Err, context.Canceled)
}

func TestWriterHelpers(t *testing.T) {
	assert.Equal(t, "Bob", SenderName("bob@example.com"))
	assert.Equal(t, "Mcdonald", SenderName("McDonald@example.com"))
	assert.Equal(t, "", SenderName("@example.com"))
	assert.Equal(t, "Élodie", SenderName("élodie@example.com"))
	assert.Equal(t, "Øyvind", SenderName("ØYVIND@example.no"))

	v := WriterValues(Item{Sender: "x@y.z"}, triage.Result{Summary: "s"})
	assert.Equal(t, "{}", v[templates.KeyMeetingDetailsJSON])
	assert.Equal(t, "s", v[templates.KeyResponseSummary])

	assert.Equal(t, "Regarding your question", Subject(triage.ProvideInformation))
	assert.Equal(t, "Re: Your Email", Subject(triage.DraftResponse))
}
