package browser

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/meetscribe/internal/api"
	"github.com/teemow/meetscribe/internal/session"
)

type fakeTranscriptSource struct {
	mu          sync.Mutex
	lists       map[string][]api.TranscriptSummary
	listErr     error
	contents    map[string]string
	contentErr  error
	contentGate chan struct{}
	listCalls   []string
}

func (f *fakeTranscriptSource) ListTranscripts(_ context.Context, meetingID string) (*api.TranscriptList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls = append(f.listCalls, meetingID)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return &api.TranscriptList{
		Meeting:     &api.Meeting{ID: meetingID, Title: "echo " + meetingID},
		Transcripts: f.lists[meetingID],
	}, nil
}

func (f *fakeTranscriptSource) TranscriptContent(ctx context.Context, fileID string) (string, error) {
	if f.contentGate != nil {
		select {
		case <-f.contentGate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.contents[fileID], f.contentErr
}

type recordingNavigator struct {
	mu     sync.Mutex
	opened []string
	err    error
}

func (r *recordingNavigator) SelectTranscriptFor(_ context.Context, meetingID string, t api.TranscriptContent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.opened = append(r.opened, meetingID+"/"+t.FileID+":"+t.Content)
	return nil
}

type recordingAlerts struct {
	mu     sync.Mutex
	alerts []string
}

func (r *recordingAlerts) Alert(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, msg)
}

func newSource() *fakeTranscriptSource {
	return &fakeTranscriptSource{
		lists: map[string][]api.TranscriptSummary{
			"evt-1": {
				{FileID: "f-1", Name: "Standup - Transcript", Size: 20000,
					ModifiedTime: api.ParseTimestamp("2024-03-01T10:15:00Z"), MeetingTitle: "Standup", MeetingDate: "2024-03-01"},
			},
			"evt-2": {},
		},
		contents: map[string]string{"f-1": "Alice: hello"},
	}
}

func TestTranscriptBrowser_Mount(t *testing.T) {
	source := newSource()
	b := NewTranscriptBrowser(source, &recordingNavigator{}, &recordingAlerts{}, time.UTC)

	wait(t, b.Mount(context.Background(), api.Meeting{ID: "evt-1", Title: "Standup"}))
	view := b.View()

	require.Equal(t, PhaseSuccess, view.Phase)
	assert.Equal(t, "evt-1", view.Meeting.ID)
	require.Len(t, view.Cards, 1)
	assert.Equal(t, "Standup - Transcript", view.Cards[0].Name)
	assert.Equal(t, "20 kB", view.Cards[0].Size)
	assert.Equal(t, "Mar 1, 2024, 10:15 AM", view.Cards[0].Modified)
	assert.Equal(t, "2024-03-01", view.Cards[0].MeetingDate)
	require.NotNil(t, b.MeetingEcho())
	assert.Equal(t, "echo evt-1", b.MeetingEcho().Title)
}

func TestTranscriptBrowser_ScopeChangeRefetches(t *testing.T) {
	source := newSource()
	b := NewTranscriptBrowser(source, &recordingNavigator{}, &recordingAlerts{}, time.UTC)

	wait(t, b.Mount(context.Background(), api.Meeting{ID: "evt-1"}))
	wait(t, b.Mount(context.Background(), api.Meeting{ID: "evt-2"}))
	wait(t, b.Mount(context.Background(), api.Meeting{ID: "evt-2"}))

	assert.Equal(t, []string{"evt-1", "evt-2", "evt-2"}, source.listCalls)
	view := b.View()
	assert.Equal(t, PhaseEmpty, view.Phase)
	assert.Equal(t, LabelNoTranscripts, view.Message)
}

func TestTranscriptBrowser_Open(t *testing.T) {
	nav := &recordingNavigator{}
	alerts := &recordingAlerts{}
	b := NewTranscriptBrowser(newSource(), nav, alerts, time.UTC)
	wait(t, b.Mount(context.Background(), api.Meeting{ID: "evt-1"}))

	done, err := b.Open("f-1")
	require.NoError(t, err)
	wait(t, done)

	assert.Equal(t, []string{"evt-1/f-1:Alice: hello"}, nav.opened)
	assert.Empty(t, alerts.alerts)
	assert.Empty(t, b.View().Opening)

	_, err = b.Open("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = b.OpenIndex(2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTranscriptBrowser_OpenFailureAlerts(t *testing.T) {
	source := newSource()
	source.contentErr = &api.Error{Op: "transcript_content", Status: 200, Message: "not found"}
	nav := &recordingNavigator{}
	alerts := &recordingAlerts{}
	b := NewTranscriptBrowser(source, nav, alerts, time.UTC)
	wait(t, b.Mount(context.Background(), api.Meeting{ID: "evt-1"}))

	done, err := b.OpenIndex(1)
	require.NoError(t, err)
	wait(t, done)

	assert.Equal(t, []string{"Failed to load transcript content: not found"}, alerts.alerts)
	assert.Empty(t, nav.opened)
	assert.Equal(t, PhaseSuccess, b.View().Phase)
}

func TestTranscriptBrowser_LateContentForPreviousMeetingIgnored(t *testing.T) {
	source := newSource()
	source.contentGate = make(chan struct{})
	nav := &recordingNavigator{}
	alerts := &recordingAlerts{}
	b := NewTranscriptBrowser(source, nav, alerts, time.UTC)
	wait(t, b.Mount(context.Background(), api.Meeting{ID: "evt-1"}))

	done, err := b.Open("f-1")
	require.NoError(t, err)
	assert.Equal(t, "f-1", b.View().Opening)

	wait(t, b.Mount(context.Background(), api.Meeting{ID: "evt-2"}))
	close(source.contentGate)
	wait(t, done)

	assert.Empty(t, nav.opened)
	assert.Empty(t, alerts.alerts)
	assert.Empty(t, b.View().Opening)
}

func TestTranscriptBrowser_StaleSelectionFromNavigator(t *testing.T) {
	nav := &recordingNavigator{err: session.ErrStaleSelection}
	alerts := &recordingAlerts{}
	b := NewTranscriptBrowser(newSource(), nav, alerts, time.UTC)
	wait(t, b.Mount(context.Background(), api.Meeting{ID: "evt-1"}))

	done, err := b.Open("f-1")
	require.NoError(t, err)
	wait(t, done)

	assert.Empty(t, alerts.alerts)
}

func TestTranscriptBrowser_CloseCancelsOpen(t *testing.T) {
	source := newSource()
	source.contentGate = make(chan struct{})
	nav := &recordingNavigator{}
	alerts := &recordingAlerts{}
	b := NewTranscriptBrowser(source, nav, alerts, time.UTC)
	wait(t, b.Mount(context.Background(), api.Meeting{ID: "evt-1"}))

	done, err := b.Open("f-1")
	require.NoError(t, err)
	b.Close()
	wait(t, done)

	assert.Empty(t, nav.opened)
	assert.Empty(t, alerts.alerts, "a cancelled fetch is not a failure")
	assert.Equal(t, PhaseIdle, b.Snapshot().Phase)
}
