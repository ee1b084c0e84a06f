package browser

import (
	"context"
	"errors"
	"time"

	"github.com/teemow/meetscribe/internal/api"
)

// ErrNotFound is returned when a selection names an item that is not in the
// current list.
var ErrNotFound = errors.New("item not found in current list")

// MeetingLister is the part of the API client the meeting list needs.
type MeetingLister interface {
	ListMeetings(ctx context.Context) ([]api.Meeting, error)
}

// MeetingSelector receives the user's meeting choice.
type MeetingSelector interface {
	SelectMeeting(ctx context.Context, m api.Meeting)
}

// MeetingCard is the rendering of one meeting in the list.
type MeetingCard struct {
	ID            string
	Title         string
	Start         string
	Description   string
	AttendeeCount int
	MeetLink      string
}

// HasAttendees reports whether the attendee count should be shown.
func (c MeetingCard) HasAttendees() bool {
	return c.AttendeeCount > 0
}

// NewMeetingCard builds the card for m with times rendered in loc.
func NewMeetingCard(m api.Meeting, loc *time.Location) MeetingCard {
	return MeetingCard{
		ID:            m.ID,
		Title:         m.Title,
		Start:         FormatTimestampIn(m.StartTime, loc),
		Description:   PreviewDescription(m.Description),
		AttendeeCount: len(m.Attendees),
		MeetLink:      m.MeetLink,
	}
}

// MeetingsView is the rendering of the meeting list screen.
type MeetingsView struct {
	Phase   Phase
	Message string
	Cards   []MeetingCard
}

// CanRetry reports whether the retry action is offered.
func (v MeetingsView) CanRetry() bool { return v.Phase == PhaseError }

// CanRefresh reports whether the refresh action is offered.
func (v MeetingsView) CanRefresh() bool { return v.Phase == PhaseSuccess || v.Phase == PhaseEmpty }

// MeetingBrowser is the meeting list screen. It issues one GET /meetings on
// mount and on each retry or refresh.
type MeetingBrowser struct {
	client   MeetingLister
	selector MeetingSelector
	loader   *Loader[api.Meeting]
	loc      *time.Location
}

// NewMeetingBrowser creates the meeting list screen.
func NewMeetingBrowser(client MeetingLister, selector MeetingSelector, loc *time.Location, opts ...LoaderOption) *MeetingBrowser {
	if loc == nil {
		loc = time.Local
	}
	return &MeetingBrowser{
		client:   client,
		selector: selector,
		loader:   NewLoader[api.Meeting]("meetings", LabelMeetingsFailed, opts...),
		loc:      loc,
	}
}

// Mount starts loading the meeting list. ctx bounds this fetch and every
// retry or refresh until the next Mount or Close.
func (b *MeetingBrowser) Mount(ctx context.Context) <-chan struct{} {
	return b.loader.Load(ctx, b.client.ListMeetings)
}

// Retry re-issues the request after an error.
func (b *MeetingBrowser) Retry() (<-chan struct{}, error) {
	return b.loader.Retry()
}

// Refresh re-issues the request after a successful load.
func (b *MeetingBrowser) Refresh() (<-chan struct{}, error) {
	return b.loader.Refresh()
}

// Close abandons any in-flight request.
func (b *MeetingBrowser) Close() {
	b.loader.Close()
}

// Snapshot returns the loader state.
func (b *MeetingBrowser) Snapshot() Snapshot[api.Meeting] {
	return b.loader.Snapshot()
}

// View renders the current state.
func (b *MeetingBrowser) View() MeetingsView {
	snap := b.loader.Snapshot()
	view := MeetingsView{Phase: snap.Phase, Message: snap.Message}
	switch snap.Phase {
	case PhaseLoading, PhaseIdle:
		view.Message = LabelLoadingMeetings
	case PhaseEmpty:
		view.Message = LabelNoMeetings
	case PhaseSuccess:
		view.Cards = make([]MeetingCard, len(snap.Items))
		for i, m := range snap.Items {
			view.Cards[i] = NewMeetingCard(m, b.loc)
		}
	}
	return view
}

// Select forwards the meeting with the given id to the selector.
func (b *MeetingBrowser) Select(ctx context.Context, id string) (api.Meeting, error) {
	for _, m := range b.loader.Snapshot().Items {
		if m.ID == id {
			b.selector.SelectMeeting(ctx, m)
			return m, nil
		}
	}
	return api.Meeting{}, ErrNotFound
}

// SelectIndex forwards the meeting at the 1-based position n.
func (b *MeetingBrowser) SelectIndex(ctx context.Context, n int) (api.Meeting, error) {
	items := b.loader.Snapshot().Items
	if n < 1 || n > len(items) {
		return api.Meeting{}, ErrNotFound
	}
	m := items[n-1]
	b.selector.SelectMeeting(ctx, m)
	return m, nil
}
