package app

import (
	"github.com/teemow/meetscribe/internal/browser"
	"github.com/teemow/meetscribe/internal/session"
)

// View is an immutable rendering model of the whole App.
type View struct {
	// Version increases on every change.
	Version uint64
	State   session.State

	// LoginMessage is set on the login screen.
	LoginMessage string

	// Exactly one of these is set on the matching screen.
	Meetings    *browser.MeetingsView
	Transcripts *browser.TranscriptsView
	Content     *browser.ContentView
}

// Screen is the current screen name.
func (v View) Screen() session.Screen {
	return v.State.Screen()
}

// Busy reports whether a request is in flight.
func (v View) Busy() bool {
	switch v.State.(type) {
	case session.Checking:
		return true
	case session.Meetings:
		return v.Meetings != nil && (v.Meetings.Phase == browser.PhaseLoading || v.Meetings.Phase == browser.PhaseIdle)
	case session.Transcripts:
		if v.Transcripts == nil {
			return false
		}
		return v.Transcripts.Phase == browser.PhaseLoading || v.Transcripts.Phase == browser.PhaseIdle || v.Transcripts.Opening != ""
	}
	return false
}

// Snapshot renders the current state.
func (a *App) Snapshot() View {
	a.mu.Lock()
	version := a.version
	a.mu.Unlock()

	state := a.controller.State()
	v := View{Version: version, State: state}

	switch s := state.(type) {
	case session.LoggedOut:
		v.LoginMessage = s.Message
	case session.Meetings:
		mv := a.meetings.View()
		v.Meetings = &mv
	case session.Transcripts:
		tv := a.transcripts.View()
		v.Transcripts = &tv
	case session.Content:
		cv := browser.NewContentView(s, a.client.DownloadURL(s.Transcript.FileID), a.loc)
		v.Content = &cv
	}
	return v
}
