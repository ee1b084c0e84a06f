package session

import "github.com/teemow/meetscribe/internal/api"

// Screen names the view a State renders as.
type Screen string

const (
	ScreenChecking    Screen = "checking"
	ScreenLoggedOut   Screen = "logged_out"
	ScreenMeetings    Screen = "meetings"
	ScreenTranscripts Screen = "transcripts"
	ScreenContent     Screen = "content"
)

// State is the navigation state. It is one of Checking, LoggedOut, Meetings,
// Transcripts or Content; the set is closed, so a transcript without a
// meeting cannot be expressed.
type State interface {
	Screen() Screen
	sealed()
}

// Checking is the initial state while authentication is verified.
type Checking struct{}

// LoggedOut shows the login prompt. Message is the last status text from
// the backend, if any.
type LoggedOut struct {
	Message string
}

// Meetings shows the meeting list.
type Meetings struct{}

// Transcripts shows the transcripts of one meeting.
type Transcripts struct {
	Meeting api.Meeting
}

// Content shows one transcript of the selected meeting.
type Content struct {
	Meeting    api.Meeting
	Transcript api.TranscriptContent
}

func (Checking) Screen() Screen    { return ScreenChecking }
func (LoggedOut) Screen() Screen   { return ScreenLoggedOut }
func (Meetings) Screen() Screen    { return ScreenMeetings }
func (Transcripts) Screen() Screen { return ScreenTranscripts }
func (Content) Screen() Screen     { return ScreenContent }

func (Checking) sealed()    {}
func (LoggedOut) sealed()   {}
func (Meetings) sealed()    {}
func (Transcripts) sealed() {}
func (Content) sealed()     {}

// SelectedMeeting returns the meeting selected in s, if any.
func SelectedMeeting(s State) (api.Meeting, bool) {
	switch v := s.(type) {
	case Transcripts:
		return v.Meeting, true
	case Content:
		return v.Meeting, true
	default:
		return api.Meeting{}, false
	}
}

// SelectedTranscript returns the transcript selected in s, if any.
func SelectedTranscript(s State) (api.TranscriptContent, bool) {
	if v, ok := s.(Content); ok {
		return v.Transcript, true
	}
	return api.TranscriptContent{}, false
}
