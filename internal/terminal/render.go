package terminal

import (
	"fmt"
	"io"
	"strings"

	"github.com/teemow/meetscribe/internal/app"
	"github.com/teemow/meetscribe/internal/browser"
	"github.com/teemow/meetscribe/internal/session"
)

// DefaultWidth is used when the output is not a terminal.
const DefaultWidth = 80

// Renderer writes views as plain text.
type Renderer struct {
	w     io.Writer
	width int
}

// NewRenderer returns a renderer writing to w, wrapping rules at width.
func NewRenderer(w io.Writer, width int) *Renderer {
	if width <= 0 || width > 120 {
		width = DefaultWidth
	}
	return &Renderer{w: w, width: width}
}

func (r *Renderer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.w, format, args...)
}

func (r *Renderer) rule() {
	r.printf("%s\n", strings.Repeat("-", r.width))
}

// Alerts prints each alert on its own line.
func (r *Renderer) Alerts(alerts []string) {
	for _, a := range alerts {
		r.printf("! %s\n", a)
	}
}

// Render prints the screen for v followed by its available commands.
func (r *Renderer) Render(v app.View) {
	r.printf("\n")
	switch v.State.(type) {
	case session.Checking:
		r.printf("%s\n", browser.LabelCheckingAuth)
	case session.LoggedOut:
		r.renderLogin(v)
	case session.Meetings:
		r.renderMeetings(v.Meetings)
	case session.Transcripts:
		r.renderTranscripts(v.Transcripts)
	case session.Content:
		r.renderContent(v.Content)
	}
	r.printf("%s\n", commandsHelp(v))
}

func (r *Renderer) renderLogin(v app.View) {
	r.printf("%s\n", browser.LabelLoginPrompt)
	if v.LoginMessage != "" {
		r.printf("(%s)\n", v.LoginMessage)
	}
}

func (r *Renderer) renderMeetings(v *browser.MeetingsView) {
	r.printf("Meetings\n")
	r.rule()
	if v == nil {
		return
	}
	switch v.Phase {
	case browser.PhaseSuccess:
		for i, c := range v.Cards {
			r.printf("%2d. %s\n", i+1, c.Title)
			r.printf("    Date: %s\n", c.Start)
			if c.Description != "" {
				r.printf("    %s\n", oneLine(c.Description))
			}
			if c.HasAttendees() {
				r.printf("    Attendees: %d\n", c.AttendeeCount)
			}
		}
	case browser.PhaseError:
		r.printf("Error: %s\n", v.Message)
	default:
		r.printf("%s\n", v.Message)
	}
}

func (r *Renderer) renderTranscripts(v *browser.TranscriptsView) {
	if v == nil {
		return
	}
	r.printf("Transcripts for %s\n", v.Meeting.Title)
	r.rule()
	switch v.Phase {
	case browser.PhaseSuccess:
		for i, c := range v.Cards {
			marker := ""
			if c.FileID == v.Opening {
				marker = "  (" + browser.LabelLoadingContent + ")"
			}
			r.printf("%2d. %s%s\n", i+1, c.Name, marker)
			r.printf("    Size: %s\n", c.Size)
			r.printf("    Modified: %s\n", c.Modified)
			if c.MeetingTitle != "" {
				r.printf("    Meeting: %s\n", c.MeetingTitle)
			}
			if c.MeetingDate != "" {
				r.printf("    Date: %s\n", c.MeetingDate)
			}
		}
	case browser.PhaseEmpty:
		r.printf("%s\n%s\n", v.Message, browser.LabelNoTranscriptsHint)
	case browser.PhaseError:
		r.printf("Error: %s\n", v.Message)
	default:
		r.printf("%s\n", v.Message)
	}
}

func (r *Renderer) renderContent(v *browser.ContentView) {
	if v == nil {
		return
	}
	r.printf("%s\n", v.Name)
	r.printf("Meeting: %s (%s)\n", v.MeetingTitle, v.MeetingStart)
	r.printf("Modified: %s  Size: %s\n", v.Modified, v.Size)
	r.rule()
	r.printf("%s\n", v.Content)
	r.rule()
}

func commandsHelp(v app.View) string {
	switch v.State.(type) {
	case session.LoggedOut:
		return "[l] login  [q] quit"
	case session.Meetings:
		return "[1-n] select meeting  " + listActions(v.Meetings != nil && v.Meetings.CanRetry(), v.Meetings != nil && v.Meetings.CanRefresh()) + "[o] logout  [q] quit"
	case session.Transcripts:
		return "[1-n] open transcript  " + listActions(v.Transcripts != nil && v.Transcripts.CanRetry(), v.Transcripts != nil && v.Transcripts.CanRefresh()) + "[b] " + strings.ToLower(browser.LabelBackToMeetings) + "  [q] quit"
	case session.Content:
		return "[d] download  [b] " + strings.ToLower(browser.LabelBackToTranscripts) + "  [m] meetings  [q] quit"
	}
	return "[q] quit"
}

func listActions(canRetry, canRefresh bool) string {
	switch {
	case canRetry:
		return "[r] " + strings.ToLower(browser.LabelRetry) + "  "
	case canRefresh:
		return "[r] " + strings.ToLower(browser.LabelRefresh) + "  "
	}
	return ""
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
