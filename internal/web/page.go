package web

import (
	"embed"
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/teemow/meetscribe/internal/app"
	"github.com/teemow/meetscribe/internal/browser"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("page.html").ParseFS(templateFS, "templates/*.html"))

// labels exposes the shared front-end texts to the templates.
type labels struct {
	CheckingAuth       string
	LoginPrompt        string
	LoadingMeetings    string
	NoMeetings         string
	MeetingsFailed     string
	LoadingTranscripts string
	NoTranscripts      string
	NoTranscriptsHint  string
	TranscriptsFailed  string
	LoadingContent     string
	Retry              string
	Refresh            string
	BackToMeetings     string
	BackToTranscripts  string
	Download           string
}

var pageLabels = labels{
	CheckingAuth:       browser.LabelCheckingAuth,
	LoginPrompt:        browser.LabelLoginPrompt,
	LoadingMeetings:    browser.LabelLoadingMeetings,
	NoMeetings:         browser.LabelNoMeetings,
	MeetingsFailed:     browser.LabelMeetingsFailed,
	LoadingTranscripts: browser.LabelLoadingTranscripts,
	NoTranscripts:      browser.LabelNoTranscripts,
	NoTranscriptsHint:  browser.LabelNoTranscriptsHint,
	TranscriptsFailed:  browser.LabelTranscriptsFailed,
	LoadingContent:     browser.LabelLoadingContent,
	Retry:              browser.LabelRetry,
	Refresh:            browser.LabelRefresh,
	BackToMeetings:     browser.LabelBackToMeetings,
	BackToTranscripts:  browser.LabelBackToTranscripts,
	Download:           browser.LabelDownload,
}

type pageData struct {
	Screen string
	Busy   bool
	View   app.View
	Alerts []string
	L      labels
}

func newPageData(v app.View, alerts []string) pageData {
	return pageData{
		Screen: string(v.Screen()),
		Busy:   v.Busy(),
		View:   v,
		Alerts: alerts,
		L:      pageLabels,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
