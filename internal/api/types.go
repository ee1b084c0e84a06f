package api

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// timestampLayouts are tried in order when decoding a Timestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp is an ISO-8601 value as sent by the backend. Raw keeps the
// original text so values that fail to parse can still be shown verbatim.
type Timestamp struct {
	Time time.Time
	Raw  string
}

// ParseTimestamp parses s using the layouts the backend is known to emit.
// Values without a zone are interpreted in UTC.
func ParseTimestamp(s string) Timestamp {
	s = strings.TrimSpace(s)
	ts := Timestamp{Raw: s}
	if s == "" {
		return ts
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			ts.Time = t
			return ts
		}
	}
	return ts
}

// IsZero reports whether the timestamp carries no value at all.
func (t Timestamp) IsZero() bool {
	return t.Time.IsZero() && t.Raw == ""
}

// Valid reports whether the raw value was parsed into a time.
func (t Timestamp) Valid() bool {
	return !t.Time.IsZero()
}

func (t Timestamp) String() string {
	if t.Valid() {
		return t.Time.Format(time.RFC3339)
	}
	return t.Raw
}

// UnmarshalJSON accepts a string or null.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	*t = ParseTimestamp(s)
	return nil
}

// MarshalJSON emits the original text.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Raw)
}

// MarshalYAML emits the original text.
func (t Timestamp) MarshalYAML() (any, error) {
	return t.Raw, nil
}

// ByteSize is a file size in bytes. The backend forwards the storage
// provider's value, which may be a JSON string or number.
type ByteSize int64

// UnmarshalJSON accepts a number, a numeric string, an empty string, or null.
func (b *ByteSize) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*b = 0
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			*b = 0
			return nil
		}
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil {
			return fmt.Errorf("invalid size %q: %w", raw, err)
		}
		n = int64(f)
	}
	*b = ByteSize(n)
	return nil
}

// Meeting is a calendar event as listed by the backend.
type Meeting struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	StartTime   Timestamp `json:"start_time" yaml:"start_time"`
	EndTime     Timestamp `json:"end_time,omitempty" yaml:"end_time,omitempty"`
	MeetLink    string    `json:"meet_link,omitempty" yaml:"meet_link,omitempty"`
	Attendees   []string  `json:"attendees,omitempty" yaml:"attendees,omitempty"`
	Organizer   string    `json:"organizer,omitempty" yaml:"organizer,omitempty"`
}

// TranscriptSummary describes one transcript file attached to a meeting.
type TranscriptSummary struct {
	FileID       string    `json:"file_id" yaml:"file_id"`
	Name         string    `json:"name" yaml:"name"`
	MimeType     string    `json:"mime_type,omitempty" yaml:"mime_type,omitempty"`
	Size         ByteSize  `json:"size" yaml:"size"`
	CreatedTime  Timestamp `json:"created_time,omitempty" yaml:"created_time,omitempty"`
	ModifiedTime Timestamp `json:"modified_time" yaml:"modified_time"`
	WebViewLink  string    `json:"web_view_link,omitempty" yaml:"web_view_link,omitempty"`
	MeetingCode  string    `json:"meeting_code,omitempty" yaml:"meeting_code,omitempty"`
	MeetingTitle string    `json:"meeting_title,omitempty" yaml:"meeting_title,omitempty"`
	MeetingDate  string    `json:"meeting_date,omitempty" yaml:"meeting_date,omitempty"`
}

// TranscriptContent is a transcript summary together with its full text.
type TranscriptContent struct {
	TranscriptSummary `yaml:",inline"`
	Content           string `json:"content" yaml:"content"`
}

// AuthStatus is the answer of GET /auth/status.
type AuthStatus struct {
	Authenticated bool   `json:"authenticated" yaml:"authenticated"`
	Message       string `json:"message,omitempty" yaml:"message,omitempty"`
}

// TranscriptList is the answer of GET /meetings/{id}/transcripts. Meeting is
// the backend's echo of the event and may be nil.
type TranscriptList struct {
	Meeting     *Meeting            `json:"meeting,omitempty" yaml:"meeting,omitempty"`
	Transcripts []TranscriptSummary `json:"transcripts" yaml:"transcripts"`
}

// Health is the answer of GET /health.
type Health struct {
	Status    string    `json:"status" yaml:"status"`
	Timestamp Timestamp `json:"timestamp" yaml:"timestamp"`
}

// Download is a streamed transcript file. The caller must close Body.
type Download struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

// envelope is the common shape of every JSON response.
type envelope struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (e envelope) message() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

type meetingsResponse struct {
	envelope
	Meetings []Meeting `json:"meetings"`
	Count    int       `json:"count"`
}

type transcriptsResponse struct {
	envelope
	Meeting     *Meeting            `json:"meeting"`
	Transcripts []TranscriptSummary `json:"transcripts"`
	Count       int                 `json:"count"`
}

type contentResponse struct {
	envelope
	Content string `json:"content"`
	FileID  string `json:"file_id"`
}

type authStatusResponse struct {
	envelope
	Authenticated bool `json:"authenticated"`
}
