package browser

import (
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/teemow/meetscribe/internal/api"
)

// DescriptionPreviewLength is the number of characters of a meeting
// description shown on its card.
const DescriptionPreviewLength = 100

// TimestampLayout is the short local date/time used on every screen.
const TimestampLayout = "Jan 2, 2006, 3:04 PM"

// DateLayout is used for values that carry a date only.
const DateLayout = "Jan 2, 2006"

// Labels shared by the front-ends.
const (
	LabelLoadingMeetings     = "Loading meetings..."
	LabelNoMeetings          = "No meetings found."
	LabelMeetingsFailed      = "Failed to load meetings"
	LabelLoadingTranscripts  = "Loading transcripts..."
	LabelNoTranscripts       = "No transcripts found for this meeting."
	LabelTranscriptsFailed   = "Failed to load transcripts"
	LabelLoadingContent      = "Loading transcript..."
	LabelContentFailedPrefix = "Failed to load transcript content: "
	LabelCheckingAuth        = "Checking authentication..."
	LabelLoginPrompt         = "Sign in to browse your meetings."
	LabelRetry               = "Try again"
	LabelRefresh             = "Refresh"
	LabelBackToMeetings      = "Back to meetings"
	LabelBackToTranscripts   = "Back to transcripts"
	LabelDownload            = "Download"
	LabelUnknownTime         = "Unknown"
	LabelNoTranscriptsHint   = "Make sure the meeting was recorded and transcripts are available."
)

// PreviewDescription returns the first DescriptionPreviewLength characters
// of s followed by "..." when s is longer, and s unchanged otherwise.
func PreviewDescription(s string) string {
	runes := []rune(s)
	if len(runes) <= DescriptionPreviewLength {
		return s
	}
	return string(runes[:DescriptionPreviewLength]) + "..."
}

// FormatTimestamp renders ts in the local time zone.
func FormatTimestamp(ts api.Timestamp) string {
	return FormatTimestampIn(ts, time.Local)
}

// FormatTimestampIn renders ts in loc. Date-only values are not shifted.
// Unparseable values are returned verbatim.
func FormatTimestampIn(ts api.Timestamp, loc *time.Location) string {
	if !ts.Valid() {
		if ts.Raw == "" {
			return LabelUnknownTime
		}
		return ts.Raw
	}
	if isDateOnly(ts.Raw) {
		return ts.Time.Format(DateLayout)
	}
	if loc == nil {
		loc = time.Local
	}
	return ts.Time.In(loc).Format(TimestampLayout)
}

func isDateOnly(raw string) bool {
	return len(raw) == len("2006-01-02") && !strings.ContainsAny(raw, "T ")
}

// RelativeTime renders ts relative to now, e.g. "3 hours ago".
func RelativeTime(ts api.Timestamp) string {
	if !ts.Valid() {
		return ""
	}
	return humanize.Time(ts.Time)
}

// FormatSize renders a byte count for humans, e.g. "20 kB".
func FormatSize(size api.ByteSize) string {
	if size <= 0 {
		return "0 B"
	}
	return humanize.Bytes(uint64(size))
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	filenameSpaces      = regexp.MustCompile(`\s+`)
)

// maxFilenameLength keeps generated names well under common path limits.
const maxFilenameLength = 100

// SanitizeFilename makes name safe to use as a single path element.
func SanitizeFilename(name string) string {
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = filenameSpaces.ReplaceAllString(strings.TrimSpace(name), "_")
	name = strings.Trim(name, ".")
	if runes := []rune(name); len(runes) > maxFilenameLength {
		name = string(runes[:maxFilenameLength])
	}
	if name == "" {
		return "transcript"
	}
	return name
}
