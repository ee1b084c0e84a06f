package browser

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/teemow/meetscribe/internal/api"
	"github.com/teemow/meetscribe/internal/instrumentation"
	"github.com/teemow/meetscribe/internal/session"
)

// ContentView renders an already fetched transcript. It performs no I/O.
type ContentView struct {
	FileID       string
	Name         string
	MeetingTitle string
	MeetingStart string
	Modified     string
	Size         string
	Content      string
	WebViewLink  string
	DownloadURL  string
}

// NewContentView builds the view of state. downloadURL is the direct link to
// the file, see api.Client.DownloadURL.
func NewContentView(state session.Content, downloadURL string, loc *time.Location) ContentView {
	t := state.Transcript
	title := t.MeetingTitle
	if title == "" {
		title = state.Meeting.Title
	}
	return ContentView{
		FileID:       t.FileID,
		Name:         t.Name,
		MeetingTitle: title,
		MeetingStart: FormatTimestampIn(state.Meeting.StartTime, loc),
		Modified:     FormatTimestampIn(t.ModifiedTime, loc),
		Size:         FormatSize(t.Size),
		Content:      t.Content,
		WebViewLink:  t.WebViewLink,
		DownloadURL:  downloadURL,
	}
}

// Preview returns at most n characters of the content, with "..." appended
// when it was cut.
func (v ContentView) Preview(n int) string {
	runes := []rune(v.Content)
	if len(runes) <= n {
		return v.Content
	}
	return string(runes[:n]) + "..."
}

// Downloader streams transcript files.
type Downloader interface {
	Download(ctx context.Context, fileID string) (*api.Download, error)
}

// SaveDownload streams fileID into dir and returns the written path. The
// file is named after the server's Content-Disposition, or fallbackName
// when there is none; an existing file is never overwritten.
func SaveDownload(ctx context.Context, d Downloader, metrics *instrumentation.Metrics, fileID, fallbackName, dir string) (string, error) {
	path, err := saveDownload(ctx, d, fileID, fallbackName, dir)
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	metrics.RecordDownload(context.WithoutCancel(ctx), status)
	return path, err
}

func saveDownload(ctx context.Context, d Downloader, fileID, fallbackName, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}

	dl, err := d.Download(ctx, fileID)
	if err != nil {
		return "", err
	}
	defer dl.Body.Close()

	name := fallbackName
	if dl.Filename != "" {
		name = filepath.Base(filepath.FromSlash(dl.Filename))
	}
	name = SanitizeFilename(name)

	tmp, err := os.CreateTemp(dir, ".meetscribe-*.part")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer func() {
		// No-op once renamed.
		_ = os.Remove(tmp.Name())
	}()

	if _, err := io.Copy(tmp, dl.Body); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write transcript: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write transcript: %w", err)
	}

	target, err := uniquePath(dir, name)
	if err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("failed to move transcript into place: %w", err)
	}
	return target, nil
}

// uniquePath returns dir/name, or dir/name (n).ext when that exists.
func uniquePath(dir, name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := filepath.Join(dir, name)
	for i := 1; i < 1000; i++ {
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, nil
		} else if err != nil {
			return "", fmt.Errorf("failed to check %s: %w", candidate, err)
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, i, ext))
	}
	return "", fmt.Errorf("too many files named %q in %s", name, dir)
}
