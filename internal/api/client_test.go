package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL+"/api", WithTimeout(5*time.Second))
	require.NoError(t, err)
	return c, srv
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		want    string
		wantErr bool
	}{
		{name: "default", baseURL: "", want: DefaultBaseURL},
		{name: "trailing slash trimmed", baseURL: "https://meet.example.com/api/", want: "https://meet.example.com/api"},
		{name: "unsupported scheme", baseURL: "ftp://example.com", wantErr: true},
		{name: "no scheme", baseURL: "localhost:5000", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(tt.baseURL)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.BaseURL())
		})
	}
}

func TestClient_AuthStatus(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/auth/status", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"authenticated": false, "message": "Not authenticated"}`)
	})

	status, err := c.AuthStatus(context.Background())
	require.NoError(t, err)
	assert.False(t, status.Authenticated)
	assert.Equal(t, "Not authenticated", status.Message)
}

func TestClient_Login(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantErr     string
	}{
		{
			name:        "success",
			status:      http.StatusOK,
			body:        `{"success": true, "message": "Successfully authenticated"}`,
			wantMessage: "Successfully authenticated",
		},
		{
			name:    "rejected with envelope",
			status:  http.StatusUnauthorized,
			body:    `{"success": false, "message": "Failed to authenticate with Google"}`,
			wantErr: "Failed to authenticate with Google",
		},
		{
			name:    "success false on 200",
			status:  http.StatusOK,
			body:    `{"success": false, "message": "consent required"}`,
			wantErr: "consent required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/api/auth/login", r.URL.Path)
				writeJSON(w, tt.status, tt.body)
			})

			msg, err := c.Login(context.Background())
			if tt.wantErr != "" {
				var apiErr *Error
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, tt.wantErr, apiErr.Message)
				assert.Equal(t, tt.status, apiErr.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMessage, msg)
		})
	}
}

func TestClient_ListMeetings(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/meetings", r.URL.Path)
		writeJSON(w, http.StatusOK, `{
			"success": true,
			"count": 2,
			"meetings": [
				{"id": "evt-1", "title": "Standup", "start_time": "2024-03-01T09:30:00+01:00",
				 "attendees": ["a@example.com", "b@example.com"], "meet_link": "https://meet.google.com/abc-defg-hij"},
				{"id": "evt-2", "title": "Offsite", "start_time": "2024-03-04"}
			]
		}`)
	})

	meetings, err := c.ListMeetings(context.Background())
	require.NoError(t, err)
	require.Len(t, meetings, 2)

	assert.Equal(t, "evt-1", meetings[0].ID)
	assert.Equal(t, "Standup", meetings[0].Title)
	assert.Len(t, meetings[0].Attendees, 2)
	assert.Equal(t, "https://meet.google.com/abc-defg-hij", meetings[0].MeetLink)
	assert.True(t, meetings[0].StartTime.Valid())
	assert.Equal(t, 8, meetings[0].StartTime.Time.UTC().Hour())

	assert.Equal(t, "evt-2", meetings[1].ID)
	assert.Equal(t, 4, meetings[1].StartTime.Time.Day())
}

func TestClient_ListMeetings_Empty(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success": true, "meetings": [], "count": 0}`)
	})

	meetings, err := c.ListMeetings(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, meetings)
	assert.Empty(t, meetings)
}

func TestClient_ListMeetings_Failures(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantAPIError  bool
		wantMessage   string
		wantUserMatch string
	}{
		{
			name:          "application failure",
			status:        http.StatusOK,
			body:          `{"success": false, "message": "quota exceeded"}`,
			wantAPIError:  true,
			wantMessage:   "quota exceeded",
			wantUserMatch: "quota exceeded",
		},
		{
			name:          "error status with envelope",
			status:        http.StatusInternalServerError,
			body:          `{"success": false, "message": "Error fetching meetings: boom"}`,
			wantAPIError:  true,
			wantMessage:   "Error fetching meetings: boom",
			wantUserMatch: "Error fetching meetings: boom",
		},
		{
			name:          "error status without envelope",
			status:        http.StatusBadGateway,
			body:          `<html>bad gateway</html>`,
			wantUserMatch: "Unable to reach the server: Bad Gateway",
		},
		{
			name:          "malformed json",
			status:        http.StatusOK,
			body:          `{"success": tru`,
			wantUserMatch: "Unable to reach the server: invalid JSON response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})

			_, err := c.ListMeetings(context.Background())
			require.Error(t, err)

			var apiErr *Error
			if tt.wantAPIError {
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, tt.wantMessage, apiErr.Message)
			} else {
				var transportErr *TransportError
				require.ErrorAs(t, err, &transportErr)
				assert.Equal(t, tt.status, transportErr.Status)
			}
			assert.True(t, strings.HasPrefix(UserMessage(err, ""), tt.wantUserMatch), UserMessage(err, ""))
		})
	}
}

func TestClient_ListTranscripts(t *testing.T) {
	var gotPath string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		writeJSON(w, http.StatusOK, `{
			"success": true,
			"meeting": {"id": "evt/1", "title": "Standup", "start_time": "2024-03-01T09:30:00Z"},
			"count": 1,
			"transcripts": [
				{"file_id": "f-1", "name": "Standup - Transcript", "size": "20480",
				 "modified_time": "2024-03-01T10:15:00.000Z", "meeting_date": "2024-03-01"}
			]
		}`)
	})

	list, err := c.ListTranscripts(context.Background(), "evt/1")
	require.NoError(t, err)

	assert.Equal(t, "/api/meetings/evt%2F1/transcripts", gotPath)
	require.NotNil(t, list.Meeting)
	assert.Equal(t, "Standup", list.Meeting.Title)
	require.Len(t, list.Transcripts, 1)
	assert.Equal(t, ByteSize(20480), list.Transcripts[0].Size)
	assert.True(t, list.Transcripts[0].ModifiedTime.Valid())
	assert.Equal(t, "2024-03-01", list.Transcripts[0].MeetingDate)
}

func TestClient_TranscriptContent(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantContent string
		wantUser    string
	}{
		{
			name:        "success",
			status:      http.StatusOK,
			body:        `{"success": true, "file_id": "f-1", "content": "Alice: hello\nBob: hi"}`,
			wantContent: "Alice: hello\nBob: hi",
		},
		{
			name:     "not found",
			status:   http.StatusOK,
			body:     `{"success": false, "message": "not found"}`,
			wantUser: "not found",
		},
		{
			name:     "unauthenticated",
			status:   http.StatusUnauthorized,
			body:     `{"success": false, "message": "Not authenticated"}`,
			wantUser: "Not authenticated",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/transcripts/f-1/content", r.URL.Path)
				writeJSON(w, tt.status, tt.body)
			})

			content, err := c.TranscriptContent(context.Background(), "f-1")
			if tt.wantUser != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantUser, UserMessage(err, ""))
				assert.Equal(t, tt.status == http.StatusUnauthorized, IsUnauthenticated(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantContent, content)
		})
	}
}

func TestClient_Download(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/transcripts/f-1/download", r.URL.Path)
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("Content-Disposition", `attachment; filename="Standup - Transcript.txt"`)
		_, _ = io.WriteString(w, "Alice: hello")
	})

	d, err := c.Download(context.Background(), "f-1")
	require.NoError(t, err)
	defer d.Body.Close()

	assert.Equal(t, "Standup - Transcript.txt", d.Filename)
	assert.Equal(t, "text/plain", d.ContentType)

	data, err := io.ReadAll(d.Body)
	require.NoError(t, err)
	assert.Equal(t, "Alice: hello", string(data))
}

func TestClient_Download_Error(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"success": false, "message": "Transcript not found"}`)
	})

	_, err := c.Download(context.Background(), "missing")
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Transcript not found", apiErr.Message)
}

func TestClient_Health(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"status": "healthy", "timestamp": "2024-03-01T10:00:00.123456"}`)
	})

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)
	assert.True(t, h.Timestamp.Valid())
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(url + "/api")
	require.NoError(t, err)

	_, err = c.ListMeetings(context.Background())
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.True(t, strings.HasPrefix(UserMessage(err, ""), "Unable to reach the server: "))
}

func TestClient_ContextCanceled(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ListMeetings(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestClient_DownloadURL(t *testing.T) {
	c, err := NewClient("http://localhost:5000/api")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000/api/transcripts/a%20b/download", c.DownloadURL("a b"))
}
