package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/meetscribe/internal/instrumentation"
	"github.com/teemow/meetscribe/internal/logging"
)

// DefaultBaseURL is the backend address used when none is configured.
const DefaultBaseURL = "http://localhost:5000/api"

// DefaultTimeout bounds every JSON request. Downloads are bounded by the
// caller's context only.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of a non-JSON error body is kept for messages.
const maxErrorBody = 512

// Client talks to the meeting-transcript backend.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its transport is still
// wrapped for tracing.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics sets the recorder for api_requests_total.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithTimeout bounds each JSON request. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// NewClient creates a client for the backend rooted at baseURL, e.g.
// "http://localhost:5000/api".
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid API base URL %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.WithComponent(logging.OrDefault(c.logger), "api")

	// Copy so the caller's client is not mutated.
	hc := *c.httpClient
	base := hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	hc.Transport = otelhttp.NewTransport(base)
	c.httpClient = &hc

	return c, nil
}

// BaseURL returns the backend root the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// endpointURL joins escaped path segments onto the base URL.
func (c *Client) endpointURL(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	u := *c.baseURL
	u.RawPath = ""
	return u.String() + "/" + strings.Join(escaped, "/")
}

// DownloadURL is the direct link for a transcript file download.
func (c *Client) DownloadURL(fileID string) string {
	return c.endpointURL("transcripts", fileID, "download")
}

// AuthStatus reports whether the backend holds valid credentials.
func (c *Client) AuthStatus(ctx context.Context) (*AuthStatus, error) {
	var resp authStatusResponse
	if err := c.doJSON(ctx, instrumentation.EndpointAuthStatus, http.MethodGet, c.endpointURL("auth", "status"), &resp, &resp.envelope); err != nil {
		return nil, err
	}
	return &AuthStatus{Authenticated: resp.Authenticated, Message: resp.message()}, nil
}

// Login asks the backend to start its login flow. It returns the server's
// message on success.
func (c *Client) Login(ctx context.Context) (string, error) {
	var resp envelope
	if err := c.doJSON(ctx, instrumentation.EndpointLogin, http.MethodPost, c.endpointURL("auth", "login"), &resp, &resp); err != nil {
		return "", err
	}
	if err := requireSuccess(instrumentation.EndpointLogin, http.StatusOK, resp); err != nil {
		return "", err
	}
	return resp.message(), nil
}

// ListMeetings returns the user's meetings in server order.
func (c *Client) ListMeetings(ctx context.Context) ([]Meeting, error) {
	var resp meetingsResponse
	if err := c.doJSON(ctx, instrumentation.EndpointListMeetings, http.MethodGet, c.endpointURL("meetings"), &resp, &resp.envelope); err != nil {
		return nil, err
	}
	if err := requireSuccess(instrumentation.EndpointListMeetings, http.StatusOK, resp.envelope); err != nil {
		return nil, err
	}
	if resp.Meetings == nil {
		return []Meeting{}, nil
	}
	return resp.Meetings, nil
}

// ListTranscripts returns the transcripts attached to a meeting.
func (c *Client) ListTranscripts(ctx context.Context, meetingID string) (*TranscriptList, error) {
	ctx = withSpanAttrs(ctx, instrumentation.MeetingAttr(meetingID))
	var resp transcriptsResponse
	if err := c.doJSON(ctx, instrumentation.EndpointListTranscripts, http.MethodGet, c.endpointURL("meetings", meetingID, "transcripts"), &resp, &resp.envelope); err != nil {
		return nil, err
	}
	if err := requireSuccess(instrumentation.EndpointListTranscripts, http.StatusOK, resp.envelope); err != nil {
		return nil, err
	}
	list := &TranscriptList{Meeting: resp.Meeting, Transcripts: resp.Transcripts}
	if list.Transcripts == nil {
		list.Transcripts = []TranscriptSummary{}
	}
	return list, nil
}

// TranscriptContent returns the full text of a transcript file.
func (c *Client) TranscriptContent(ctx context.Context, fileID string) (string, error) {
	ctx = withSpanAttrs(ctx, instrumentation.FileAttr(fileID))
	var resp contentResponse
	if err := c.doJSON(ctx, instrumentation.EndpointTranscriptContent, http.MethodGet, c.endpointURL("transcripts", fileID, "content"), &resp, &resp.envelope); err != nil {
		return "", err
	}
	if err := requireSuccess(instrumentation.EndpointTranscriptContent, http.StatusOK, resp.envelope); err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Health probes the backend's health endpoint.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var resp Health
	var env envelope
	if err := c.doJSON(ctx, instrumentation.EndpointHealth, http.MethodGet, c.endpointURL("health"), &resp, &env); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Download streams a transcript file. The returned Body must be closed.
func (c *Client) Download(ctx context.Context, fileID string) (*Download, error) {
	const op = instrumentation.EndpointDownload
	start := time.Now()

	ctx, span := instrumentation.StartAPISpan(ctx, op, instrumentation.FileAttr(fileID))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.DownloadURL(fileID), nil)
	if err != nil {
		return nil, c.finish(ctx, op, start, span, &TransportError{Op: op, Err: err})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.finish(ctx, op, start, span, &TransportError{Op: op, Err: err})
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, c.finish(ctx, op, start, span, statusError(op, resp))
	}

	d := &Download{
		Filename:    filenameFromDisposition(resp.Header.Get("Content-Disposition")),
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
		Body:        resp.Body,
	}
	_ = c.finish(ctx, op, start, span, nil)
	return d, nil
}

type spanAttrsKey struct{}

func withSpanAttrs(ctx context.Context, attrs ...attribute.KeyValue) context.Context {
	return context.WithValue(ctx, spanAttrsKey{}, attrs)
}

func spanAttrs(ctx context.Context) []attribute.KeyValue {
	attrs, _ := ctx.Value(spanAttrsKey{}).([]attribute.KeyValue)
	return attrs
}

// doJSON performs one request and decodes the JSON body into out. env
// receives the envelope of an error status so the server's message can be
// reported.
func (c *Client) doJSON(ctx context.Context, op, method, rawURL string, out any, env *envelope) error {
	start := time.Now()

	ctx, span := instrumentation.StartAPISpan(ctx, op, spanAttrs(ctx)...)
	defer span.End()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return c.finish(ctx, op, start, span, &TransportError{Op: op, Err: err})
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.finish(ctx, op, start, span, &TransportError{Op: op, Err: err})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.finish(ctx, op, start, span, &TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)})
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode <= 299
	if !ok {
		// An error status with an envelope is an application failure.
		if json.Unmarshal(body, env) == nil && env.message() != "" {
			return c.finish(ctx, op, start, span, &Error{Op: op, Status: resp.StatusCode, Message: env.message()})
		}
		return c.finish(ctx, op, start, span, &TransportError{Op: op, Status: resp.StatusCode, Err: errors.New(bodySnippet(resp.StatusCode, body))})
	}

	if err := json.Unmarshal(body, out); err != nil {
		return c.finish(ctx, op, start, span, &TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("invalid JSON response: %w", err)})
	}
	return c.finish(ctx, op, start, span, nil)
}

// finish records the outcome of a call and returns err unchanged.
func (c *Client) finish(ctx context.Context, op string, start time.Time, span trace.Span, err error) error {
	duration := time.Since(start)
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}

	if err != nil {
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	c.metrics.RecordAPIRequest(ctx, op, status, duration)

	if err != nil {
		c.logger.Debug("api request failed",
			logging.Endpoint(op),
			slog.Duration(logging.KeyDuration, duration),
			logging.Err(err))
	} else {
		c.logger.Debug("api request completed",
			logging.Endpoint(op),
			slog.Duration(logging.KeyDuration, duration))
	}
	return err
}

func requireSuccess(op string, status int, env envelope) error {
	if env.Success != nil && !*env.Success {
		return &Error{Op: op, Status: status, Message: env.message()}
	}
	return nil
}

func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var env envelope
	if json.Unmarshal(body, &env) == nil && env.message() != "" {
		return &Error{Op: op, Status: resp.StatusCode, Message: env.message()}
	}
	return &TransportError{Op: op, Status: resp.StatusCode, Err: errors.New(bodySnippet(resp.StatusCode, body))}
}

func bodySnippet(status int, body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	if text == "" || strings.HasPrefix(text, "<") {
		return http.StatusText(status)
	}
	return text
}

// filenameFromDisposition extracts the filename parameter, if any.
func filenameFromDisposition(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}
