package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/meetscribe/internal/api"
	"github.com/teemow/meetscribe/internal/browser"
	"github.com/teemow/meetscribe/internal/instrumentation"
	"github.com/teemow/meetscribe/internal/logging"
	"github.com/teemow/meetscribe/internal/session"
)

// ErrNoContent is returned by content actions outside the content screen.
var ErrNoContent = errors.New("no transcript open")

// Client is the backend API as used by the application.
type Client interface {
	session.Authenticator
	browser.MeetingLister
	browser.TranscriptSource
	browser.Downloader
	DownloadURL(fileID string) string
}

// App is one user's browsing session.
type App struct {
	client      Client
	controller  *session.Controller
	meetings    *browser.MeetingBrowser
	transcripts *browser.TranscriptBrowser
	logger      *slog.Logger
	metrics     *instrumentation.Metrics
	loc         *time.Location

	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()

	// navMu serializes screen mounts. mounted is the state they reflect.
	navMu          sync.Mutex
	mounted        session.State
	mountedVersion uint64

	mu        sync.Mutex
	alerts    []string
	changed   chan struct{}
	version   uint64
	listeners []func()
}

// Option configures an App.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics *instrumentation.Metrics
	loc     *time.Location
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLocation sets the time zone timestamps are rendered in.
func WithLocation(loc *time.Location) Option {
	return func(o *options) { o.loc = loc }
}

// New creates an App in the Checking state. Call Init to leave it.
func New(client Client, opts ...Option) *App {
	o := options{loc: time.Local}
	for _, opt := range opts {
		opt(&o)
	}
	logger := logging.WithComponent(logging.OrDefault(o.logger), "app")
	adapter := logging.NewSlogAdapter(logger)

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		client:  client,
		logger:  logger,
		metrics: o.metrics,
		loc:     o.loc,
		ctx:     ctx,
		cancel:  cancel,
		changed: make(chan struct{}),
		mounted: session.Checking{},
	}

	a.controller = session.NewController(client,
		session.WithLogger(adapter),
		session.WithMetrics(o.metrics),
		session.WithAlerter(a),
	)

	loaderOpts := []browser.LoaderOption{
		browser.WithLogger(adapter),
		browser.WithMetrics(o.metrics),
		browser.WithOnChange(a.notify),
	}
	a.meetings = browser.NewMeetingBrowser(client, a.controller, o.loc, loaderOpts...)
	a.transcripts = browser.NewTranscriptBrowser(client, a.controller, a, o.loc, loaderOpts...)

	a.unsubscribe = a.controller.Subscribe(a.onTransition)
	return a
}

// Init checks authentication and moves to the login prompt or the meeting
// list.
func (a *App) Init(ctx context.Context) session.State {
	return a.controller.Init(ctx)
}

// Close stops all in-flight requests. The App must not be used afterwards.
func (a *App) Close() {
	a.unsubscribe()
	a.cancel()
	a.meetings.Close()
	a.transcripts.Close()
}

// Controller exposes the navigation controller.
func (a *App) Controller() *session.Controller {
	return a.controller
}

// Alert queues a blocking message for the front-end.
func (a *App) Alert(message string) {
	a.mu.Lock()
	a.alerts = append(a.alerts, message)
	a.mu.Unlock()
	a.notify()
}

// TakeAlerts returns and clears the queued alerts.
func (a *App) TakeAlerts() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	alerts := a.alerts
	a.alerts = nil
	return alerts
}

// Changed returns a channel that is closed on the next change of any kind.
func (a *App) Changed() <-chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.changed
}

// OnChange registers fn to be called after every change.
func (a *App) OnChange(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
}

func (a *App) notify() {
	a.mu.Lock()
	a.version++
	close(a.changed)
	a.changed = make(chan struct{})
	listeners := append([]func(){}, a.listeners...)
	a.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// onTransition mounts the screen navigation entered and closes the one it
// left. Observers may run out of order, so a change older than the last
// applied one is dropped and mounts are derived from the applied state.
func (a *App) onTransition(ch session.Change) {
	a.navMu.Lock()
	if ch.Version <= a.mountedVersion {
		a.navMu.Unlock()
		a.logger.Debug("superseded screen change dropped",
			logging.Screen(string(ch.To.Screen())),
			slog.Uint64("version", ch.Version))
		return
	}
	prev := a.mounted
	a.mounted, a.mountedVersion = ch.To, ch.Version
	a.mount(prev, ch.To)
	a.navMu.Unlock()

	a.logger.Debug("screen changed",
		slog.String("from", string(prev.Screen())),
		logging.Screen(string(ch.To.Screen())))
	a.notify()
}

func (a *App) mount(prev, next session.State) {
	from, to := prev.Screen(), next.Screen()

	if from == session.ScreenMeetings && to != session.ScreenMeetings {
		a.meetings.Close()
	}
	if to != session.ScreenTranscripts && to != session.ScreenContent {
		a.transcripts.Close()
	}

	switch s := next.(type) {
	case session.Meetings:
		if from != session.ScreenMeetings {
			a.meetings.Mount(a.ctx)
		}
	case session.Transcripts:
		a.transcripts.Mount(a.ctx, s.Meeting)
	}
}

// Login starts the backend login flow.
func (a *App) Login(ctx context.Context) error {
	return a.controller.Login(ctx)
}

// Logout returns to the login prompt.
func (a *App) Logout(ctx context.Context) {
	a.controller.Logout(ctx)
}

// SelectMeeting opens the transcript list of the listed meeting id.
func (a *App) SelectMeeting(ctx context.Context, id string) error {
	if _, ok := a.controller.State().(session.Meetings); !ok {
		return fmt.Errorf("select meeting: %w", browser.ErrNotFound)
	}
	_, err := a.meetings.Select(ctx, id)
	return err
}

// SelectMeetingIndex opens the transcript list of the n-th listed meeting.
func (a *App) SelectMeetingIndex(ctx context.Context, n int) error {
	if _, ok := a.controller.State().(session.Meetings); !ok {
		return fmt.Errorf("select meeting: %w", browser.ErrNotFound)
	}
	_, err := a.meetings.SelectIndex(ctx, n)
	return err
}

// OpenTranscript fetches the listed transcript fileID and shows it once it
// arrives. The returned channel is closed when the fetch has finished.
func (a *App) OpenTranscript(fileID string) (<-chan struct{}, error) {
	if _, ok := a.controller.State().(session.Transcripts); !ok {
		return nil, fmt.Errorf("open transcript: %w", browser.ErrNotFound)
	}
	return a.transcripts.Open(fileID)
}

// OpenTranscriptIndex opens the n-th listed transcript.
func (a *App) OpenTranscriptIndex(n int) (<-chan struct{}, error) {
	if _, ok := a.controller.State().(session.Transcripts); !ok {
		return nil, fmt.Errorf("open transcript: %w", browser.ErrNotFound)
	}
	return a.transcripts.OpenIndex(n)
}

// Retry re-issues the failed request of the current list screen.
func (a *App) Retry() (<-chan struct{}, error) {
	switch a.controller.State().(type) {
	case session.Meetings:
		return a.meetings.Retry()
	case session.Transcripts:
		return a.transcripts.Retry()
	}
	return nil, browser.ErrActionUnavailable
}

// Refresh re-issues the request of the current list screen.
func (a *App) Refresh() (<-chan struct{}, error) {
	switch a.controller.State().(type) {
	case session.Meetings:
		return a.meetings.Refresh()
	case session.Transcripts:
		return a.transcripts.Refresh()
	}
	return nil, browser.ErrActionUnavailable
}

// BackToMeetings returns to the meeting list.
func (a *App) BackToMeetings(ctx context.Context) {
	a.controller.BackToMeetings(ctx)
}

// BackToTranscripts returns from a transcript to its meeting's list.
func (a *App) BackToTranscripts(ctx context.Context) {
	a.controller.BackToTranscripts(ctx)
}

// DownloadURL is the direct link for the open transcript.
func (a *App) DownloadURL() (string, error) {
	c, ok := a.controller.State().(session.Content)
	if !ok {
		return "", ErrNoContent
	}
	return a.client.DownloadURL(c.Transcript.FileID), nil
}

// Download saves the open transcript into dir.
func (a *App) Download(ctx context.Context, dir string) (string, error) {
	c, ok := a.controller.State().(session.Content)
	if !ok {
		return "", ErrNoContent
	}
	path, err := browser.SaveDownload(ctx, a.client, a.metrics, c.Transcript.FileID, c.Transcript.Name, dir)
	if err != nil {
		a.logger.Warn("download failed", logging.FileID(c.Transcript.FileID), logging.Err(err))
		return "", err
	}
	a.logger.Info("transcript downloaded", logging.FileID(c.Transcript.FileID), slog.String("path", path))
	return path, nil
}

// WaitSettled blocks until no request is in flight or ctx is done.
func (a *App) WaitSettled(ctx context.Context) error {
	for {
		changed := a.Changed()
		if !a.Snapshot().Busy() {
			return nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// UserMessage is api.UserMessage for front-ends that only import app.
func UserMessage(err error) string {
	return api.UserMessage(err, "")
}
