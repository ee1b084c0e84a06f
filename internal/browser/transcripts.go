package browser

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/teemow/meetscribe/internal/api"
	"github.com/teemow/meetscribe/internal/instrumentation"
	"github.com/teemow/meetscribe/internal/logging"
	"github.com/teemow/meetscribe/internal/session"
)

// TranscriptSource is the part of the API client the transcript list needs.
type TranscriptSource interface {
	ListTranscripts(ctx context.Context, meetingID string) (*api.TranscriptList, error)
	TranscriptContent(ctx context.Context, fileID string) (string, error)
}

// Navigator receives an opened transcript together with the meeting it was
// fetched for.
type Navigator interface {
	SelectTranscriptFor(ctx context.Context, meetingID string, t api.TranscriptContent) error
}

// Alerter shows a blocking message to the user.
type Alerter interface {
	Alert(message string)
}

// TranscriptCard is the rendering of one transcript in the list.
type TranscriptCard struct {
	FileID       string
	Name         string
	Size         string
	Modified     string
	MeetingTitle string
	MeetingDate  string
	MeetingCode  string
}

// NewTranscriptCard builds the card for t with times rendered in loc.
func NewTranscriptCard(t api.TranscriptSummary, loc *time.Location) TranscriptCard {
	return TranscriptCard{
		FileID:       t.FileID,
		Name:         t.Name,
		Size:         FormatSize(t.Size),
		Modified:     FormatTimestampIn(t.ModifiedTime, loc),
		MeetingTitle: t.MeetingTitle,
		MeetingDate:  t.MeetingDate,
		MeetingCode:  t.MeetingCode,
	}
}

// TranscriptsView is the rendering of the transcript list screen.
type TranscriptsView struct {
	Meeting api.Meeting
	Phase   Phase
	Message string
	Cards   []TranscriptCard
	// Opening is the file id whose content is being fetched, if any.
	Opening string
}

// CanRetry reports whether the retry action is offered.
func (v TranscriptsView) CanRetry() bool { return v.Phase == PhaseError }

// CanRefresh reports whether the refresh action is offered.
func (v TranscriptsView) CanRefresh() bool { return v.Phase == PhaseSuccess || v.Phase == PhaseEmpty }

// TranscriptBrowser is the transcript list of one meeting. It fetches on
// every mount, so a change of meeting always starts from Loading. Opening a
// card fetches the transcript content and hands it to the Navigator.
type TranscriptBrowser struct {
	source   TranscriptSource
	nav      Navigator
	alerter  Alerter
	loader   *Loader[api.TranscriptSummary]
	loc      *time.Location
	logger   logging.Logger
	metrics  *instrumentation.Metrics
	onChange func()

	mu         sync.Mutex
	base       context.Context
	meeting    api.Meeting
	echo       *api.Meeting
	scope      uint64
	openGen    uint64
	openCancel context.CancelFunc
	opening    string
}

// NewTranscriptBrowser creates the transcript list screen.
func NewTranscriptBrowser(source TranscriptSource, nav Navigator, alerter Alerter, loc *time.Location, opts ...LoaderOption) *TranscriptBrowser {
	var o loaderOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.NewSlogAdapter(nil)
	}
	if o.onChange == nil {
		o.onChange = func() {}
	}
	if loc == nil {
		loc = time.Local
	}
	return &TranscriptBrowser{
		source:   source,
		nav:      nav,
		alerter:  alerter,
		loader:   NewLoader[api.TranscriptSummary]("transcripts", LabelTranscriptsFailed, opts...),
		loc:      loc,
		logger:   o.logger,
		metrics:  o.metrics,
		onChange: o.onChange,
		base:     context.Background(),
	}
}

// Mount scopes the browser to meeting and starts loading its transcripts.
// Any content fetch for the previous scope is cancelled.
func (b *TranscriptBrowser) Mount(ctx context.Context, meeting api.Meeting) <-chan struct{} {
	b.mu.Lock()
	b.scope++
	b.cancelOpenLocked()
	b.base = ctx
	b.meeting = meeting
	b.echo = nil
	scope := b.scope
	b.mu.Unlock()

	meetingID := meeting.ID
	return b.loader.Load(ctx, func(ctx context.Context) ([]api.TranscriptSummary, error) {
		list, err := b.source.ListTranscripts(ctx, meetingID)
		if err != nil {
			return nil, err
		}
		b.mu.Lock()
		if scope == b.scope {
			b.echo = list.Meeting
		}
		b.mu.Unlock()
		return list.Transcripts, nil
	})
}

// Meeting returns the meeting the browser is scoped to.
func (b *TranscriptBrowser) Meeting() api.Meeting {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.meeting
}

// MeetingEcho returns the backend's copy of the scoped meeting from the
// last successful load, if it sent one.
func (b *TranscriptBrowser) MeetingEcho() *api.Meeting {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.echo
}

// Retry re-issues the request after an error.
func (b *TranscriptBrowser) Retry() (<-chan struct{}, error) {
	return b.loader.Retry()
}

// Refresh re-issues the request after a successful load.
func (b *TranscriptBrowser) Refresh() (<-chan struct{}, error) {
	return b.loader.Refresh()
}

// Close abandons the list request and any content fetch.
func (b *TranscriptBrowser) Close() {
	b.mu.Lock()
	b.scope++
	b.cancelOpenLocked()
	b.mu.Unlock()
	b.loader.Close()
}

// Snapshot returns the loader state.
func (b *TranscriptBrowser) Snapshot() Snapshot[api.TranscriptSummary] {
	return b.loader.Snapshot()
}

// View renders the current state.
func (b *TranscriptBrowser) View() TranscriptsView {
	snap := b.loader.Snapshot()

	b.mu.Lock()
	view := TranscriptsView{
		Meeting: b.meeting,
		Phase:   snap.Phase,
		Message: snap.Message,
		Opening: b.opening,
	}
	b.mu.Unlock()

	switch snap.Phase {
	case PhaseLoading, PhaseIdle:
		view.Message = LabelLoadingTranscripts
	case PhaseEmpty:
		view.Message = LabelNoTranscripts
	case PhaseSuccess:
		view.Cards = make([]TranscriptCard, len(snap.Items))
		for i, t := range snap.Items {
			view.Cards[i] = NewTranscriptCard(t, b.loc)
		}
	}
	return view
}

// Open fetches the content of the listed transcript fileID. On success the
// Navigator is asked to show it; on failure the Alerter is told and the
// screen stays as it is. A later Open, Mount or Close supersedes the fetch.
func (b *TranscriptBrowser) Open(fileID string) (<-chan struct{}, error) {
	summary, ok := b.find(fileID)
	if !ok {
		return nil, ErrNotFound
	}
	return b.open(summary), nil
}

// OpenIndex opens the transcript at the 1-based position n.
func (b *TranscriptBrowser) OpenIndex(n int) (<-chan struct{}, error) {
	items := b.loader.Snapshot().Items
	if n < 1 || n > len(items) {
		return nil, ErrNotFound
	}
	return b.open(items[n-1]), nil
}

func (b *TranscriptBrowser) find(fileID string) (api.TranscriptSummary, bool) {
	for _, t := range b.loader.Snapshot().Items {
		if t.FileID == fileID {
			return t, true
		}
	}
	return api.TranscriptSummary{}, false
}

func (b *TranscriptBrowser) open(summary api.TranscriptSummary) <-chan struct{} {
	b.mu.Lock()
	b.cancelOpenLocked()
	b.openGen++
	gen, scope := b.openGen, b.scope
	meetingID := b.meeting.ID
	ctx, cancel := context.WithCancel(b.base)
	b.openCancel = cancel
	b.opening = summary.FileID
	b.mu.Unlock()

	b.onChange()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()

		content, err := b.source.TranscriptContent(ctx, summary.FileID)

		b.mu.Lock()
		current := gen == b.openGen && scope == b.scope
		b.mu.Unlock()

		if !current || ctx.Err() != nil {
			b.dropStale(ctx, summary.FileID)
			return
		}
		// Opening is cleared only once navigation has happened.
		defer b.finishOpen(gen)

		if err != nil {
			b.logger.Warn("transcript content failed",
				logging.KeyFileID, summary.FileID,
				logging.KeyError, err.Error())
			b.alerter.Alert(LabelContentFailedPrefix + api.UserMessage(err, "Unknown error"))
			return
		}

		t := api.TranscriptContent{TranscriptSummary: summary, Content: content}
		if err := b.nav.SelectTranscriptFor(context.WithoutCancel(ctx), meetingID, t); err != nil {
			if errors.Is(err, session.ErrStaleSelection) || errors.Is(err, session.ErrNoMeeting) {
				b.dropStale(ctx, summary.FileID)
				return
			}
			b.logger.Error("opening transcript failed", logging.KeyError, err.Error())
		}
	}()
	return done
}

func (b *TranscriptBrowser) finishOpen(gen uint64) {
	b.mu.Lock()
	if gen == b.openGen {
		b.opening = ""
		b.openCancel = nil
	}
	b.mu.Unlock()
	b.onChange()
}

func (b *TranscriptBrowser) dropStale(ctx context.Context, fileID string) {
	b.metrics.RecordStaleResponse(context.WithoutCancel(ctx), "content")
	b.logger.Debug("dropping stale transcript content",
		logging.KeyFileID, fileID,
		logging.KeyStatus, logging.StatusStale)
}

// cancelOpenLocked must be called with b.mu held.
func (b *TranscriptBrowser) cancelOpenLocked() {
	if b.openCancel != nil {
		b.openCancel()
		b.openCancel = nil
	}
	b.opening = ""
}
