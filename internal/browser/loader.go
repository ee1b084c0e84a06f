package browser

import (
	"context"
	"errors"
	"sync"

	"github.com/teemow/meetscribe/internal/api"
	"github.com/teemow/meetscribe/internal/instrumentation"
	"github.com/teemow/meetscribe/internal/logging"
)

// Phase is the state of a Loader.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseError   Phase = "error"
	PhaseEmpty   Phase = "empty"
	PhaseSuccess Phase = "success"
)

// ErrActionUnavailable is returned by Retry and Refresh when the loader is
// not in a phase that offers the action.
var ErrActionUnavailable = errors.New("action not available in current state")

// Snapshot is an immutable view of a Loader.
type Snapshot[T any] struct {
	Phase      Phase
	Items      []T
	Err        error
	Message    string
	Generation uint64
}

// FetchFunc performs the loader's single request.
type FetchFunc[T any] func(ctx context.Context) ([]T, error)

// Loader runs one fetch at a time and keeps the outcome. Starting a new
// fetch cancels the previous one; its result is discarded even if it
// arrives.
type Loader[T any] struct {
	name            string
	failureFallback string
	logger          logging.Logger
	metrics         *instrumentation.Metrics
	onChange        func()

	mu     sync.Mutex
	base   context.Context
	fetch  FetchFunc[T]
	gen    uint64
	cancel context.CancelFunc
	snap   Snapshot[T]
}

// LoaderOption configures a Loader.
type LoaderOption func(*loaderOptions)

type loaderOptions struct {
	logger   logging.Logger
	metrics  *instrumentation.Metrics
	onChange func()
}

// WithLogger sets the logger for fetch failures.
func WithLogger(logger logging.Logger) LoaderOption {
	return func(o *loaderOptions) { o.logger = logger }
}

// WithMetrics sets the recorder for dropped results.
func WithMetrics(m *instrumentation.Metrics) LoaderOption {
	return func(o *loaderOptions) { o.metrics = m }
}

// WithOnChange registers a callback run after every phase change. It is
// called without the loader's lock held.
func WithOnChange(fn func()) LoaderOption {
	return func(o *loaderOptions) { o.onChange = fn }
}

// NewLoader returns an idle loader. name labels logs and metrics;
// failureFallback is shown when an error carries no message.
func NewLoader[T any](name, failureFallback string, opts ...LoaderOption) *Loader[T] {
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
	return &Loader[T]{
		name:            name,
		failureFallback: failureFallback,
		logger:          o.logger,
		metrics:         o.metrics,
		onChange:        o.onChange,
		snap:            Snapshot[T]{Phase: PhaseIdle},
	}
}

// Load sets the request and starts it. ctx bounds this and every later
// retry or refresh. The returned channel is closed when the fetch has
// finished, whether or not its result was applied.
func (l *Loader[T]) Load(ctx context.Context, fetch FetchFunc[T]) <-chan struct{} {
	l.mu.Lock()
	l.base = ctx
	l.fetch = fetch
	done := l.startLocked()
	l.mu.Unlock()

	l.onChange()
	return done
}

// Retry re-issues the same request. Only available after an error.
func (l *Loader[T]) Retry() (<-chan struct{}, error) {
	return l.restart(PhaseError)
}

// Refresh re-issues the same request. Only available after a successful
// load, empty or not.
func (l *Loader[T]) Refresh() (<-chan struct{}, error) {
	return l.restart(PhaseSuccess, PhaseEmpty)
}

func (l *Loader[T]) restart(allowed ...Phase) (<-chan struct{}, error) {
	l.mu.Lock()
	ok := false
	for _, p := range allowed {
		if l.snap.Phase == p {
			ok = true
		}
	}
	if !ok || l.fetch == nil {
		l.mu.Unlock()
		return nil, ErrActionUnavailable
	}
	done := l.startLocked()
	l.mu.Unlock()

	l.onChange()
	return done, nil
}

// Snapshot returns the current state.
func (l *Loader[T]) Snapshot() Snapshot[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snap
}

// Close cancels any in-flight fetch and returns to idle. Late results are
// dropped.
func (l *Loader[T]) Close() {
	l.mu.Lock()
	l.gen++
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.fetch = nil
	l.snap = Snapshot[T]{Phase: PhaseIdle, Generation: l.gen}
	l.mu.Unlock()
}

// startLocked must be called with l.mu held.
func (l *Loader[T]) startLocked() <-chan struct{} {
	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	gen := l.gen
	ctx, cancel := context.WithCancel(l.base)
	l.cancel = cancel
	l.snap = Snapshot[T]{Phase: PhaseLoading, Generation: gen}
	fetch := l.fetch

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()
		items, err := fetch(ctx)
		l.complete(ctx, gen, items, err)
	}()
	return done
}

func (l *Loader[T]) complete(ctx context.Context, gen uint64, items []T, err error) {
	l.mu.Lock()
	if gen != l.gen {
		l.mu.Unlock()
		l.metrics.RecordStaleResponse(context.WithoutCancel(ctx), l.name)
		l.logger.Debug("dropping stale result",
			logging.KeyComponent, l.name,
			"generation", gen,
			logging.KeyStatus, logging.StatusStale)
		return
	}
	l.cancel = nil

	switch {
	case err != nil:
		l.snap = Snapshot[T]{
			Phase:      PhaseError,
			Err:        err,
			Message:    api.UserMessage(err, l.failureFallback),
			Generation: gen,
		}
	case len(items) == 0:
		l.snap = Snapshot[T]{Phase: PhaseEmpty, Items: []T{}, Generation: gen}
	default:
		l.snap = Snapshot[T]{Phase: PhaseSuccess, Items: items, Generation: gen}
	}
	l.mu.Unlock()

	if err != nil {
		l.logger.Warn("load failed", logging.KeyComponent, l.name, logging.KeyError, err.Error())
	}
	l.onChange()
}
