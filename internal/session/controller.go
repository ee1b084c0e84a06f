package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/teemow/meetscribe/internal/api"
	"github.com/teemow/meetscribe/internal/instrumentation"
	"github.com/teemow/meetscribe/internal/logging"
)

var (
	// ErrNoMeeting is returned when a transcript is selected with no meeting selected.
	ErrNoMeeting = errors.New("no meeting selected")

	// ErrStaleSelection is returned when a transcript arrives for a meeting
	// that is no longer selected.
	ErrStaleSelection = errors.New("meeting selection changed")

	// ErrNotLoggedOut is returned by Login outside the login prompt.
	ErrNotLoggedOut = errors.New("not on the login prompt")
)

// Authenticator is the part of the API client the controller needs.
type Authenticator interface {
	AuthStatus(ctx context.Context) (*api.AuthStatus, error)
	Login(ctx context.Context) (string, error)
}

// Alerter receives blocking notifications for the user.
type Alerter interface {
	Alert(message string)
}

// AlertFunc adapts a function to Alerter.
type AlertFunc func(message string)

// Alert calls f(message).
func (f AlertFunc) Alert(message string) { f(message) }

// Change describes one transition. Version increases by one per transition.
type Change struct {
	From    State
	To      State
	Version uint64
}

// Controller owns the navigation state. All mutation goes through its
// transition methods; it is safe for concurrent use.
type Controller struct {
	auth    Authenticator
	logger  logging.Logger
	metrics *instrumentation.Metrics
	alerter Alerter

	mu        sync.Mutex
	state     State
	version   uint64
	observers map[int]func(Change)
	nextID    int
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithMetrics sets the recorder for screen transitions.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithAlerter sets where login failures are reported.
func WithAlerter(a Alerter) Option {
	return func(c *Controller) { c.alerter = a }
}

// NewController returns a controller in the Checking state.
func NewController(auth Authenticator, opts ...Option) *Controller {
	c := &Controller{
		auth:      auth,
		state:     Checking{},
		observers: make(map[int]func(Change)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.NewSlogAdapter(nil)
	}
	if c.alerter == nil {
		c.alerter = AlertFunc(func(string) {})
	}
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Version returns the number of transitions so far.
func (c *Controller) Version() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// Subscribe registers fn to be called after every transition. Calls happen
// outside the controller's lock on the goroutine that made the transition,
// so concurrent transitions may be observed out of Version order.
// The returned func removes the subscription.
func (c *Controller) Subscribe(fn func(Change)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.observers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// Init checks authentication and leaves Checking. A failing check is logged
// and treated as logged out.
func (c *Controller) Init(ctx context.Context) State {
	status, err := c.auth.AuthStatus(ctx)
	if err != nil {
		c.logger.Warn("auth status check failed", logging.KeyError, err.Error())
		return c.transition(ctx, func(State) (State, error) {
			return LoggedOut{}, nil
		})
	}

	return c.transition(ctx, func(State) (State, error) {
		if status.Authenticated {
			return Meetings{}, nil
		}
		return LoggedOut{Message: status.Message}, nil
	})
}

// Login asks the backend to authenticate. It only applies from LoggedOut.
// On success the state moves to Meetings; on failure it stays LoggedOut and
// the alerter is told why.
func (c *Controller) Login(ctx context.Context) error {
	if _, ok := c.State().(LoggedOut); !ok {
		return ErrNotLoggedOut
	}

	msg, err := c.auth.Login(ctx)
	if err != nil {
		text := api.UserMessage(err, "Unknown error")
		c.logger.Warn("login failed", logging.KeyError, err.Error())
		c.transition(ctx, func(cur State) (State, error) {
			if _, ok := cur.(LoggedOut); !ok {
				return nil, nil
			}
			return LoggedOut{Message: text}, nil
		})
		c.alerter.Alert("Login failed: " + text)
		return fmt.Errorf("login: %w", err)
	}

	c.logger.Info("login succeeded", "message", msg)
	return c.transitionErr(ctx, func(cur State) (State, error) {
		// Logged out or in again while the request was in flight.
		if _, ok := cur.(LoggedOut); !ok {
			return nil, ErrNotLoggedOut
		}
		return Meetings{}, nil
	})
}

// Logout forgets the client-side session and returns to the login prompt.
func (c *Controller) Logout(ctx context.Context) {
	c.transition(ctx, func(State) (State, error) {
		return LoggedOut{}, nil
	})
}

// SelectMeeting shows the transcripts of m, clearing any selected transcript.
// Before login it is a no-op.
func (c *Controller) SelectMeeting(ctx context.Context, m api.Meeting) {
	c.transition(ctx, func(cur State) (State, error) {
		if !authenticated(cur) {
			return nil, nil
		}
		return Transcripts{Meeting: m}, nil
	})
}

// SelectTranscript shows t for the currently selected meeting.
func (c *Controller) SelectTranscript(ctx context.Context, t api.TranscriptContent) error {
	return c.transitionErr(ctx, func(cur State) (State, error) {
		m, ok := SelectedMeeting(cur)
		if !ok {
			return nil, ErrNoMeeting
		}
		return Content{Meeting: m, Transcript: t}, nil
	})
}

// SelectTranscriptFor is SelectTranscript guarded by the meeting the
// transcript was fetched for. It fails with ErrStaleSelection when the user
// has moved on to another meeting or away from the transcript list.
func (c *Controller) SelectTranscriptFor(ctx context.Context, meetingID string, t api.TranscriptContent) error {
	return c.transitionErr(ctx, func(cur State) (State, error) {
		m, ok := SelectedMeeting(cur)
		if !ok {
			if _, loggedOut := cur.(LoggedOut); loggedOut {
				return nil, ErrStaleSelection
			}
			return nil, ErrNoMeeting
		}
		if m.ID != meetingID {
			return nil, ErrStaleSelection
		}
		return Content{Meeting: m, Transcript: t}, nil
	})
}

// BackToMeetings clears both selections.
func (c *Controller) BackToMeetings(ctx context.Context) {
	c.transition(ctx, func(cur State) (State, error) {
		if !authenticated(cur) {
			return nil, nil
		}
		return Meetings{}, nil
	})
}

// BackToTranscripts clears the selected transcript only. Without a selected
// meeting it is a no-op.
func (c *Controller) BackToTranscripts(ctx context.Context) {
	c.transition(ctx, func(cur State) (State, error) {
		if m, ok := SelectedMeeting(cur); ok {
			return Transcripts{Meeting: m}, nil
		}
		return nil, nil
	})
}

// authenticated reports whether s is one of the signed-in screens.
func authenticated(s State) bool {
	switch s.(type) {
	case Checking, LoggedOut:
		return false
	}
	return true
}

func (c *Controller) transition(ctx context.Context, next func(State) (State, error)) State {
	_ = c.transitionErr(ctx, next)
	return c.State()
}

// transitionErr applies next under the lock and notifies observers. next
// returns a nil State to leave the state untouched.
func (c *Controller) transitionErr(ctx context.Context, next func(State) (State, error)) error {
	c.mu.Lock()
	from := c.state
	to, err := next(from)
	if err != nil || to == nil {
		c.mu.Unlock()
		return err
	}
	c.state = to
	c.version++
	change := Change{From: from, To: to, Version: c.version}
	observers := make([]func(Change), 0, len(c.observers))
	for _, fn := range c.observers {
		observers = append(observers, fn)
	}
	c.mu.Unlock()

	c.metrics.RecordScreenTransition(ctx, string(from.Screen()), string(to.Screen()))
	c.logger.Debug("navigation",
		"from", string(from.Screen()),
		"to", string(to.Screen()),
		"version", change.Version)

	for _, fn := range observers {
		fn(change)
	}
	return nil
}
