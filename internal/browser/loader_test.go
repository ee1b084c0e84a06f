package browser

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/meetscribe/internal/api"
)

func wait(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for fetch")
	}
}

func TestLoader_Phases(t *testing.T) {
	tests := []struct {
		name        string
		items       []string
		err         error
		wantPhase   Phase
		wantMessage string
	}{
		{name: "success", items: []string{"a", "b"}, wantPhase: PhaseSuccess},
		{name: "empty is not an error", items: []string{}, wantPhase: PhaseEmpty},
		{name: "nil is empty", items: nil, wantPhase: PhaseEmpty},
		{
			name:        "application error",
			err:         &api.Error{Op: "list_meetings", Status: 200, Message: "quota exceeded"},
			wantPhase:   PhaseError,
			wantMessage: "quota exceeded",
		},
		{
			name:        "plain error uses fallback",
			err:         errors.New("boom"),
			wantPhase:   PhaseError,
			wantMessage: "Failed to load things",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLoader[string]("things", "Failed to load things")
			done := l.Load(context.Background(), func(context.Context) ([]string, error) {
				return tt.items, tt.err
			})
			wait(t, done)

			snap := l.Snapshot()
			assert.Equal(t, tt.wantPhase, snap.Phase)
			assert.Equal(t, tt.wantMessage, snap.Message)
			if tt.wantPhase == PhaseSuccess {
				assert.Equal(t, tt.items, snap.Items)
			}
		})
	}
}

func TestLoader_StartsLoading(t *testing.T) {
	release := make(chan struct{})
	l := NewLoader[string]("things", "")
	assert.Equal(t, PhaseIdle, l.Snapshot().Phase)

	done := l.Load(context.Background(), func(context.Context) ([]string, error) {
		<-release
		return []string{"a"}, nil
	})
	assert.Equal(t, PhaseLoading, l.Snapshot().Phase)

	close(release)
	wait(t, done)
	assert.Equal(t, PhaseSuccess, l.Snapshot().Phase)
}

func TestLoader_RetryOnlyFromError(t *testing.T) {
	var calls atomic.Int32
	fail := true
	l := NewLoader[string]("things", "")
	fetch := func(context.Context) ([]string, error) {
		calls.Add(1)
		if fail {
			return nil, errors.New("down")
		}
		return []string{"a"}, nil
	}

	wait(t, l.Load(context.Background(), fetch))
	require.Equal(t, PhaseError, l.Snapshot().Phase)

	_, err := l.Refresh()
	assert.ErrorIs(t, err, ErrActionUnavailable)

	fail = false
	done, err := l.Retry()
	require.NoError(t, err)
	wait(t, done)
	assert.Equal(t, PhaseSuccess, l.Snapshot().Phase)
	assert.Equal(t, int32(2), calls.Load())

	_, err = l.Retry()
	assert.ErrorIs(t, err, ErrActionUnavailable)

	done, err = l.Refresh()
	require.NoError(t, err)
	wait(t, done)
	assert.Equal(t, int32(3), calls.Load())
}

func TestLoader_RefreshFromEmpty(t *testing.T) {
	l := NewLoader[string]("things", "")
	wait(t, l.Load(context.Background(), func(context.Context) ([]string, error) {
		return nil, nil
	}))
	require.Equal(t, PhaseEmpty, l.Snapshot().Phase)

	done, err := l.Refresh()
	require.NoError(t, err)
	wait(t, done)
}

func TestLoader_StaleResultDropped(t *testing.T) {
	slowRelease := make(chan struct{})
	var changes atomic.Int32
	l := NewLoader[string]("things", "", WithOnChange(func() { changes.Add(1) }))

	slow := l.Load(context.Background(), func(ctx context.Context) ([]string, error) {
		<-slowRelease
		return []string{"old"}, nil
	})
	fast := l.Load(context.Background(), func(context.Context) ([]string, error) {
		return []string{"new"}, nil
	})
	wait(t, fast)
	require.Equal(t, []string{"new"}, l.Snapshot().Items)

	close(slowRelease)
	wait(t, slow)
	assert.Equal(t, []string{"new"}, l.Snapshot().Items)
	assert.Equal(t, PhaseSuccess, l.Snapshot().Phase)
}

func TestLoader_SupersededFetchIsCancelled(t *testing.T) {
	cancelled := make(chan struct{})
	l := NewLoader[string]("things", "")

	first := l.Load(context.Background(), func(ctx context.Context) ([]string, error) {
		<-ctx.Done()
		close(cancelled)
		return nil, ctx.Err()
	})
	second := l.Load(context.Background(), func(context.Context) ([]string, error) {
		return []string{"a"}, nil
	})

	wait(t, cancelled)
	wait(t, first)
	wait(t, second)
	assert.Equal(t, PhaseSuccess, l.Snapshot().Phase)
}

func TestLoader_Close(t *testing.T) {
	release := make(chan struct{})
	l := NewLoader[string]("things", "")
	done := l.Load(context.Background(), func(context.Context) ([]string, error) {
		<-release
		return []string{"late"}, nil
	})

	l.Close()
	close(release)
	wait(t, done)

	snap := l.Snapshot()
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.Empty(t, snap.Items)

	_, err := l.Refresh()
	assert.ErrorIs(t, err, ErrActionUnavailable)
}
