package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/teemow/meetscribe/internal/api"
)

// ServerContext holds what the long-running front-ends share: the backend
// client and the lifetime of the process.
type ServerContext struct {
	ctx      context.Context
	cancel   context.CancelFunc
	client   *api.Client
	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a context for the backend at client.
func NewServerContext(ctx context.Context, client *api.Client) (*ServerContext, error) {
	if client == nil {
		return nil, fmt.Errorf("api client is required")
	}
	ctx, cancel := context.WithCancel(ctx)
	return &ServerContext{
		ctx:    ctx,
		cancel: cancel,
		client: client,
	}, nil
}

// Context returns the server's lifetime context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Client returns the backend API client.
func (sc *ServerContext) Client() *api.Client {
	return sc.client
}

// BackendHealth probes the backend's health endpoint.
func (sc *ServerContext) BackendHealth(ctx context.Context) (*api.Health, error) {
	return sc.client.Health(ctx)
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown marks the server as shutting down and cancels its context.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return fmt.Errorf("server context already shutdown")
	}
	sc.shutdown = true
	sc.cancel()
	return nil
}
