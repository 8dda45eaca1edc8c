package auth

import (
	"context"
	"sync"

	"github.com/marmos91/dittoauth/internal/telemetry"
)

// Context holds the mechanism currently selected for authentication.
//
// It is the process-level front door: callers authenticate through the
// Context without knowing which backend is active. A Context is built by the
// composition root (see pkg/system); it is not a package-level global.
//
// Thread safety: safe for concurrent use.
type Context struct {
	mu     sync.RWMutex
	active Mechanism
}

// NewContext creates a Context with the given active mechanism (may be nil).
func NewContext(active Mechanism) *Context {
	return &Context{active: active}
}

// SetActive selects the mechanism used by Authenticate.
func (c *Context) SetActive(m Mechanism) {
	c.mu.Lock()
	c.active = m
	c.mu.Unlock()
}

// Active returns the currently selected mechanism, or nil.
func (c *Context) Active() Mechanism {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// Authenticate delegates to the active mechanism.
// Returns ErrNoActiveMechanism if none is selected.
func (c *Context) Authenticate(ctx context.Context, username, password string) (Status, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanContextAuth)
	defer span.End()

	m := c.Active()
	if m == nil {
		telemetry.RecordError(ctx, ErrNoActiveMechanism)
		return StatusAuthFailed, ErrNoActiveMechanism
	}
	telemetry.SetAttributes(ctx, telemetry.Mechanism(m.Name()))
	return m.Authenticate(ctx, username, password)
}
