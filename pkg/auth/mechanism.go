package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/dittoauth/internal/logger"
	"github.com/marmos91/dittoauth/internal/telemetry"
)

// Verifier checks a username/password pair for one mechanism.
//
// It returns nil when the credentials are accepted, or an error wrapping
// ErrAuthenticationFailed, ErrUnknownUser or ErrInvalidCredentials.
type Verifier func(ctx context.Context, username, password string) error

// CredentialSource is the stub credential store consulted by verifiers.
// identity.Directory implements it.
type CredentialSource interface {
	VerifyPassword(username, password string) error
}

// Metrics records authentication activity for a mechanism.
// A nil Metrics disables recording.
type Metrics interface {
	ObserveAuthentication(mechanism string, status Status, duration time.Duration)
	RecordNotification(mechanism string, observers int)
	SetAttached(mechanism string, count int)
}

// Event is one entry of a mechanism's authenticated log.
type Event struct {
	ID       uuid.UUID
	Username string
	Time     time.Time
}

// Base implements the behavior shared by every Mechanism: the observer
// registry, notification, uid lookup and the authenticate template.
//
// Concrete mechanisms embed a *Base and supply a Verifier. The Verifier is the
// only mechanism-specific step; logging, the authenticated log and Notify are
// handled here so every mechanism behaves identically around it.
type Base struct {
	name     string
	verify   Verifier
	registry *Registry
	metrics  Metrics

	// self is the outer mechanism passed to observers so they record the
	// concrete type rather than the embedded Base.
	self Mechanism

	logMu  sync.RWMutex
	events []Event

	now func() time.Time
}

// BaseOption configures a Base.
type BaseOption func(*Base)

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) BaseOption {
	return func(b *Base) { b.metrics = m }
}

// WithClock overrides the time source used for log events.
func WithClock(now func() time.Time) BaseOption {
	return func(b *Base) { b.now = now }
}

// NewBase creates the shared mechanism state.
// A nil verify accepts every credential pair with a non-empty username.
func NewBase(name string, verify Verifier, opts ...BaseOption) *Base {
	b := &Base{
		name:     name,
		verify:   verify,
		registry: NewRegistry(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Bind records the outer mechanism that embeds b.
// Must be called once by the concrete mechanism's constructor.
func (b *Base) Bind(self Mechanism) {
	b.self = self
}

// Name returns the configured mechanism name.
func (b *Base) Name() string {
	return b.name
}

// Authenticate runs the authenticate template: validate input, run the
// mechanism's Verifier, append to the authenticated log and notify observers.
func (b *Base) Authenticate(ctx context.Context, username, password string) (Status, error) {
	ctx, span := telemetry.StartAuthSpan(ctx, b.name, username)
	defer span.End()

	lc := logger.NewLogContext(b.name, username).
		WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx))
	ctx = logger.WithContext(ctx, lc)
	start := time.Now()

	if err := b.check(ctx, username, password); err != nil {
		status := StatusFromError(err)
		b.observe(status, start)
		telemetry.SetAttributes(ctx, telemetry.Status(status.String()))
		telemetry.RecordError(ctx, err)
		logger.WarnCtx(ctx, "Authentication failed",
			logger.KeyStatus, status.String(),
			logger.KeyError, err)
		return status, fmt.Errorf("%s: %w", b.name, err)
	}

	ev := b.record(username)
	b.observe(StatusSuccess, start)
	telemetry.SetAttributes(ctx, telemetry.Status(StatusSuccess.String()), telemetry.EventID(ev.ID.String()))
	logger.InfoCtx(ctx, "User authenticated",
		logger.KeyEventID, ev.ID.String(),
		logger.KeyDurationMs, logger.Duration(start))

	b.Notify(ctx)
	return StatusSuccess, nil
}

func (b *Base) check(ctx context.Context, username, password string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("empty username: %w", ErrInvalidCredentials)
	}
	if b.verify == nil {
		return nil
	}
	return b.verify(ctx, username, password)
}

func (b *Base) record(username string) Event {
	ev := Event{
		ID:       uuid.New(),
		Username: username,
		Time:     b.now(),
	}
	b.logMu.Lock()
	b.events = append(b.events, ev)
	b.logMu.Unlock()
	return ev
}

func (b *Base) observe(status Status, start time.Time) {
	if b.metrics != nil {
		b.metrics.ObserveAuthentication(b.name, status, time.Since(start))
	}
}

// Attach adds o to the registry.
func (b *Base) Attach(o Observer) error {
	if err := b.registry.Attach(o); err != nil {
		return err
	}
	logger.Debug("Observer attached",
		logger.KeyMechanism, b.name,
		logger.KeyUsername, o.Username())
	b.reportAttached()
	return nil
}

// Detach removes the first observer whose username matches o's.
func (b *Base) Detach(o Observer) {
	if !b.registry.Detach(o) {
		return
	}
	logger.Debug("Observer detached",
		logger.KeyMechanism, b.name,
		logger.KeyUsername, o.Username())
	b.reportAttached()
}

func (b *Base) reportAttached() {
	if b.metrics != nil {
		b.metrics.SetAttached(b.name, b.registry.Len())
	}
}

// Notify invokes OnAuthenticated on every attached observer in registry order.
// Callbacks run on a snapshot, without the registry lock held, so an observer
// may attach or detach itself from inside its callback.
func (b *Base) Notify(ctx context.Context) {
	observers := b.registry.Snapshot()
	self := b.self
	if self == nil {
		self = b
	}
	for _, o := range observers {
		o.OnAuthenticated(ctx, self)
	}
	if b.metrics != nil {
		b.metrics.RecordNotification(b.name, len(observers))
	}
	telemetry.AddEvent(ctx, "auth.notify", telemetry.Observers(len(observers)))
}

// GetUID returns the id of the attached observer with the given username.
func (b *Base) GetUID(username string) (int, bool) {
	return b.registry.UID(username)
}

// Users returns a snapshot of the attached observers.
func (b *Base) Users() []Observer {
	return b.registry.Snapshot()
}

// AuthenticatedUsers returns the usernames of the authenticated log.
func (b *Base) AuthenticatedUsers() []string {
	b.logMu.RLock()
	defer b.logMu.RUnlock()

	if len(b.events) == 0 {
		return nil
	}
	out := make([]string, len(b.events))
	for i, ev := range b.events {
		out[i] = ev.Username
	}
	return out
}

// Events returns a copy of the authenticated log.
func (b *Base) Events() []Event {
	b.logMu.RLock()
	defer b.logMu.RUnlock()
	return append([]Event(nil), b.events...)
}

// Compile-time check that Base implements Mechanism.
var _ Mechanism = (*Base)(nil)

// StubVerifier returns a Verifier backed by a CredentialSource.
// A nil source accepts every credential pair.
func StubVerifier(src CredentialSource) Verifier {
	if src == nil {
		return nil
	}
	return func(_ context.Context, username, password string) error {
		return src.VerifyPassword(username, password)
	}
}
