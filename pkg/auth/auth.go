package auth

import (
	"context"
	"errors"
)

// Mechanism defines a pluggable authentication mechanism.
//
// Implementations validate credentials for one backend (local password store,
// LDAP, Kerberos) and notify their attached observers after every successful
// authentication. Callers do not need to know which backend they are talking
// to.
//
// Thread safety: implementations must be safe for concurrent use.
type Mechanism interface {
	// Name returns the configured mechanism name for logging and display.
	// Examples: "Local", "LDAP", "Kerberos"
	Name() string

	// Authenticate validates the credentials.
	//
	// On success the username is appended to the mechanism's authenticated log
	// and Notify is called before returning (StatusSuccess, nil).
	//
	// On failure a non-zero Status is returned together with an error wrapping
	// one of ErrAuthenticationFailed, ErrUnknownUser or ErrInvalidCredentials.
	// Observers are not notified.
	Authenticate(ctx context.Context, username, password string) (Status, error)

	// Attach adds an observer to the registry.
	// Returns ErrDuplicateAttach if an observer with the same username is
	// already attached.
	Attach(o Observer) error

	// Detach removes the first attached observer with the same username.
	// Detaching an observer that is not attached is a no-op.
	Detach(o Observer)

	// Notify calls OnAuthenticated on every attached observer, in registry
	// order, passing this mechanism.
	Notify(ctx context.Context)

	// GetUID returns the id of the attached observer with the given username.
	// The boolean is false when no such observer is attached.
	GetUID(username string) (int, bool)

	// Users returns a snapshot of the attached observers in registry order.
	Users() []Observer

	// AuthenticatedUsers returns the usernames that authenticated successfully
	// on this mechanism, oldest first.
	AuthenticatedUsers() []string
}

// Observer is notified when an authentication succeeds on a mechanism it is
// attached to.
//
// The mechanism holds observer references but does not own their lifetime:
// the same observer may be attached to several mechanisms at once.
type Observer interface {
	// Username is the unique key of the observer inside a registry.
	Username() string

	// UID is the numeric id reported by Mechanism.GetUID.
	UID() int

	// OnAuthenticated is invoked by Mechanism.Notify.
	OnAuthenticated(ctx context.Context, m Mechanism)
}

// Status is the result code of an authentication attempt.
// The zero value means success.
type Status int

const (
	// StatusSuccess indicates the credentials were accepted.
	StatusSuccess Status = iota

	// StatusAuthFailed indicates a credential mismatch.
	StatusAuthFailed

	// StatusUnknownUser indicates the mechanism does not know the user.
	StatusUnknownUser

	// StatusInvalidCredentials indicates malformed credentials (empty username).
	StatusInvalidCredentials
)

// String returns a short lowercase label, used as a metrics label value.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusAuthFailed:
		return "auth_failed"
	case StatusUnknownUser:
		return "unknown_user"
	case StatusInvalidCredentials:
		return "invalid_credentials"
	default:
		return "unknown"
	}
}

// StatusFromError maps a verification error to its Status.
// Errors that match no sentinel are reported as StatusAuthFailed.
func StatusFromError(err error) Status {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, ErrUnknownUser):
		return StatusUnknownUser
	case errors.Is(err, ErrInvalidCredentials):
		return StatusInvalidCredentials
	default:
		return StatusAuthFailed
	}
}

// Standard authentication errors.
var (
	// ErrAuthenticationFailed indicates that authentication was attempted but
	// the credentials did not match.
	ErrAuthenticationFailed = errors.New("auth: authentication failed")

	// ErrUnknownUser indicates that a username is not known, either to the
	// credential source of a mechanism or to its registry.
	ErrUnknownUser = errors.New("auth: unknown user")

	// ErrInvalidCredentials indicates that the credentials are malformed
	// (distinct from wrong credentials).
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrDuplicateAttach indicates that an observer with the same username is
	// already attached to the mechanism.
	ErrDuplicateAttach = errors.New("auth: user already attached")

	// ErrNoActiveMechanism indicates that a Context has no active mechanism.
	ErrNoActiveMechanism = errors.New("auth: no active mechanism")

	// ErrUnknownMechanism indicates that a mechanism kind is not recognised.
	ErrUnknownMechanism = errors.New("auth: unknown mechanism")
)
