package identity

import (
	"context"
	"crypto/subtle"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/dittoauth/internal/logger"
	"github.com/marmos91/dittoauth/pkg/auth"
)

// User is an identity record and an authentication observer.
//
// Username, id and password are fixed at construction. The last-mechanism
// fields change only through OnAuthenticated, which may be called
// concurrently by several mechanisms.
type User struct {
	username string
	id       int
	password string

	mu                sync.RWMutex
	lastMechanism     auth.Mechanism
	lastMechanismName string
	lastAuthenticated time.Time
	count             int
}

// NewUser creates a user. The password is kept verbatim for stub comparison.
func NewUser(username string, id int, password string) *User {
	return &User{
		username: username,
		id:       id,
		password: password,
	}
}

// Username returns the unique username.
func (u *User) Username() string {
	return u.username
}

// UID returns the numeric id given at construction.
func (u *User) UID() int {
	return u.id
}

// CheckPassword reports whether password matches the stored one.
func (u *User) CheckPassword(password string) bool {
	return subtle.ConstantTimeCompare([]byte(u.password), []byte(password)) == 1
}

// OnAuthenticated records m as the last mechanism that authenticated u.
func (u *User) OnAuthenticated(ctx context.Context, m auth.Mechanism) {
	u.mu.Lock()
	u.lastMechanism = m
	u.lastMechanismName = m.Name()
	u.lastAuthenticated = time.Now()
	u.count++
	u.mu.Unlock()

	logger.InfoCtx(ctx, "User notified of authentication",
		logger.KeyUsername, u.username,
		logger.KeyUID, u.id,
		logger.KeyMechanism, m.Name())
}

// LastMechanism returns the mechanism of the most recent notification, or nil.
func (u *User) LastMechanism() auth.Mechanism {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.lastMechanism
}

// LastMechanismName returns the name of the most recent notifying mechanism,
// or "" if the user was never notified.
func (u *User) LastMechanismName() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.lastMechanismName
}

// LastAuthenticated returns the time of the most recent notification.
func (u *User) LastAuthenticated() time.Time {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.lastAuthenticated
}

// AuthenticationCount returns how many notifications u has received.
func (u *User) AuthenticationCount() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.count
}

func (u *User) String() string {
	return fmt.Sprintf("%s(%d)", u.username, u.id)
}

var _ auth.Observer = (*User)(nil)
