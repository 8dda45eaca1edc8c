package identity

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/marmos91/dittoauth/pkg/auth"
)

// Common errors for Directory operations.
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("user already exists")
)

// Directory is the system-wide set of users, in insertion order.
//
// It implements auth.CredentialSource so mechanisms can verify passwords
// against it.
//
// Thread safety: safe for concurrent use.
type Directory struct {
	mu    sync.RWMutex
	users []*User
	index map[string]int
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{index: make(map[string]int)}
}

// Add appends u. Returns ErrDuplicateUser if the username is taken.
func (d *Directory) Add(u *User) error {
	if u == nil {
		return errors.New("add nil user")
	}
	if strings.TrimSpace(u.Username()) == "" {
		return fmt.Errorf("add user: %w", auth.ErrInvalidCredentials)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.index[u.Username()]; exists {
		return fmt.Errorf("add %q: %w", u.Username(), ErrDuplicateUser)
	}
	d.index[u.Username()] = len(d.users)
	d.users = append(d.users, u)
	return nil
}

// Create constructs a user and adds it.
func (d *Directory) Create(username string, id int, password string) (*User, error) {
	u := NewUser(username, id, password)
	if err := d.Add(u); err != nil {
		return nil, err
	}
	return u, nil
}

// Get returns the user with the given username.
func (d *Directory) Get(username string) (*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	i, ok := d.index[username]
	if !ok {
		return nil, fmt.Errorf("%q: %w", username, ErrUserNotFound)
	}
	return d.users[i], nil
}

// List returns all users in insertion order.
func (d *Directory) List() []*User {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]*User(nil), d.users...)
}

// Len returns the number of users.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.users)
}

// VerifyPassword implements auth.CredentialSource.
//
// Returns an error wrapping auth.ErrUnknownUser when the user is not in the
// directory, or auth.ErrAuthenticationFailed on a password mismatch.
func (d *Directory) VerifyPassword(username, password string) error {
	u, err := d.Get(username)
	if err != nil {
		return fmt.Errorf("%w: %w", auth.ErrUnknownUser, err)
	}
	if !u.CheckPassword(password) {
		return fmt.Errorf("user %q: %w", username, auth.ErrAuthenticationFailed)
	}
	return nil
}

// CheckEntry is the outcome of comparing one directory entry.
type CheckEntry struct {
	Username string `json:"username" yaml:"username"`
	Match    bool   `json:"match" yaml:"match"`
}

// CheckResult reports a membership check.
type CheckResult struct {
	Username string       `json:"username" yaml:"username"`
	Found    bool         `json:"found" yaml:"found"`
	Entries  []CheckEntry `json:"entries" yaml:"entries"`
}

// Check scans every directory entry for username and reports the outcome
// per entry, in insertion order.
func (d *Directory) Check(username string) CheckResult {
	d.mu.RLock()
	defer d.mu.RUnlock()

	res := CheckResult{
		Username: username,
		Entries:  make([]CheckEntry, 0, len(d.users)),
	}
	for _, u := range d.users {
		match := u.Username() == username
		res.Entries = append(res.Entries, CheckEntry{Username: u.Username(), Match: match})
		res.Found = res.Found || match
	}
	return res
}

var _ auth.CredentialSource = (*Directory)(nil)
