package local

import (
	"context"
	"errors"
	"testing"

	"github.com/marmos91/dittoauth/pkg/auth"
	"github.com/marmos91/dittoauth/pkg/config"
	"github.com/marmos91/dittoauth/pkg/identity"
)

func newDirectory(t *testing.T) *identity.Directory {
	t.Helper()
	d := identity.NewDirectory()
	if _, err := d.Create("Kubra", 1, "abc"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return d
}

func TestNew_Name(t *testing.T) {
	if got := New(nil, nil).Name(); got != DefaultName {
		t.Errorf("expected default name %q, got %q", DefaultName, got)
	}
	if got := New(&config.LocalConfig{Name: "Workstation"}, nil).Name(); got != "Workstation" {
		t.Errorf("expected configured name, got %q", got)
	}
}

func TestAuthenticate(t *testing.T) {
	dir := newDirectory(t)
	l := New(&config.LocalConfig{Name: "Local"}, dir)

	tests := []struct {
		name     string
		username string
		password string
		want     auth.Status
		wantErr  error
	}{
		{"valid", "Kubra", "abc", auth.StatusSuccess, nil},
		{"wrong password", "Kubra", "xyz", auth.StatusAuthFailed, auth.ErrAuthenticationFailed},
		{"unknown user", "Ali", "xyz", auth.StatusUnknownUser, auth.ErrUnknownUser},
		{"empty username", "", "abc", auth.StatusInvalidCredentials, auth.ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, err := l.Authenticate(context.Background(), tt.username, tt.password)
			if status != tt.want {
				t.Errorf("status = %v, want %v", status, tt.want)
			}
			if tt.wantErr == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	got := l.AuthenticatedUsers()
	if len(got) != 1 || got[0] != "Kubra" {
		t.Errorf("authenticated log = %v, want [Kubra]", got)
	}
}

func TestAuthenticate_NotifiesWithLocal(t *testing.T) {
	dir := newDirectory(t)
	l := New(nil, dir)

	u, _ := dir.Get("Kubra")
	if err := l.Attach(u); err != nil {
		t.Fatalf("attach: %v", err)
	}

	if _, err := l.Authenticate(context.Background(), "Kubra", "abc"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	if _, ok := u.LastMechanism().(*Local); !ok {
		t.Errorf("expected *Local as last mechanism, got %T", u.LastMechanism())
	}
	if id, ok := l.GetUID("Kubra"); !ok || id != 1 {
		t.Errorf("GetUID = (%d, %v), want (1, true)", id, ok)
	}
}

func TestAuthenticate_NilSourceAlwaysSucceeds(t *testing.T) {
	l := New(nil, nil)

	status, err := l.Authenticate(context.Background(), "anyone", "anything")
	if err != nil || status != auth.StatusSuccess {
		t.Errorf("expected success, got (%v, %v)", status, err)
	}
}
