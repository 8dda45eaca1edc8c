package ldap

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/marmos91/dittoauth/pkg/auth"
	"github.com/marmos91/dittoauth/pkg/config"
	"github.com/marmos91/dittoauth/pkg/identity"
)

func testConfig() *config.LDAPConfig {
	return &config.LDAPConfig{
		Name:          "LDAP",
		URL:           "ldap://localhost:389",
		BaseDN:        "ou=people,dc=example,dc=com",
		UserAttribute: "uid",
	}
}

func TestBindDN(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.LDAPConfig
		want string
	}{
		{"configured", testConfig(), "uid=Oktay,ou=people,dc=example,dc=com"},
		{"custom attribute", &config.LDAPConfig{UserAttribute: "cn", BaseDN: "dc=corp"}, "cn=Oktay,dc=corp"},
		{"no base dn", &config.LDAPConfig{}, "uid=Oktay"},
		{"nil config", nil, "uid=Oktay"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New(tt.cfg, nil).BindDN("Oktay"); got != tt.want {
				t.Errorf("BindDN = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	l := New(nil, nil)
	if l.Name() != DefaultName {
		t.Errorf("expected name %q, got %q", DefaultName, l.Name())
	}
	if l.URL() != "" {
		t.Errorf("expected empty URL, got %q", l.URL())
	}

	l = New(testConfig(), nil)
	if l.URL() != "ldap://localhost:389" {
		t.Errorf("unexpected URL %q", l.URL())
	}
}

func TestAuthenticate(t *testing.T) {
	dir := identity.NewDirectory()
	oktay, err := dir.Create("Oktay", 2, "klm")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	l := New(testConfig(), dir)
	if err := l.Attach(oktay); err != nil {
		t.Fatalf("attach: %v", err)
	}

	status, err := l.Authenticate(context.Background(), "Oktay", "klm")
	if err != nil || status != auth.StatusSuccess {
		t.Fatalf("expected success, got (%v, %v)", status, err)
	}
	if oktay.LastMechanismName() != "LDAP" {
		t.Errorf("expected last mechanism LDAP, got %q", oktay.LastMechanismName())
	}
	if _, ok := oktay.LastMechanism().(*LDAP); !ok {
		t.Errorf("expected *LDAP as last mechanism, got %T", oktay.LastMechanism())
	}

	status, err = l.Authenticate(context.Background(), "Oktay", "wrong")
	if status != auth.StatusAuthFailed || !errors.Is(err, auth.ErrAuthenticationFailed) {
		t.Errorf("expected auth failure, got (%v, %v)", status, err)
	}
	if err != nil && !strings.Contains(err.Error(), "uid=Oktay,ou=people,dc=example,dc=com") {
		t.Errorf("expected bind DN in error, got %v", err)
	}
	if oktay.AuthenticationCount() != 1 {
		t.Errorf("failed bind must not notify, count = %d", oktay.AuthenticationCount())
	}

	status, _ = l.Authenticate(context.Background(), "Mehmet", "klm")
	if status != auth.StatusUnknownUser {
		t.Errorf("expected unknown user, got %v", status)
	}
}
