// Package ldap implements the LDAP mechanism.
//
// Binds are simulated: the bind DN is built from configuration and logged, and
// the password is compared against the user directory. The configured server
// URL is reported but never dialed.
package ldap

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/marmos91/dittoauth/internal/logger"
	"github.com/marmos91/dittoauth/internal/telemetry"
	"github.com/marmos91/dittoauth/pkg/auth"
	"github.com/marmos91/dittoauth/pkg/config"
)

const (
	// DefaultName is used when the configuration leaves the name empty.
	DefaultName = "LDAP"

	// DefaultUserAttribute is the RDN attribute used in bind DNs.
	DefaultUserAttribute = "uid"
)

// LDAP is the LDAP mechanism.
type LDAP struct {
	*auth.Base

	url           string
	baseDN        string
	userAttribute string
	creds         auth.CredentialSource
}

// New creates an LDAP mechanism. A nil creds accepts every bind with a
// non-empty username.
func New(cfg *config.LDAPConfig, creds auth.CredentialSource, opts ...auth.BaseOption) *LDAP {
	l := &LDAP{
		userAttribute: DefaultUserAttribute,
		creds:         creds,
	}
	name := DefaultName
	if cfg != nil {
		if cfg.Name != "" {
			name = cfg.Name
		}
		if cfg.UserAttribute != "" {
			l.userAttribute = cfg.UserAttribute
		}
		l.url = cfg.URL
		l.baseDN = cfg.BaseDN
	}

	l.Base = auth.NewBase(name, l.bind, opts...)
	l.Bind(l)
	return l
}

// URL returns the configured server address.
func (l *LDAP) URL() string {
	return l.url
}

// BindDN returns the distinguished name used to bind as username:
// "<user_attribute>=<username>,<base_dn>", or just the RDN without a base DN.
func (l *LDAP) BindDN(username string) string {
	if l.baseDN == "" {
		return fmt.Sprintf("%s=%s", l.userAttribute, username)
	}
	return fmt.Sprintf("%s=%s,%s", l.userAttribute, username, l.baseDN)
}

// bind is the LDAP Verifier.
func (l *LDAP) bind(ctx context.Context, username, password string) error {
	dn := l.BindDN(username)

	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanLDAPBind,
		trace.WithAttributes(telemetry.BindDN(dn)))
	defer span.End()

	logger.DebugCtx(ctx, "LDAP bind",
		logger.KeyBindDN, dn,
		"url", l.url)

	if l.creds == nil {
		return nil
	}
	if err := l.creds.VerifyPassword(username, password); err != nil {
		return fmt.Errorf("bind %s: %w", dn, err)
	}
	return nil
}

var _ auth.Mechanism = (*LDAP)(nil)
