// Package local implements the local password-store mechanism.
package local

import (
	"github.com/marmos91/dittoauth/pkg/auth"
	"github.com/marmos91/dittoauth/pkg/config"
)

// DefaultName is used when the configuration leaves the name empty.
const DefaultName = "Local"

// Local verifies credentials against the in-process user directory.
type Local struct {
	*auth.Base
}

// New creates a Local mechanism.
//
// creds is consulted on every Authenticate call; a nil source accepts every
// credential pair with a non-empty username.
func New(cfg *config.LocalConfig, creds auth.CredentialSource, opts ...auth.BaseOption) *Local {
	name := DefaultName
	if cfg != nil && cfg.Name != "" {
		name = cfg.Name
	}

	l := &Local{Base: auth.NewBase(name, auth.StubVerifier(creds), opts...)}
	l.Bind(l)
	return l
}

var _ auth.Mechanism = (*Local)(nil)
