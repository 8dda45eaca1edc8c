// Package system is the composition root of the authentication front-end.
//
// A System owns exactly one instance of each mechanism kind, the user
// directory and the authentication Context. Code that needs a mechanism
// receives it from a System rather than from a package-level global; Default
// exists for callers that genuinely need a process-wide instance.
package system

import (
	"fmt"
	"strings"
	"sync"

	"github.com/marmos91/dittoauth/internal/logger"
	"github.com/marmos91/dittoauth/pkg/auth"
	"github.com/marmos91/dittoauth/pkg/auth/kerberos"
	"github.com/marmos91/dittoauth/pkg/auth/ldap"
	"github.com/marmos91/dittoauth/pkg/auth/local"
	"github.com/marmos91/dittoauth/pkg/config"
	"github.com/marmos91/dittoauth/pkg/identity"
	"github.com/marmos91/dittoauth/pkg/metrics"

	// Registers the Prometheus implementation of auth.Metrics.
	_ "github.com/marmos91/dittoauth/pkg/metrics/prometheus"
)

// System wires mechanisms, users and the authentication context together.
//
// Thread safety: safe for concurrent use once constructed.
type System struct {
	cfg       *config.Config
	directory *identity.Directory
	local     *local.Local
	ldap      *ldap.LDAP
	kerberos  *kerberos.Kerberos
	context   *auth.Context
	metrics   auth.Metrics
}

// New builds a System from cfg. A nil cfg uses config.GetDefaultConfig().
//
// Construction order:
//  1. Metrics registry (when cfg.Metrics.Enabled)
//  2. The user directory, seeded from cfg.Users in order
//  3. One mechanism per kind, all verifying against the directory
//  4. Each seed user attached to its configured mechanisms
//  5. The Context, with cfg.ActiveMechanism selected
func New(cfg *config.Config) (*System, error) {
	if cfg == nil {
		cfg = config.GetDefaultConfig()
	}

	s := &System{
		cfg:       cfg,
		directory: identity.NewDirectory(),
	}

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}
	s.metrics = metrics.NewAuthMetrics()

	var opts []auth.BaseOption
	if s.metrics != nil {
		opts = append(opts, auth.WithMetrics(s.metrics))
	}

	s.local = local.New(&cfg.Mechanisms.Local, s.directory, opts...)
	s.ldap = ldap.New(&cfg.Mechanisms.LDAP, s.directory, opts...)

	krb, err := kerberos.New(&cfg.Mechanisms.Kerberos, s.directory, opts...)
	if err != nil {
		return nil, fmt.Errorf("kerberos mechanism: %w", err)
	}
	s.kerberos = krb

	if err := s.seedUsers(cfg.Users); err != nil {
		_ = s.Close()
		return nil, err
	}

	active, err := s.Mechanism(cfg.ActiveMechanism)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("active mechanism: %w", err)
	}
	s.context = auth.NewContext(active)

	logger.Debug("Authentication system ready",
		logger.KeyMechanism, active.Name(),
		"users", s.directory.Len())

	return s, nil
}

func (s *System) seedUsers(users []config.UserConfig) error {
	for _, uc := range users {
		u, err := s.directory.Create(uc.Username, uc.ID, uc.Password)
		if err != nil {
			return fmt.Errorf("seed users: %w", err)
		}
		for _, kind := range uc.Mechanisms {
			m, err := s.Mechanism(kind)
			if err != nil {
				return fmt.Errorf("user %q: %w", uc.Username, err)
			}
			if err := m.Attach(u); err != nil {
				return fmt.Errorf("user %q: %w", uc.Username, err)
			}
		}
	}
	return nil
}

// Mechanism returns the instance of the given kind ("local", "ldap",
// "kerberos", case-insensitive). Repeated calls return the same instance.
func (s *System) Mechanism(kind string) (auth.Mechanism, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case config.MechanismLocal:
		return s.local, nil
	case config.MechanismLDAP:
		return s.ldap, nil
	case config.MechanismKerberos:
		return s.kerberos, nil
	default:
		return nil, fmt.Errorf("%q: %w", kind, auth.ErrUnknownMechanism)
	}
}

// Mechanisms returns every mechanism in display order (local, ldap, kerberos).
func (s *System) Mechanisms() []auth.Mechanism {
	return []auth.Mechanism{s.local, s.ldap, s.kerberos}
}

// AttachedTo returns the names of the mechanisms that o is attached to.
func (s *System) AttachedTo(o auth.Observer) []string {
	var names []string
	for _, m := range s.Mechanisms() {
		if _, ok := m.GetUID(o.Username()); ok {
			names = append(names, m.Name())
		}
	}
	return names
}

// Local returns the local mechanism.
func (s *System) Local() *local.Local { return s.local }

// LDAP returns the LDAP mechanism.
func (s *System) LDAP() *ldap.LDAP { return s.ldap }

// Kerberos returns the Kerberos mechanism.
func (s *System) Kerberos() *kerberos.Kerberos { return s.kerberos }

// Directory returns the user directory.
func (s *System) Directory() *identity.Directory { return s.directory }

// Context returns the authentication context.
func (s *System) Context() *auth.Context { return s.context }

// Config returns the configuration the System was built from.
func (s *System) Config() *config.Config { return s.cfg }

// Close releases background resources (the keytab poller).
func (s *System) Close() error {
	if s.kerberos != nil {
		return s.kerberos.Close()
	}
	return nil
}

var (
	defaultOnce   sync.Once
	defaultSystem *System
)

// Default returns the process-wide System, built on first use from
// config.GetDefaultConfig(). Every call returns the same instance.
//
// The default configuration has no keytab, so construction only fails when
// DITTOAUTH_KERBEROS_KEYTAB points at an unreadable keytab. Default panics in
// that case; use New to handle the error.
func Default() *System {
	defaultOnce.Do(func() {
		s, err := New(config.GetDefaultConfig())
		if err != nil {
			panic(fmt.Sprintf("build default system: %v", err))
		}
		defaultSystem = s
	})
	return defaultSystem
}
