package kerberos

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	krb5config "github.com/jcmturner/gokrb5/v8/config"
	"github.com/jcmturner/gokrb5/v8/keytab"
	"go.opentelemetry.io/otel/trace"

	"github.com/marmos91/dittoauth/internal/logger"
	"github.com/marmos91/dittoauth/internal/telemetry"
	"github.com/marmos91/dittoauth/pkg/auth"
	"github.com/marmos91/dittoauth/pkg/config"
)

// DefaultName is used when the configuration leaves the name empty.
const DefaultName = "Kerberos"

// Kerberos is the Kerberos mechanism.
//
// Thread Safety: All methods are safe for concurrent use. The keytab can be
// hot-reloaded at runtime via ReloadKeytab() without disrupting in-flight
// authentications.
type Kerberos struct {
	*auth.Base

	creds        auth.CredentialSource
	realm        string
	keytabPath   string
	krb5ConfPath string
	maxClockSkew time.Duration

	mu            sync.RWMutex
	keytab        *keytab.Keytab
	krb5Conf      *krb5config.Config
	keytabManager *KeytabManager
}

// New creates a Kerberos mechanism from configuration.
//
// If a keytab path is configured (or set through DITTOAUTH_KERBEROS_KEYTAB),
// the keytab and krb5.conf are loaded and a KeytabManager is started that
// polls for keytab changes every 60 seconds. Callers must Close the mechanism
// to stop it.
func New(cfg *config.KerberosConfig, creds auth.CredentialSource, opts ...auth.BaseOption) (*Kerberos, error) {
	if cfg == nil {
		cfg = &config.KerberosConfig{}
	}

	name := cfg.Name
	if name == "" {
		name = DefaultName
	}

	k := &Kerberos{
		creds:        creds,
		realm:        resolveRealm(cfg.Realm),
		keytabPath:   resolveKeytabPath(cfg.KeytabPath),
		krb5ConfPath: resolveKrb5ConfPath(cfg.Krb5Conf),
		maxClockSkew: cfg.MaxClockSkew,
	}
	k.Base = auth.NewBase(name, k.verify, opts...)
	k.Bind(k)

	if k.keytabPath == "" {
		return k, nil
	}

	kt, err := loadKeytab(k.keytabPath)
	if err != nil {
		return nil, fmt.Errorf("load keytab %s: %w", k.keytabPath, err)
	}

	krbCfg, err := loadKrb5Conf(k.krb5ConfPath)
	if err != nil {
		return nil, fmt.Errorf("load krb5.conf %s: %w", k.krb5ConfPath, err)
	}

	if k.realm == "" {
		k.realm = krbCfg.LibDefaults.DefaultRealm
	}
	if k.realm == "" {
		return nil, fmt.Errorf("kerberos realm not configured (set realm, DITTOAUTH_KERBEROS_REALM or default_realm in %s)", k.krb5ConfPath)
	}

	k.keytab = kt
	k.krb5Conf = krbCfg

	km := NewKeytabManager(k.keytabPath, k)
	if err := km.Start(); err != nil {
		// Non-fatal: the keytab is loaded, it just won't be hot-reloaded.
		logger.Warn("Keytab hot-reload failed to start, continuing without it",
			logger.KeyPath, k.keytabPath, logger.KeyError, err)
	}
	k.keytabManager = km

	logger.Info("Kerberos keytab loaded",
		logger.KeyMechanism, name,
		logger.KeyPath, k.keytabPath,
		logger.KeyRealm, k.realm,
		"entries", len(kt.Entries))

	return k, nil
}

// Realm returns the realm used to build principals.
func (k *Kerberos) Realm() string {
	return k.realm
}

// KeytabPath returns the resolved keytab path, empty when keytab checks are off.
func (k *Kerberos) KeytabPath() string {
	return k.keytabPath
}

// MaxClockSkew returns the maximum allowed clock skew between this host and
// the key timestamps in the keytab.
func (k *Kerberos) MaxClockSkew() time.Duration {
	return k.maxClockSkew
}

// Keytab returns the current keytab (thread-safe read), or nil.
func (k *Kerberos) Keytab() *keytab.Keytab {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.keytab
}

// Krb5Config returns the loaded Kerberos configuration, or nil.
func (k *Kerberos) Krb5Config() *krb5config.Config {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.krb5Conf
}

// Principal returns the principal name for username: "<username>@<REALM>",
// or the bare username when no realm is known.
func (k *Kerberos) Principal(username string) string {
	if k.realm == "" {
		return username
	}
	return username + "@" + k.realm
}

// HasPrincipal reports whether the current keytab holds a usable key for
// username in the mechanism's realm. Keys stamped later than now plus the
// maximum clock skew are ignored. It always returns false without a keytab.
func (k *Kerberos) HasPrincipal(username string) bool {
	kt := k.Keytab()
	if kt == nil {
		return false
	}
	for _, e := range kt.Entries {
		if e.Principal.Realm != k.realm || strings.Join(e.Principal.Components, "/") != username {
			continue
		}
		if k.keyFromFuture(e.Timestamp) {
			logger.Debug("Ignoring keytab entry stamped beyond clock skew",
				logger.KeyPrincipal, k.Principal(username),
				"timestamp", e.Timestamp,
				"max_clock_skew", k.maxClockSkew)
			continue
		}
		return true
	}
	return false
}

// keyFromFuture reports whether ts lies beyond now plus the allowed skew.
// A zero skew disables the check.
func (k *Kerberos) keyFromFuture(ts time.Time) bool {
	if k.maxClockSkew <= 0 {
		return false
	}
	return ts.After(time.Now().Add(k.maxClockSkew))
}

// ReloadKeytab re-reads the keytab file and atomically swaps it.
// On failure the previous keytab stays active.
func (k *Kerberos) ReloadKeytab() error {
	_, span := telemetry.StartSpan(context.Background(), telemetry.SpanKeytabReload,
		trace.WithAttributes(telemetry.Keytab(k.keytabPath)))
	defer span.End()

	kt, err := loadKeytab(k.keytabPath)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("reload keytab %s: %w", k.keytabPath, err)
	}

	k.mu.Lock()
	k.keytab = kt
	k.mu.Unlock()

	return nil
}

// Close stops the KeytabManager's polling goroutine. Safe to call multiple times.
func (k *Kerberos) Close() error {
	if k.keytabManager != nil {
		k.keytabManager.Stop()
	}
	return nil
}

// verify is the Kerberos Verifier: principal lookup when a keytab is loaded,
// then the shared password comparison.
func (k *Kerberos) verify(ctx context.Context, username, password string) error {
	principal := k.Principal(username)

	if k.Keytab() != nil {
		ctx, span := telemetry.StartSpan(ctx, telemetry.SpanKrb5Lookup,
			trace.WithAttributes(telemetry.Principal(principal), telemetry.Realm(k.realm)))
		found := k.HasPrincipal(username)
		span.End()

		if !found {
			logger.DebugCtx(ctx, "Principal not in keytab", logger.KeyPrincipal, principal)
			return fmt.Errorf("principal %s not in keytab: %w", principal, auth.ErrUnknownUser)
		}
	}

	if k.creds == nil {
		return nil
	}
	if err := k.creds.VerifyPassword(username, password); err != nil {
		return fmt.Errorf("principal %s: %w", principal, err)
	}
	return nil
}

var _ auth.Mechanism = (*Kerberos)(nil)

// loadKeytab reads and parses a keytab file.
func loadKeytab(path string) (*keytab.Keytab, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keytab file: %w", err)
	}

	kt := keytab.New()
	if err := kt.Unmarshal(data); err != nil {
		return nil, fmt.Errorf("parse keytab: %w", err)
	}

	return kt, nil
}

// loadKrb5Conf reads and parses a Kerberos configuration file.
func loadKrb5Conf(path string) (*krb5config.Config, error) {
	cfg, err := krb5config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("parse krb5.conf: %w", err)
	}

	return cfg, nil
}
