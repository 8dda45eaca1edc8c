package kerberos

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/marmos91/dittoauth/internal/logger"
)

// keytabPollInterval is the interval at which the keytab file is polled for changes.
const keytabPollInterval = 60 * time.Second

// keytabReloader is implemented by *Kerberos.
type keytabReloader interface {
	ReloadKeytab() error
}

// KeytabManager watches a keytab file for changes and triggers hot-reload.
//
// It polls the file modification time every 60 seconds. Keytabs are often
// replaced atomically (rename) by kadmin or k5srvutil, which polling handles
// the same way on every platform.
//
// Thread Safety: All methods are safe for concurrent use.
type KeytabManager struct {
	path     string
	target   keytabReloader
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	mu       sync.Mutex
	lastMod  time.Time
}

// NewKeytabManager creates a new keytab file manager (not yet started).
func NewKeytabManager(path string, k *Kerberos) *KeytabManager {
	return newKeytabManager(path, k, keytabPollInterval)
}

func newKeytabManager(path string, target keytabReloader, interval time.Duration) *KeytabManager {
	return &KeytabManager{
		path:     path,
		target:   target,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start records the keytab's modification time and starts the polling
// goroutine. It fails if the file cannot be stat'ed.
func (km *KeytabManager) Start() error {
	km.mu.Lock()
	defer km.mu.Unlock()

	info, err := os.Stat(km.path)
	if err != nil {
		return fmt.Errorf("keytab file not accessible: %w", err)
	}
	km.lastMod = info.ModTime()

	go km.pollLoop()

	logger.Info("Keytab hot-reload started",
		logger.KeyPath, km.path,
		"poll_interval", km.interval.String(),
	)

	return nil
}

// Stop stops the polling goroutine.
//
// This is safe to call multiple times or on a manager that was never started.
func (km *KeytabManager) Stop() {
	km.stopOnce.Do(func() { close(km.stopCh) })
}

func (km *KeytabManager) pollLoop() {
	ticker := time.NewTicker(km.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			km.checkAndReload()
		case <-km.stopCh:
			return
		}
	}
}

// checkAndReload reloads the keytab if its modification time changed.
// It reports whether a reload happened.
func (km *KeytabManager) checkAndReload() bool {
	km.mu.Lock()
	defer km.mu.Unlock()

	info, err := os.Stat(km.path)
	if err != nil {
		logger.Error("Keytab file stat failed",
			logger.KeyPath, km.path,
			logger.KeyError, err,
		)
		return false
	}

	modTime := info.ModTime()
	if modTime.Equal(km.lastMod) {
		return false
	}

	if err := km.target.ReloadKeytab(); err != nil {
		logger.Error("Keytab reload failed",
			logger.KeyPath, km.path,
			logger.KeyError, err,
		)
		return false
	}

	km.lastMod = modTime
	logger.Info("Keytab reloaded successfully", logger.KeyPath, km.path)
	return true
}

// resolveKeytabPath resolves the keytab path with environment variable override.
//
// Resolution order (highest priority first):
//  1. DITTOAUTH_KERBEROS_KEYTAB env var (preferred)
//  2. DITTOAUTH_KERBEROS_KEYTAB_PATH env var (alternative name)
//  3. configPath from configuration file
func resolveKeytabPath(configPath string) string {
	if envPath := os.Getenv("DITTOAUTH_KERBEROS_KEYTAB"); envPath != "" {
		return envPath
	}
	if envPath := os.Getenv("DITTOAUTH_KERBEROS_KEYTAB_PATH"); envPath != "" {
		return envPath
	}
	return configPath
}

// resolveRealm resolves the realm with environment variable override.
// An empty result means "use the krb5.conf default_realm".
func resolveRealm(configRealm string) string {
	if envRealm := os.Getenv("DITTOAUTH_KERBEROS_REALM"); envRealm != "" {
		return envRealm
	}
	return configRealm
}

// resolveKrb5ConfPath resolves the krb5.conf path with environment variable override.
//
// Resolution order (highest priority first):
//  1. DITTOAUTH_KERBEROS_KRB5CONF env var
//  2. configPath from configuration file
//  3. Default: /etc/krb5.conf
func resolveKrb5ConfPath(configPath string) string {
	if envPath := os.Getenv("DITTOAUTH_KERBEROS_KRB5CONF"); envPath != "" {
		return envPath
	}
	if configPath != "" {
		return configPath
	}
	return "/etc/krb5.conf"
}
