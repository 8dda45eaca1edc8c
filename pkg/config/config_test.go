package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

// yamlSafePath converts a filesystem path to a YAML-safe representation.
// On Windows, backslashes in double-quoted YAML strings are interpreted as
// escape sequences (e.g. \U -> Unicode escape), causing parse errors.
func yamlSafePath(p string) string {
	return filepath.ToSlash(p)
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_DefaultConfig(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
logging:
  level: "INFO"

active_mechanism: ldap

mechanisms:
  ldap:
    base_dn: "ou=people,dc=example,dc=com"
  kerberos:
    realm: EXAMPLE.COM
    max_clock_skew: 2m

users:
  - username: Kubra
    id: 1
    password: abc
    mechanisms: [local, ldap]
  - username: Oktay
    id: 2
    password: klm
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify defaults were applied
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stderr" {
		t.Errorf("Expected default output 'stderr', got %q", cfg.Logging.Output)
	}
	if cfg.Mechanisms.Local.Name != "Local" {
		t.Errorf("Expected default local name, got %q", cfg.Mechanisms.Local.Name)
	}

	// Verify file values were kept
	if cfg.ActiveMechanism != MechanismLDAP {
		t.Errorf("Expected active mechanism 'ldap', got %q", cfg.ActiveMechanism)
	}
	if cfg.Mechanisms.Kerberos.MaxClockSkew != 2*time.Minute {
		t.Errorf("Expected clock skew 2m, got %v", cfg.Mechanisms.Kerberos.MaxClockSkew)
	}
	if len(cfg.Users) != 2 {
		t.Fatalf("Expected 2 users, got %d", len(cfg.Users))
	}
	if cfg.Users[0].Username != "Kubra" || len(cfg.Users[0].Mechanisms) != 2 {
		t.Errorf("Unexpected first user: %+v", cfg.Users[0])
	}
	if cfg.Users[1].ID != 2 || len(cfg.Users[1].Mechanisms) != 0 {
		t.Errorf("Unexpected second user: %+v", cfg.Users[1])
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	// Loading with no config file returns a valid default config.
	nonExistentPath := filepath.Join(t.TempDir(), "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("Expected no error when loading default config, got: %v", err)
	}
	if cfg == nil {
		t.Fatal("Expected default config to be returned")
	}
	if len(cfg.Users) != 3 {
		t.Errorf("Expected the 3 sample users, got %d", len(cfg.Users))
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid.yaml", `
logging:
  level: INFO
  invalid yaml here [[[
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Expected error with invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
active_mechanism: radius
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Expected validation error")
	}
	if !strings.Contains(err.Error(), "validation failed") {
		t.Errorf("Expected validation failure, got: %v", err)
	}
}

func TestLoad_TOML(t *testing.T) {
	configPath := writeConfig(t, "config.toml", `
active_mechanism = "kerberos"

[logging]
level = "WARN"
format = "json"

[mechanisms.kerberos]
realm = "EXAMPLE.COM"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load TOML config: %v", err)
	}

	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected level 'WARN', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected format 'json', got %q", cfg.Logging.Format)
	}
	if cfg.ActiveMechanism != MechanismKerberos {
		t.Errorf("Expected active mechanism 'kerberos', got %q", cfg.ActiveMechanism)
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	path := GetDefaultConfigPath()

	if !filepath.IsAbs(path) {
		t.Errorf("Expected absolute path, got %q", path)
	}
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("Expected filename 'config.yaml', got %q", filepath.Base(path))
	}
}

func TestGetConfigDir(t *testing.T) {
	dir := GetConfigDir()

	if filepath.Base(dir) != "dittoauth" {
		t.Errorf("Expected directory name 'dittoauth', got %q", filepath.Base(dir))
	}
}

func TestDefaultConfigExists(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if DefaultConfigExists() {
		t.Fatal("Expected no config in a fresh directory")
	}
	if _, err := InitConfig(false); err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}
	if !DefaultConfigExists() {
		t.Error("Expected config to exist after InitConfig")
	}
}

func TestMustLoad_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")

	_, err := MustLoad(missing)
	if err == nil {
		t.Fatal("Expected error for missing config file")
	}
	if !strings.Contains(err.Error(), "dittoauth config init") {
		t.Errorf("Expected init instructions in error, got: %v", err)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	orig := GetDefaultConfig()
	orig.ActiveMechanism = MechanismKerberos
	orig.Mechanisms.Kerberos.MaxClockSkew = 90 * time.Second

	if err := SaveConfig(orig, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Saved file missing: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 && os.PathSeparator == '/' {
		t.Errorf("Expected 0600 permissions, got %o", perm)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load after save failed: %v", err)
	}
	if loaded.ActiveMechanism != MechanismKerberos {
		t.Errorf("Expected active mechanism to survive round trip, got %q", loaded.ActiveMechanism)
	}
	if loaded.Mechanisms.Kerberos.MaxClockSkew != 90*time.Second {
		t.Errorf("Expected clock skew 1m30s, got %v", loaded.Mechanisms.Kerberos.MaxClockSkew)
	}
	if len(loaded.Users) != len(orig.Users) {
		t.Errorf("Expected %d users, got %d", len(orig.Users), len(loaded.Users))
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("DITTOAUTH_LOGGING_LEVEL", "ERROR")
	t.Setenv("DITTOAUTH_ACTIVE_MECHANISM", "kerberos")

	configPath := writeConfig(t, "config.yaml", `
logging:
  level: "INFO"

active_mechanism: local
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Environment variables override config file
	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Expected level 'ERROR' from env var, got %q", cfg.Logging.Level)
	}
	if cfg.ActiveMechanism != MechanismKerberos {
		t.Errorf("Expected active mechanism 'kerberos' from env var, got %q", cfg.ActiveMechanism)
	}
}

func TestLoad_EnvironmentVariablesForKeysMissingFromFile(t *testing.T) {
	t.Setenv("DITTOAUTH_METRICS_ENABLED", "true")
	t.Setenv("DITTOAUTH_ACTIVE_MECHANISM", "ldap")
	t.Setenv("DITTOAUTH_MECHANISMS_KERBEROS_MAX_CLOCK_SKEW", "90s")
	t.Setenv("DITTOAUTH_MECHANISMS_LDAP_BASE_DN", "ou=staff,dc=example,dc=org")

	configPath := writeConfig(t, "config.yaml", `
logging:
  level: "DEBUG"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if !cfg.Metrics.Enabled {
		t.Error("Expected metrics enabled from env var")
	}
	if cfg.Metrics.Port != 9090 {
		t.Errorf("Expected default metrics port 9090, got %d", cfg.Metrics.Port)
	}
	if cfg.ActiveMechanism != MechanismLDAP {
		t.Errorf("Expected active mechanism 'ldap' from env var, got %q", cfg.ActiveMechanism)
	}
	if cfg.Mechanisms.Kerberos.MaxClockSkew != 90*time.Second {
		t.Errorf("Expected clock skew 1m30s from env var, got %v", cfg.Mechanisms.Kerberos.MaxClockSkew)
	}
	if cfg.Mechanisms.LDAP.BaseDN != "ou=staff,dc=example,dc=org" {
		t.Errorf("Expected base DN from env var, got %q", cfg.Mechanisms.LDAP.BaseDN)
	}
	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected file level 'DEBUG' to be kept, got %q", cfg.Logging.Level)
	}
}

func TestLoad_EnvironmentVariablesWithoutConfigFile(t *testing.T) {
	t.Setenv("DITTOAUTH_ACTIVE_MECHANISM", "KERBEROS")
	t.Setenv("DITTOAUTH_LOGGING_FORMAT", "json")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.ActiveMechanism != MechanismKerberos {
		t.Errorf("Expected active mechanism 'kerberos' from env var, got %q", cfg.ActiveMechanism)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected log format 'json' from env var, got %q", cfg.Logging.Format)
	}
	// Sample values not overridden survive.
	if len(cfg.Users) != 3 {
		t.Errorf("Expected the 3 sample users, got %d", len(cfg.Users))
	}
	if cfg.Mechanisms.Kerberos.Realm != "EXAMPLE.COM" {
		t.Errorf("Expected sample realm to survive, got %q", cfg.Mechanisms.Kerberos.Realm)
	}
}

func TestLoad_InvalidEnvironmentValue(t *testing.T) {
	t.Setenv("DITTOAUTH_ACTIVE_MECHANISM", "radius")

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Expected validation error for unknown mechanism from env var")
	}
}

func TestEnvKeys(t *testing.T) {
	keys := envKeys(reflect.TypeOf(Config{}), "")

	want := []string{
		"logging.level",
		"metrics.enabled",
		"active_mechanism",
		"mechanisms.ldap.base_dn",
		"mechanisms.kerberos.max_clock_skew",
	}
	for _, w := range want {
		found := false
		for _, k := range keys {
			if k == w {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected key %q in %v", w, keys)
		}
	}
	for _, k := range keys {
		if strings.HasPrefix(k, "users") {
			t.Errorf("Unexpected slice key %q", k)
		}
	}
}
