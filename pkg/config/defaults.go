package config

import (
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Users are never invented: an empty user list stays empty
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
	applyMechanismDefaults(cfg)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	// stderr keeps stdout free for command output (tables, json).
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyMechanismDefaults fills mechanism names and backend settings.
func applyMechanismDefaults(cfg *Config) {
	if cfg.ActiveMechanism == "" {
		cfg.ActiveMechanism = MechanismLocal
	}
	cfg.ActiveMechanism = strings.ToLower(cfg.ActiveMechanism)

	m := &cfg.Mechanisms
	if m.Local.Name == "" {
		m.Local.Name = "Local"
	}

	if m.LDAP.Name == "" {
		m.LDAP.Name = "LDAP"
	}
	if m.LDAP.URL == "" {
		m.LDAP.URL = "ldap://localhost:389"
	}
	if m.LDAP.UserAttribute == "" {
		m.LDAP.UserAttribute = "uid"
	}

	if m.Kerberos.Name == "" {
		m.Kerberos.Name = "Kerberos"
	}
	if m.Kerberos.Krb5Conf == "" {
		m.Kerberos.Krb5Conf = "/etc/krb5.conf"
	}
	if m.Kerberos.MaxClockSkew == 0 {
		m.Kerberos.MaxClockSkew = 5 * time.Minute
	}

	for i := range cfg.Users {
		for j, kind := range cfg.Users[i].Mechanisms {
			cfg.Users[i].Mechanisms[j] = strings.ToLower(strings.TrimSpace(kind))
		}
	}
}

// DefaultUsers returns the sample user set: one user per mechanism kind.
func DefaultUsers() []UserConfig {
	return []UserConfig{
		{Username: "Kubra", ID: 1, Password: "abc", Mechanisms: []string{MechanismLocal}},
		{Username: "Oktay", ID: 2, Password: "klm", Mechanisms: []string{MechanismLDAP}},
		{Username: "Ali", ID: 3, Password: "xyz", Mechanisms: []string{MechanismKerberos}},
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Running without a config file
func GetDefaultConfig() *Config {
	cfg := &Config{
		Mechanisms: MechanismsConfig{
			LDAP: LDAPConfig{
				BaseDN: "ou=people,dc=example,dc=com",
			},
			Kerberos: KerberosConfig{
				Realm: "EXAMPLE.COM",
			},
		},
		Users: DefaultUsers(),
	}

	ApplyDefaults(cfg)
	return cfg
}
