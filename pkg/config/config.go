package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Mechanism kinds accepted by ActiveMechanism and UserConfig.Mechanisms.
const (
	MechanismLocal    = "local"
	MechanismLDAP     = "ldap"
	MechanismKerberos = "kerberos"
)

// MechanismKinds lists every mechanism kind in display order.
var MechanismKinds = []string{MechanismLocal, MechanismLDAP, MechanismKerberos}

// Config represents the DittoAuth configuration.
//
// This structure captures:
//   - Logging configuration
//   - Telemetry/tracing configuration
//   - Metrics configuration
//   - Per-mechanism settings (local, ldap, kerberos)
//   - The seed user set and the mechanisms each user is attached to
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (DITTOAUTH_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Metrics contains Prometheus metrics configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// ActiveMechanism selects the mechanism used by the authentication context.
	// Valid values: local, ldap, kerberos
	ActiveMechanism string `mapstructure:"active_mechanism" validate:"required,oneof=local ldap kerberos" yaml:"active_mechanism"`

	// Mechanisms holds the settings of each mechanism kind.
	Mechanisms MechanismsConfig `mapstructure:"mechanisms" yaml:"mechanisms"`

	// Users is the seed user directory, in insertion order.
	Users []UserConfig `mapstructure:"users" validate:"dive" yaml:"users"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
// When enabled, trace data is exported to an OTLP-compatible collector
// (e.g., Jaeger, Tempo, or any OTLP receiver).
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled
	// Default: false (opt-in for telemetry)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port)
	// Default: "localhost:4317" (standard OTLP gRPC port)
	Endpoint string `mapstructure:"endpoint" validate:"required_if=Enabled true" yaml:"endpoint"`

	// Insecure controls whether to use insecure (non-TLS) connection
	// Default: true (for local development)
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0)
	// 1.0 = sample all traces, 0.5 = sample 50%, 0.0 = no sampling
	// Default: 1.0 (sample all)
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`
}

// MetricsConfig configures Prometheus metrics.
// When Enabled is false, no metrics are collected (zero overhead).
type MetricsConfig struct {
	// Enabled controls whether metrics collection and the HTTP endpoint are enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics endpoint
	// Default: 9090
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// MechanismsConfig groups the per-kind mechanism settings.
type MechanismsConfig struct {
	Local    LocalConfig    `mapstructure:"local" yaml:"local"`
	LDAP     LDAPConfig     `mapstructure:"ldap" yaml:"ldap"`
	Kerberos KerberosConfig `mapstructure:"kerberos" yaml:"kerberos"`
}

// LocalConfig configures the local password-store mechanism.
type LocalConfig struct {
	// Name is the display name reported by the mechanism.
	// Default: "Local"
	Name string `mapstructure:"name" validate:"required" yaml:"name"`
}

// LDAPConfig configures the LDAP mechanism.
//
// The server URL is validated but never dialed: binds are simulated against
// the user directory.
type LDAPConfig struct {
	// Name is the display name reported by the mechanism.
	// Default: "LDAP"
	Name string `mapstructure:"name" validate:"required" yaml:"name"`

	// URL is the directory server address.
	// Default: "ldap://localhost:389"
	URL string `mapstructure:"url" validate:"omitempty,url" yaml:"url"`

	// BaseDN is appended to every bind DN.
	// Example: "ou=people,dc=example,dc=com"
	BaseDN string `mapstructure:"base_dn" yaml:"base_dn"`

	// UserAttribute is the RDN attribute holding the username.
	// Default: "uid"
	UserAttribute string `mapstructure:"user_attribute" validate:"required" yaml:"user_attribute"`
}

// KerberosConfig configures the Kerberos mechanism.
//
// When KeytabPath is set, the keytab is loaded at startup and polled for
// changes, and a user's principal must have a key in it to authenticate.
// Environment variable overrides:
//
//	DITTOAUTH_KERBEROS_KEYTAB overrides KeytabPath
//	DITTOAUTH_KERBEROS_KRB5CONF overrides Krb5Conf
type KerberosConfig struct {
	// Name is the display name reported by the mechanism.
	// Default: "Kerberos"
	Name string `mapstructure:"name" validate:"required" yaml:"name"`

	// Realm is appended to usernames to form principals.
	// Default: the default_realm of krb5.conf when one is loaded
	Realm string `mapstructure:"realm" yaml:"realm"`

	// KeytabPath is the path to the keytab file. Empty disables keytab checks.
	KeytabPath string `mapstructure:"keytab_path" yaml:"keytab_path"`

	// Krb5Conf is the path to the Kerberos configuration file.
	// Only read when a keytab is configured.
	// Default: /etc/krb5.conf
	Krb5Conf string `mapstructure:"krb5_conf" yaml:"krb5_conf"`

	// MaxClockSkew is the maximum allowed clock difference with the KDC.
	// Default: 5m
	MaxClockSkew time.Duration `mapstructure:"max_clock_skew" yaml:"max_clock_skew"`
}

// UserConfig is one seed user.
type UserConfig struct {
	// Username is unique across the directory.
	Username string `mapstructure:"username" validate:"required" yaml:"username"`

	// ID is reported by GetUID.
	ID int `mapstructure:"id" validate:"gte=0" yaml:"id"`

	// Password is compared verbatim by the stub verifiers.
	Password string `mapstructure:"password" yaml:"password"`

	// Mechanisms lists the mechanism kinds the user is attached to.
	Mechanisms []string `mapstructure:"mechanisms" validate:"dive,oneof=local ldap kerberos" yaml:"mechanisms,omitempty"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (DITTOAUTH_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	// Without a file, environment overrides apply on top of the sample
	// configuration.
	cfg := &Config{}
	if !configFileFound {
		cfg = GetDefaultConfig()
	}

	if err := v.Unmarshal(cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration with helpful error messages.
// It checks if the config file exists and provides user-friendly instructions if not.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  dittoauth config init\n\n"+
				"Or specify a custom config file:\n"+
				"  dittoauth <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file:\n"+
				"  dittoauth config init --config %s",
				configPath, configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path.
// The configuration is saved in YAML format using proper yaml tags.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: the file carries stub passwords.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use DITTOAUTH_ prefix and underscores
	// Example: DITTOAUTH_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("DITTOAUTH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only consults keys viper already knows about, so bind
	// every scalar key up front. Otherwise keys absent from the file could
	// not be set from the environment.
	for _, key := range envKeys(reflect.TypeOf(Config{}), "") {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/dittoauth/config.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// envKeys returns the dotted mapstructure keys of every scalar field of t.
// Slices (users, per-user mechanism lists) are not settable from the
// environment.
func envKeys(t reflect.Type, prefix string) []string {
	var keys []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if tag == "" || tag == "-" {
			continue
		}
		key := prefix + tag

		switch {
		case f.Type == reflect.TypeOf(time.Duration(0)):
			keys = append(keys, key)
		case f.Type.Kind() == reflect.Struct:
			keys = append(keys, envKeys(f.Type, key+".")...)
		case f.Type.Kind() == reflect.Slice, f.Type.Kind() == reflect.Map:
		default:
			keys = append(keys, key)
		}
	}
	return keys
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		// Explicit config file that doesn't exist
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// durationDecodeHook returns a mapstructure decode hook that converts strings
// to time.Duration. This enables config files to use human-readable durations
// like "30s", "5m", "1h".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			// Assume nanoseconds for raw integers
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "dittoauth")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "dittoauth")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
