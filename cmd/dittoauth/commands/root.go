// Package commands implements the dittoauth CLI.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittoauth/cmd/dittoauth/commands/config"
	"github.com/marmos91/dittoauth/internal/cli/output"
	"github.com/marmos91/dittoauth/internal/logger"
	"github.com/marmos91/dittoauth/internal/telemetry"
	dconfig "github.com/marmos91/dittoauth/pkg/config"
	"github.com/marmos91/dittoauth/pkg/system"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile      string
	outputFormat string
	noColor      bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "dittoauth",
	Short: "DittoAuth - Pluggable authentication front-end",
	Long: `DittoAuth delegates credential checks to one of several interchangeable
authentication mechanisms (Local, LDAP, Kerberos). Users attached to a
mechanism are notified every time an authentication succeeds on it.

Use "dittoauth [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/dittoauth/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format (table|json|yaml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored status lines")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(authenticateCmd)
	rootCmd.AddCommand(uidCmd)
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(config.Cmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}

// newPrinter returns a printer for the --output flag, writing to cmd's stdout.
func newPrinter(cmd *cobra.Command) (*output.Printer, error) {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	return output.NewPrinter(cmd.OutOrStdout(), format, !noColor), nil
}

// loadConfig loads --config when set, otherwise the default location, falling
// back to built-in defaults when no file exists.
func loadConfig() (*dconfig.Config, error) {
	if cfgFile != "" {
		return dconfig.MustLoad(cfgFile)
	}
	return dconfig.Load("")
}

// session holds what a command needs to talk to the authentication system.
type session struct {
	cfg               *dconfig.Config
	sys               *system.System
	printer           *output.Printer
	telemetryShutdown func(context.Context) error
}

// openSession loads configuration, initializes logging and tracing and
// builds the System. Callers must Close the session.
func openSession(cmd *cobra.Command) (*session, error) {
	printer, err := newPrinter(cmd)
	if err != nil {
		return nil, err
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return openSessionWithConfig(cmd, cfg, printer)
}

func openSessionWithConfig(cmd *cobra.Command, cfg *dconfig.Config, printer *output.Printer) (*session, error) {
	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	shutdown, err := telemetry.Init(cmd.Context(), telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "dittoauth",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	sys, err := system.New(cfg)
	if err != nil {
		_ = shutdown(cmd.Context())
		return nil, err
	}

	logger.Debug("Configuration loaded", logger.KeySource, getConfigSource(cfgFile))

	return &session{
		cfg:               cfg,
		sys:               sys,
		printer:           printer,
		telemetryShutdown: shutdown,
	}, nil
}

// Close stops background work and flushes traces.
func (s *session) Close(ctx context.Context) {
	if err := s.sys.Close(); err != nil {
		logger.Error("System close error", logger.KeyError, err)
	}
	if err := s.telemetryShutdown(ctx); err != nil {
		logger.Error("Telemetry shutdown error", logger.KeyError, err)
	}
}

// getConfigSource returns a description of where configuration came from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if dconfig.DefaultConfigExists() {
		return dconfig.GetDefaultConfigPath()
	}
	return "defaults"
}
