package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittoauth/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the DittoAuth configuration file.

Checks for syntax errors, missing required fields, invalid values and
duplicate users.

Examples:
  # Validate default config
  dittoauth config validate

  # Validate specific config file
  dittoauth config validate --config /etc/dittoauth/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	var warnings []string
	if len(cfg.Users) == 0 {
		warnings = append(warnings, "No users configured - every mechanism will report unknown users")
	}
	attached := make(map[string]bool)
	for _, u := range cfg.Users {
		for _, m := range u.Mechanisms {
			attached[m] = true
		}
	}
	if !attached[cfg.ActiveMechanism] {
		warnings = append(warnings, fmt.Sprintf("No user is attached to the active mechanism %q", cfg.ActiveMechanism))
	}
	if cfg.Mechanisms.Kerberos.KeytabPath != "" && cfg.Mechanisms.Kerberos.Realm == "" {
		warnings = append(warnings, "Kerberos realm not set - default_realm from krb5.conf will be used")
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file: %s\n", displayPath)
	_, _ = fmt.Fprintln(out, "Validation: OK")

	if len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	_, _ = fmt.Fprintf(out, "\nConfiguration summary:\n")
	_, _ = fmt.Fprintf(out, "  Active mechanism: %s\n", cfg.ActiveMechanism)
	_, _ = fmt.Fprintf(out, "  Users:            %d\n", len(cfg.Users))
	_, _ = fmt.Fprintf(out, "  Log level:        %s\n", cfg.Logging.Level)

	return nil
}
