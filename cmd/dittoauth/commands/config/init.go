package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittoauth/internal/cli/prompt"
	"github.com/marmos91/dittoauth/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample DittoAuth configuration file with one user per
mechanism.

By default, the configuration file is created at $XDG_CONFIG_HOME/dittoauth/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  dittoauth config init

  # Initialize with custom path
  dittoauth config init --config /etc/dittoauth/config.yaml

  # Overwrite an existing file without asking
  dittoauth config init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	force := initForce
	if _, err := os.Stat(configPath); err == nil && !force {
		ok, err := prompt.ConfirmWithForce(fmt.Sprintf("%s exists, overwrite", configPath), force)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("configuration file already exists at %s", configPath)
		}
		force = true
	}

	if err := config.InitConfigToPath(configPath, force); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file created at: %s\n", configPath)
	_, _ = fmt.Fprintln(out, "\nNext steps:")
	_, _ = fmt.Fprintln(out, "  1. Edit the users and mechanisms to fit your setup")
	_, _ = fmt.Fprintln(out, "  2. List users with: dittoauth users list")
	_, _ = fmt.Fprintf(out, "  3. Authenticate with: dittoauth authenticate Kubra --config %s\n", configPath)
	return nil
}
