package config

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/dittoauth/internal/cli/output"
	"github.com/marmos91/dittoauth/pkg/config"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Display the effective DittoAuth configuration (file, environment and
defaults merged).

Outputs YAML unless --output json is given.

Examples:
  dittoauth config show
  dittoauth config show --output json
  dittoauth config show --config /etc/dittoauth/config.yaml`,
	RunE: runConfigShow,
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.MustLoad(configPath)
	} else {
		cfg, err = config.Load("")
	}
	if err != nil {
		return err
	}

	formatFlag, _ := cmd.Flags().GetString("output")
	format, err := output.ParseFormat(formatFlag)
	if err != nil {
		return err
	}

	if format == output.FormatJSON {
		return output.PrintJSON(cmd.OutOrStdout(), cfg)
	}
	return output.PrintYAML(cmd.OutOrStdout(), cfg)
}
