package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/hubsearch/internal/adapters/driven/config/file"
)

var configInitForce bool

var configCmd = &cobra.Command{
	Use:         "config",
	Short:       "Show or create the config file",
	Annotations: map[string]string{annotationServices: servicesNone},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Prints the configuration after defaults, the config file and the
HUBSEARCH_* environment overrides are applied. Credentials are masked.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationServices: servicesNone},
	RunE:        runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:         "init",
	Short:       "Write a config file with the defaults",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationServices: servicesNone},
	RunE:        runConfigInit,
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	c, err := file.Load(configPath)
	if err != nil {
		return err
	}

	data, err := toml.Marshal(c.Redacted())
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	cmd.Print(string(data))
	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	if !configInitForce {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("checking %s: %w", configPath, err)
		}
	}

	if err := file.DefaultConfig().Save(configPath); err != nil {
		return err
	}
	cmd.Printf("Wrote %s\n", configPath)
	return nil
}
