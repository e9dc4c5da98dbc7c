package cli

import (
	"fmt"
	"os"

	"github.com/harun/hive/internal/config"
	"github.com/spf13/cobra"
)

var (
	initBaseURL string
	initToken   string
	initForce   bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and initialise the configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after applying the config file and HIVE_
environment overrides. The access token is masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with default values",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

func init() {
	configInitCmd.Flags().StringVar(&initBaseURL, "base-url", "", "server address, e.g. wss://hive.example.com/api/v1")
	configInitCmd.Flags().StringVar(&initToken, "token", "", "access token")
	configInitCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), cfg.String())
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader(cfgFile)
	configPath := loader.GetConfigPath()

	if !initForce && fileExists(configPath) {
		return fmt.Errorf("config file already exists: %s (use --force to overwrite)", configPath)
	}

	cfg := config.DefaultConfig()
	if initBaseURL != "" {
		cfg.Realtime.BaseURL = initBaseURL
	}
	if initToken != "" {
		if err := config.NewValidator().ValidateToken(initToken); err != nil {
			return err
		}
		cfg.Realtime.Token = initToken
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := loader.Save(cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Configuration saved to: %s\n", configPath)
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
