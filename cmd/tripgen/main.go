package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tripcraft/tripgen/pkg/config"
	"github.com/tripcraft/tripgen/pkg/logger"
)

var version = "dev"

var (
	configPath string
	envFile    string
)

func main() {
	root := &cobra.Command{
		Use:           "tripgen",
		Short:         "tripgen: budget-aware family trip itinerary generation",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "tripgen.yaml", "path to config file")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")

	root.AddCommand(
		newServeCmd(),
		newGenerateCmd(),
		newUsageCmd(),
		newBudgetCmd(),
		newAuditCmd(),
		newMCPCmd(),
	)

	err := root.Execute()
	logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the dotenv file and the config file, then initializes
// logging. A missing config file at the default path falls back to defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}

	cfg, err := config.Load(configPath)
	if errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("config") {
		cfg = config.Default()
		if cfg.Budget, err = config.ApplyBudgetEnv(cfg.Budget); err == nil {
			err = cfg.Validate()
		}
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Env); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, nil
}
