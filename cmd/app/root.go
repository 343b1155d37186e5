package main

import (
	"fmt"

	"PlantDash/pkg/config"

	"github.com/spf13/cobra"
)

const appName = "plantdash"

var version = "dev" // overwritten by ldflags

var (
	flagConfig string
)

var rootCmd = &cobra.Command{
	Use:           appName,
	Short:         "Plant care dashboard",
	Long:          fmt.Sprintf("%s charts the weight and watering history reported by a plant care station.", appName),
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "config/config.yaml", "config file path")
	rootCmd.AddCommand(serveCmd, simulateCmd, renderCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithEnv(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	return cfg, nil
}
