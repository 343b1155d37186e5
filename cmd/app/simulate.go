package main

import (
	"fmt"

	"PlantDash/internal/di"

	"github.com/spf13/cobra"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a simulated plant station serving /data",
	Long:  "simulate drives a synthetic plant and serves the station document on simulator.port, publishing readings over MQTT when enabled.",
	RunE:  runSimulate,
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	app, err := di.InitializeSimulator(cfg)
	if err != nil {
		return fmt.Errorf("simulator initialization failed: %w", err)
	}
	return app.Run(cmd.Context())
}
