package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"PlantDash/internal/di"
	dsvc "PlantDash/internal/domain/service"
	"PlantDash/internal/services/render"
	"PlantDash/internal/usecase"
	applogger "PlantDash/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

const (
	flagOutputName = "output"
	flagFormatName = "format"
	flagURLName    = "url"
)

var (
	flagOutput  string
	flagFormats []string
	flagURL     string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Fetch the device once and write the charts to files",
	Example: fmt.Sprintf(`  %[1]s render --%[2]s out --%[3]s html,png
  %[1]s render --%[4]s http://192.168.1.40 --%[3]s xlsx`, appName, flagOutputName, flagFormatName, flagURLName),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&flagOutput, flagOutputName, "o", ".", "output directory")
	renderCmd.Flags().StringSliceVarP(&flagFormats, flagFormatName, "f", []string{"html", "png", "xlsx"}, "formats to write: html, png, xlsx")
	renderCmd.Flags().StringVar(&flagURL, flagURLName, "", "device URL, overrides device.url")
}

type renderTarget struct {
	file     string
	renderer dsvc.ChartRenderer
}

func renderTargets(formats []string, width, height int) ([]renderTarget, error) {
	var targets []renderTarget
	for _, f := range formats {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case "html":
			targets = append(targets, renderTarget{"dashboard.html", render.NewChartJS("")})
		case "png":
			for _, name := range []string{render.ChartHourly, render.ChartMinutes} {
				r, err := render.NewPNG(name, width, height)
				if err != nil {
					return nil, err
				}
				targets = append(targets, renderTarget{name + ".png", r})
			}
		case "xlsx":
			targets = append(targets, renderTarget{"dashboard.xlsx", render.NewXLSX()})
		default:
			return nil, fmt.Errorf("unknown format %q", f)
		}
	}
	return targets, nil
}

func runRender(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if flagURL != "" {
		cfg.Device.URL = flagURL
	}
	targets, err := renderTargets(flagFormats, cfg.Render.PNGWidth, cfg.Render.PNGHeight)
	if err != nil {
		return err
	}

	log, err := di.ProvideLogger(cfg)
	if err != nil {
		return err
	}
	ctrl := usecase.NewDashboardController(cfg.Device.Name,
		di.ProvideSnapshotSource(cfg, log),
		di.ProvideAggregator(cfg),
		di.ProvideMetrics(prometheus.NewRegistry()),
		usecase.WithTitle(cfg.Dashboard.Title),
		usecase.WithRefreshTimeout(cfg.Device.Timeout*2),
		usecase.WithControllerLogger(log),
	)

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Device.Timeout*2)
	defer cancel()
	if out := ctrl.Refresh(ctx, true); out.Err != nil {
		return fmt.Errorf("refresh %s: %w", cfg.Device.URL, out.Err)
	}

	if err := os.MkdirAll(flagOutput, 0o755); err != nil {
		return err
	}
	for _, t := range targets {
		path := filepath.Join(flagOutput, t.file)
		var buf bytes.Buffer
		if err := ctrl.Render(cmd.Context(), t.renderer, &buf); err != nil {
			if errors.Is(err, render.ErrNoData) {
				log.Warn("chart skipped, no data", applogger.String("file", t.file))
				continue
			}
			return err
		}
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return err
		}
		log.Info("chart written", applogger.String("format", t.renderer.Name()), applogger.String("path", path))
	}
	return nil
}
