package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/criapa/DOE-PE/internal/acquire"
	"github.com/criapa/DOE-PE/internal/alert"
	"github.com/criapa/DOE-PE/internal/catalog"
	"github.com/criapa/DOE-PE/internal/config"
	"github.com/criapa/DOE-PE/internal/logger"
	"github.com/criapa/DOE-PE/internal/pdf"
	"github.com/criapa/DOE-PE/internal/pipeline"
	"github.com/criapa/DOE-PE/internal/report"
	"github.com/criapa/DOE-PE/internal/scan"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		colorHigh.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "doe-monitor",
		Short: "Monitor the Pernambuco state gazette for relevant publications",
		Long: `doe-monitor downloads editions of the Diário Oficial do Estado de Pernambuco,
scans every page for the terms of a keyword catalog and writes JSON, CSV and
topic summary reports. High-impact findings can be forwarded to Kafka.

Examples:
  # Scan the latest edition
  doe-monitor run

  # Scan specific dates
  doe-monitor run 10/01/2025 2025-01-11

  # Scan PDFs already on disk
  doe-monitor scan downloads/DOE_10-01-2025.pdf

  # Run every morning and serve the dashboard API
  doe-monitor schedule
  doe-monitor serve`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	config.DefineFlags(root.PersistentFlags())

	root.AddCommand(
		newRunCmd(),
		newScanCmd(),
		newScheduleCmd(),
		newServeCmd(),
		newMCPCmd(),
		newVersionCmd(),
	)
	return root
}

// app holds what every command builds from the configuration
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	catalog *catalog.Catalog
}

func loadApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}
	if version != "dev" {
		cfg.Version = version
	}

	log := logger.New(cfg.ServerName, cfg.LogLevel, cfg.LogFormat)
	if cfg.IsDebug() {
		log.Debug("configuration loaded", slog.String("config", cfg.String()))
	}

	cat, err := catalog.LoadOrDefault(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	return &app{cfg: cfg, log: log, catalog: cat}, nil
}

func (a *app) acquirer() acquire.Acquirer {
	if a.cfg.Source == config.SourceDirectory {
		return acquire.NewDirectoryAcquirer(a.cfg.DownloadDir, a.cfg.MaxFileSize, a.log)
	}
	return acquire.NewPortalAcquirer(a.cfg.PortalURL, a.cfg.DownloadDir, a.cfg.HTTPTimeout, a.cfg.MaxFileSize,
		acquire.WithLogger(a.log))
}

// publisher returns a Kafka publisher when brokers are configured
func (a *app) publisher() alert.Publisher {
	if !a.cfg.AlertsEnabled() {
		return alert.NopPublisher{}
	}
	a.log.Info("high-impact alerts enabled",
		slog.Any("brokers", a.cfg.KafkaBrokers),
		slog.String("topic", a.cfg.KafkaTopic),
	)
	return alert.NewKafkaPublisher(a.cfg.KafkaBrokers, a.cfg.KafkaTopic, a.log)
}

func (a *app) pipeline(pub alert.Publisher) (*pipeline.Pipeline, error) {
	mode, err := pipeline.ParseReportMode(a.cfg.ReportMode)
	if err != nil {
		return nil, err
	}
	return pipeline.New(
		a.acquirer(),
		pdf.NewReader(a.cfg.MaxFileSize, a.log),
		scan.NewScanner(a.catalog),
		report.NewWriter(a.cfg.ReportsDir),
		pipeline.WithPublisher(pub),
		pipeline.WithReportMode(mode),
		pipeline.WithLogger(a.log),
	), nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "DOE-PE Monitor\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
