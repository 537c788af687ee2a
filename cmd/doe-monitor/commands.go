package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/criapa/DOE-PE/internal/acquire"
	"github.com/criapa/DOE-PE/internal/dashboard"
	mcpserver "github.com/criapa/DOE-PE/internal/mcp"
	"github.com/criapa/DOE-PE/internal/pipeline"
	"github.com/criapa/DOE-PE/internal/scan"
	"github.com/criapa/DOE-PE/internal/schedule"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [dates...]",
		Short: "Acquire and scan gazette editions (latest when no date is given)",
		Long: `Acquire the editions for the given dates, scan them and write reports.
Dates are dd/mm/yyyy or yyyy-mm-dd; "latest" selects the newest edition.
Editions that cannot be acquired are reported and skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := pipeline.ParseTargets(args)
			if err != nil {
				return err
			}

			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			pub := a.publisher()
			defer closePublisher(a.log, pub)

			p, err := a.pipeline(pub)
			if err != nil {
				return err
			}

			summary, err := p.Run(cmd.Context(), targets)
			if summary != nil {
				printSummary(cmd.OutOrStdout(), summary)
			}
			return err
		},
	}
}

func newScanCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "scan <pdf>...",
		Short: "Scan local gazette PDFs without acquisition",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			if dryRun {
				p, err := a.pipeline(nil)
				if err != nil {
					return err
				}
				var total scan.ScanResult
				for _, path := range args {
					result, err := p.ScanFile(path)
					if err != nil {
						a.log.Warn("scan failed", slog.String("path", path), slog.Any("err", err))
						continue
					}
					total.Merge(result)
				}
				printFindings(cmd.OutOrStdout(), total.Findings)
				printStats(cmd.OutOrStdout(), total.Stats())
				return nil
			}

			pub := a.publisher()
			defer closePublisher(a.log, pub)

			p, err := a.pipeline(pub)
			if err != nil {
				return err
			}
			summary, err := p.RunFiles(cmd.Context(), args)
			if summary != nil {
				printFindings(cmd.OutOrStdout(), summary.Result.Findings)
				printSummary(cmd.OutOrStdout(), summary)
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print findings without writing reports or sending alerts")
	return cmd
}

func newScheduleCmd() *cobra.Command {
	var runNow bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Scan the latest edition on the configured cron schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			pub := a.publisher()
			defer closePublisher(a.log, pub)

			p, err := a.pipeline(pub)
			if err != nil {
				return err
			}

			job := func(ctx context.Context) error {
				summary, err := p.Run(ctx, []acquire.Target{acquire.LatestTarget()})
				if summary != nil && summary.Failed() > 0 {
					a.log.Warn("scheduled run incomplete", slog.String("run_id", summary.RunID), slog.Int("failed", summary.Failed()))
				}
				return err
			}

			s, err := schedule.New(a.cfg.Schedule, job, schedule.WithLogger(a.log))
			if err != nil {
				return err
			}
			if runNow {
				s.Trigger(cmd.Context())
			}
			return s.Run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&runNow, "now", false, "Also run once at startup")
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API over the report files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			svc, err := dashboard.NewService(cmd.Context(), a.cfg.ReportsDir, a.log)
			if err != nil {
				return err
			}
			defer svc.Close()

			if _, err := svc.Reload(cmd.Context()); err != nil {
				return err
			}

			return dashboard.ListenAndServe(cmd.Context(), a.cfg.Address(), dashboard.NewRouter(svc, a.log), a.log)
		},
	}
}

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP tool server over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			p, err := a.pipeline(nil)
			if err != nil {
				return err
			}

			svc, err := dashboard.NewService(cmd.Context(), a.cfg.ReportsDir, a.log)
			if err != nil {
				return err
			}
			defer svc.Close()

			server, err := mcpserver.NewServer(a.cfg, p, a.catalog, svc, a.log)
			if err != nil {
				return err
			}
			return server.Run(cmd.Context())
		},
	}
}

type closer interface {
	Close() error
}

func closePublisher(log *slog.Logger, c closer) {
	if err := c.Close(); err != nil {
		log.Warn("closing alert publisher", slog.Any("err", err))
	}
}
