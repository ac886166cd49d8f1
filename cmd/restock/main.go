package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/restock/internal/app"
	"github.com/andresuchdata/restock/internal/config"
	"github.com/andresuchdata/restock/internal/domain"
	"github.com/andresuchdata/restock/internal/pipeline"
	"github.com/andresuchdata/restock/internal/replenishment"
	"github.com/andresuchdata/restock/internal/service"
	"github.com/andresuchdata/restock/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

type contextKey string

const appKey contextKey = "app"

func newLogLevelFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "log-level",
		Usage:   "Log level (debug, info, warn, error)",
		EnvVars: []string{"LOG_LEVEL"},
	}
}

func newSourceFlag(required bool) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "source",
		Aliases:  []string{"s"},
		Usage:    "Payload reference: local path, s3://bucket/key or drive://path",
		Required: required,
	}
}

func initApp(c *cli.Context) error {
	cfg := config.Load()

	level := cfg.Log.Level
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	if err := logger.Init(logger.Options{Level: level, File: cfg.Log.File}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	application, err := app.New(c.Context, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	c.Context = context.WithValue(c.Context, appKey, application)
	return nil
}

func closeApp(c *cli.Context) error {
	if application, ok := c.Context.Value(appKey).(*app.App); ok && application != nil {
		return application.Close()
	}
	return nil
}

func appFrom(c *cli.Context) *app.App {
	return c.Context.Value(appKey).(*app.App)
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	cliApp := &cli.App{
		Name:   "restock",
		Usage:  "Replenishment report builder",
		Flags:  []cli.Flag{newLogLevelFlag()},
		Before: initApp,
		After:  closeApp,
		Commands: []*cli.Command{
			{
				Name:  "report",
				Usage: "Build and inspect replenishment reports",
				Subcommands: []*cli.Command{
					{
						Name:  "build",
						Usage: "Build a report from a backend payload and print its summary",
						Flags: []cli.Flag{
							newSourceFlag(true),
							&cli.StringFlag{
								Name:  "output",
								Usage: "Where to write the full report JSON (local path or s3://bucket/key)",
							},
							&cli.IntFlag{
								Name:  "top",
								Usage: "Number of most urgent items to print",
								Value: 5,
							},
						},
						Action: buildReport,
					},
					{
						Name:  "scenario",
						Usage: "Run the coverage calculator over a CSV (location,sku,stock,demand_daily,qty_to_add)",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:     "file",
								Aliases:  []string{"f"},
								Usage:    "CSV file with scenario rows",
								Required: true,
							},
						},
						Action: runScenario,
					},
					{
						Name:  "batch",
						Usage: "Build a report for every JSON payload under an s3:// prefix",
						Flags: []cli.Flag{
							newSourceFlag(true),
							&cli.IntFlag{
								Name:  "workers",
								Usage: "Number of concurrent builds",
								Value: pipeline.DefaultBatchConfig().WorkerCount,
							},
							&cli.IntFlag{
								Name:  "retries",
								Usage: "Attempts per payload",
								Value: pipeline.DefaultBatchConfig().RetryAttempts,
							},
						},
						Action: buildBatch,
					},
					{
						Name:  "sources",
						Usage: "List payloads available under a reference prefix",
						Flags: []cli.Flag{
							newSourceFlag(true),
						},
						Action: listSources,
					},
				},
			},
			{
				Name:   "runs",
				Usage:  "List recent report runs",
				Action: listRuns,
			},
			{
				Name:   "serve",
				Usage:  "Start the HTTP API",
				Action: serve,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func buildReport(c *cli.Context) error {
	a := appFrom(c)

	res, err := a.Reports.BuildFromRef(c.Context, c.String("source"))
	if err != nil {
		return err
	}

	if out := c.String("output"); out != "" {
		data, err := json.MarshalIndent(res.Report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		if err := a.Loader.Store(c.Context, out, data); err != nil {
			return err
		}
		fmt.Printf("Report written to %s\n", out)
	}

	printSummary(res, c.Int("top"))
	return nil
}

func printSummary(res *service.BuildResult, top int) {
	r := res.Report
	fmt.Printf("Report %s (cache hit: %v)\n", res.ID, res.CacheHit)
	fmt.Printf("  items: %d  to order: %d  at risk: %d  value: %.2f\n",
		r.Global.TotalItems, r.Global.TotalToOrder, r.Global.TotalAtRisk, r.Global.TotalValue)
	if r.Global.HasAverageCoverage {
		fmt.Printf("  average coverage: %.1f days\n", r.Global.AverageCoverageDays)
	}

	for _, g := range r.ByFlow {
		fmt.Printf("  %-12s items=%d to_order=%d at_risk=%d coverage=%.1f -> %.1f\n",
			g.GroupKey, g.ItemCount, g.ToOrderCount, g.AtRiskCount,
			g.WeightedCoverageCurrent, g.WeightedCoverageProjected)
	}
	fmt.Printf("  tiers: critical=%d warning=%d safe=%d n/a=%d\n",
		r.TierCounts[replenishment.TierCritical], r.TierCounts[replenishment.TierWarning],
		r.TierCounts[replenishment.TierSafe], r.TierCounts[replenishment.TierNotApplicable])

	urgent := r.MostUrgent
	if top >= 0 && top < len(urgent) {
		urgent = urgent[:top]
	}
	for _, it := range urgent {
		fmt.Printf("  ! %s %s @ %s: %.1f days (%s)\n", it.Flow, it.SKU, it.Destination, it.CoverageDaysCurrent, it.Tier)
	}
}

func runScenario(c *cli.Context) error {
	f, err := os.Open(c.String("file"))
	if err != nil {
		return fmt.Errorf("failed to open scenario file: %w", err)
	}
	defer f.Close()

	rows, err := parseScenarioCSV(f)
	if err != nil {
		return err
	}

	batch := appFrom(c).Reports.Scenario(rows)
	for _, res := range batch.Results {
		if !res.Valid {
			fmt.Printf("%s/%s: skipped (%s)\n", res.Row.Location, res.Row.SKU, res.Reason)
			continue
		}
		fmt.Printf("%s/%s: %.1f -> %.1f days (%s)\n",
			res.Row.Location, res.Row.SKU, res.CoverageCurrent, res.CoverageAfter, res.Tier)
	}
	fmt.Printf("rows: %d  critical: %d  warning: %d  safe: %d\n",
		batch.Totals.Count, batch.Totals.Critical, batch.Totals.Warning, batch.Totals.Safe)
	return nil
}

func buildBatch(c *cli.Context) error {
	a := appFrom(c)

	cfg := pipeline.DefaultBatchConfig()
	cfg.WorkerCount = c.Int("workers")
	cfg.RetryAttempts = c.Int("retries")

	res, err := pipeline.NewOrchestrator(a.Loader, a.Reports, cfg).Run(c.Context, c.String("source"))
	if err != nil {
		return err
	}

	for _, job := range res.Jobs {
		if job.Status == pipeline.JobCompleted {
			fmt.Printf("ok\t%s\t%s\titems=%d\n", job.Ref, job.ReportID, job.Items)
			continue
		}
		fmt.Printf("%s\t%s\t%s\n", job.Status, job.Ref, job.Error)
	}
	fmt.Printf("completed: %d  failed: %d\n", res.Completed, res.Failed)

	if res.Failed > 0 {
		return fmt.Errorf("%d payloads failed", res.Failed)
	}
	return nil
}

func listSources(c *cli.Context) error {
	objects, err := appFrom(c).Loader.List(c.Context, c.String("source"))
	if err != nil {
		return err
	}
	for _, obj := range objects {
		fmt.Printf("%d\t%s\n", obj.Size, obj.Key)
	}
	return nil
}

func listRuns(c *cli.Context) error {
	runs, err := appFrom(c).Reports.Runs(c.Context, domain.RunFilter{})
	if err != nil {
		return err
	}
	for _, run := range runs {
		fmt.Printf("%s\t%s\t%s\titems=%d\t%s\n",
			run.CreatedAt.Format(time.RFC3339), run.ID, run.Status, run.Items, run.SourceRef)
	}
	return nil
}

func serve(c *cli.Context) error {
	a := appFrom(c)
	srv := a.Server()

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info().Str("port", a.Config.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	logger.Log.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
