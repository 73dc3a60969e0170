// Package main provides the experiment pipeline entry point.
// Executes: detection → propagation → persistence → reporting
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"crop-stress-lab/internal/cache"
	"crop-stress-lab/internal/config"
	"crop-stress-lab/internal/domain"
	"crop-stress-lab/internal/observability"
	"crop-stress-lab/internal/orchestrator"
	"crop-stress-lab/internal/regions"
	"crop-stress-lab/internal/reporting"
	"crop-stress-lab/internal/storage"
	"crop-stress-lab/internal/storage/db"
	"crop-stress-lab/internal/verification"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "experiments.yaml", "Experiment configuration file")
	experiment := flag.String("experiment", "", "Experiment to run; a parent runs each subexperiment (required)")
	rewrite := flag.Bool("rewrite", false, "Recompute cached response fields and bundles")
	noSave := flag.Bool("no-save", false, "Do not write computed results to the cache")
	workers := flag.Int("workers", 0, "Reporters processed in parallel (0 = CROPSTRESS_WORKERS)")
	outputDir := flag.String("output-dir", "", "Output directory for reports (default CROPSTRESS_OUTPUT_DIR)")
	verify := flag.Bool("verify", false, "Recompute each bundle and compare it to the cached one")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (default CROPSTRESS_METRICS_ADDR)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (default CROPSTRESS_POSTGRES_DSN)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (default CROPSTRESS_CLICKHOUSE_DSN)")
	flag.Parse()

	if *experiment == "" {
		fmt.Fprintln(os.Stderr, "Error: --experiment is required")
		flag.Usage()
		os.Exit(1)
	}

	rt, err := config.LoadRuntime()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	overrideRuntime(rt, *workers, *outputDir, *metricsAddr, *postgresDSN, *clickhouseDSN)

	logger := rt.Logger()
	slog.SetDefault(logger)

	reg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load experiments", slog.String("error", err.Error()))
		os.Exit(1)
	}
	exps, err := reg.Expand(*experiment)
	if err != nil {
		logger.Error("unknown experiment", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Warn("received signal, cancelling pipeline", slog.String("signal", sig.String()))
		cancel()
	}()

	metrics := observability.NewMetrics(observability.DefaultNamespace)
	if rt.MetricsAddr != "" {
		go serveMetrics(logger, rt.MetricsAddr, metrics)
	}

	fileCache, err := cache.NewFileStore(rt.ProcessedDir)
	if err != nil {
		logger.Error("failed to open cache", slog.String("error", err.Error()))
		os.Exit(1)
	}

	stores, closeStores, err := openStores(ctx, rt.PostgresDSN, rt.ClickHouseDSN)
	if err != nil {
		logger.Error("failed to open stores", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStores()

	orch := orchestrator.New(orchestrator.Options{
		Loader:  orchestrator.NewFileLoader(rt, logger),
		Cache:   fileCache,
		Policy:  cache.Policy{Rewrite: *rewrite, Save: !*noSave},
		Stores:  stores,
		Metrics: metrics,
		Workers: rt.Workers,
		Logger:  logger,
	})

	fmt.Printf("=== Experiment %s (%d run(s)) ===\n", *experiment, len(exps))
	results, err := orch.RunAll(ctx, reg, *experiment)
	printResults(results)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Pipeline error: %v\n", err)
		os.Exit(1)
	}

	// Reporting
	names := loadNames(logger, rt.RegionNamesFile)
	gen := reporting.NewGenerator(names)
	for _, res := range results {
		dir := filepath.Join(rt.OutputDir, res.Run.Experiment)
		if err := reporting.WriteFiles(dir, gen.Generate(res.Run, res.Bundle), res.Bundle); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Report written:\n")
		fmt.Printf("  - %s\n", filepath.Join(dir, reporting.ReportFile))
		fmt.Printf("  - %s\n", filepath.Join(dir, reporting.ReporterMetricsFile))
		fmt.Printf("  - %s\n", filepath.Join(dir, reporting.TotalStressFile))
	}

	if *verify {
		fmt.Println("\n=== Verification ===")
		if !runVerification(ctx, verification.NewBundleVerifier(fileCache, orch.Compute), exps) {
			os.Exit(2)
		}
	}
}

// overrideRuntime applies non-empty flag values over the environment config.
func overrideRuntime(rt *config.Runtime, workers int, outputDir, metricsAddr, postgresDSN, clickhouseDSN string) {
	if workers > 0 {
		rt.Workers = workers
	}
	if outputDir != "" {
		rt.OutputDir = outputDir
	}
	if metricsAddr != "" {
		rt.MetricsAddr = metricsAddr
	}
	if postgresDSN != "" {
		rt.PostgresDSN = postgresDSN
	}
	if clickhouseDSN != "" {
		rt.ClickHouseDSN = clickhouseDSN
	}
}

func serveMetrics(logger *slog.Logger, addr string, metrics *observability.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	logger.Info("starting metrics server", slog.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server error", slog.String("error", err.Error()))
	}
}

// openStores returns nil stores when no DSN is set.
func openStores(ctx context.Context, postgresDSN, clickhouseDSN string) (*storage.Stores, func(), error) {
	if postgresDSN == "" && clickhouseDSN == "" {
		return nil, func() {}, nil
	}
	d, err := db.Open(ctx, postgresDSN, clickhouseDSN)
	if err != nil {
		return nil, nil, err
	}
	return &d.Stores, d.Close, nil
}

func loadNames(logger *slog.Logger, path string) *regions.Names {
	if path == "" {
		return nil
	}
	names, err := regions.LoadXLSX(path)
	if err != nil {
		logger.Warn("region names unavailable, using codes", slog.String("error", err.Error()))
		return nil
	}
	return names
}

func printResults(results []*orchestrator.RunResult) {
	for _, res := range results {
		run := res.Run
		fmt.Printf("Run %s completed:\n", run.Experiment)
		fmt.Printf("  Run ID: %s\n", run.RunID)
		fmt.Printf("  Reporters: %d\n", len(run.Reporters))
		fmt.Printf("  Partners: %d\n", len(run.Partners))
		fmt.Printf("  Samples: %d\n", run.Samples)
		fmt.Printf("  Cached: response=%t bundle=%t\n", res.ResponseCached, res.BundleCached)
		if len(res.Notes) > 0 {
			fmt.Printf("  Notes: %d\n", len(res.Notes))
			for _, n := range res.Notes {
				fmt.Printf("    - %s\n", n)
			}
		}
	}
}

// runVerification reports whether every experiment matched its cached bundle.
func runVerification(ctx context.Context, v verification.Verifier, exps []domain.Experiment) bool {
	ok := true
	for _, exp := range exps {
		res, err := v.Verify(ctx, exp)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", exp.Name, err)
			ok = false
			continue
		}
		if res.Match {
			fmt.Printf("  %s: match (%d values compared)\n", exp.Name, res.Compared)
			continue
		}
		ok = false
		fmt.Printf("  %s: %d divergent values of %d\n", exp.Name, res.Divergent, res.Compared)
		for _, d := range res.Divergences {
			fmt.Printf("    - %s %s/%s sample %d: stored %v, recomputed %v\n",
				d.Field, d.Reporter, d.Partner, d.Sample, d.Expected, d.Actual)
		}
	}
	return ok
}
