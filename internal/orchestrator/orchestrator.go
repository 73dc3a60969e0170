// Package orchestrator runs experiments end to end.
// It coordinates: inputs → detection → propagation → cache → stores
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"crop-stress-lab/internal/cache"
	"crop-stress-lab/internal/calendar"
	"crop-stress-lab/internal/config"
	"crop-stress-lab/internal/detector"
	"crop-stress-lab/internal/domain"
	"crop-stress-lab/internal/idhash"
	"crop-stress-lab/internal/observability"
	"crop-stress-lab/internal/propagation"
	"crop-stress-lab/internal/storage"
	"crop-stress-lab/internal/trade"
)

// Phase names used in logs and duration metrics.
const (
	PhaseLoad      = "load"
	PhaseDetect    = "detect"
	PhasePropagate = "propagate"
	PhasePersist   = "persist"
)

// Stored table names used in row metrics.
const (
	TableSummaries = "reporter_summaries"
	TableCells     = "stress_cells"
	TableTotals    = "total_stress"
)

// Orchestrator coordinates the execution of experiments.
// Flow: load inputs → detect → propagate → persist
type Orchestrator struct {
	loader   Loader
	cache    cache.Store
	stores   *storage.Stores
	metrics  *observability.Metrics
	policy   cache.Policy
	workers  int
	logger   *slog.Logger
	now      func() time.Time
	newRunID func() string
}

// Options for creating Orchestrator.
type Options struct {
	// Required
	Loader Loader

	// Cache holds response fields and bundles. Defaults to a memory store.
	Cache  cache.Store
	Policy cache.Policy

	// Stores persists finished runs when set.
	Stores *storage.Stores

	Metrics  *observability.Metrics
	Workers  int
	Logger   *slog.Logger
	Now      func() time.Time
	NewRunID func() string
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		loader:   opts.Loader,
		cache:    opts.Cache,
		stores:   opts.Stores,
		metrics:  opts.Metrics,
		policy:   opts.Policy,
		workers:  opts.Workers,
		logger:   opts.Logger,
		now:      opts.Now,
		newRunID: opts.NewRunID,
	}
	if o.cache == nil {
		o.cache = cache.NewMemoryStore()
	}
	if o.workers < 1 {
		o.workers = 1
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	o.logger = o.logger.With(slog.String("component", "orchestrator"))
	if o.now == nil {
		o.now = time.Now
	}
	if o.newRunID == nil {
		o.newRunID = uuid.NewString
	}
	return o
}

// RunResult contains the outcome of one experiment run.
type RunResult struct {
	Run            *domain.ExperimentRun
	Bundle         *domain.StressBundle
	Stats          propagation.Stats // zero when the bundle came from the cache
	ResponseCached bool
	BundleCached   bool
	Notes          []string // non-fatal findings
}

// Run executes one experiment. A failed run is still recorded in the stores.
func (o *Orchestrator) Run(ctx context.Context, exp domain.Experiment) (*RunResult, error) {
	run := o.newRun(exp)
	result := &RunResult{Run: run}

	o.logger.Info("running experiment",
		slog.String("experiment", exp.Name),
		slog.String("run_id", run.RunID),
		slog.String("config_hash", idhash.Short(run.ConfigHash)))

	key := cache.BundleKey(exp)
	bundle, hit, err := cache.GetOrCompute(o.policy,
		func() (*domain.StressBundle, error) { return o.cache.LoadBundle(key) },
		func() (*domain.StressBundle, error) { return o.computeCached(ctx, exp, result) },
		func(b *domain.StressBundle) error { return o.cache.SaveBundle(key, b) })
	o.metrics.RecordCache(observability.CacheBundle, hit)
	if err != nil {
		o.fail(ctx, run, err)
		return nil, fmt.Errorf("experiment %s: %w", exp.Name, err)
	}
	result.Bundle = bundle
	result.BundleCached = hit
	if hit {
		o.logger.Info("bundle loaded from cache", slog.String("experiment", exp.Name))
	}

	run.Reporters = bundle.Reporters
	run.Partners = bundle.Partners
	run.Samples = bundle.Samples
	run.CacheHit = hit
	run.Status = domain.RunStatusCompleted

	finished := o.now()
	run.FinishedAt = finished.UnixMilli()

	if o.stores != nil {
		o.logger.Info("phase 4: persisting run", slog.String("run_id", run.RunID))
		if err := o.stores.SaveRun(ctx, run, bundle); err != nil {
			o.fail(ctx, run, err)
			return nil, fmt.Errorf("experiment %s: persist run: %w", exp.Name, err)
		}
		o.recordRows(bundle)
		o.metrics.ObservePhase(PhasePersist, finished)
	}
	o.metrics.RecordRun(exp.Name, run.Status, finished)

	o.logger.Info("experiment completed",
		slog.String("experiment", exp.Name),
		slog.Int("reporters", len(bundle.Reporters)),
		slog.Int("partners", len(bundle.Partners)),
		slog.Int("samples", bundle.Samples),
		slog.Bool("cache_hit", hit),
		slog.Int("notes", len(result.Notes)))
	return result, nil
}

// RunAll runs an experiment, or each of its subexperiments in order.
// The first failure stops the sequence; completed results are returned with it.
func (o *Orchestrator) RunAll(ctx context.Context, reg *config.Registry, name string) ([]*RunResult, error) {
	exps, err := reg.Expand(name)
	if err != nil {
		return nil, err
	}
	results := make([]*RunResult, 0, len(exps))
	for _, exp := range exps {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := o.Run(ctx, exp)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// Compute builds the bundle of exp from the inputs, bypassing every cache.
func (o *Orchestrator) Compute(ctx context.Context, exp domain.Experiment) (*domain.StressBundle, error) {
	scratch := &RunResult{}
	resp, err := o.detect(ctx, exp, scratch)
	if err != nil {
		return nil, err
	}
	return o.propagate(ctx, exp, resp, scratch)
}

// computeCached builds the bundle of exp reusing a cached response field.
func (o *Orchestrator) computeCached(ctx context.Context, exp domain.Experiment, result *RunResult) (*domain.StressBundle, error) {
	key := cache.ResponseKey(exp)
	resp, hit, err := cache.GetOrCompute(o.policy,
		func() (*domain.ResponseField, error) { return o.cache.LoadResponse(key) },
		func() (*domain.ResponseField, error) { return o.detect(ctx, exp, result) },
		func(r *domain.ResponseField) error { return o.cache.SaveResponse(key, r) })
	o.metrics.RecordCache(observability.CacheResponse, hit)
	if err != nil {
		return nil, err
	}
	result.ResponseCached = hit
	if hit {
		o.logger.Info("response field loaded from cache", slog.String("experiment", exp.Name))
	}
	return o.propagate(ctx, exp, resp, result)
}

func (o *Orchestrator) detect(ctx context.Context, exp domain.Experiment, result *RunResult) (*domain.ResponseField, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := o.now()
	o.logger.Info("phase 1: loading climate inputs", slog.String("experiment", exp.Name))
	raw, err := o.loader.Ensembles(exp)
	if err != nil {
		return nil, fmt.Errorf("phase %s failed: %w", PhaseLoad, err)
	}
	fields := make([]*domain.EnsembleField, len(raw))
	for i, f := range raw {
		if f.Members < exp.Members {
			result.note("ensemble %s has %d members, %d configured", f.Variable, f.Members, exp.Members)
		}
		fields[i] = f.FirstMembers(exp.Members).SelectYears(exp.DataYears)
	}

	var seasons calendar.Seasons
	if exp.GrowingSeasonOnly || exp.ResponseType == domain.ResponseAnomalies {
		if seasons, err = o.loader.Seasons(exp); err != nil {
			return nil, fmt.Errorf("phase %s failed: %w", PhaseLoad, err)
		}
	}
	o.metrics.ObservePhase(PhaseLoad, start)

	start = o.now()
	o.logger.Info("phase 2: detecting stress events",
		slog.String("experiment", exp.Name),
		slog.String("response_type", string(exp.ResponseType)))
	resp, err := detector.New(exp, detector.Options{Seasons: seasons, Logger: o.logger}).Detect(fields)
	if err != nil {
		return nil, fmt.Errorf("phase %s failed: %w", PhaseDetect, err)
	}
	o.metrics.ObservePhase(PhaseDetect, start)
	o.logger.Info("response field ready",
		slog.Int("members", resp.Members),
		slog.Int("windows", len(resp.Windows)))
	return resp, nil
}

func (o *Orchestrator) propagate(ctx context.Context, exp domain.Experiment, resp *domain.ResponseField, result *RunResult) (*domain.StressBundle, error) {
	start := o.now()
	o.logger.Info("phase 3: propagating stress through trade", slog.String("experiment", exp.Name))

	cropland, err := o.loader.Cropland(exp)
	if err != nil {
		return nil, fmt.Errorf("phase %s failed: %w", PhasePropagate, err)
	}
	edges, err := o.loader.Trade(exp)
	if err != nil {
		return nil, fmt.Errorf("phase %s failed: %w", PhasePropagate, err)
	}
	masks, err := o.loader.Masks(exp)
	if err != nil {
		return nil, fmt.Errorf("phase %s failed: %w", PhasePropagate, err)
	}

	table := trade.Prepare(edges, exp)
	if len(table.Reporters) == 0 {
		result.note("trade table %s has no reporters for product %s", exp.TradeFile, exp.Product)
	}

	engine := propagation.New(exp, masks, propagation.Options{Workers: o.workers, Logger: o.logger})
	res, err := engine.Run(ctx, propagation.Inputs{Response: resp, Cropland: cropland, Trade: table})
	if err != nil {
		return nil, fmt.Errorf("phase %s failed: %w", PhasePropagate, err)
	}
	o.metrics.ObservePhase(PhasePropagate, start)

	result.Stats = res.Stats
	skips := make(map[string]int, len(res.Stats.Skips))
	for reason, n := range res.Stats.Skips {
		skips[string(reason)] = n
	}
	o.metrics.RecordPropagation(res.Stats.Reporters, res.Stats.Fallbacks, skips)

	if res.Stats.Fallbacks > 0 {
		result.note("%d partner masks fell back to the nearest grid cell", res.Stats.Fallbacks)
	}
	reasons := make([]string, 0, len(skips))
	for reason := range skips {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		if skips[reason] > 0 {
			result.note("%d partner slots skipped (%s)", skips[reason], reason)
		}
	}

	b := res.Bundle
	b.ConfigHash = idhash.ComputeExperimentHash(exp)
	return b, nil
}

func (o *Orchestrator) newRun(exp domain.Experiment) *domain.ExperimentRun {
	return &domain.ExperimentRun{
		RunID:        o.newRunID(),
		Experiment:   exp.Name,
		ConfigHash:   idhash.ComputeExperimentHash(exp),
		ResponseHash: idhash.ComputeResponseHash(exp),
		GCM:          exp.GCM,
		Product:      exp.Product,
		StartedAt:    o.now().UnixMilli(),
	}
}

// fail records a failed run. Store errors are logged, never returned.
func (o *Orchestrator) fail(ctx context.Context, run *domain.ExperimentRun, cause error) {
	finished := o.now()
	run.Status = domain.RunStatusFailed
	run.FinishedAt = finished.UnixMilli()
	o.metrics.RecordRun(run.Experiment, run.Status, finished)
	o.logger.Error("experiment failed",
		slog.String("experiment", run.Experiment),
		slog.String("run_id", run.RunID),
		slog.String("error", cause.Error()))

	if o.stores == nil || o.stores.Runs == nil {
		return
	}
	// Rows of a partially persisted run are left in place; the run record
	// marks them failed.
	failed := *run
	failed.Reporters, failed.Partners, failed.Samples = nil, nil, 0
	if err := o.stores.Runs.Insert(context.WithoutCancel(ctx), &failed); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		o.logger.Warn("failed to record failed run",
			slog.String("run_id", run.RunID),
			slog.String("error", err.Error()))
	}
}

func (o *Orchestrator) recordRows(b *domain.StressBundle) {
	written, totals := 0, 0
	for _, s := range b.Summaries {
		totals += len(s.TotalStress)
	}
	for ri := range b.Reporters {
		for pi := range b.Partners {
			if b.Traded.IsWritten(ri, pi) {
				written++
			}
		}
	}
	o.metrics.RecordRows(TableSummaries, len(b.Summaries))
	o.metrics.RecordRows(TableCells, written*b.Samples)
	o.metrics.RecordRows(TableTotals, totals)
}

func (r *RunResult) note(format string, args ...any) {
	r.Notes = append(r.Notes, fmt.Sprintf(format, args...))
}
