// Package propagation weights each trade partner's crop-area stress by its
// import share and accumulates it into per-reporter stress tensors.
package propagation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"crop-stress-lab/internal/domain"
	"crop-stress-lab/internal/metrics"
	"crop-stress-lab/internal/spatial"
)

// MaskResolver resolves a region code to its country mask.
type MaskResolver interface {
	Resolve(code string) (domain.CountryMask, error)
}

// SkipReason names why a partner slot was left unwritten.
type SkipReason string

const (
	SkipZeroFraction  SkipReason = "zero_fraction"
	SkipExcluded      SkipReason = "excluded"
	SkipNoCropOverlap SkipReason = "no_crop_overlap"
)

// Inputs are the read-only data shared by every reporter.
type Inputs struct {
	Response *domain.ResponseField
	Cropland domain.Field2D
	Trade    *domain.TradeTable
}

// Options for creating an Engine.
type Options struct {
	Workers int // reporters processed in parallel, minimum 1
	Logger  *slog.Logger
}

// Stats counts what happened during a run.
type Stats struct {
	Reporters int
	Written   int
	Fallbacks int // partners whose mask fell back to the nearest grid point
	Skips     map[SkipReason]int
}

// Result is the output of a run.
type Result struct {
	Bundle *domain.StressBundle
	Stats  Stats
}

// Engine runs trade-weighted stress propagation for one experiment.
type Engine struct {
	exp      domain.Experiment
	resolver MaskResolver
	workers  int
	logger   *slog.Logger
}

// New creates an Engine.
func New(exp domain.Experiment, resolver MaskResolver, opts Options) *Engine {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		exp:      exp,
		resolver: resolver,
		workers:  workers,
		logger:   logger.With(slog.String("component", "propagation")),
	}
}

// partnerResponse is computed at most once per partner and shared by reporters.
type partnerResponse struct {
	once     sync.Once
	series   []float64
	fallback bool
	err      error
}

type run struct {
	*Engine
	in         Inputs
	samples    int
	partnerIdx map[string]int
	traded     *domain.StressTensor
	unweighted *domain.StressTensor
	summaries  []domain.ReporterSummary

	mu        sync.Mutex
	responses map[string]*partnerResponse
	stats     Stats
}

// Run processes every reporter of the trade table. The first fatal error
// cancels the remaining reporters and is returned.
func (e *Engine) Run(ctx context.Context, in Inputs) (*Result, error) {
	if in.Response == nil || in.Trade == nil {
		return nil, fmt.Errorf("%w: propagation needs a response field and a trade table", domain.ErrInsufficientData)
	}
	if err := in.Response.Validate(); err != nil {
		return nil, err
	}
	if err := domain.CheckSameGrid(in.Response.Grid, in.Cropland.Grid); err != nil {
		return nil, fmt.Errorf("cropland: %w", err)
	}

	reporters, partners := in.Trade.Reporters, in.Trade.Partners
	samples := in.Response.Samples()
	r := &run{
		Engine:     e,
		in:         in,
		samples:    samples,
		partnerIdx: make(map[string]int, len(partners)),
		traded:     domain.NewStressTensor(len(reporters), samples, len(partners)),
		unweighted: domain.NewStressTensor(len(reporters), samples, len(partners)),
		summaries:  make([]domain.ReporterSummary, len(reporters)),
		responses:  make(map[string]*partnerResponse),
		stats:      Stats{Skips: make(map[SkipReason]int)},
	}
	for i, p := range partners {
		r.partnerIdx[p] = i
	}

	e.logger.Info("propagating stress",
		slog.String("experiment", e.exp.Name),
		slog.Int("reporters", len(reporters)),
		slog.Int("partners", len(partners)),
		slog.Int("samples", samples),
		slog.Int("workers", e.workers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range reporters {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return r.reporter(gctx, i)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.stats.Reporters = len(reporters)
	return &Result{
		Bundle: &domain.StressBundle{
			Experiment: e.exp.Name,
			Reporters:  append([]string(nil), reporters...),
			Partners:   append([]string(nil), partners...),
			Samples:    samples,
			Traded:     r.traded,
			Unweighted: r.unweighted,
			Summaries:  r.summaries,
		},
		Stats: r.stats,
	}, nil
}

// reporter writes only index ri of both tensors and of the summaries.
func (r *run) reporter(ctx context.Context, ri int) error {
	code := r.in.Trade.Reporters[ri]
	rows := r.in.Trade.ImportsOf(code)

	seen := make(map[string]struct{}, len(rows))
	var total float64
	for _, row := range rows {
		if _, dup := seen[row.Source]; dup {
			return fmt.Errorf("%w: reporter %s lists %s twice", domain.ErrDuplicatePartner, code, row.Source)
		}
		seen[row.Source] = struct{}{}
		total += row.Value
	}

	series := make([]metrics.PartnerSeries, len(rows))
	skips := make(map[SkipReason]int)
	written, fallbacks := 0, 0

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		partner := row.Source
		if partner == code && !r.exp.IncludeSelf {
			return fmt.Errorf("%w: reporter %s", domain.ErrInconsistentSelfTrade, code)
		}
		series[i] = metrics.PartnerSeries{Code: partner, Value: row.Value}

		var frac float64
		if total != 0 {
			frac = row.Value / total
		}
		if frac == 0 {
			skips[SkipZeroFraction]++
			continue
		}
		if r.exp.Excluded(partner) {
			skips[SkipExcluded]++
			continue
		}

		resp, fallback, err := r.partnerResponse(partner)
		if err != nil {
			return fmt.Errorf("reporter %s partner %s: %w", code, partner, err)
		}
		if fallback {
			fallbacks++
		}
		if len(resp) == 0 || math.IsNaN(resp[0]) {
			skips[SkipNoCropOverlap]++
			continue
		}

		pi, ok := r.partnerIdx[partner]
		if !ok {
			return fmt.Errorf("%w: partner %s missing from the partner axis", domain.ErrShapeMismatch, partner)
		}
		traded := make([]float64, len(resp))
		for s, v := range resp {
			traded[s] = v * frac
		}
		r.traded.Set(ri, pi, traded)
		r.unweighted.Set(ri, pi, resp)
		series[i].Stress = traded
		written++
	}

	summary := metrics.Summarize(code, series, r.samples)
	r.summaries[ri] = summary

	r.logger.Debug("reporter done",
		slog.String("reporter", code),
		slog.Float64("imports", total),
		slog.Int("partners", len(rows)),
		slog.Int("written", written),
		slog.Float64("corr_local_imports", summary.CorrLocalImports),
		slog.Float64("corr_top_two", summary.CorrTopTwo))

	r.mu.Lock()
	r.stats.Written += written
	r.stats.Fallbacks += fallbacks
	for k, v := range skips {
		r.stats.Skips[k] += v
	}
	r.mu.Unlock()
	return nil
}

// partnerResponse returns the crop-area average response of a partner,
// computing it on first use.
func (r *run) partnerResponse(code string) ([]float64, bool, error) {
	r.mu.Lock()
	entry, ok := r.responses[code]
	if !ok {
		entry = &partnerResponse{}
		r.responses[code] = entry
	}
	r.mu.Unlock()

	entry.once.Do(func() {
		mask, err := r.resolver.Resolve(code)
		if err != nil {
			entry.err = err
			return
		}
		crop, err := mask.Mask.Mul(r.in.Cropland)
		if err != nil {
			entry.err = fmt.Errorf("crop mask: %w", err)
			return
		}
		entry.series, entry.err = spatial.RegionalAverage(r.in.Response, crop)
		entry.fallback = mask.Fallback
	})
	return entry.series, entry.fallback, entry.err
}
