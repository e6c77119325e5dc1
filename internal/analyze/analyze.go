// Package analyze wires profile extraction, model fitting and ranking into a
// single reusable pipeline.
package analyze

import (
	"context"
	"fmt"
	"sync"

	"limb-analyzer/internal/compare"
	"limb-analyzer/internal/fit"
	"limb-analyzer/internal/frame"
	"limb-analyzer/internal/limb"
	"limb-analyzer/internal/profile"
	"limb-analyzer/internal/report"
)

// SelectionCompare requests a fit of every model in the library, ranked by
// goodness of fit. Any other selection must be a model id from the library.
const SelectionCompare = "compare"

// Options holds the pipeline tunables.
type Options struct {
	Extraction        profile.Params
	Fit               fit.Options
	MaxConcurrentFits int
}

// DefaultOptions returns the documented pipeline defaults.
func DefaultOptions() Options {
	return Options{
		Extraction: profile.DefaultParams(),
		Fit:        fit.DefaultOptions(),
	}
}

// Analyzer runs analysis requests. Requests are independent units of work;
// the only cross-request state is a cache of extracted profiles, keyed by the
// grid fingerprint, which is safe to share because Datasets are immutable.
// Extraction parameters are fixed per Analyzer, so the cache key never needs
// to include them.
type Analyzer struct {
	opts Options

	mu    sync.Mutex
	cache map[string]*profile.Dataset
}

// New creates an Analyzer with the given options.
func New(opts Options) *Analyzer {
	if opts.Extraction == (profile.Params{}) {
		opts.Extraction = profile.DefaultParams()
	}
	return &Analyzer{
		opts:  opts,
		cache: make(map[string]*profile.Dataset),
	}
}

// AnalyzeDriftScan extracts a radial profile from a drift-scan grid and fits
// the selected model (or all models for SelectionCompare).
func (a *Analyzer) AnalyzeDriftScan(ctx context.Context, g *frame.Grid, axis frame.Axis, selection string) (*report.Analysis, error) {
	key := fmt.Sprintf("drift|%s|%s", axis, g.Fingerprint())
	ds, err := a.profileFor(key, func() (*profile.Dataset, error) {
		return profile.ExtractDriftScan(g, axis, a.opts.Extraction)
	})
	if err != nil {
		return nil, err
	}
	return a.fitAndAssemble(ctx, ds, selection)
}

// AnalyzeRadial extracts a radial profile from a full 2D disk image given the
// disk geometry (see internal/disk) and fits the selected model.
func (a *Analyzer) AnalyzeRadial(ctx context.Context, g *frame.Grid, cx, cy, radius float64, selection string) (*report.Analysis, error) {
	key := fmt.Sprintf("radial|%.2f|%.2f|%.2f|%s", cx, cy, radius, g.Fingerprint())
	ds, err := a.profileFor(key, func() (*profile.Dataset, error) {
		return profile.Extract2D(g, cx, cy, radius, a.opts.Extraction)
	})
	if err != nil {
		return nil, err
	}
	return a.fitAndAssemble(ctx, ds, selection)
}

// profileFor returns the cached profile for key or extracts and caches a new
// one. Extraction runs outside the lock; it is deterministic, so a racing
// duplicate extraction produces an identical Dataset and either copy may win.
func (a *Analyzer) profileFor(key string, extract func() (*profile.Dataset, error)) (*profile.Dataset, error) {
	a.mu.Lock()
	if ds, ok := a.cache[key]; ok {
		a.mu.Unlock()
		return ds, nil
	}
	a.mu.Unlock()

	ds, err := extract()
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	if cached, ok := a.cache[key]; ok {
		ds = cached
	} else {
		a.cache[key] = ds
	}
	a.mu.Unlock()
	return ds, nil
}

func (a *Analyzer) fitAndAssemble(ctx context.Context, ds *profile.Dataset, selection string) (*report.Analysis, error) {
	opts := compare.Options{Fit: a.opts.Fit, MaxConcurrent: a.opts.MaxConcurrentFits}

	if selection == SelectionCompare {
		ranked, err := compare.FitAll(ctx, ds, limb.All(), opts)
		if err != nil {
			return nil, err
		}
		return report.Assemble(ds, ranked), nil
	}

	model, ok := limb.ByID(selection)
	if !ok {
		return nil, fmt.Errorf("unknown model %q (want one of %v or %q)",
			selection, limb.IDs(), SelectionCompare)
	}
	result, err := compare.Single(ctx, ds, model, opts)
	if err != nil {
		return nil, err
	}
	return report.Assemble(ds, []*fit.Result{result}), nil
}
