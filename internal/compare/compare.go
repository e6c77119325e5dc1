// Package compare orchestrates fitting across limb-darkening models and
// ranks the outcomes by goodness of fit.
package compare

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"limb-analyzer/internal/fit"
	"limb-analyzer/internal/limb"
	"limb-analyzer/internal/profile"
)

// Options holds the comparison tunables.
type Options struct {
	Fit fit.Options
	// MaxConcurrent bounds how many model fits run at once; 0 means one
	// goroutine per model.
	MaxConcurrent int
}

// InsufficientDataError means no model at all could be fit against the
// profile. It is fatal for the request.
type InsufficientDataError struct {
	Attempted int
	Samples   int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("no model could be fit: all %d models need more than the %d available samples",
		e.Attempted, e.Samples)
}

// Single fits one model and returns its result. A DegreesOfFreedomError is
// fatal here, unlike during comparison.
func Single(ctx context.Context, ds *profile.Dataset, model limb.Model, opts Options) (*fit.Result, error) {
	return fit.Fit(ctx, ds, model, opts.Fit)
}

// FitAll fits every given model against the same profile and returns the
// results ranked ascending by reduced chi-square (ties broken by model id).
//
// The fits are mutually independent: each goroutine reads the shared
// immutable Dataset and works on its own parameter vector, so no
// synchronization is needed beyond collecting results, and execution order
// never affects the ranked output. Models rejected for lack of degrees of
// freedom are excluded from the ranking; cancellation is fatal for the whole
// comparison.
func FitAll(ctx context.Context, ds *profile.Dataset, models []limb.Model, opts Options) ([]*fit.Result, error) {
	if len(models) == 0 {
		return nil, fmt.Errorf("no models requested")
	}

	results := make([]*fit.Result, len(models))
	errs := make([]error, len(models))

	var sem chan struct{}
	if opts.MaxConcurrent > 0 && opts.MaxConcurrent < len(models) {
		sem = make(chan struct{}, opts.MaxConcurrent)
	}

	var wg sync.WaitGroup
	for i := range models {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}
			results[idx], errs[idx] = fit.Fit(ctx, ds, models[idx], opts.Fit)
		}(i)
	}
	wg.Wait()

	kept := make([]*fit.Result, 0, len(models))
	for i, err := range errs {
		switch {
		case err == nil:
			kept = append(kept, results[i])
		case isDegreesOfFreedom(err):
			// Too few samples for this model only; the comparison goes on
			// without it.
		default:
			return nil, err
		}
	}
	if len(kept) == 0 {
		return nil, &InsufficientDataError{Attempted: len(models), Samples: ds.Len()}
	}

	rank(kept)
	return kept, nil
}

func isDegreesOfFreedom(err error) bool {
	var dof *fit.DegreesOfFreedomError
	return errors.As(err, &dof)
}

// rank sorts ascending by reduced chi-square with a stable lexical tie-break
// on model id, so equal fits always order the same way.
func rank(results []*fit.Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Chi2Reduced != results[j].Chi2Reduced {
			return results[i].Chi2Reduced < results[j].Chi2Reduced
		}
		return results[i].ModelID < results[j].ModelID
	})
}
