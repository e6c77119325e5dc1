package fit

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"limb-analyzer/internal/limb"
	"limb-analyzer/internal/profile"
)

// syntheticDataset evaluates a model on a uniform μ grid and wraps the points
// as an extracted profile.
func syntheticDataset(n int, model limb.Model, params []float64) *profile.Dataset {
	samples := make([]profile.RadialSample, n)
	for i := 0; i < n; i++ {
		mu := float64(i) / float64(n-1)
		samples[i] = profile.RadialSample{Mu: mu, Intensity: model.Eval(mu, params)}
	}
	return &profile.Dataset{Samples: samples, SourceID: "synthetic"}
}

func TestFitRecoversLinearCoefficient(t *testing.T) {
	model := limb.MustByID("linear")
	ds := syntheticDataset(60, model, []float64{0.6})

	r, err := Fit(context.Background(), ds, model, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !r.Converged {
		t.Error("fit on exact data should converge")
	}
	if got := r.Parameters[0]; math.Abs(got-0.6) > 1e-6 {
		t.Errorf("u = %v, want 0.6", got)
	}
	if r.Chi2Reduced > 1e-10 {
		t.Errorf("chi2_reduced = %v, want near zero on exact data", r.Chi2Reduced)
	}
	if r.RSquared < 0.999999 {
		t.Errorf("r_squared = %v, want near 1", r.RSquared)
	}
}

func TestFitRecoversAllModels(t *testing.T) {
	tests := []struct {
		id     string
		params []float64
	}{
		{id: "linear", params: []float64{0.6}},
		{id: "quadratic", params: []float64{0.3, 0.4}},
		{id: "square-root", params: []float64{0.2, 0.5}},
		{id: "logarithmic", params: []float64{0.3, 0.4}},
		{id: "claret4", params: []float64{0.5, -0.4, 0.6, -0.3}},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			model := limb.MustByID(tt.id)
			ds := syntheticDataset(120, model, tt.params)

			r, err := Fit(context.Background(), ds, model, DefaultOptions())
			if err != nil {
				t.Fatal(err)
			}
			if !r.Converged {
				t.Error("fit on exact data should converge")
			}
			if r.Chi2Reduced > 1e-9 {
				t.Errorf("chi2_reduced = %v, want near zero", r.Chi2Reduced)
			}

			if len(r.Curve) != ds.Len() || len(r.Residuals) != ds.Len() {
				t.Fatalf("curve/residual lengths %d/%d, want %d",
					len(r.Curve), len(r.Residuals), ds.Len())
			}
			obs := ds.Intensities()
			mus := ds.MuValues()
			for i := range r.Curve {
				if got := model.Eval(mus[i], r.Parameters); r.Curve[i] != got {
					t.Fatalf("curve[%d] = %v, want model eval %v", i, r.Curve[i], got)
				}
				if got := obs[i] - r.Curve[i]; r.Residuals[i] != got {
					t.Fatalf("residual[%d] = %v, want obs-curve %v", i, r.Residuals[i], got)
				}
			}
		})
	}
}

func TestFitDegreesOfFreedom(t *testing.T) {
	model := limb.MustByID("claret4")

	for _, n := range []int{3, 4} {
		ds := syntheticDataset(n, model, []float64{0.5, -0.4, 0.6, -0.3})
		_, err := Fit(context.Background(), ds, model, DefaultOptions())
		var dof *DegreesOfFreedomError
		if !errors.As(err, &dof) {
			t.Fatalf("n=%d: got %v, want *DegreesOfFreedomError", n, err)
		}
		if dof.ModelID != "claret4" || dof.Samples != n || dof.Params != 4 {
			t.Errorf("n=%d: error fields %+v", n, dof)
		}
	}

	// One sample more than the parameter count is enough.
	ds := syntheticDataset(5, model, []float64{0.5, -0.4, 0.6, -0.3})
	if _, err := Fit(context.Background(), ds, model, DefaultOptions()); err != nil {
		t.Errorf("n=5: unexpected error %v", err)
	}
}

func TestFitIterationCapReturnsBestEffort(t *testing.T) {
	model := limb.MustByID("linear")
	ds := syntheticDataset(60, model, []float64{0.9})

	r, err := Fit(context.Background(), ds, model, Options{MaxIterations: 1, CostTolerance: 1e-8})
	if err != nil {
		t.Fatal(err)
	}
	if r.Converged {
		t.Error("one iteration from a distant start should not report convergence")
	}
	if r.Iterations != 1 {
		t.Errorf("iterations = %d, want 1", r.Iterations)
	}
	// The single accepted step must still have improved on the midpoint
	// starting guess.
	if math.Abs(r.Parameters[0]-0.9) >= math.Abs(0.5-0.9) {
		t.Errorf("u = %v, no closer to 0.9 than the initial guess", r.Parameters[0])
	}
}

func TestFitCancellation(t *testing.T) {
	model := limb.MustByID("linear")
	ds := syntheticDataset(60, model, []float64{0.6})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Fit(ctx, ds, model, DefaultOptions())
	var cancelled *CancelledError
	if !errors.As(err, &cancelled) {
		t.Fatalf("got %v, want *CancelledError", err)
	}
	if cancelled.ModelID != "linear" {
		t.Errorf("cancelled model = %q, want linear", cancelled.ModelID)
	}
	if !errors.Is(err, context.Canceled) {
		t.Error("cancellation should unwrap to context.Canceled")
	}
}

func TestFitDeterministic(t *testing.T) {
	model := limb.MustByID("quadratic")
	ds := syntheticDataset(80, model, []float64{0.3, 0.4})

	a, err := Fit(context.Background(), ds, model, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	b, err := Fit(context.Background(), ds, model, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("identical inputs should reproduce bit-identical results")
	}
}

func TestFitClampsToBounds(t *testing.T) {
	model := limb.MustByID("linear")

	// Data generated outside the admissible coefficient range: the best
	// in-bounds fit pins u at the upper bound.
	samples := make([]profile.RadialSample, 60)
	for i := range samples {
		mu := float64(i) / 59
		samples[i] = profile.RadialSample{Mu: mu, Intensity: 1 - 2.5*(1-mu)}
	}
	ds := &profile.Dataset{Samples: samples}

	r, err := Fit(context.Background(), ds, model, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if r.Parameters[0] != 2 {
		t.Errorf("u = %v, want pinned at upper bound 2", r.Parameters[0])
	}
	if !r.Converged {
		t.Error("a bound-pinned fit should still report convergence")
	}
}

func TestFitStandardErrors(t *testing.T) {
	model := limb.MustByID("quadratic")
	ds := syntheticDataset(80, model, []float64{0.3, 0.4})

	r, err := Fit(context.Background(), ds, model, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(r.StdErrors) != model.ParamCount() {
		t.Fatalf("got %d standard errors, want %d", len(r.StdErrors), model.ParamCount())
	}
	for i, se := range r.StdErrors {
		if se < 0 || math.IsNaN(se) {
			t.Errorf("stderr[%d] = %v", i, se)
		}
	}
}

func TestOptionsWithDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	if o.MaxIterations != 1000 || o.CostTolerance != 1e-8 {
		t.Errorf("defaults = %+v", o)
	}
	o = Options{MaxIterations: 5, CostTolerance: 1e-3}.withDefaults()
	if o.MaxIterations != 5 || o.CostTolerance != 1e-3 {
		t.Errorf("explicit options overwritten: %+v", o)
	}
}
