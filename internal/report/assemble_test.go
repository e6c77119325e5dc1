package report

import (
	"encoding/json"
	"testing"

	"limb-analyzer/internal/fit"
	"limb-analyzer/internal/profile"
)

func testDataset() *profile.Dataset {
	return &profile.Dataset{
		Samples: []profile.RadialSample{
			{Mu: 0.2, Intensity: 0.55},
			{Mu: 0.6, Intensity: 0.8},
			{Mu: 1.0, Intensity: 1.0},
		},
	}
}

func testFit(id string, chi2 float64) *fit.Result {
	return &fit.Result{
		ModelID:     id,
		Parameters:  []float64{0.5},
		Curve:       []float64{0.6, 0.8, 1.0},
		Residuals:   []float64{-0.05, 0, 0},
		Chi2Reduced: chi2,
		RSquared:    0.99,
		Converged:   true,
	}
}

func TestAssemble(t *testing.T) {
	ds := testDataset()
	fits := []*fit.Result{testFit("quadratic", 1e-4), testFit("linear", 2e-4)}

	a := Assemble(ds, fits)
	if err := a.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if len(a.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(a.Results))
	}
	// The assembler reports in the order it was given; ranking happened
	// upstream.
	if a.Results[0].ModelType != "quadratic" || a.Results[1].ModelType != "linear" {
		t.Errorf("result order %s, %s; want quadratic, linear",
			a.Results[0].ModelType, a.Results[1].ModelType)
	}
	if a.Results[0].Formula == "" {
		t.Error("known model should carry its display formula")
	}

	// Output arrays are copies, not aliases of the fitter's buffers.
	a.Results[0].FittedCurveY[0] = 99
	if fits[0].Curve[0] == 99 {
		t.Error("assembled curve aliases the fit result")
	}
	a.MuArray[0] = 99
	if ds.Samples[0].Mu == 99 {
		t.Error("assembled mu array aliases the dataset")
	}
}

func TestAnalysisJSONContract(t *testing.T) {
	a := Assemble(testDataset(), []*fit.Result{testFit("linear", 1e-4)})

	data, err := json.Marshal(a)
	if err != nil {
		t.Fatal(err)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"mu_array", "i_norm_array", "results"} {
		if _, ok := top[key]; !ok {
			t.Errorf("missing top-level key %q", key)
		}
	}

	var results []map[string]json.RawMessage
	if err := json.Unmarshal(top["results"], &results); err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	for _, key := range []string{
		"model_type", "parameters", "fitted_curve_y", "residuals",
		"chi2_reduced", "r_squared", "converged",
	} {
		if _, ok := results[0][key]; !ok {
			t.Errorf("missing result key %q", key)
		}
	}
	// Standard errors were never computed here, so the field stays out of
	// the payload entirely.
	if _, ok := results[0]["standard_errors"]; ok {
		t.Error("nil standard errors should be omitted")
	}
}

func TestValidateCatchesLengthMismatch(t *testing.T) {
	a := Assemble(testDataset(), []*fit.Result{testFit("linear", 1e-4)})
	a.Results[0].Residuals = a.Results[0].Residuals[:2]
	if err := a.Validate(); err == nil {
		t.Error("expected length-mismatch error")
	}

	b := Assemble(testDataset(), nil)
	b.INormArray = b.INormArray[:2]
	if err := b.Validate(); err == nil {
		t.Error("expected mu/intensity mismatch error")
	}
}

func TestAssembleUnknownModelHasNoFormula(t *testing.T) {
	a := Assemble(testDataset(), []*fit.Result{testFit("mystery", 1e-4)})
	if a.Results[0].Formula != "" {
		t.Errorf("formula = %q, want empty for unknown model", a.Results[0].Formula)
	}
}
