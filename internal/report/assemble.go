// Package report packages engine output into the stable response contract
// consumed by the client and by the downstream report generator.
package report

import (
	"fmt"

	"limb-analyzer/internal/fit"
	"limb-analyzer/internal/limb"
	"limb-analyzer/internal/profile"
)

// ModelResult is one fitted model in the outbound contract. Array lengths
// mirror the profile arrays exactly.
type ModelResult struct {
	ModelType      string    `json:"model_type"`
	Formula        string    `json:"formula_latex,omitempty"`
	Parameters     []float64 `json:"parameters"`
	StandardErrors []float64 `json:"standard_errors,omitempty"`
	FittedCurveY   []float64 `json:"fitted_curve_y"`
	Residuals      []float64 `json:"residuals"`
	Chi2Reduced    float64   `json:"chi2_reduced"`
	RSquared       float64   `json:"r_squared"`
	Converged      bool      `json:"converged"`
}

// Analysis is the full outbound contract: the extracted profile plus ranked
// fit results. The downstream report generator renders a fixed three-page
// document from this structure alone.
type Analysis struct {
	MuArray    []float64     `json:"mu_array"`
	INormArray []float64     `json:"i_norm_array"`
	Results    []ModelResult `json:"results"`
}

// Assemble copies the profile and the ranked fits into the outbound
// structure. The input ordering is preserved: ranking is the comparator's
// job, never the assembler's.
func Assemble(ds *profile.Dataset, fits []*fit.Result) *Analysis {
	a := &Analysis{
		MuArray:    ds.MuValues(),
		INormArray: ds.Intensities(),
		Results:    make([]ModelResult, len(fits)),
	}
	for i, f := range fits {
		formula := ""
		if m, ok := limb.ByID(f.ModelID); ok {
			formula = m.Formula
		}
		a.Results[i] = ModelResult{
			ModelType:      f.ModelID,
			Formula:        formula,
			Parameters:     copyFloats(f.Parameters),
			StandardErrors: copyFloats(f.StdErrors),
			FittedCurveY:   copyFloats(f.Curve),
			Residuals:      copyFloats(f.Residuals),
			Chi2Reduced:    f.Chi2Reduced,
			RSquared:       f.RSquared,
			Converged:      f.Converged,
		}
	}
	return a
}

// Validate checks the contract's length invariants.
func (a *Analysis) Validate() error {
	if len(a.MuArray) != len(a.INormArray) {
		return fmt.Errorf("mu_array length %d != i_norm_array length %d",
			len(a.MuArray), len(a.INormArray))
	}
	for _, r := range a.Results {
		if len(r.FittedCurveY) != len(a.MuArray) {
			return fmt.Errorf("model %s: fitted_curve_y length %d != mu_array length %d",
				r.ModelType, len(r.FittedCurveY), len(a.MuArray))
		}
		if len(r.Residuals) != len(a.MuArray) {
			return fmt.Errorf("model %s: residuals length %d != mu_array length %d",
				r.ModelType, len(r.Residuals), len(a.MuArray))
		}
	}
	return nil
}

func copyFloats(xs []float64) []float64 {
	if xs == nil {
		return nil
	}
	out := make([]float64, len(xs))
	copy(out, xs)
	return out
}
