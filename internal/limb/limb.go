// Package limb defines the library of parametric limb-darkening laws.
//
// Each law maps μ = cos θ (1 at disk center, 0 at the limb) and a coefficient
// vector onto a predicted normalized intensity I(μ)/I(1). The library is a
// data-driven table: adding a law means adding one Model entry, and neither
// the fitter nor the comparator ever branches on a model identity.
package limb

import (
	"fmt"
	"math"
)

// Model describes one limb-darkening law.
type Model struct {
	ID         string
	ParamNames []string
	Lower      []float64 // per-coefficient lower bounds
	Upper      []float64 // per-coefficient upper bounds
	Formula    string    // LaTeX display string carried through to the report
	Eval       func(mu float64, p []float64) float64
}

// ParamCount returns the number of coefficients the law takes.
func (m Model) ParamCount() int { return len(m.ParamNames) }

// InitialGuess returns the midpoint of each coefficient's bounds. The fitter
// relies on this being deterministic so identical inputs reproduce identical
// fits.
func (m Model) InitialGuess() []float64 {
	g := make([]float64, len(m.Lower))
	for i := range g {
		g[i] = (m.Lower[i] + m.Upper[i]) / 2
	}
	return g
}

// Coefficient bounds keep I(μ) physically bounded near [0,1] while tolerating
// fit noise.
const (
	boundLower = -1.0
	boundUpper = 2.0
)

func bounds(n int) (lo, hi []float64) {
	lo = make([]float64, n)
	hi = make([]float64, n)
	for i := 0; i < n; i++ {
		lo[i] = boundLower
		hi[i] = boundUpper
	}
	return lo, hi
}

// muLogMu evaluates μ·ln(μ) with its limit value 0 at μ=0, where ln alone
// would produce -Inf.
func muLogMu(mu float64) float64 {
	if mu <= 0 {
		return 0
	}
	return mu * math.Log(mu)
}

func newModel(id, formula string, names []string, eval func(float64, []float64) float64) Model {
	lo, hi := bounds(len(names))
	return Model{ID: id, ParamNames: names, Lower: lo, Upper: hi, Formula: formula, Eval: eval}
}

var models = []Model{
	newModel("linear",
		`\frac{I(\mu)}{I(1)} = 1 - u(1 - \mu)`,
		[]string{"u1"},
		func(mu float64, p []float64) float64 {
			return 1 - p[0]*(1-mu)
		}),
	newModel("quadratic",
		`\frac{I(\mu)}{I(1)} = 1 - a(1 - \mu) - b(1 - \mu)^2`,
		[]string{"a1", "a2"},
		func(mu float64, p []float64) float64 {
			d := 1 - mu
			return 1 - p[0]*d - p[1]*d*d
		}),
	newModel("square-root",
		`\frac{I(\mu)}{I(1)} = 1 - c(1 - \mu) - d(1 - \sqrt{\mu})`,
		[]string{"c", "d"},
		func(mu float64, p []float64) float64 {
			return 1 - p[0]*(1-mu) - p[1]*(1-math.Sqrt(mu))
		}),
	newModel("logarithmic",
		`\frac{I(\mu)}{I(1)} = 1 - e(1 - \mu) - f \mu \ln(\mu)`,
		[]string{"e", "f"},
		func(mu float64, p []float64) float64 {
			return 1 - p[0]*(1-mu) - p[1]*muLogMu(mu)
		}),
	newModel("claret4",
		`\frac{I(\mu)}{I(1)} = 1 - \sum_{k=1}^{4} a_k (1 - \mu^{k/2})`,
		[]string{"a1", "a2", "a3", "a4"},
		func(mu float64, p []float64) float64 {
			root := math.Sqrt(mu)
			return 1 - p[0]*(1-root) - p[1]*(1-mu) - p[2]*(1-mu*root) - p[3]*(1-mu*mu)
		}),
}

// All returns the model table in declaration order. The slice is a copy;
// callers may reorder it freely.
func All() []Model {
	out := make([]Model, len(models))
	copy(out, models)
	return out
}

// ByID looks up a model by its lowercase identifier.
func ByID(id string) (Model, bool) {
	for _, m := range models {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}

// IDs returns the identifiers of all registered models in table order.
func IDs() []string {
	out := make([]string, len(models))
	for i, m := range models {
		out[i] = m.ID
	}
	return out
}

// MustByID is ByID for callers holding an identifier that is known valid.
func MustByID(id string) Model {
	m, ok := ByID(id)
	if !ok {
		panic(fmt.Sprintf("limb: unknown model %q", id))
	}
	return m
}
