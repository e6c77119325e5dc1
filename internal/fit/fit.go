// Package fit implements bounded nonlinear least-squares fitting of
// limb-darkening models to extracted radial profiles.
package fit

import (
	"context"
	"math"

	"limb-analyzer/internal/limb"
	"limb-analyzer/internal/profile"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Options holds the fitter tunables.
type Options struct {
	// MaxIterations caps the Levenberg-Marquardt loop. Reaching the cap is
	// not an error: the best-found parameters are returned with
	// Converged=false.
	MaxIterations int
	// CostTolerance is the relative cost-change threshold below which the
	// fit is considered converged.
	CostTolerance float64
}

// DefaultOptions returns the documented fitter defaults.
func DefaultOptions() Options {
	return Options{
		MaxIterations: 1000,
		CostTolerance: 1e-8,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultOptions().MaxIterations
	}
	if o.CostTolerance <= 0 {
		o.CostTolerance = DefaultOptions().CostTolerance
	}
	return o
}

// Result is the outcome of fitting one model to one profile.
type Result struct {
	ModelID     string
	Parameters  []float64
	Curve       []float64 // model evaluated at the input μ values
	Residuals   []float64 // intensity[i] - Curve[i]
	Chi2Reduced float64   // Σr² / (N - p)
	RSquared    float64
	StdErrors   []float64 // per-parameter standard errors; nil if the normal matrix is singular
	Converged   bool
	Iterations  int
}

const (
	lambdaInit = 1e-3
	lambdaMin  = 1e-12
	lambdaMax  = 1e12
	// Below this absolute cost the fit is treated as exact; relative
	// cost-change tests are meaningless against roundoff noise.
	costFloor = 1e-18
)

// Fit finds the bounded least-squares coefficients of one model against a
// profile using damped normal-equation steps (Levenberg-Marquardt) with the
// step projected back into the per-parameter bounds. The initial guess is the
// midpoint of each parameter's bounds and no randomized restarts are used, so
// identical inputs reproduce bit-identical results.
func Fit(ctx context.Context, ds *profile.Dataset, model limb.Model, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	n := ds.Len()
	p := model.ParamCount()
	if n <= p {
		return nil, &DegreesOfFreedomError{ModelID: model.ID, Samples: n, Params: p}
	}

	mus := ds.MuValues()
	obs := ds.Intensities()

	params := clampToBounds(model.InitialGuess(), model)
	res := make([]float64, n)
	cost := evalResiduals(mus, obs, model, params, res)

	lambda := lambdaInit
	converged := false
	iters := 0

	for ; iters < opts.MaxIterations; iters++ {
		select {
		case <-ctx.Done():
			return nil, &CancelledError{ModelID: model.ID, Err: ctx.Err()}
		default:
		}

		if cost <= costFloor {
			converged = true
			break
		}

		jac := jacobian(mus, model, params)
		var jtj mat.Dense
		jtj.Mul(jac.T(), jac)
		var jtr mat.VecDense
		jtr.MulVec(jac.T(), mat.NewVecDense(n, res))

		// Retry the damped solve with increasing λ until a step lowers the
		// cost. Exhausting the damping range means no descent direction
		// exists and the fit is at a minimum.
		accepted := false
		for lambda <= lambdaMax {
			var step mat.VecDense
			if err := step.SolveVec(damped(&jtj, lambda), &jtr); err != nil {
				lambda *= 10
				continue
			}

			trial := steppedParams(params, &step, model)
			trialRes := make([]float64, n)
			trialCost := evalResiduals(mus, obs, model, trial, trialRes)
			if trialCost < cost {
				if cost-trialCost <= opts.CostTolerance*cost {
					converged = true
				}
				params, res, cost = trial, trialRes, trialCost
				lambda /= 10
				if lambda < lambdaMin {
					lambda = lambdaMin
				}
				accepted = true
				break
			}
			lambda *= 10
		}
		if !accepted {
			// Damping exhausted without improvement: converged at the
			// best-found parameters.
			converged = true
			break
		}
		if converged {
			iters++
			break
		}
	}

	curve := make([]float64, n)
	for i, mu := range mus {
		curve[i] = model.Eval(mu, params)
	}
	for i := range res {
		res[i] = obs[i] - curve[i]
	}
	cost = sumSquares(res)

	out := &Result{
		ModelID:     model.ID,
		Parameters:  params,
		Curve:       curve,
		Residuals:   res,
		Chi2Reduced: cost / float64(n-p),
		RSquared:    rSquared(obs, cost),
		StdErrors:   standardErrors(mus, model, params, cost, n, p),
		Converged:   converged,
		Iterations:  iters,
	}
	return out, nil
}

// evalResiduals fills res with obs - model(mu) and returns the sum of squared
// residuals.
func evalResiduals(mus, obs []float64, model limb.Model, params, res []float64) float64 {
	var cost float64
	for i, mu := range mus {
		r := obs[i] - model.Eval(mu, params)
		res[i] = r
		cost += r * r
	}
	return cost
}

// jacobian computes ∂model/∂param by forward differences at every μ sample.
func jacobian(mus []float64, model limb.Model, params []float64) *mat.Dense {
	n := len(mus)
	p := len(params)
	jac := mat.NewDense(n, p, nil)

	base := make([]float64, n)
	for i, mu := range mus {
		base[i] = model.Eval(mu, params)
	}

	bumped := make([]float64, p)
	for j := 0; j < p; j++ {
		copy(bumped, params)
		h := 1e-7 * math.Max(1, math.Abs(params[j]))
		bumped[j] += h
		for i, mu := range mus {
			jac.Set(i, j, (model.Eval(mu, bumped)-base[i])/h)
		}
	}
	return jac
}

// damped returns JᵀJ + λI.
func damped(jtj *mat.Dense, lambda float64) *mat.Dense {
	p, _ := jtj.Dims()
	out := mat.DenseCopyOf(jtj)
	for i := 0; i < p; i++ {
		out.Set(i, i, out.At(i, i)+lambda)
	}
	return out
}

// steppedParams applies the solved step and projects the result back into the
// model's bounds.
func steppedParams(params []float64, step *mat.VecDense, model limb.Model) []float64 {
	out := make([]float64, len(params))
	for i := range out {
		out[i] = params[i] + step.AtVec(i)
	}
	return clampToBounds(out, model)
}

func clampToBounds(params []float64, model limb.Model) []float64 {
	for i := range params {
		if params[i] < model.Lower[i] {
			params[i] = model.Lower[i]
		}
		if params[i] > model.Upper[i] {
			params[i] = model.Upper[i]
		}
	}
	return params
}

func sumSquares(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x * x
	}
	return s
}

// rSquared computes the coefficient of determination; 0 when the observations
// carry no variance at all.
func rSquared(obs []float64, ssRes float64) float64 {
	mean := stat.Mean(obs, nil)
	var ssTot float64
	for _, y := range obs {
		d := y - mean
		ssTot += d * d
	}
	if ssTot <= 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}

// standardErrors estimates per-parameter standard errors from the diagonal of
// the residual-variance-scaled inverse normal matrix. Returns nil when the
// normal matrix is singular.
func standardErrors(mus []float64, model limb.Model, params []float64, cost float64, n, p int) []float64 {
	jac := jacobian(mus, model, params)
	var jtj mat.Dense
	jtj.Mul(jac.T(), jac)

	var cov mat.Dense
	if err := cov.Inverse(&jtj); err != nil {
		return nil
	}
	sigma2 := cost / float64(n-p)
	out := make([]float64, p)
	for j := 0; j < p; j++ {
		v := sigma2 * cov.At(j, j)
		if v < 0 {
			v = 0
		}
		out[j] = math.Sqrt(v)
	}
	return out
}
