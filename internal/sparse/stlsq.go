// Package sparse implements the symbolic-distillation stage: sequential
// thresholded least squares (STLSQ) over a candidate design matrix, a
// parallel threshold sweep, and information-criterion model selection.
package sparse

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Fit is one sparse regression result: a row-sparse coefficient matrix
// (library terms x output dimensions) for a single threshold. Instances
// are immutable after fitting.
type Fit struct {
	Lambda float64
	Coef   *mat.Dense
	RSS    float64
	Active int
}

// DefaultMaxIter bounds the zero/refit loop; the active set shrinks
// monotonically, so the loop always stabilizes within the column count.
const DefaultMaxIter = 25

// STLSQ fits targets (n x outDim) against design (n x m) under threshold
// lambda. Per output column: ordinary least squares, zero coefficients
// below lambda in magnitude, refit on the surviving terms, repeat until the
// active set is stable. An emptied column becomes the zero function. A
// singular restricted system falls back to a minimum-norm solution.
func STLSQ(design, targets *mat.Dense, lambda float64, maxIter int) *Fit {
	if maxIter <= 0 {
		maxIter = DefaultMaxIter
	}
	n, m := design.Dims()
	_, outDim := targets.Dims()

	coef := mat.NewDense(m, outDim, nil)

	for col := 0; col < outDim; col++ {
		y := mat.NewVecDense(n, nil)
		for i := 0; i < n; i++ {
			y.SetVec(i, targets.At(i, col))
		}

		active := make([]int, m)
		for j := range active {
			active[j] = j
		}

		var xi *mat.VecDense
		for iter := 0; iter < maxIter; iter++ {
			sub := columns(design, active)
			xi = leastSquares(sub, y)

			kept := active[:0:len(active)]
			for j, idx := range active {
				if math.Abs(xi.AtVec(j)) >= lambda {
					kept = append(kept, idx)
				}
			}
			if len(kept) == len(active) {
				break
			}
			active = kept
			if len(active) == 0 {
				break
			}
		}

		if len(active) > 0 {
			// Final refit restricted to the stable active set.
			sub := columns(design, active)
			xi = leastSquares(sub, y)
			for j, idx := range active {
				coef.Set(idx, col, xi.AtVec(j))
			}
		}
	}

	return &Fit{
		Lambda: lambda,
		Coef:   coef,
		RSS:    residualSS(design, targets, coef),
		Active: countActive(coef),
	}
}

// leastSquares solves min ||A x - b|| by QR, falling back to the SVD
// minimum-norm pseudo-inverse when the system is rank deficient.
func leastSquares(a *mat.Dense, b *mat.VecDense) *mat.VecDense {
	_, m := a.Dims()
	x := mat.NewVecDense(m, nil)

	var qr mat.QR
	qr.Factorize(a)
	if err := qr.SolveVecTo(x, false, b); err == nil {
		ok := true
		for i := 0; i < m; i++ {
			if math.IsNaN(x.AtVec(i)) || math.IsInf(x.AtVec(i), 0) {
				ok = false
				break
			}
		}
		if ok {
			return x
		}
	}
	return minNorm(a, b)
}

// minNorm computes x = V diag(1/s) U^T b over the numerically nonzero
// singular values.
func minNorm(a *mat.Dense, b *mat.VecDense) *mat.VecDense {
	n, m := a.Dims()

	var svd mat.SVD
	svd.Factorize(a, mat.SVDThin)

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	s := svd.Values(nil)

	tol := float64(max(n, m)) * s[0] * 1e-15

	x := mat.NewVecDense(m, nil)
	for k, sv := range s {
		if sv <= tol {
			continue
		}
		// projection of b onto the k-th left singular vector
		dot := 0.0
		for i := 0; i < n; i++ {
			dot += u.At(i, k) * b.AtVec(i)
		}
		dot /= sv
		for j := 0; j < m; j++ {
			x.SetVec(j, x.AtVec(j)+v.At(j, k)*dot)
		}
	}
	return x
}

func columns(a *mat.Dense, idx []int) *mat.Dense {
	n, _ := a.Dims()
	sub := mat.NewDense(n, len(idx), nil)
	for j, col := range idx {
		for i := 0; i < n; i++ {
			sub.Set(i, j, a.At(i, col))
		}
	}
	return sub
}

func residualSS(design, targets *mat.Dense, coef *mat.Dense) float64 {
	var pred mat.Dense
	pred.Mul(design, coef)

	rss := 0.0
	n, outDim := targets.Dims()
	for i := 0; i < n; i++ {
		for k := 0; k < outDim; k++ {
			d := targets.At(i, k) - pred.At(i, k)
			rss += d * d
		}
	}
	return rss
}

func countActive(coef *mat.Dense) int {
	m, outDim := coef.Dims()
	count := 0
	for i := 0; i < m; i++ {
		for k := 0; k < outDim; k++ {
			if coef.At(i, k) != 0 {
				count++
			}
		}
	}
	return count
}
