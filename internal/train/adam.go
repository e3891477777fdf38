package train

import "math"

// Adam is a first-order stochastic optimizer with per-parameter adaptive
// learning rates and bias-corrected moment estimates.
type Adam struct {
	LR    float64
	Beta1 float64
	Beta2 float64
	Eps   float64

	m, v []float64
	t    int
}

func NewAdam(lr float64) *Adam {
	return &Adam{LR: lr, Beta1: 0.9, Beta2: 0.999, Eps: 1e-8}
}

// Step applies one in-place update to theta given the gradient.
func (a *Adam) Step(theta, grad []float64) {
	if a.m == nil {
		a.m = make([]float64, len(theta))
		a.v = make([]float64, len(theta))
	}

	a.t++
	t := float64(a.t)
	// Bias-corrected step size folds both corrections into the rate.
	lrT := a.LR * math.Sqrt(1-math.Pow(a.Beta2, t)) / (1 - math.Pow(a.Beta1, t))

	for i, g := range grad {
		a.m[i] = a.Beta1*a.m[i] + (1-a.Beta1)*g
		a.v[i] = a.Beta2*a.v[i] + (1-a.Beta2)*g*g
		theta[i] -= lrT * a.m[i] / (math.Sqrt(a.v[i]) + a.Eps)
	}
}
