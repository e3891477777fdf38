// Package sensitivity computes gradients of the trajectory-fitting loss
// with respect to the network parameters by forward sensitivity analysis:
// the state is augmented with S = dx/dtheta and the pair is integrated
// jointly, so no solver internals need to be differentiated.
package sensitivity

import (
	"fmt"

	"github.com/san-kum/dynid/internal/dynamo"
	"github.com/san-kum/dynid/internal/integrators"
	"github.com/san-kum/dynid/internal/physics"
)

// Engine evaluates L(theta) = sum_i ||x(t_i; theta) - y_i||^2 and its
// gradient against observed samples on a fixed grid. The engine is
// read-only after construction and safe to share across sequential
// optimizer stages.
type Engine struct {
	UDE    *physics.UDE
	Solver *integrators.RK45
	X0     dynamo.State
	Obs    *dynamo.Trajectory
}

func New(ude *physics.UDE, solver *integrators.RK45, x0 dynamo.State, obs *dynamo.Trajectory) *Engine {
	return &Engine{UDE: ude, Solver: solver, X0: x0, Obs: obs}
}

// Predict integrates the hybrid dynamics alone on the observation grid.
func (e *Engine) Predict(theta dynamo.Params) (*dynamo.Trajectory, error) {
	traj, err := e.Solver.Solve(e.UDE, e.X0, theta, e.Obs.Times)
	if err != nil {
		return nil, fmt.Errorf("ude prediction: %w", err)
	}
	return traj, nil
}

// Loss evaluates the sum-of-squares residual without sensitivities.
func (e *Engine) Loss(theta dynamo.Params) (float64, error) {
	traj, err := e.Predict(theta)
	if err != nil {
		return 0, err
	}
	loss := 0.0
	for i, x := range traj.States {
		y := e.Obs.States[i]
		for k := range x {
			d := x[k] - y[k]
			loss += d * d
		}
	}
	return loss, nil
}

// LossGrad evaluates the loss and writes its gradient with respect to theta
// into grad, which must have length equal to the parameter count. A solver
// failure propagates as an IntegrationError and aborts the evaluation.
func (e *Engine) LossGrad(theta dynamo.Params, grad []float64) (float64, error) {
	p := len(theta)
	aug := &augmented{ude: e.UDE, p: p}

	z0 := make(dynamo.State, 2+2*p)
	copy(z0, e.X0) // S(0) = 0: the initial state does not depend on theta

	traj, err := e.Solver.Solve(aug, z0, theta, e.Obs.Times)
	if err != nil {
		return 0, fmt.Errorf("sensitivity pass: %w", err)
	}

	for i := range grad {
		grad[i] = 0
	}

	loss := 0.0
	for i, z := range traj.States {
		y := e.Obs.States[i]
		for k := 0; k < 2; k++ {
			d := z[k] - y[k]
			loss += d * d
			srow := z[2+k*p : 2+(k+1)*p]
			for j, s := range srow {
				grad[j] += 2 * d * s
			}
		}
	}
	return loss, nil
}

// augmented is the joint system [x; vec(S)] with
//
//	dS/dt = (A + dU/dx) S + dU/dtheta,  A = diag(alpha, -delta).
//
// S is stored row-major: z[2:2+p] is dx1/dtheta, z[2+p:] is dx2/dtheta.
type augmented struct {
	ude *physics.UDE
	p   int
}

func (a *augmented) Dim() int { return 2 + 2*a.p }

func (a *augmented) Derive(z dynamo.State, theta dynamo.Params, t float64) dynamo.State {
	x := dynamo.State(z[:2])
	u, jx, jtheta := a.ude.Net.Jacobians(x, theta)

	dz := make(dynamo.State, 2+2*a.p)
	dz[0] = a.ude.Alpha*x[0] + u[0]
	dz[1] = -a.ude.Delta*x[1] + u[1]

	// Full-state Jacobian rows of the hybrid right-hand side.
	a00 := a.ude.Alpha + jx.At(0, 0)
	a01 := jx.At(0, 1)
	a10 := jx.At(1, 0)
	a11 := -a.ude.Delta + jx.At(1, 1)

	s1 := z[2 : 2+a.p]
	s2 := z[2+a.p:]
	jt := jtheta.RawMatrix()

	for j := 0; j < a.p; j++ {
		dz[2+j] = a00*s1[j] + a01*s2[j] + jt.Data[j]
		dz[2+a.p+j] = a10*s1[j] + a11*s2[j] + jt.Data[jt.Stride+j]
	}
	return dz
}
