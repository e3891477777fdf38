package integrators

import "github.com/san-kum/dynid/internal/dynamo"

// RK4 is a classic fixed-step fourth-order integrator. Used for reference
// solutions in tests and for long-horizon simulation of recovered dynamics
// where adaptivity is not needed.
type RK4 struct {
	// Substeps is the number of internal steps taken between consecutive
	// grid points during Solve. Defaults to 1.
	Substeps int
}

func NewRK4() *RK4 {
	return &RK4{Substeps: 1}
}

func (r *RK4) Step(sys dynamo.System, x dynamo.State, p dynamo.Params, t, dt float64) dynamo.State {
	n := len(x)

	k1 := sys.Derive(x, p, t)

	scratch := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		scratch[i] = x[i] + dt*0.5*k1[i]
	}
	k2 := sys.Derive(scratch, p, t+dt*0.5)

	for i := 0; i < n; i++ {
		scratch[i] = x[i] + dt*0.5*k2[i]
	}
	k3 := sys.Derive(scratch, p, t+dt*0.5)

	for i := 0; i < n; i++ {
		scratch[i] = x[i] + dt*k3[i]
	}
	k4 := sys.Derive(scratch, p, t+dt)

	result := make(dynamo.State, n)
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		result[i] = x[i] + dt6*(k1[i]+2*k2[i]+2*k3[i]+k4[i])
	}

	return result
}

// Solve integrates sys across the grid with Substeps fixed steps per grid
// interval. It fails with an IntegrationError if the state goes non-finite.
func (r *RK4) Solve(sys dynamo.System, x0 dynamo.State, p dynamo.Params, grid []float64) (*dynamo.Trajectory, error) {
	if len(x0) != sys.Dim() {
		return nil, dynamo.ErrDimensionMismatch
	}

	sub := r.Substeps
	if sub < 1 {
		sub = 1
	}

	traj := dynamo.NewTrajectory(len(grid))
	traj.Append(grid[0], x0)

	x := x0.Clone()
	steps := 0

	for gi := 1; gi < len(grid); gi++ {
		t := grid[gi-1]
		dt := (grid[gi] - grid[gi-1]) / float64(sub)
		for s := 0; s < sub; s++ {
			x = r.Step(sys, x, p, t, dt)
			t += dt
			steps++
			if !x.IsValid() {
				return nil, &dynamo.IntegrationError{Step: steps, Time: t, Wrapped: dynamo.ErrInvalidState}
			}
		}
		traj.Append(grid[gi], x)
	}

	return traj, nil
}
