package integrators

import (
	"math"

	"github.com/san-kum/dynid/internal/dynamo"
)

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

// RK45 is an adaptive Dormand-Prince integrator. A zero value is not
// usable; construct with NewRK45 and adjust tolerances as needed.
type RK45 struct {
	Atol     float64
	Rtol     float64
	MaxSteps int
	MinDt    float64

	safety   float64
	minScale float64
	maxScale float64
}

func NewRK45() *RK45 {
	return &RK45{
		Atol:     1e-6,
		Rtol:     1e-6,
		MaxSteps: 100000,
		MinDt:    1e-12,
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

// WithTolerances returns a copy of r using the given absolute and relative
// tolerances.
func (r *RK45) WithTolerances(atol, rtol float64) *RK45 {
	c := *r
	c.Atol = atol
	c.Rtol = rtol
	return &c
}

// Solve integrates sys from grid[0] to the last grid point and samples the
// solution at every grid time. The step size adapts between grid points and
// is clamped to land exactly on each requested time. Solve fails with an
// IntegrationError when the step ceiling is reached, the step size
// collapses, or the state goes non-finite.
func (r *RK45) Solve(sys dynamo.System, x0 dynamo.State, p dynamo.Params, grid []float64) (*dynamo.Trajectory, error) {
	if len(x0) != sys.Dim() {
		return nil, dynamo.ErrDimensionMismatch
	}

	traj := dynamo.NewTrajectory(len(grid))
	traj.Append(grid[0], x0)

	x := x0.Clone()
	t := grid[0]
	dt := initialStep(grid)
	steps := 0

	for _, target := range grid[1:] {
		for t < target {
			if steps >= r.MaxSteps {
				return nil, &dynamo.IntegrationError{Step: steps, Time: t, Wrapped: dynamo.ErrStepLimit}
			}
			if dt < r.MinDt {
				return nil, &dynamo.IntegrationError{Step: steps, Time: t, Wrapped: dynamo.ErrStepTooSmall}
			}

			h := dt
			if t+h > target {
				h = target - t
			}

			xNew, errRatio := r.attempt(sys, x, p, t, h)
			steps++

			if errRatio > 1 {
				dt = h * math.Max(r.minScale, r.safety*math.Pow(errRatio, -0.25))
				continue
			}

			if !xNew.IsValid() {
				return nil, &dynamo.IntegrationError{Step: steps, Time: t, Wrapped: dynamo.ErrInvalidState}
			}

			x = xNew
			t += h

			if errRatio > 0 {
				dt = h * math.Min(r.maxScale, r.safety*math.Pow(errRatio, -0.2))
			} else {
				dt = h * r.maxScale
			}
		}
		traj.Append(target, x)
	}

	return traj, nil
}

// attempt performs a single trial step of size dt and returns the candidate
// state together with the error-to-tolerance ratio (>1 means reject).
func (r *RK45) attempt(sys dynamo.System, x dynamo.State, p dynamo.Params, t, dt float64) (dynamo.State, float64) {
	n := len(x)

	k1 := sys.Derive(x, p, t)

	x2 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x2[i] = x[i] + dt*b21*k1[i]
	}
	k2 := sys.Derive(x2, p, t+a2*dt)

	x3 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x3[i] = x[i] + dt*(b31*k1[i]+b32*k2[i])
	}
	k3 := sys.Derive(x3, p, t+a3*dt)

	x4 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x4[i] = x[i] + dt*(b41*k1[i]+b42*k2[i]+b43*k3[i])
	}
	k4 := sys.Derive(x4, p, t+a4*dt)

	x5 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x5[i] = x[i] + dt*(b51*k1[i]+b52*k2[i]+b53*k3[i]+b54*k4[i])
	}
	k5 := sys.Derive(x5, p, t+a5*dt)

	x6 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x6[i] = x[i] + dt*(b61*k1[i]+b62*k2[i]+b63*k3[i]+b64*k4[i]+b65*k5[i])
	}
	k6 := sys.Derive(x6, p, t+dt)

	xNew := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		xNew[i] = x[i] + dt*(c1*k1[i]+c3*k3[i]+c4*k4[i]+c5*k5[i]+c6*k6[i])
	}

	k7 := sys.Derive(xNew, p, t+dt)

	errRatio := 0.0
	for i := 0; i < n; i++ {
		errEst := dt * (dc1*k1[i] + dc3*k3[i] + dc4*k4[i] + dc5*k5[i] + dc6*k6[i] + dc7*k7[i])
		scale := r.Atol + r.Rtol*math.Max(math.Abs(x[i]), math.Abs(xNew[i]))
		errRatio = math.Max(errRatio, math.Abs(errEst)/scale)
	}

	return xNew, errRatio
}

func initialStep(grid []float64) float64 {
	span := grid[len(grid)-1] - grid[0]
	return math.Min(span/100, grid[1]-grid[0])
}
