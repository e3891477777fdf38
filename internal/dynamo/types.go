package dynamo

import "math"

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

// Params is a flat parameter vector: physical constants for reference
// dynamics, or trained network weights for hybrid dynamics. Its length is
// fixed at creation and never changes.
type Params []float64

func (p Params) Clone() Params {
	c := make(Params, len(p))
	copy(c, p)
	return c
}

func (p Params) IsValid() bool {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// System is an ODE right-hand side dX/dt = f(X, p, t).
type System interface {
	Derive(x State, p Params, t float64) State
	Dim() int
}

// Stepper advances a state by one fixed step.
type Stepper interface {
	Step(sys System, x State, p Params, t, dt float64) State
}

// Solver integrates a system and samples the solution on an explicit,
// strictly increasing time grid. Implementations keep no state between
// calls: the same Solver may be reused with different parameters and
// initial conditions.
type Solver interface {
	Solve(sys System, x0 State, p Params, grid []float64) (*Trajectory, error)
}

// Trajectory is an ordered sequence of (time, state) samples. Times are
// strictly increasing; samples are never reordered.
type Trajectory struct {
	Times  []float64
	States []State
}

func NewTrajectory(capacity int) *Trajectory {
	return &Trajectory{
		Times:  make([]float64, 0, capacity),
		States: make([]State, 0, capacity),
	}
}

func (tr *Trajectory) Append(t float64, x State) {
	tr.Times = append(tr.Times, t)
	tr.States = append(tr.States, x.Clone())
}

func (tr *Trajectory) Len() int { return len(tr.Times) }

func (tr *Trajectory) Dim() int {
	if len(tr.States) == 0 {
		return 0
	}
	return len(tr.States[0])
}

func (tr *Trajectory) Last() (float64, State) {
	n := len(tr.Times)
	return tr.Times[n-1], tr.States[n-1]
}

func (tr *Trajectory) Clone() *Trajectory {
	c := NewTrajectory(tr.Len())
	for i := range tr.Times {
		c.Append(tr.Times[i], tr.States[i])
	}
	return c
}

// Grid builds a uniform time grid over [t0, t1] with spacing dt. The final
// point is pinned to t1 to avoid accumulation drift.
func Grid(t0, t1, dt float64) []float64 {
	n := int(math.Round((t1-t0)/dt)) + 1
	if n < 2 {
		n = 2
	}
	grid := make([]float64, n)
	for i := range grid {
		grid[i] = t0 + float64(i)*dt
	}
	grid[n-1] = t1
	return grid
}
