// Package dynamo provides core primitives for simulating and identifying
// dynamical systems.
//
// The package defines the fundamental types shared by every stage of the
// equation-discovery pipeline:
//
//   - [State]: vector representing system state
//   - [Params]: flat parameter vector (physical constants or network weights)
//   - [Trajectory]: time-ordered sequence of state samples
//   - [System]: interface for ODE systems (dX/dt = f(X, p, t))
//   - [Solver]: numerical integrator producing a trajectory on a grid
//
// # Example
//
//	sys := physics.NewLotkaVolterra(pTrue)
//	solver := integrators.NewRK45()
//	traj, _ := solver.Solve(sys, x0, pTrue, grid)
//
// # Thread Safety
//
// States and trajectories are plain data and safe for concurrent reads.
// Solver implementations allocate their own scratch per Solve call and may
// be shared across goroutines.
package dynamo
