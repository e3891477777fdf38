// Package noise perturbs clean trajectories into synthetic measurements.
package noise

import (
	"math/rand"

	"github.com/san-kum/dynid/internal/dynamo"
)

// Multiplicative returns a copy of traj with each component perturbed as
// x*(1 + magnitude*N(0,1)). The input is never modified; the same seed
// always produces the same measurements.
func Multiplicative(traj *dynamo.Trajectory, magnitude float64, seed int64) *dynamo.Trajectory {
	rng := rand.New(rand.NewSource(seed))

	out := dynamo.NewTrajectory(traj.Len())
	for i, x := range traj.States {
		y := make(dynamo.State, len(x))
		for k, v := range x {
			y[k] = v * (1 + magnitude*rng.NormFloat64())
		}
		out.Append(traj.Times[i], y)
	}
	return out
}
