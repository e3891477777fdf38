// Package metrics provides diagnostics over trajectories and loss traces:
// reconstruction error of a fitted model against a reference, and summary
// statistics of an optimization run.
package metrics

import (
	"math"

	"github.com/san-kum/dynid/internal/dynamo"
)

// RMSE computes the root-mean-square error between two trajectories sampled
// on the same grid, over the leading min(len) samples of both.
func RMSE(a, b *dynamo.Trajectory) float64 {
	n := a.Len()
	if b.Len() < n {
		n = b.Len()
	}
	if n == 0 {
		return 0
	}

	sum := 0.0
	count := 0
	for i := 0; i < n; i++ {
		for k := range a.States[i] {
			d := a.States[i][k] - b.States[i][k]
			sum += d * d
			count++
		}
	}
	return math.Sqrt(sum / float64(count))
}

// TraceSummary condenses a loss trace for reporting.
type TraceSummary struct {
	Initial    float64
	Final      float64
	Best       float64
	Iterations int
}

func Summarize(trace []float64) TraceSummary {
	if len(trace) == 0 {
		return TraceSummary{}
	}
	s := TraceSummary{
		Initial:    trace[0],
		Final:      trace[len(trace)-1],
		Best:       trace[0],
		Iterations: len(trace),
	}
	for _, v := range trace {
		if v < s.Best {
			s.Best = v
		}
	}
	return s
}

// Improved reports whether the optimization made net progress.
func (s TraceSummary) Improved() bool {
	return s.Iterations > 1 && s.Final < s.Initial
}
