package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/dynid/internal/dynamo"
)

func TestRMSEIdentical(t *testing.T) {
	tr := dynamo.NewTrajectory(2)
	tr.Append(0, dynamo.State{1, 2})
	tr.Append(1, dynamo.State{3, 4})

	if got := RMSE(tr, tr); got != 0 {
		t.Errorf("expected zero RMSE for identical trajectories, got %f", got)
	}
}

func TestRMSEKnownOffset(t *testing.T) {
	a := dynamo.NewTrajectory(2)
	a.Append(0, dynamo.State{0, 0})
	a.Append(1, dynamo.State{0, 0})

	b := dynamo.NewTrajectory(2)
	b.Append(0, dynamo.State{1, 1})
	b.Append(1, dynamo.State{1, 1})

	if got := RMSE(a, b); math.Abs(got-1) > 1e-12 {
		t.Errorf("expected RMSE 1, got %f", got)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{10, 4, 6, 2, 3})

	if s.Initial != 10 || s.Final != 3 || s.Best != 2 || s.Iterations != 5 {
		t.Errorf("unexpected summary: %+v", s)
	}
	if !s.Improved() {
		t.Error("expected improvement")
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.Iterations != 0 || s.Improved() {
		t.Errorf("unexpected summary for empty trace: %+v", s)
	}
}
