package train

import (
	"context"
	"math"
	"testing"

	"github.com/san-kum/dynid/internal/dynamo"
	"github.com/san-kum/dynid/internal/integrators"
	"github.com/san-kum/dynid/internal/network"
	"github.com/san-kum/dynid/internal/physics"
	"github.com/san-kum/dynid/internal/sensitivity"
)

func TestAdamQuadratic(t *testing.T) {
	adam := NewAdam(0.1)
	x := []float64{1.0, -2.0, 0.5}
	grad := make([]float64, len(x))

	for i := 0; i < 200; i++ {
		for j, v := range x {
			grad[j] = 2 * v
		}
		adam.Step(x, grad)
	}

	for j, v := range x {
		if math.Abs(v) > 1e-2 {
			t.Errorf("x[%d] did not approach minimum: %f", j, v)
		}
	}
}

func newTestSetup(t *testing.T) (*sensitivity.Engine, *network.MLP) {
	t.Helper()

	pTrue := dynamo.Params{1.3, 0.9, 0.8, 1.8}
	x0 := dynamo.State{0.44249296, 4.6280594}
	grid := dynamo.Grid(0, 1, 0.2)

	solver := integrators.NewRK45().WithTolerances(1e-7, 1e-7)
	lv := physics.NewLotkaVolterra(pTrue)
	obs, err := solver.Solve(lv, x0, nil, grid)
	if err != nil {
		t.Fatalf("reference solve failed: %v", err)
	}

	net := network.New()
	ude := physics.NewUDE(pTrue, net)
	return sensitivity.New(ude, solver, x0, obs), net
}

func TestTwoStageTrainingReducesLoss(t *testing.T) {
	engine, net := newTestSetup(t)
	theta0 := net.Init(2)

	initial, err := engine.Loss(theta0)
	if err != nil {
		t.Fatalf("initial loss failed: %v", err)
	}

	tr := New(engine, 15, 25, 0.05)
	res, err := tr.Run(context.Background(), theta0)
	if err != nil {
		t.Fatalf("training failed: %v", err)
	}

	if len(res.Trace) < tr.Stage1Iters {
		t.Fatalf("trace too short: %d entries", len(res.Trace))
	}
	if res.Trace[len(res.Trace)-1] >= res.Trace[0] {
		t.Errorf("final trace loss %.6g not below first %.6g", res.Trace[len(res.Trace)-1], res.Trace[0])
	}

	final, err := engine.Loss(res.Theta)
	if err != nil {
		t.Fatalf("final loss failed: %v", err)
	}
	if final >= initial {
		t.Errorf("trained loss %.6g not below untrained %.6g", final, initial)
	}
}

func TestTraceLengthAccountsForBothStages(t *testing.T) {
	engine, net := newTestSetup(t)
	theta0 := net.Init(9)

	tr := New(engine, 8, 10, 0.05)
	res, err := tr.Run(context.Background(), theta0)
	if err != nil {
		t.Fatalf("training failed: %v", err)
	}

	want := res.Stage1Iters + res.Stage2Iters
	if len(res.Trace) != want {
		t.Errorf("trace length %d, expected %d (stage1 %d + stage2 %d)",
			len(res.Trace), want, res.Stage1Iters, res.Stage2Iters)
	}
	if res.Stage2Iters > tr.Stage2Iters {
		t.Errorf("stage 2 ran %d iterations, budget was %d", res.Stage2Iters, tr.Stage2Iters)
	}
}

func TestTrainingDoesNotMutateInput(t *testing.T) {
	engine, net := newTestSetup(t)
	theta0 := net.Init(4)
	snapshot := theta0.Clone()

	tr := New(engine, 3, 3, 0.05)
	if _, err := tr.Run(context.Background(), theta0); err != nil {
		t.Fatalf("training failed: %v", err)
	}

	for i := range theta0 {
		if theta0[i] != snapshot[i] {
			t.Fatal("trainer mutated the initial parameter vector")
		}
	}
}

func TestTrainingHonorsCancellation(t *testing.T) {
	engine, net := newTestSetup(t)
	theta0 := net.Init(4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := New(engine, 50, 50, 0.05)
	if _, err := tr.Run(ctx, theta0); err == nil {
		t.Error("expected cancellation error, got nil")
	}
}

func TestObserverSeesEveryStage1Iteration(t *testing.T) {
	engine, net := newTestSetup(t)
	theta0 := net.Init(4)

	var stage1Calls int
	tr := New(engine, 5, 3, 0.05)
	tr.Observer = func(stage, iter int, loss float64) {
		if stage == 1 {
			stage1Calls++
		}
	}

	if _, err := tr.Run(context.Background(), theta0); err != nil {
		t.Fatalf("training failed: %v", err)
	}
	if stage1Calls != 5 {
		t.Errorf("observer saw %d stage-1 iterations, expected 5", stage1Calls)
	}
}
