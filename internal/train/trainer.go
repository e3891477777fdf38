// Package train drives the two-stage parameter optimization of the hybrid
// dynamics: an iteration-bounded Adam exploration stage followed by an
// L-BFGS refinement stage sharing the same loss and gradient.
package train

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/dynid/internal/dynamo"
	"github.com/san-kum/dynid/internal/sensitivity"
	"gonum.org/v1/gonum/optimize"
)

// Observer is invoked once per optimizer iteration with the current loss.
type Observer func(stage, iter int, loss float64)

type Trainer struct {
	Engine       *sensitivity.Engine
	Stage1Iters  int
	Stage2Iters  int
	LearningRate float64
	Observer     Observer
}

// Result carries the frozen parameter vector and the per-iteration loss
// trace. Stage2Iters is the number of major iterations L-BFGS actually
// performed; stopping short of the budget is not a failure.
type Result struct {
	Theta       dynamo.Params
	Trace       []float64
	Stage1Iters int
	Stage2Iters int
}

func New(engine *sensitivity.Engine, stage1, stage2 int, lr float64) *Trainer {
	return &Trainer{Engine: engine, Stage1Iters: stage1, Stage2Iters: stage2, LearningRate: lr}
}

// Run optimizes from theta0 and returns the final parameters with the loss
// trace. An integration failure during either stage aborts the run; the
// returned error names the stage. The input vector is not mutated.
func (tr *Trainer) Run(ctx context.Context, theta0 dynamo.Params) (*Result, error) {
	theta := theta0.Clone()
	trace := make([]float64, 0, tr.Stage1Iters+tr.Stage2Iters)

	// Stage 1: iteration-bounded exploration, no convergence test.
	adam := NewAdam(tr.LearningRate)
	grad := make([]float64, len(theta))
	for i := 0; i < tr.Stage1Iters; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		loss, err := tr.Engine.LossGrad(theta, grad)
		if err != nil {
			return nil, fmt.Errorf("training stage 1 (adam, iter %d): %w", i, err)
		}
		trace = append(trace, loss)
		if tr.Observer != nil {
			tr.Observer(1, i, loss)
		}
		adam.Step(theta, grad)
	}

	// Stage 2: quasi-Newton refinement from the stage-1 point.
	var solveErr error
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			l, err := tr.Engine.Loss(dynamo.Params(x))
			if err != nil {
				if solveErr == nil {
					solveErr = err
				}
				return math.Inf(1)
			}
			return l
		},
		Grad: func(g, x []float64) {
			if _, err := tr.Engine.LossGrad(dynamo.Params(x), g); err != nil && solveErr == nil {
				solveErr = err
			}
		},
	}

	rec := &traceRecorder{ctx: ctx, trainer: tr, trace: &trace}
	settings := &optimize.Settings{
		MajorIterations: tr.Stage2Iters,
		Recorder:        rec,
	}

	// Line-search stalls and budget exhaustion are non-fatal: keep the
	// best point reached and ignore the solver verdict.
	res, _ := optimize.Minimize(problem, []float64(theta), settings, &optimize.LBFGS{})
	if solveErr != nil {
		return nil, fmt.Errorf("training stage 2 (lbfgs): %w", solveErr)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if res != nil && res.X != nil {
		theta = dynamo.Params(res.X).Clone()
	}

	return &Result{
		Theta:       theta,
		Trace:       trace,
		Stage1Iters: tr.Stage1Iters,
		Stage2Iters: rec.iters,
	}, nil
}

// traceRecorder appends one loss per L-BFGS major iteration and stops the
// solve when the context is cancelled.
type traceRecorder struct {
	ctx     context.Context
	trainer *Trainer
	trace   *[]float64
	iters   int
}

func (r *traceRecorder) Init() error { return nil }

func (r *traceRecorder) Record(loc *optimize.Location, op optimize.Operation, _ *optimize.Stats) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	if op&optimize.MajorIteration == 0 {
		return nil
	}
	*r.trace = append(*r.trace, loc.F)
	if r.trainer.Observer != nil {
		r.trainer.Observer(2, r.iters, loc.F)
	}
	r.iters++
	return nil
}
