// Package discover wires the full equation-discovery pipeline: reference
// trajectory, noise injection, hybrid-model training, symbolic distillation
// of the trained residual, and validation of the recovered dynamics.
package discover

import (
	"context"
	"fmt"

	"github.com/san-kum/dynid/internal/config"
	"github.com/san-kum/dynid/internal/dynamo"
	"github.com/san-kum/dynid/internal/integrators"
	"github.com/san-kum/dynid/internal/library"
	"github.com/san-kum/dynid/internal/network"
	"github.com/san-kum/dynid/internal/noise"
	"github.com/san-kum/dynid/internal/physics"
	"github.com/san-kum/dynid/internal/sensitivity"
	"github.com/san-kum/dynid/internal/sparse"
	"github.com/san-kum/dynid/internal/train"
	"gonum.org/v1/gonum/mat"
)

type Pipeline struct {
	Cfg *config.Config

	// Observer, when set, receives per-iteration training progress.
	Observer train.Observer
}

// Result aggregates everything external consumers need: trajectories for
// plotting, the trace for convergence diagnostics, the sweep for the
// complexity/accuracy frontier, and the selected symbolic model.
type Result struct {
	Reference *dynamo.Trajectory
	Observed  *dynamo.Trajectory
	Fitted    *dynamo.Trajectory

	Theta dynamo.Params
	Trace []float64

	Lambdas []float64
	Sweep   []*sparse.Fit
	Model   *sparse.Model
	Library *library.Library

	// Validation holds the recovered dynamics re-integrated over the
	// extended horizon, with ValidationRef the true dynamics over the
	// same grid. Both are nil when the final simulation failed.
	Validation    *dynamo.Trajectory
	ValidationRef *dynamo.Trajectory
}

func New(cfg *config.Config) *Pipeline {
	return &Pipeline{Cfg: cfg}
}

// Run executes the end-to-end pipeline. Training failures abort the run.
// A failure while re-integrating the recovered dynamics returns the
// partially filled result alongside the error so callers can still report
// the discovered model.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	cfg := p.Cfg
	known := dynamo.Params(cfg.KnownParams)
	x0 := dynamo.State(cfg.InitState)
	grid := dynamo.Grid(0, cfg.Duration, cfg.Dt)

	lv := physics.NewLotkaVolterra(known)
	refSolver := integrators.NewRK45().WithTolerances(1e-10, 1e-10)

	reference, err := refSolver.Solve(lv, x0, known, grid)
	if err != nil {
		return nil, fmt.Errorf("reference trajectory: %w", err)
	}
	observed := noise.Multiplicative(reference, cfg.NoiseMagnitude, cfg.Seed)

	net := network.New()
	ude := physics.NewUDE(known, net)
	solver := integrators.NewRK45().WithTolerances(cfg.Atol, cfg.Rtol)
	engine := sensitivity.New(ude, solver, x0, observed)

	trainer := train.New(engine, cfg.Train.Stage1Iters, cfg.Train.Stage2Iters, cfg.Train.LearningRate)
	trainer.Observer = p.Observer

	trained, err := trainer.Run(ctx, net.Init(cfg.Seed))
	if err != nil {
		return nil, err
	}

	fitted, err := engine.Predict(trained.Theta)
	if err != nil {
		return nil, fmt.Errorf("post-training prediction: %w", err)
	}

	// Regression target: the network's residual output along the fitted
	// trajectory.
	targets := mat.NewDense(fitted.Len(), 2, nil)
	for i, x := range fitted.States {
		r := ude.Residual(x, trained.Theta)
		targets.Set(i, 0, r[0])
		targets.Set(i, 1, r[1])
	}

	lib := library.New(cfg.Sweep.Degree)
	res := &Result{
		Reference: reference,
		Observed:  observed,
		Fitted:    fitted,
		Theta:     trained.Theta,
		Trace:     trained.Trace,
		Library:   lib,
	}

	if err := p.distill(ctx, res, lib, fitted.States, targets); err != nil {
		return nil, err
	}

	if err := p.validate(ctx, res, lv, known); err != nil {
		return res, err
	}
	return res, nil
}

// RunIdeal distills directly from the true missing-term signal evaluated on
// the noiseless reference trajectory, bypassing training. This is the
// ideal-recovery baseline for the symbolic stage.
func (p *Pipeline) RunIdeal(ctx context.Context) (*Result, error) {
	cfg := p.Cfg
	known := dynamo.Params(cfg.KnownParams)
	x0 := dynamo.State(cfg.InitState)
	grid := dynamo.Grid(0, cfg.Duration, cfg.Dt)

	lv := physics.NewLotkaVolterra(known)
	refSolver := integrators.NewRK45().WithTolerances(1e-10, 1e-10)

	reference, err := refSolver.Solve(lv, x0, known, grid)
	if err != nil {
		return nil, fmt.Errorf("reference trajectory: %w", err)
	}

	targets := mat.NewDense(reference.Len(), 2, nil)
	for i, x := range reference.States {
		m := lv.MissingTerms(x)
		targets.Set(i, 0, m[0])
		targets.Set(i, 1, m[1])
	}

	lib := library.New(cfg.Sweep.Degree)
	res := &Result{Reference: reference, Library: lib}

	if err := p.distill(ctx, res, lib, reference.States, targets); err != nil {
		return nil, err
	}

	if err := p.validate(ctx, res, lv, known); err != nil {
		return res, err
	}
	return res, nil
}

func (p *Pipeline) distill(ctx context.Context, res *Result, lib *library.Library, states []dynamo.State, targets *mat.Dense) error {
	cfg := p.Cfg
	design := lib.Design(states)

	res.Lambdas = sparse.Lambdas(cfg.Sweep.LambdaMin, cfg.Sweep.LambdaMax, cfg.Sweep.LambdaCount)
	fits, err := sparse.Sweep(ctx, design, targets, res.Lambdas, cfg.Workers)
	if err != nil {
		return fmt.Errorf("threshold sweep: %w", err)
	}
	res.Sweep = fits

	best := sparse.Select(fits, len(states))
	res.Model = sparse.Build(lib, best)
	return nil
}

// validate re-integrates the recovered dynamics over the extended horizon.
func (p *Pipeline) validate(ctx context.Context, res *Result, lv *physics.LotkaVolterra, known dynamo.Params) error {
	cfg := p.Cfg
	if cfg.ValidationHorizon <= cfg.Duration {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	recovered := physics.NewRecovered(known, res.Library, res.Model.Fit.Coef)
	grid := dynamo.Grid(0, cfg.ValidationHorizon, cfg.Dt)
	solver := integrators.NewRK45().WithTolerances(cfg.Atol, cfg.Rtol)
	x0 := dynamo.State(cfg.InitState)

	validation, err := solver.Solve(recovered, x0, nil, grid)
	if err != nil {
		return fmt.Errorf("final simulation (recovered dynamics): %w", err)
	}
	reference, err := solver.Solve(lv, x0, known, grid)
	if err != nil {
		return fmt.Errorf("final simulation (reference dynamics): %w", err)
	}

	res.Validation = validation
	res.ValidationRef = reference
	return nil
}
