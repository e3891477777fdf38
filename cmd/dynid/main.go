package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/dynid/internal/config"
	"github.com/san-kum/dynid/internal/discover"
	"github.com/san-kum/dynid/internal/dynamo"
	"github.com/san-kum/dynid/internal/integrators"
	"github.com/san-kum/dynid/internal/metrics"
	"github.com/san-kum/dynid/internal/physics"
	"github.com/san-kum/dynid/internal/storage"
	"github.com/san-kum/dynid/internal/train"
	"github.com/san-kum/dynid/internal/tui"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	configFile string
	duration   float64
	dt         float64
	noise      float64
	seed       int64
	stage1     int
	stage2     int
	lr         float64
	workers    int
	horizon    float64
	live       bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dynid",
		Short: "recover governing equations from noisy trajectory data",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".dynid", "data directory")

	discoverCmd := &cobra.Command{
		Use:   "discover",
		Short: "train the hybrid model and distill symbolic dynamics",
		RunE:  runDiscover,
	}
	discoverCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	discoverCmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "training span")
	discoverCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "sampling interval")
	discoverCmd.Flags().Float64Var(&noise, "noise", config.DefaultNoiseMagnitude, "multiplicative noise magnitude")
	discoverCmd.Flags().Int64Var(&seed, "seed", 1111, "random seed")
	discoverCmd.Flags().IntVar(&stage1, "stage1", config.DefaultStage1Iters, "adam iterations")
	discoverCmd.Flags().IntVar(&stage2, "stage2", config.DefaultStage2Iters, "lbfgs major iterations")
	discoverCmd.Flags().Float64Var(&lr, "lr", config.DefaultLearningRate, "adam learning rate")
	discoverCmd.Flags().IntVar(&workers, "workers", 0, "sweep workers (0 = NumCPU)")
	discoverCmd.Flags().Float64Var(&horizon, "horizon", 15.0, "validation horizon")
	discoverCmd.Flags().BoolVar(&live, "live", false, "show live training view")

	distillCmd := &cobra.Command{
		Use:   "distill",
		Short: "distill symbolic dynamics from the exact interaction terms",
		RunE:  runDistill,
	}
	distillCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	distillCmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "sampling span")
	distillCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "sampling interval")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "integrate the reference dynamics and plot the trajectory",
		RunE:  runSimulate,
	}
	simulateCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	simulateCmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "span")
	simulateCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "sampling interval")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list discovery runs",
		RunE:  listRuns,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a run's loss trace",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	rootCmd.AddCommand(discoverCmd, distillCmd, simulateCmd, listCmd, exportCmd, plotCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig merges the config file, defaults, and any flags the user set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("time") {
		cfg.Duration = duration
	}
	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("noise") {
		cfg.NoiseMagnitude = noise
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}
	if cmd.Flags().Changed("stage1") {
		cfg.Train.Stage1Iters = stage1
	}
	if cmd.Flags().Changed("stage2") {
		cfg.Train.Stage2Iters = stage2
	}
	if cmd.Flags().Changed("lr") {
		cfg.Train.LearningRate = lr
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = workers
	}
	if cmd.Flags().Changed("horizon") {
		cfg.ValidationHorizon = horizon
	}
	return cfg, cfg.Validate()
}

func runDiscover(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	pipeline := discover.New(cfg)

	var res *discover.Result
	var runErr error
	start := time.Now()

	if live {
		res, runErr = runWithLiveView(pipeline)
	} else {
		pipeline.Observer = func(stage, iter int, loss float64) {
			if iter%50 == 0 {
				fmt.Printf("stage %d iter %4d  loss %.6g\n", stage, iter, loss)
			}
		}
		fmt.Println("running discovery...")
		res, runErr = pipeline.Run(context.Background())
	}
	if res == nil {
		return runErr
	}
	elapsed := time.Since(start)

	known := dynamo.Params(cfg.KnownParams)
	runID, err := st.Save(res, cfg.Seed, cfg.NoiseMagnitude, known)
	if err != nil {
		return err
	}

	fmt.Printf("\ncompleted in %v\n", elapsed.Round(time.Millisecond))
	fmt.Printf("run id: %s\n", runID)

	summary := metrics.Summarize(res.Trace)
	fmt.Printf("loss: %.6g -> %.6g over %d iterations\n", summary.Initial, summary.Final, summary.Iterations)

	if len(res.Trace) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(res.Trace,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("training loss")))
	}

	printSweep(res)
	printModel(res, known)

	if res.Validation != nil && res.ValidationRef != nil {
		fmt.Printf("\nvalidation RMSE over [0, %.1f]: %.6g\n", cfg.ValidationHorizon, metrics.RMSE(res.Validation, res.ValidationRef))
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", runErr)
	}
	return nil
}

// runWithLiveView runs the pipeline in the background and streams its
// progress into the terminal view. The pipeline is cancelled if the user
// quits early.
func runWithLiveView(pipeline *discover.Pipeline) (*discover.Result, error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	progress := make(chan tui.ProgressMsg, 64)
	done := make(chan tui.DoneMsg, 1)

	pipeline.Observer = train.Observer(func(stage, iter int, loss float64) {
		select {
		case progress <- tui.ProgressMsg{Stage: stage, Iteration: iter, Loss: loss}:
		case <-ctx.Done():
		}
	})

	var res *discover.Result
	var runErr error
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		res, runErr = pipeline.Run(ctx)
		done <- tui.DoneMsg{Err: runErr}
	}()

	p := tea.NewProgram(tui.NewModel(progress, done))
	if _, err := p.Run(); err != nil {
		cancel()
		<-finished
		return nil, err
	}
	cancel()
	<-finished
	return res, runErr
}

func runDistill(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	pipeline := discover.New(cfg)
	res, err := pipeline.RunIdeal(context.Background())
	if err != nil {
		return err
	}

	printSweep(res)
	printModel(res, dynamo.Params(cfg.KnownParams))
	return nil
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	lv := physics.NewLotkaVolterra(dynamo.Params(cfg.KnownParams))
	solver := integrators.NewRK45().WithTolerances(cfg.Atol, cfg.Rtol)
	grid := dynamo.Grid(0, cfg.Duration, cfg.Dt)

	traj, err := solver.Solve(lv, dynamo.State(cfg.InitState), nil, grid)
	if err != nil {
		return err
	}

	names := []string{"x1 (prey)", "x2 (predator)"}
	for k := 0; k < traj.Dim(); k++ {
		data := make([]float64, traj.Len())
		for i, x := range traj.States {
			data[i] = x[k]
		}
		fmt.Println(asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(names[k])))
		fmt.Println()
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tSEED\tNOISE\tITERS\tFINAL LOSS\tLAMBDA\tTERMS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.4g\t%d\t%.6g\t%.4g\t%d\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Seed,
			run.NoiseMagnitude,
			run.Iterations,
			run.FinalLoss,
			run.Lambda,
			run.ActiveTerms,
		)
	}

	return w.Flush()
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	trace, err := st.LoadTrace(args[0])
	if err != nil {
		return err
	}
	if len(trace) < 2 {
		return fmt.Errorf("no trace data to plot")
	}

	fmt.Println(asciigraph.Plot(trace,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption("training loss")))
	return nil
}

func printSweep(res *discover.Result) {
	if len(res.Sweep) == 0 {
		return
	}

	fmt.Println("\nregularization sweep:")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LAMBDA\tACTIVE\tRSS")
	for _, fit := range res.Sweep {
		marker := ""
		if res.Model != nil && fit.Lambda == res.Model.Lambda {
			marker = "  <- selected"
		}
		fmt.Fprintf(w, "%.4g\t%d\t%.6g%s\n", fit.Lambda, fit.Active, fit.RSS, marker)
	}
	w.Flush()
}

func printModel(res *discover.Result, known dynamo.Params) {
	if res.Model == nil {
		return
	}
	fmt.Println("\nrecovered dynamics:")
	for _, eq := range discover.Equations(res.Model, known) {
		fmt.Printf("  %s\n", eq)
	}
}
