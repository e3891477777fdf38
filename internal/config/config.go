package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDt             = 0.1
	DefaultDuration       = 3.0
	DefaultNoiseMagnitude = 5e-3
	DefaultStage1Iters    = 200
	DefaultStage2Iters    = 1000
	DefaultLearningRate   = 0.1
	DefaultLambdaMin      = 1e-3
	DefaultLambdaMax      = 1e5
	DefaultLambdaCount    = 40
	DefaultDegree         = 5
)

type Config struct {
	InitState      []float64 `yaml:"init_state"`
	KnownParams    []float64 `yaml:"known_params"` // alpha, beta, gamma, delta
	Duration       float64   `yaml:"duration"`
	Dt             float64   `yaml:"dt"`
	Atol           float64   `yaml:"atol"`
	Rtol           float64   `yaml:"rtol"`
	NoiseMagnitude float64   `yaml:"noise_magnitude"`
	Seed           int64     `yaml:"seed"`

	Train TrainConfig `yaml:"train"`
	Sweep SweepConfig `yaml:"sweep"`

	// ValidationHorizon extends the final simulation of the recovered
	// dynamics beyond the training span.
	ValidationHorizon float64 `yaml:"validation_horizon"`
	Workers           int     `yaml:"workers"`
}

type TrainConfig struct {
	Stage1Iters  int     `yaml:"stage1_iters"`
	Stage2Iters  int     `yaml:"stage2_iters"`
	LearningRate float64 `yaml:"learning_rate"`
}

type SweepConfig struct {
	LambdaMin   float64 `yaml:"lambda_min"`
	LambdaMax   float64 `yaml:"lambda_max"`
	LambdaCount int     `yaml:"lambda_count"`
	Degree      int     `yaml:"degree"`
}

func DefaultConfig() *Config {
	return &Config{
		InitState:      []float64{0.44249296, 4.6280594},
		KnownParams:    []float64{1.3, 0.9, 0.8, 1.8},
		Duration:       DefaultDuration,
		Dt:             DefaultDt,
		Atol:           1e-7,
		Rtol:           1e-7,
		NoiseMagnitude: DefaultNoiseMagnitude,
		Seed:           1111,
		Train: TrainConfig{
			Stage1Iters:  DefaultStage1Iters,
			Stage2Iters:  DefaultStage2Iters,
			LearningRate: DefaultLearningRate,
		},
		Sweep: SweepConfig{
			LambdaMin:   DefaultLambdaMin,
			LambdaMax:   DefaultLambdaMax,
			LambdaCount: DefaultLambdaCount,
			Degree:      DefaultDegree,
		},
		ValidationHorizon: 15.0,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if len(c.InitState) != 2 {
		return fmt.Errorf("config: init_state must have 2 entries, got %d", len(c.InitState))
	}
	if len(c.KnownParams) != 4 {
		return fmt.Errorf("config: known_params must have 4 entries, got %d", len(c.KnownParams))
	}
	if c.Dt <= 0 {
		return fmt.Errorf("config: dt must be positive, got %f", c.Dt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("config: duration must be positive, got %f", c.Duration)
	}
	if c.Sweep.LambdaMin <= 0 || c.Sweep.LambdaMax < c.Sweep.LambdaMin {
		return fmt.Errorf("config: sweep range [%g, %g] invalid", c.Sweep.LambdaMin, c.Sweep.LambdaMax)
	}
	if c.Sweep.Degree < 1 {
		return fmt.Errorf("config: library degree must be at least 1, got %d", c.Sweep.Degree)
	}
	return nil
}
