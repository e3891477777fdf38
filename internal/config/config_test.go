package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if cfg.Train.Stage1Iters != 200 || cfg.Train.Stage2Iters != 1000 {
		t.Errorf("unexpected iteration budgets: %d, %d", cfg.Train.Stage1Iters, cfg.Train.Stage2Iters)
	}
	if len(cfg.KnownParams) != 4 {
		t.Errorf("expected 4 known params, got %d", len(cfg.KnownParams))
	}
}

func TestLoadSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := DefaultConfig()
	cfg.NoiseMagnitude = 0.02
	cfg.Train.Stage1Iters = 50

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.NoiseMagnitude != 0.02 {
		t.Errorf("noise magnitude: got %f", loaded.NoiseMagnitude)
	}
	if loaded.Train.Stage1Iters != 50 {
		t.Errorf("stage1 iters: got %d", loaded.Train.Stage1Iters)
	}
	// Fields absent from the file keep their defaults.
	if loaded.Sweep.LambdaCount != DefaultLambdaCount {
		t.Errorf("lambda count: got %d", loaded.Sweep.LambdaCount)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")

	if err := os.WriteFile(path, []byte("dt: -1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected validation error for negative dt")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"short init state", func(c *Config) { c.InitState = []float64{1} }},
		{"short known params", func(c *Config) { c.KnownParams = []float64{1, 2} }},
		{"zero duration", func(c *Config) { c.Duration = 0 }},
		{"inverted sweep range", func(c *Config) { c.Sweep.LambdaMin = 10; c.Sweep.LambdaMax = 1 }},
		{"zero degree", func(c *Config) { c.Sweep.Degree = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
