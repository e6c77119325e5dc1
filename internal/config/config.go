// Package config loads the engine tunables from a YAML file. Every default
// that materially affects fit quality (bucket count, edge threshold,
// iteration cap, tolerance) lives here rather than being hardcoded.
package config

import (
	"fmt"
	"os"

	"limb-analyzer/internal/analyze"
	"limb-analyzer/internal/fit"
	"limb-analyzer/internal/profile"

	"gopkg.in/yaml.v3"
)

// ExtractionConfig mirrors profile.Params.
type ExtractionConfig struct {
	EdgeFraction float64 `yaml:"edge_fraction"`
	MuBuckets    int     `yaml:"mu_buckets"`
	MinRadiusPx  float64 `yaml:"min_radius_px"`
	SigmaClip    float64 `yaml:"sigma_clip"`
}

// FittingConfig mirrors fit.Options.
type FittingConfig struct {
	MaxIterations int     `yaml:"max_iterations"`
	CostTolerance float64 `yaml:"cost_tolerance"`
}

// RuntimeConfig holds request-level settings.
type RuntimeConfig struct {
	TimeoutSeconds    int `yaml:"timeout_seconds"`
	MaxConcurrentFits int `yaml:"max_concurrent_fits"`
}

// Config is the top-level structure for the analyzer YAML file.
type Config struct {
	Extraction ExtractionConfig `yaml:"extraction"`
	Fitting    FittingConfig    `yaml:"fitting"`
	Runtime    RuntimeConfig    `yaml:"runtime"`
}

// Default returns the documented defaults, identical to what the engine uses
// when no config file is given.
func Default() Config {
	ep := profile.DefaultParams()
	fo := fit.DefaultOptions()
	return Config{
		Extraction: ExtractionConfig{
			EdgeFraction: ep.EdgeFraction,
			MuBuckets:    ep.Buckets,
			MinRadiusPx:  ep.MinRadiusPx,
			SigmaClip:    ep.SigmaClip,
		},
		Fitting: FittingConfig{
			MaxIterations: fo.MaxIterations,
			CostTolerance: fo.CostTolerance,
		},
		Runtime: RuntimeConfig{
			TimeoutSeconds: 60,
		},
	}
}

// Load reads and parses an analyzer config file. Fields left unset in the
// file fall back to the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read analyzer config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse analyzer config: %w", err)
	}
	return cfg, nil
}

// ExtractionParams converts the config into extractor parameters.
func (c Config) ExtractionParams() profile.Params {
	return profile.Params{
		EdgeFraction: c.Extraction.EdgeFraction,
		Buckets:      c.Extraction.MuBuckets,
		MinRadiusPx:  c.Extraction.MinRadiusPx,
		SigmaClip:    c.Extraction.SigmaClip,
	}
}

// FitOptions converts the config into fitter options.
func (c Config) FitOptions() fit.Options {
	return fit.Options{
		MaxIterations: c.Fitting.MaxIterations,
		CostTolerance: c.Fitting.CostTolerance,
	}
}

// AnalyzerOptions converts the config into pipeline options.
func (c Config) AnalyzerOptions() analyze.Options {
	return analyze.Options{
		Extraction:        c.ExtractionParams(),
		Fit:               c.FitOptions(),
		MaxConcurrentFits: c.Runtime.MaxConcurrentFits,
	}
}
