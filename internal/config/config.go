// Package config loads the runtime configuration surface for the planning
// engine: solver behavior, windowed-solve parameters, and observability
// settings, via viper with mapstructure tags and documented defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Solver holds the configuration surface of spec.md §6.4.
type Solver struct {
	SolveMode                string  `mapstructure:"solve_mode"` // monolithic | windowed
	WindowDays               int     `mapstructure:"window_days"`
	CommitDays               int     `mapstructure:"commit_days"`
	AllowShortages           bool    `mapstructure:"allow_shortages"`
	EnforceShelfLife         bool    `mapstructure:"enforce_shelf_life"`
	WarmStart                string  `mapstructure:"warm_start"`
	SmoothingPenalty         float64 `mapstructure:"smoothing_penalty"`
	MinDeliveryRemainingDays int     `mapstructure:"min_delivery_remaining_days"`
	Backend                  string  `mapstructure:"solver"`
	TimeLimitSeconds         int     `mapstructure:"time_limit_seconds"`
	MIPGap                   float64 `mapstructure:"mip_gap"`
}

// TracingConfig configures the optional OTLP span exporter for the solve
// pipeline's per-stage spans.
type TracingConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	Endpoint         string  `mapstructure:"endpoint"`
	Environment      string  `mapstructure:"environment"`
	SamplingStrategy string  `mapstructure:"sampling_strategy"` // always | never | probabilistic
	SamplingRate     float64 `mapstructure:"sampling_rate"`
}

// ObservabilityConfig configures structured logging, the metrics/health
// HTTP surface, and optional distributed tracing.
type ObservabilityConfig struct {
	MetricsPort int           `mapstructure:"metrics_port"`
	LogLevel    string        `mapstructure:"log_level"`
	Tracing     TracingConfig `mapstructure:"tracing"`
}

// Rolling configures the Rolling/Windowed Controller's overlap and
// scenario-sweep concurrency.
type Rolling struct {
	MonolithicThresholdDays int           `mapstructure:"monolithic_threshold_days"`
	OverlapDays             int           `mapstructure:"overlap_days"`
	ScenarioTimeout         time.Duration `mapstructure:"scenario_timeout"`
	MaxConcurrentScenarios  int           `mapstructure:"max_concurrent_scenarios"`
}

// Config is the top-level configuration record for a planning engine
// invocation.
type Config struct {
	Solver        Solver              `mapstructure:"solver"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Rolling       Rolling             `mapstructure:"rolling"`
}

func defaultConfig() *Config {
	return &Config{
		Solver: Solver{
			SolveMode:                "monolithic",
			WindowDays:               28,
			CommitDays:               14,
			AllowShortages:           true,
			EnforceShelfLife:         true,
			WarmStart:                "demand_weighted",
			SmoothingPenalty:         0.0,
			MinDeliveryRemainingDays: 7,
			Backend:                  "default",
			TimeLimitSeconds:         300,
			MIPGap:                   0.01,
		},
		Observability: ObservabilityConfig{
			MetricsPort: 9091,
			LogLevel:    "info",
			Tracing: TracingConfig{
				Enabled:          false,
				SamplingStrategy: "probabilistic",
				SamplingRate:     0.1,
			},
		},
		Rolling: Rolling{
			MonolithicThresholdDays: 35,
			OverlapDays:             7,
			ScenarioTimeout:         5 * time.Minute,
			MaxConcurrentScenarios:  4,
		},
	}
}

// Load reads configuration from a YAML file and environment overrides. A
// missing file at path is not an error; defaults (and any env overrides)
// are used instead.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("PLANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := defaultConfig()
	v.SetDefault("solver.solve_mode", def.Solver.SolveMode)
	v.SetDefault("solver.window_days", def.Solver.WindowDays)
	v.SetDefault("solver.commit_days", def.Solver.CommitDays)
	v.SetDefault("solver.allow_shortages", def.Solver.AllowShortages)
	v.SetDefault("solver.enforce_shelf_life", def.Solver.EnforceShelfLife)
	v.SetDefault("solver.warm_start", def.Solver.WarmStart)
	v.SetDefault("solver.smoothing_penalty", def.Solver.SmoothingPenalty)
	v.SetDefault("solver.min_delivery_remaining_days", def.Solver.MinDeliveryRemainingDays)
	v.SetDefault("solver.solver", def.Solver.Backend)
	v.SetDefault("solver.time_limit_seconds", def.Solver.TimeLimitSeconds)
	v.SetDefault("solver.mip_gap", def.Solver.MIPGap)

	v.SetDefault("observability.metrics_port", def.Observability.MetricsPort)
	v.SetDefault("observability.log_level", def.Observability.LogLevel)
	v.SetDefault("observability.tracing.enabled", def.Observability.Tracing.Enabled)
	v.SetDefault("observability.tracing.endpoint", def.Observability.Tracing.Endpoint)
	v.SetDefault("observability.tracing.environment", def.Observability.Tracing.Environment)
	v.SetDefault("observability.tracing.sampling_strategy", def.Observability.Tracing.SamplingStrategy)
	v.SetDefault("observability.tracing.sampling_rate", def.Observability.Tracing.SamplingRate)

	v.SetDefault("rolling.monolithic_threshold_days", def.Rolling.MonolithicThresholdDays)
	v.SetDefault("rolling.overlap_days", def.Rolling.OverlapDays)
	v.SetDefault("rolling.scenario_timeout", def.Rolling.ScenarioTimeout)
	v.SetDefault("rolling.max_concurrent_scenarios", def.Rolling.MaxConcurrentScenarios)

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks config constraints and returns an error on invalid
// settings.
func Validate(cfg *Config) error {
	if cfg.Solver.SolveMode != "monolithic" && cfg.Solver.SolveMode != "windowed" {
		return fmt.Errorf("solver.solve_mode must be 'monolithic' or 'windowed', got %q", cfg.Solver.SolveMode)
	}
	if cfg.Solver.WindowDays <= 0 {
		return fmt.Errorf("solver.window_days must be > 0")
	}
	if cfg.Solver.CommitDays <= 0 || cfg.Solver.CommitDays >= cfg.Solver.WindowDays {
		return fmt.Errorf("solver.commit_days must be > 0 and < window_days")
	}
	switch cfg.Solver.WarmStart {
	case "demand_weighted", "balanced", "fixed2", "fixed3", "adaptive", "none":
	default:
		return fmt.Errorf("solver.warm_start %q is not a recognized mode", cfg.Solver.WarmStart)
	}
	if cfg.Solver.MinDeliveryRemainingDays < 0 {
		return fmt.Errorf("solver.min_delivery_remaining_days must be >= 0")
	}
	if cfg.Solver.TimeLimitSeconds <= 0 {
		return fmt.Errorf("solver.time_limit_seconds must be > 0")
	}
	if cfg.Solver.MIPGap < 0 || cfg.Solver.MIPGap > 1 {
		return fmt.Errorf("solver.mip_gap must be in [0,1]")
	}
	if cfg.Observability.MetricsPort <= 0 || cfg.Observability.MetricsPort > 65535 {
		return fmt.Errorf("observability.metrics_port must be 1..65535")
	}
	if cfg.Rolling.OverlapDays < 0 || cfg.Rolling.OverlapDays >= cfg.Solver.WindowDays {
		return fmt.Errorf("rolling.overlap_days must be >= 0 and < solver.window_days")
	}
	if cfg.Rolling.MaxConcurrentScenarios <= 0 {
		return fmt.Errorf("rolling.max_concurrent_scenarios must be > 0")
	}
	return nil
}
