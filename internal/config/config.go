// Package config defines process configuration and how it is loaded.
//
// Conventions:
//   - New(ctx) returns a Config holding every default.
//   - Sections mirror the domain packages they configure and convert to their
//     settings with a method, so domain packages never import config.
//   - Errors are wrapped with this package's sentinels.
package config

import (
	"context"
	"runtime"
	"time"

	"github.com/okian/fairway/internal/domain/optimizer"
	"github.com/okian/fairway/internal/domain/scoring"
	"github.com/okian/fairway/internal/domain/validation"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite database file; ":memory:" keeps runs in memory.
	DBPath string `koanf:"db_path"`

	// TemplatePaths are extra YAML template files layered over the built-ins.
	TemplatePaths []string `koanf:"template_paths"`

	// DedupeSize bounds the request id cache used to reject replayed requests.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxLeaderboardLimit caps GET /rankings/{run_id}?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	Scoring    ScoringConfig    `koanf:"scoring"`
	Validation ValidationConfig `koanf:"validation"`
	Optimizer  OptimizerConfig  `koanf:"optimizer"`
}

// ScoringConfig mirrors scoring.Settings.
type ScoringConfig struct {
	CoverageThreshold   float64  `koanf:"coverage_threshold"`
	ConfidenceFactor    float64  `koanf:"confidence_factor"`
	Neutral             float64  `koanf:"neutral"`
	Renormalize         bool     `koanf:"renormalize"`
	LowSampleShots      int      `koanf:"low_sample_shots"`
	Normalization       string   `koanf:"normalization"`
	PastPerformanceMode string   `koanf:"past_performance_mode"`
	Adjustments         []string `koanf:"adjustments"`
}

// ValidationConfig holds the hit-rate cut-offs.
type ValidationConfig struct {
	TopN []int `koanf:"top_n"`
}

// OptimizerConfig tunes weight searches.
type OptimizerConfig struct {
	Iterations   int             `koanf:"iterations"`
	TimeBudget   time.Duration   `koanf:"time_budget"`
	Seeds        int             `koanf:"seeds"`
	Workers      int             `koanf:"workers"`
	QueueSize    int             `koanf:"queue_size"`
	GroupJitter  float64         `koanf:"group_jitter"`
	MetricJitter float64         `koanf:"metric_jitter"`
	MinWeight    float64         `koanf:"min_weight"`
	Margin       float64         `koanf:"materiality_margin"`
	Anchor       string          `koanf:"anchor"`
	Blend        optimizer.Blend `koanf:"blend"`
}

// New creates a Config with defaults. Context is accepted first to follow
// the project-wide convention.
func New(_ context.Context) *Config {
	s := scoring.DefaultSettings()
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		DBPath:              "fairway.db",
		DedupeSize:          50_000,
		MaxLeaderboardLimit: 500,
		Scoring: ScoringConfig{
			CoverageThreshold:   s.CoverageThreshold,
			ConfidenceFactor:    s.ConfidenceFactor,
			Neutral:             s.Neutral,
			Renormalize:         s.Renormalize,
			LowSampleShots:      s.LowSampleShots,
			Normalization:       string(s.Normalization),
			PastPerformanceMode: string(s.PastPerformanceMode),
			Adjustments:         s.Adjustments,
		},
		Validation: ValidationConfig{
			TopN: append([]int(nil), validation.DefaultTopN...),
		},
		Optimizer: OptimizerConfig{
			Iterations:   optimizer.DefaultIterations,
			Seeds:        8,
			Workers:      runtime.NumCPU(),
			QueueSize:    1024,
			GroupJitter:  optimizer.DefaultGroupJitter,
			MetricJitter: optimizer.DefaultMetricJitter,
			MinWeight:    optimizer.DefaultMinWeight,
			Margin:       optimizer.DefaultMargin,
			Anchor:       string(optimizer.AnchorBaseline),
			Blend:        optimizer.DefaultBlend,
		},
	}
}

// Settings converts the section to scoring settings.
func (c ScoringConfig) Settings() scoring.Settings {
	return scoring.Settings{
		CoverageThreshold:   c.CoverageThreshold,
		ConfidenceFactor:    c.ConfidenceFactor,
		Neutral:             c.Neutral,
		Renormalize:         c.Renormalize,
		LowSampleShots:      c.LowSampleShots,
		Normalization:       scoring.Normalization(c.Normalization),
		PastPerformanceMode: scoring.PastPerformanceMode(c.PastPerformanceMode),
		Adjustments:         append([]string(nil), c.Adjustments...),
	}
}

// Options converts the section to optimizer options. Seeds, workers and
// queue size are consumed by the worker pool, not the optimizer.
func (c OptimizerConfig) Options() []optimizer.Option {
	return []optimizer.Option{
		optimizer.WithIterations(c.Iterations),
		optimizer.WithTimeBudget(c.TimeBudget),
		optimizer.WithJitter(c.GroupJitter, c.MetricJitter),
		optimizer.WithMinWeight(c.MinWeight),
		optimizer.WithMargin(c.Margin),
		optimizer.WithAnchor(optimizer.Anchor(c.Anchor)),
		optimizer.WithBlend(c.Blend),
	}
}
