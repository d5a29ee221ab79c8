package config

import (
	"fmt"
	"strings"

	"github.com/okian/fairway/internal/domain/optimizer"
	"github.com/okian/fairway/internal/domain/scoring"
)

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case !logLevels[strings.ToLower(c.LogLevel)]:
		return fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	case strings.TrimSpace(c.DBPath) == "":
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	case c.MaxLeaderboardLimit <= 0:
		return fmt.Errorf("%w: max_leaderboard_limit %d", ErrInvalidConfig, c.MaxLeaderboardLimit)
	}

	if err := c.Scoring.Settings().Validate(); err != nil {
		return fmt.Errorf("%w: scoring: %w", ErrInvalidConfig, err)
	}
	for _, step := range c.Scoring.Adjustments {
		if step != scoring.StepConfidence && step != scoring.StepPastPerformance {
			return fmt.Errorf("%w: scoring.adjustments: unknown step %q", ErrInvalidConfig, step)
		}
	}
	for _, n := range c.Validation.TopN {
		if n <= 0 {
			return fmt.Errorf("%w: validation.top_n %d", ErrInvalidConfig, n)
		}
	}

	o := c.Optimizer
	switch {
	case o.Iterations < 0:
		return fmt.Errorf("%w: optimizer.iterations %d", ErrInvalidConfig, o.Iterations)
	case o.TimeBudget < 0:
		return fmt.Errorf("%w: optimizer.time_budget %s", ErrInvalidConfig, o.TimeBudget)
	case o.Seeds <= 0:
		return fmt.Errorf("%w: optimizer.seeds %d", ErrInvalidConfig, o.Seeds)
	case o.Workers <= 0:
		return fmt.Errorf("%w: optimizer.workers %d", ErrInvalidConfig, o.Workers)
	case o.QueueSize <= 0:
		return fmt.Errorf("%w: optimizer.queue_size %d", ErrInvalidConfig, o.QueueSize)
	case o.GroupJitter < 0 || o.GroupJitter >= 1 || o.MetricJitter < 0 || o.MetricJitter >= 1:
		return fmt.Errorf("%w: optimizer jitter must be in [0, 1)", ErrInvalidConfig)
	case o.MinWeight <= 0 || o.MinWeight > 1:
		return fmt.Errorf("%w: optimizer.min_weight %v", ErrInvalidConfig, o.MinWeight)
	case o.Margin < 0:
		return fmt.Errorf("%w: optimizer.materiality_margin %v", ErrInvalidConfig, o.Margin)
	case o.Anchor != string(optimizer.AnchorBaseline) && o.Anchor != string(optimizer.AnchorBest):
		return fmt.Errorf("%w: optimizer.anchor %q", ErrInvalidConfig, o.Anchor)
	case o.Blend.Correlation < 0 || o.Blend.Error < 0 || o.Blend.HitRate < 0,
		o.Blend.Correlation+o.Blend.Error+o.Blend.HitRate == 0:
		return fmt.Errorf("%w: optimizer.blend %+v", ErrInvalidConfig, o.Blend)
	}
	return nil
}
