package model

// RankingEntry is one competitor's place in a ranking.
type RankingEntry struct {
	CompetitorID int64   `json:"competitor_id"`
	Name         string  `json:"name,omitempty"`
	Score        float64 `json:"score"`
	Rank         int     `json:"rank"`
	Coverage     float64 `json:"coverage"`
}

// SeedJob is one optimizer search queued for the worker pool.
type SeedJob struct {
	RunID string
	Seed  int64
	Index int // position of the seed in the request
}
