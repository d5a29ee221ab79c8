package smoke

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	service "github.com/okian/fairway/internal/app"
	"github.com/okian/fairway/internal/domain/model"
	"github.com/okian/fairway/internal/testfield"
	"github.com/okian/fairway/pkg/logger"
)

const defaultTopN = 10

// Run executes the complete smoke test and returns its statistics. Per-field
// failures are counted; Run fails only when the service is unreachable or
// no field made it through.
func Run(ctx context.Context, cfg Config) (Stats, error) {
	stats := Stats{StartTime: time.Now()}
	if cfg.TopN <= 0 {
		cfg.TopN = defaultTopN
	}
	log := logger.Default().Named("smoke")
	client := newHTTPClient(cfg.Timeout)

	log.Info(ctx, "starting fairway smoke test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("fields", cfg.Fields),
		logger.Int("workers", cfg.Workers),
		logger.String("timeout", cfg.Timeout.String()),
	)

	if err := client.Get(ctx, cfg.BaseURL+"/healthz", http.StatusOK, nil); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	jobs := make(chan int)
	var (
		mu       sync.Mutex
		spearman float64
		defined  int
		wg       sync.WaitGroup
	)
	workers := max(cfg.Workers, 1)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				res, err := runField(ctx, client, cfg, i)

				mu.Lock()
				stats.FieldsGenerated++
				if res.ranked {
					stats.RankingsCreated++
				}
				if res.duplicate {
					stats.Duplicates++
				}
				if res.validated {
					stats.Validations++
					if res.spearman != nil {
						spearman += *res.spearman
						defined++
					}
				}
				if err != nil {
					stats.Failed++
				}
				mu.Unlock()

				if err != nil {
					log.Warn(ctx, "field failed", logger.Int("field", i), logger.Error(err))
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := 0; i < cfg.Fields; i++ {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()
	wg.Wait()

	if defined > 0 {
		stats.MeanSpearman = spearman / float64(defined)
	}
	stats.Duration = time.Since(stats.StartTime)

	log.Info(ctx, "final statistics",
		logger.Int("fieldsGenerated", stats.FieldsGenerated),
		logger.Int("rankingsCreated", stats.RankingsCreated),
		logger.Int("duplicates", stats.Duplicates),
		logger.Int("failed", stats.Failed),
		logger.Int("validations", stats.Validations),
		logger.Float64("meanSpearman", stats.MeanSpearman),
		logger.String("duration", stats.Duration.String()),
	)
	if stats.RankingsCreated == 0 && cfg.Fields > 0 {
		return stats, errors.New("no field was ranked")
	}
	return stats, ctx.Err()
}

type fieldResult struct {
	ranked    bool
	duplicate bool
	validated bool
	spearman  *float64
}

// runField ranks, replays, reads back and validates one field.
func runField(ctx context.Context, c *HTTPClient, cfg Config, i int) (fieldResult, error) {
	var res fieldResult
	seed := cfg.Seed + int64(i)
	f := testfield.Generate(
		testfield.WithSeed(seed),
		testfield.WithCompetitors(cfg.Competitors),
		testfield.WithEventID("smoke-"+strconv.FormatInt(seed, 10)),
	)

	req := service.RankRequest{
		RequestID: fmt.Sprintf("smoke-%d-%d", cfg.Seed, i),
		EventID:   f.EventID,
		Template:  cfg.Template,
		Rounds:    f.Rounds,
		Approach:  f.Approach,
	}
	var ranked service.RankResponse
	if err := c.Post(ctx, cfg.BaseURL+"/rankings", req, http.StatusCreated, &ranked); err != nil {
		return res, fmt.Errorf("rank: %w", err)
	}
	res.ranked = true

	err := c.Post(ctx, cfg.BaseURL+"/rankings", req, http.StatusConflict, nil)
	if err != nil {
		return res, fmt.Errorf("replay was not rejected: %w", err)
	}
	res.duplicate = true

	var page struct {
		Entries []model.RankingEntry `json:"entries"`
	}
	url := fmt.Sprintf("%s/rankings/%s?limit=%d", cfg.BaseURL, ranked.RunID, cfg.TopN)
	if err := c.Get(ctx, url, http.StatusOK, &page); err != nil {
		return res, fmt.Errorf("read ranking: %w", err)
	}
	want := min(cfg.TopN, len(ranked.Entries))
	if len(page.Entries) != want {
		return res, fmt.Errorf("read back %d entries, want %d", len(page.Entries), want)
	}
	for k, e := range page.Entries {
		if e.CompetitorID != ranked.Entries[k].CompetitorID {
			return res, fmt.Errorf("entry %d is competitor %d, want %d", k, e.CompetitorID, ranked.Entries[k].CompetitorID)
		}
	}

	var validated service.ValidateResponse
	vreq := service.ValidateRequest{RankingRunID: ranked.RunID, Results: f.Results}
	if err := c.Post(ctx, cfg.BaseURL+"/validations", vreq, http.StatusCreated, &validated); err != nil {
		return res, fmt.Errorf("validate: %w", err)
	}
	res.validated = true
	if s := validated.Report.Spearman; s.Defined {
		v := s.Value
		res.spearman = &v
	}
	return res, nil
}
