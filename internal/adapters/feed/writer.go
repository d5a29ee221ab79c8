package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/okian/fairway/internal/domain/metric"
	"github.com/okian/fairway/internal/domain/model"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func sortedMetrics(sets ...map[metric.ID]float64) []metric.ID {
	seen := make(map[metric.ID]bool)
	for _, s := range sets {
		for id := range s {
			seen[id] = true
		}
	}
	out := make([]metric.ID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func flush(cw *csv.Writer, feed string) error {
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write %s feed: %w", feed, err)
	}
	return nil
}

// WriteRounds writes rows with one column per metric present in any row.
// Missing values are written as empty cells.
func WriteRounds(w io.Writer, rows []model.RoundRow) error {
	sets := make([]map[metric.ID]float64, len(rows))
	for i, r := range rows {
		sets[i] = r.Stats
	}
	cols := sortedMetrics(sets...)

	cw := csv.NewWriter(w)
	header := []string{"competitor_id", "name", "event_id", "round"}
	for _, id := range cols {
		header = append(header, id.String())
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write %s feed: %w", FeedRounds, err)
	}
	for _, r := range rows {
		rec := []string{strconv.FormatInt(r.CompetitorID, 10), r.Name, r.EventID, strconv.Itoa(r.Round)}
		for _, id := range cols {
			if v, ok := r.Stats[id]; ok {
				rec = append(rec, formatFloat(v))
			} else {
				rec = append(rec, "")
			}
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write %s feed: %w", FeedRounds, err)
		}
	}
	return flush(cw, FeedRounds)
}

// WriteApproach writes rows with a shot count column per approach bucket
// followed by the metric columns.
func WriteApproach(w io.Writer, rows []model.ApproachRow) error {
	sets := make([]map[metric.ID]float64, len(rows))
	for i, r := range rows {
		sets[i] = r.Stats
	}
	cols := sortedMetrics(sets...)
	buckets := metric.ApproachBuckets()

	cw := csv.NewWriter(w)
	header := []string{"competitor_id", "name"}
	for _, b := range buckets {
		header = append(header, b.String()+"_shots")
	}
	for _, id := range cols {
		header = append(header, id.String())
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write %s feed: %w", FeedApproach, err)
	}
	for _, r := range rows {
		rec := []string{strconv.FormatInt(r.CompetitorID, 10), r.Name}
		for _, b := range buckets {
			if n, ok := r.Shots[b]; ok {
				rec = append(rec, strconv.Itoa(n))
			} else {
				rec = append(rec, "")
			}
		}
		for _, id := range cols {
			if v, ok := r.Stats[id]; ok {
				rec = append(rec, formatFloat(v))
			} else {
				rec = append(rec, "")
			}
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write %s feed: %w", FeedApproach, err)
		}
	}
	return flush(cw, FeedApproach)
}

// WriteResults writes one row per result with the finish as text (T5, CUT).
func WriteResults(w io.Writer, rows []model.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"competitor_id", "name", "finish"}); err != nil {
		return fmt.Errorf("write %s feed: %w", FeedResults, err)
	}
	for _, r := range rows {
		if err := cw.Write([]string{strconv.FormatInt(r.CompetitorID, 10), r.Name, r.Finish.String()}); err != nil {
			return fmt.Errorf("write %s feed: %w", FeedResults, err)
		}
	}
	return flush(cw, FeedResults)
}

// WriteRanking exports a ranking as CSV.
func WriteRanking(w io.Writer, entries []model.RankingEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"rank", "competitor_id", "name", "score", "coverage"}); err != nil {
		return fmt.Errorf("write ranking: %w", err)
	}
	for _, e := range entries {
		rec := []string{
			strconv.Itoa(e.Rank),
			strconv.FormatInt(e.CompetitorID, 10),
			e.Name,
			formatFloat(e.Score),
			formatFloat(e.Coverage),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write ranking: %w", err)
		}
	}
	return flush(cw, "ranking")
}
