// Package feed reads and writes the CSV exports the engine consumes: round
// statistics, approach-shot statistics and tournament results.
package feed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/okian/fairway/internal/domain/metric"
	"github.com/okian/fairway/internal/domain/model"
	"github.com/okian/fairway/pkg/logger"
	"github.com/okian/fairway/pkg/metrics"
)

// Feed names used in reports and metrics.
const (
	FeedRounds   = "rounds"
	FeedApproach = "approach"
	FeedResults  = "results"
)

const ctxCheckEvery = 512

// Report describes what a reader did with a file's columns.
type Report struct {
	Feed    string   `json:"feed"`
	Rows    int      `json:"rows"`
	Metrics int      `json:"metrics"`
	Unknown []string `json:"unknown,omitempty"` // skipped columns
	// Aliased maps headers that matched through an alias or normalization
	// to the strategy that matched them.
	Aliased map[string]string `json:"aliased,omitempty"`
}

// Cells that mean "no data".
var absent = map[string]bool{"": true, "na": true, "n/a": true, "nan": true, "-": true, "--": true, "null": true}

func isAbsent(cell string) bool {
	return absent[strings.ToLower(strings.TrimSpace(cell))]
}

type scanner struct {
	feed string
	s    settings
	l    layout
	rep  Report
}

// scan reads the header, classifies it and calls fn for every record.
func scan(ctx context.Context, r io.Reader, feed string, shots bool, s settings, required []role, fn func(sc *scanner, line int, rec []string) error) (*scanner, error) {
	cr := csv.NewReader(r)
	cr.Comma = s.comma
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s feed is empty", ErrMissingInput, feed)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s header: %v", ErrBadHeader, feed, err)
	}
	l, err := classify(header, shots)
	if err != nil {
		return nil, fmt.Errorf("%s feed: %w", feed, err)
	}
	if err := l.require(feed, required...); err != nil {
		return nil, err
	}

	sc := &scanner{feed: feed, s: s, l: l, rep: Report{Feed: feed, Unknown: l.unknown}}
	for name, strategy := range l.resolved {
		sc.rep.Metrics++
		if strategy != metric.StrategyCanonical {
			if sc.rep.Aliased == nil {
				sc.rep.Aliased = make(map[string]string)
			}
			sc.rep.Aliased[name] = strategy.String()
		}
	}
	if len(l.unknown) > 0 {
		s.log.Warn(ctx, "skipping unknown columns",
			logger.String("feed", feed),
			logger.Any("columns", l.unknown),
		)
	}

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", ErrBadCell, feed, line, err)
		}
		if line%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if blank(rec) {
			continue
		}
		if err := fn(sc, line, rec); err != nil {
			return nil, err
		}
		sc.rep.Rows++
	}
	metrics.RecordFeedRows(feed, sc.rep.Rows)
	s.log.Debug(ctx, "feed read",
		logger.String("feed", feed),
		logger.Int("rows", sc.rep.Rows),
		logger.Int("metrics", sc.rep.Metrics),
	)
	return sc, nil
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func (sc *scanner) cell(rec []string, r role) string {
	i, ok := sc.l.byRole[r]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func (sc *scanner) bad(line int, col, value string, err error) error {
	return fmt.Errorf("%w: %s line %d column %q value %q: %v", ErrBadCell, sc.feed, line, col, value, err)
}

func (sc *scanner) id(line int, rec []string) (int64, error) {
	v := sc.cell(rec, roleID)
	if v == "" {
		return 0, fmt.Errorf("%w: %s line %d: empty competitor id", ErrBadCell, sc.feed, line)
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		// exports sometimes write integral ids as floats
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
			return 0, sc.bad(line, sc.l.name(roleID), v, err)
		}
		id = int64(f)
	}
	return id, nil
}

func (l layout) name(r role) string {
	return l.columns[l.byRole[r]].name
}

// stats fills the metric and shot-count columns of rec.
func (sc *scanner) stats(line int, rec []string) (map[metric.ID]float64, map[metric.Bucket]int, error) {
	stats := make(map[metric.ID]float64)
	var shots map[metric.Bucket]int
	for _, c := range sc.l.columns {
		if c.role != roleMetric && c.role != roleShots {
			continue
		}
		if c.index >= len(rec) || isAbsent(rec[c.index]) {
			continue
		}
		raw := strings.TrimSpace(rec[c.index])
		v, err := strconv.ParseFloat(strings.TrimSuffix(raw, "%"), 64)
		if err != nil {
			return nil, nil, sc.bad(line, c.name, raw, err)
		}
		if c.role == roleShots {
			if v < 0 || v != math.Trunc(v) {
				return nil, nil, sc.bad(line, c.name, raw, errors.New("shot count must be a non-negative integer"))
			}
			if shots == nil {
				shots = make(map[metric.Bucket]int)
			}
			shots[c.bucket] = int(v)
			continue
		}
		stats[c.metric] = v
	}
	return stats, shots, nil
}

// ReadRounds reads a per-round statistics feed. Required columns: competitor
// id and round; event is taken from WithEventID when the feed has none.
func ReadRounds(ctx context.Context, r io.Reader, opts ...Option) ([]model.RoundRow, Report, error) {
	s := newSettings(opts)
	rows := []model.RoundRow{}
	sc, err := scan(ctx, r, FeedRounds, false, s, []role{roleID, roleRound}, func(sc *scanner, line int, rec []string) error {
		id, err := sc.id(line, rec)
		if err != nil {
			return err
		}
		rv := sc.cell(rec, roleRound)
		round, err := strconv.Atoi(rv)
		if err != nil {
			return sc.bad(line, sc.l.name(roleRound), rv, err)
		}
		stats, _, err := sc.stats(line, rec)
		if err != nil {
			return err
		}
		event := s.eventID
		if sc.l.has(roleEvent) {
			event = sc.cell(rec, roleEvent)
		}
		rows = append(rows, model.RoundRow{
			CompetitorID: id,
			Name:         sc.cell(rec, roleName),
			EventID:      event,
			Round:        round,
			Stats:        stats,
		})
		return nil
	})
	if err != nil {
		return nil, Report{}, err
	}
	return rows, sc.rep, nil
}

// ReadApproach reads an approach-shot statistics feed. Shot count columns
// ("fw_100_150_shots" and similar) fill the per-bucket sample counts.
func ReadApproach(ctx context.Context, r io.Reader, opts ...Option) ([]model.ApproachRow, Report, error) {
	s := newSettings(opts)
	rows := []model.ApproachRow{}
	sc, err := scan(ctx, r, FeedApproach, true, s, []role{roleID}, func(sc *scanner, line int, rec []string) error {
		id, err := sc.id(line, rec)
		if err != nil {
			return err
		}
		stats, shots, err := sc.stats(line, rec)
		if err != nil {
			return err
		}
		rows = append(rows, model.ApproachRow{
			CompetitorID: id,
			Name:         sc.cell(rec, roleName),
			Stats:        stats,
			Shots:        shots,
		})
		return nil
	})
	if err != nil {
		return nil, Report{}, err
	}
	return rows, sc.rep, nil
}

// ReadResults reads a tournament results feed. Required columns: competitor
// id and finish. Finish text goes through model.ParseFinish.
func ReadResults(ctx context.Context, r io.Reader, opts ...Option) ([]model.Result, Report, error) {
	s := newSettings(opts)
	rows := []model.Result{}
	sc, err := scan(ctx, r, FeedResults, false, s, []role{roleID, roleFinish}, func(sc *scanner, line int, rec []string) error {
		id, err := sc.id(line, rec)
		if err != nil {
			return err
		}
		fv := sc.cell(rec, roleFinish)
		fin, err := model.ParseFinish(fv)
		if err != nil {
			return fmt.Errorf("%w: %s line %d: %w", ErrBadCell, FeedResults, line, err)
		}
		rows = append(rows, model.Result{CompetitorID: id, Name: sc.cell(rec, roleName), Finish: fin})
		return nil
	})
	if err != nil {
		return nil, Report{}, err
	}
	return rows, sc.rep, nil
}
