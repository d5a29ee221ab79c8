// Package report renders rankings, validation reports, optimizer results and
// weight templates as text tables.
package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/okian/fairway/internal/adapters/feed"
	"github.com/okian/fairway/internal/domain/model"
	"github.com/okian/fairway/internal/domain/optimizer"
	"github.com/okian/fairway/internal/domain/validation"
	"github.com/okian/fairway/internal/domain/weights"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

const undefined = "—"

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))
}

func stat(s validation.Stat, format string) string {
	if !s.Defined {
		return undefined
	}
	return fmt.Sprintf(format, s.Value)
}

func pct(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}

// PrintRanking writes the first limit entries of a ranking. A limit of 0 or
// less prints every entry.
func PrintRanking(w io.Writer, entries []model.RankingEntry, limit int) error {
	if limit <= 0 || limit > len(entries) {
		limit = len(entries)
	}
	table := newTable(w)
	table.Header("RANK", "ID", "NAME", "SCORE", "COVERAGE")
	for _, e := range entries[:limit] {
		table.Append(
			strconv.Itoa(e.Rank),
			strconv.FormatInt(e.CompetitorID, 10),
			e.Name,
			fmt.Sprintf("%.3f", e.Score),
			pct(e.Coverage),
		)
	}
	return table.Render()
}

// PrintValidation writes the statistics and hit rates of a report followed
// by its summary line.
func PrintValidation(w io.Writer, r validation.Report) error {
	fmt.Fprintf(w, "\nEvent: %s  |  Ranked: %d  |  Results: %d  |  Matched: %d  |  Excluded: %d  |  Unmatched: %d\n\n",
		r.EventID, r.Predicted, r.Results, r.Matched, r.Excluded, r.Unmatched)

	table := newTable(w)
	table.Header("PEARSON", "SPEARMAN", "RMSE", "MAE", "STRENGTH")
	table.Append(
		stat(r.Pearson, "%.3f"),
		stat(r.Spearman, "%.3f"),
		stat(r.RMSE, "%.2f"),
		stat(r.MAE, "%.2f"),
		string(r.Strength),
	)
	if err := table.Render(); err != nil {
		return err
	}

	hits := newTable(w)
	hits.Header("TOP_N", "HITS", "CONSIDERED", "RATE")
	for _, h := range r.HitRates {
		rate := undefined
		if h.Rate.Defined {
			rate = pct(h.Rate.Value)
		}
		hits.Append(strconv.Itoa(h.N), strconv.Itoa(h.Hits), strconv.Itoa(h.Considered), rate)
	}
	if err := hits.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%s\n", r.Summary)
	return err
}

// PrintRecommendation writes one row per optimizer run, best first, and the
// final pick.
func PrintRecommendation(w io.Writer, rec optimizer.Recommendation) error {
	table := newTable(w)
	table.Header("SEED", "FITNESS", "IMPROVEMENT", "ITERATIONS", "ACCEPTED", "SPEARMAN", "STATUS")
	for _, r := range rec.Runs {
		status := "done"
		if r.Interrupted {
			status = "interrupted"
		}
		table.Append(
			strconv.FormatInt(r.Seed, 10),
			fmt.Sprintf("%.4f", r.Fitness),
			fmt.Sprintf("%+.4f", r.Improvement),
			strconv.Itoa(r.Iterations),
			strconv.Itoa(r.Accepted),
			stat(r.Report.Spearman, "%.3f"),
			status,
		)
	}
	if err := table.Render(); err != nil {
		return err
	}

	pick := "optimized weights"
	if rec.UseBaseline {
		pick = "baseline weights"
	} else if rec.Seed != nil {
		pick = fmt.Sprintf("optimized weights from seed %d", *rec.Seed)
	}
	_, err := fmt.Fprintf(w, "\nRecommendation: %s (fitness %.4f, baseline %.4f, improvement %+.4f, margin %.2f)\n",
		pick, rec.Fitness, rec.BaselineFitness, rec.Improvement, rec.Margin)
	return err
}

// PrintTemplates writes one row per template.
func PrintTemplates(w io.Writer, configs []weights.Config) error {
	table := newTable(w)
	table.Header("ID", "VERSION", "KIND", "ARCHETYPE", "VENUE", "GROUPS", "METRICS")
	for _, c := range configs {
		table.Append(
			c.ID,
			strconv.Itoa(c.Version),
			string(c.Kind),
			c.Archetype.String(),
			c.Venue,
			strconv.Itoa(len(c.Groups)),
			strconv.Itoa(len(c.ExpectedMetrics())),
		)
	}
	return table.Render()
}

// PrintTemplate writes every group and metric weight of one template.
func PrintTemplate(w io.Writer, c weights.Config) error {
	fmt.Fprintf(w, "\n%s v%d (%s, %s)", c.ID, c.Version, c.Kind, c.Archetype)
	if c.Description != "" {
		fmt.Fprintf(w, ": %s", c.Description)
	}
	fmt.Fprint(w, "\n\n")

	table := newTable(w)
	table.Header("GROUP", "GROUP_WEIGHT", "METRIC", "WEIGHT")
	for _, g := range c.Groups {
		for i, m := range g.Metrics {
			name, gw := "", ""
			if i == 0 {
				name, gw = g.Name, fmt.Sprintf("%.2f", g.Weight)
			}
			table.Append(name, gw, m.Metric.String(), fmt.Sprintf("%.3f", m.Weight))
		}
	}
	return table.Render()
}

// PrintFeeds writes what the feed readers did with each file's columns.
func PrintFeeds(w io.Writer, reports ...feed.Report) error {
	table := newTable(w)
	table.Header("FEED", "ROWS", "METRICS", "ALIASED", "SKIPPED")
	for _, r := range reports {
		aliased := make([]string, 0, len(r.Aliased))
		for name := range r.Aliased {
			aliased = append(aliased, name)
		}
		sort.Strings(aliased)
		table.Append(
			r.Feed,
			strconv.Itoa(r.Rows),
			strconv.Itoa(r.Metrics),
			strings.Join(aliased, ", "),
			strings.Join(r.Unknown, ", "),
		)
	}
	return table.Render()
}
