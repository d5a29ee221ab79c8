package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/okian/fairway/internal/adapters/feed"
	"github.com/okian/fairway/internal/domain/metric"
	"github.com/okian/fairway/internal/domain/model"
	"github.com/okian/fairway/internal/domain/optimizer"
	"github.com/okian/fairway/internal/domain/validation"
	"github.com/okian/fairway/internal/domain/weights"
)

func contains(t *testing.T, out string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}
}

func TestPrintRanking(t *testing.T) {
	entries := []model.RankingEntry{
		{CompetitorID: 1, Name: "Ann", Score: 1.25, Rank: 1, Coverage: 1},
		{CompetitorID: 2, Name: "Bea", Score: -0.5, Rank: 2, Coverage: 0.5},
		{CompetitorID: 3, Name: "Cat", Score: -1, Rank: 3, Coverage: 0.25},
	}
	var buf bytes.Buffer
	if err := PrintRanking(&buf, entries, 2); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	contains(t, out, "RANK", "Ann", "1.250", "Bea", "50%")
	if strings.Contains(out, "Cat") {
		t.Errorf("limit 2 should hide the third entry:\n%s", out)
	}
}

func TestPrintValidationUndefined(t *testing.T) {
	rep, err := validation.Validate("e1",
		[]model.RankingEntry{{CompetitorID: 1, Rank: 1}},
		[]model.Result{{CompetitorID: 1, Finish: model.Finish{Position: 3, Status: model.Finished}}})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := PrintValidation(&buf, rep); err != nil {
		t.Fatal(err)
	}
	contains(t, buf.String(), "Event: e1", "SPEARMAN", undefined, rep.Summary)
}

func TestPrintRecommendation(t *testing.T) {
	seed := int64(4)
	rec := optimizer.Recommendation{
		Seed:    &seed,
		Fitness: 0.61,
		Margin:  0.01,
		Runs:    []optimizer.RunResult{{Seed: 4, Fitness: 0.61, Iterations: 50}, {Seed: 2, Fitness: 0.55, Interrupted: true}},
	}
	var buf bytes.Buffer
	if err := PrintRecommendation(&buf, rec); err != nil {
		t.Fatal(err)
	}
	contains(t, buf.String(), "seed 4", "interrupted", "0.6100")

	buf.Reset()
	rec.UseBaseline, rec.Seed = true, nil
	if err := PrintRecommendation(&buf, rec); err != nil {
		t.Fatal(err)
	}
	contains(t, buf.String(), "baseline weights")
}

func TestPrintTemplates(t *testing.T) {
	c := weights.Config{
		ID:      "balanced",
		Version: 3,
		Kind:    weights.KindArchetype,
		Groups: []weights.Group{{
			Name:   "putting",
			Weight: 0.1,
			Metrics: []weights.MetricWeight{
				{Metric: metric.SGPutting, Weight: 0.7},
				{Metric: metric.PuttsPerRound, Weight: 0.3},
			},
		}},
	}
	var buf bytes.Buffer
	if err := PrintTemplates(&buf, []weights.Config{c}); err != nil {
		t.Fatal(err)
	}
	contains(t, buf.String(), "balanced", "archetype")

	buf.Reset()
	if err := PrintTemplate(&buf, c); err != nil {
		t.Fatal(err)
	}
	contains(t, buf.String(), "balanced v3", "putting", "sg_putt", "0.700", "putts_per_round")
}

func TestPrintFeeds(t *testing.T) {
	var buf bytes.Buffer
	err := PrintFeeds(&buf, feed.Report{Feed: "rounds", Rows: 12, Metrics: 3, Unknown: []string{"fantasy_pts"}, Aliased: map[string]string{"SG: Putting": "alias"}})
	if err != nil {
		t.Fatal(err)
	}
	contains(t, buf.String(), "rounds", "12", "fantasy_pts", "SG: Putting")
}
