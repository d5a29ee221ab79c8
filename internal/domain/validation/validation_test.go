package validation_test

import (
	"encoding/json"
	"errors"
	"math/rand"
	"testing"

	"github.com/okian/fairway/internal/domain/model"
	"github.com/okian/fairway/internal/domain/validation"
	. "github.com/smartystreets/goconvey/convey"
)

func ranking(ids ...int64) []model.RankingEntry {
	out := make([]model.RankingEntry, len(ids))
	for i, id := range ids {
		out[i] = model.RankingEntry{CompetitorID: id, Rank: i + 1}
	}
	return out
}

func finished(id int64, pos int) model.Result {
	return model.Result{CompetitorID: id, Finish: model.Finish{Position: pos, Status: model.Finished}}
}

func TestValidatePerfectAndInverse(t *testing.T) {
	Convey("Given predicted ranks [1,2,3] and finishes [1,2,3]", t, func() {
		rep, err := validation.Validate("e1", ranking(1, 2, 3), []model.Result{finished(1, 1), finished(2, 2), finished(3, 3)})
		So(err, ShouldBeNil)

		Convey("Then the ranking is a perfect prediction", func() {
			So(rep.Pearson.Defined, ShouldBeTrue)
			So(rep.Pearson.Value, ShouldAlmostEqual, 1, 1e-12)
			So(rep.Spearman.Value, ShouldAlmostEqual, 1, 1e-12)
			So(rep.RMSE.Value, ShouldEqual, 0)
			So(rep.MAE.Value, ShouldEqual, 0)

			top5, ok := rep.HitRate(5)
			So(ok, ShouldBeTrue)
			So(top5.Rate.Value, ShouldEqual, 1)
			So(top5.Considered, ShouldEqual, 3)
			So(rep.Strength, ShouldEqual, validation.Strong)
		})
	})

	Convey("Given predicted ranks [3,2,1] against finishes [1,2,3]", t, func() {
		rep, err := validation.Validate("e1", ranking(3, 2, 1), []model.Result{finished(1, 1), finished(2, 2), finished(3, 3)})
		So(err, ShouldBeNil)

		Convey("Then the correlation is -1", func() {
			So(rep.Pearson.Value, ShouldAlmostEqual, -1, 1e-12)
			So(rep.Spearman.Value, ShouldAlmostEqual, -1, 1e-12)
			So(rep.Strength, ShouldEqual, validation.Inverse)
			So(rep.MAE.Value, ShouldAlmostEqual, 4.0/3, 1e-12)
		})
	})
}

func TestValidateExclusions(t *testing.T) {
	Convey("Given a ranked competitor missing from results and non-finishers", t, func() {
		results := []model.Result{
			finished(1, 2),
			finished(2, 1),
			{CompetitorID: 3, Finish: model.Finish{Status: model.Cut}},
			finished(4, 3),
			{CompetitorID: 9, Finish: model.Finish{Status: model.Withdrawn}},
		}
		rep, err := validation.Validate("e1", ranking(1, 2, 3, 4, 5), results)
		So(err, ShouldBeNil)

		Convey("Then only numeric finishers are matched", func() {
			So(rep.Predicted, ShouldEqual, 5)
			So(rep.Results, ShouldEqual, 5)
			So(rep.Matched, ShouldEqual, 3)
			So(rep.Excluded, ShouldEqual, 2)
			So(rep.Unmatched, ShouldEqual, 2)
		})

		Convey("Then top-N only considers matched competitors", func() {
			top5, _ := rep.HitRate(5)
			So(top5.Considered, ShouldEqual, 3)
			So(top5.Hits, ShouldEqual, 3)
		})
	})
}

func TestValidateUndefined(t *testing.T) {
	Convey("Given a single matched competitor", t, func() {
		rep, err := validation.Validate("e1", ranking(1, 2), []model.Result{finished(1, 4)})
		So(err, ShouldBeNil)

		Convey("Then correlations are undefined rather than zero", func() {
			So(rep.Pearson.Defined, ShouldBeFalse)
			So(rep.Spearman.Defined, ShouldBeFalse)
			So(rep.RMSE.Defined, ShouldBeTrue)
			So(rep.RMSE.Value, ShouldEqual, 3)
			So(rep.Strength, ShouldEqual, validation.InsufficientData)
			So(rep.Summary, ShouldStartWith, "Insufficient data")
		})

		Convey("Then undefined stats encode as null", func() {
			raw, err := json.Marshal(rep)
			So(err, ShouldBeNil)
			So(string(raw), ShouldContainSubstring, `"pearson":null`)
			So(string(raw), ShouldContainSubstring, `"rmse":3`)

			var back validation.Report
			So(json.Unmarshal(raw, &back), ShouldBeNil)
			So(back.Pearson.Defined, ShouldBeFalse)
			So(back.RMSE, ShouldResemble, rep.RMSE)
		})
	})

	Convey("Given no matches at all", t, func() {
		rep, err := validation.Validate("e1", ranking(1), []model.Result{})
		So(err, ShouldBeNil)
		So(rep.Matched, ShouldEqual, 0)
		So(rep.RMSE.Defined, ShouldBeFalse)
		So(rep.MAE.Defined, ShouldBeFalse)
		top10, _ := rep.HitRate(10)
		So(top10.Rate.Defined, ShouldBeFalse)
	})

	Convey("Given all finishers tied on one position", t, func() {
		results := []model.Result{finished(1, 5), finished(2, 5), finished(3, 5)}
		rep, err := validation.Validate("e1", ranking(1, 2, 3), results)
		So(err, ShouldBeNil)

		Convey("Then zero variance makes the correlation undefined", func() {
			So(rep.Pearson.Defined, ShouldBeFalse)
			So(rep.Spearman.Defined, ShouldBeFalse)
		})
	})
}

func TestValidateProperties(t *testing.T) {
	Convey("Given random rankings and finishes", t, func() {
		rng := rand.New(rand.NewSource(11))

		Convey("Then correlations stay within [-1, 1]", func() {
			for trial := 0; trial < 50; trial++ {
				n := 2 + rng.Intn(60)
				ids := make([]int64, n)
				results := make([]model.Result, n)
				for i := range ids {
					ids[i] = int64(i + 1)
					results[i] = finished(int64(i+1), 1+rng.Intn(n))
				}
				rng.Shuffle(n, func(a, b int) { ids[a], ids[b] = ids[b], ids[a] })

				rep, err := validation.Validate("e", ranking(ids...), results)
				So(err, ShouldBeNil)
				for _, s := range []validation.Stat{rep.Pearson, rep.Spearman} {
					if s.Defined {
						So(s.Value, ShouldBeBetweenOrEqual, -1, 1)
					}
				}
			}
		})
	})

	Convey("Given tied finishes", t, func() {
		results := []model.Result{finished(1, 1), finished(2, 2), finished(3, 2), finished(4, 4)}
		rep, err := validation.Validate("e", ranking(1, 2, 3, 4), results)
		So(err, ShouldBeNil)

		Convey("Then Spearman averages tied ranks", func() {
			// ranks of finishes: 1, 2.5, 2.5, 4
			So(rep.Spearman.Value, ShouldAlmostEqual, 0.9486832980505138, 1e-9)
		})
	})
}

func TestValidateErrors(t *testing.T) {
	Convey("Given bad inputs", t, func() {
		_, err := validation.Validate("e", nil, []model.Result{finished(1, 1)})
		So(errors.Is(err, validation.ErrMissingInput), ShouldBeTrue)

		_, err = validation.Validate("e", ranking(1), nil)
		So(errors.Is(err, validation.ErrMissingInput), ShouldBeTrue)

		_, err = validation.Validate("e", ranking(1), []model.Result{finished(1, 1), finished(1, 2)})
		So(errors.Is(err, validation.ErrDuplicateCompetitor), ShouldBeTrue)

		_, err = validation.Validate("e", ranking(1, 1), []model.Result{finished(1, 1)})
		So(errors.Is(err, validation.ErrDuplicateCompetitor), ShouldBeTrue)

		_, err = validation.Validate("e", ranking(1), []model.Result{}, validation.WithTopN(0))
		So(errors.Is(err, validation.ErrInvalidInput), ShouldBeTrue)
	})

	Convey("Given custom cut-offs", t, func() {
		rep, err := validation.Validate("e", ranking(1, 2, 3), []model.Result{finished(1, 3), finished(2, 1), finished(3, 2)}, validation.WithTopN(1, 2))
		So(err, ShouldBeNil)
		So(rep.HitRates, ShouldHaveLength, 2)
		top1, _ := rep.HitRate(1)
		So(top1.Hits, ShouldEqual, 0)
		top2, _ := rep.HitRate(2)
		So(top2.Hits, ShouldEqual, 1)
		So(top2.Rate.Value, ShouldEqual, 0.5)
	})
}

func TestValidatePredictedRanks(t *testing.T) {
	Convey("Given a ranking that carries scores but no ranks", t, func() {
		const n = 30
		entries := make([]model.RankingEntry, n)
		results := make([]model.Result, n)
		for i := range entries {
			id := int64(i + 1)
			entries[i] = model.RankingEntry{CompetitorID: id, Score: float64(n - i)}
			results[i] = finished(id, i+1)
		}
		// input order must not matter
		entries[0], entries[n-1] = entries[n-1], entries[0]

		rep, err := validation.Validate("e", entries, results)
		So(err, ShouldBeNil)

		Convey("Then ranks are derived from the scores", func() {
			So(rep.Spearman.Value, ShouldAlmostEqual, 1, 1e-12)
			So(rep.Pearson.Value, ShouldAlmostEqual, 1, 1e-12)
			top5, _ := rep.HitRate(5)
			So(top5.Considered, ShouldEqual, 5)
			So(top5.Hits, ShouldEqual, 5)
			So(top5.Rate.Value, ShouldEqual, 1)
		})
	})

	Convey("Given ranks that are not positive or not unique", t, func() {
		results := []model.Result{finished(1, 1), finished(2, 2)}

		_, err := validation.Validate("e", []model.RankingEntry{{CompetitorID: 1, Rank: 1}, {CompetitorID: 2, Rank: 0}}, results)
		So(errors.Is(err, validation.ErrInvalidInput), ShouldBeTrue)

		_, err = validation.Validate("e", []model.RankingEntry{{CompetitorID: 1, Rank: -3}, {CompetitorID: 2, Rank: 1}}, results)
		So(errors.Is(err, validation.ErrInvalidInput), ShouldBeTrue)

		_, err = validation.Validate("e", []model.RankingEntry{{CompetitorID: 1, Rank: 1}, {CompetitorID: 2, Rank: 1}}, results)
		So(errors.Is(err, validation.ErrInvalidInput), ShouldBeTrue)
	})
}
