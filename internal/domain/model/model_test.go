package model_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/okian/fairway/internal/domain/metric"
	"github.com/okian/fairway/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestParseFinish(t *testing.T) {
	convey.Convey("Given finish text from a results feed", t, func() {
		convey.Convey("When it is a plain or tied position", func() {
			cases := map[string]model.Finish{
				"1":    {Position: 1, Status: model.Finished},
				" 12 ": {Position: 12, Status: model.Finished},
				"T5":   {Position: 5, Tied: true, Status: model.Finished},
				"t33":  {Position: 33, Tied: true, Status: model.Finished},
				"=2":   {Position: 2, Tied: true, Status: model.Finished},
			}
			for in, want := range cases {
				got, err := model.ParseFinish(in)
				convey.So(err, convey.ShouldBeNil)
				convey.So(got, convey.ShouldResemble, want)
				convey.So(got.Finished(), convey.ShouldBeTrue)
			}
		})

		convey.Convey("When it is a non-finish status", func() {
			for in, want := range map[string]model.FinishStatus{
				"CUT": model.Cut, "mc": model.Cut, "WD": model.Withdrawn,
				"DQ": model.Disqualified, "DNS": model.DidNotStart, "MDF": model.MadeCutDidNotFinish,
			} {
				got, err := model.ParseFinish(in)
				convey.So(err, convey.ShouldBeNil)
				convey.So(got.Status, convey.ShouldEqual, want)
				convey.So(got.Finished(), convey.ShouldBeFalse)
				convey.So(got.Position, convey.ShouldEqual, 0)
			}
		})

		convey.Convey("When it is garbage", func() {
			for _, in := range []string{"", "0", "-3", "T", "first", "T-1"} {
				_, err := model.ParseFinish(in)
				convey.So(errors.Is(err, model.ErrInvalidFinish), convey.ShouldBeTrue)
			}
		})

		convey.Convey("When a finish is printed", func() {
			convey.So(model.Finish{Position: 5, Tied: true}.String(), convey.ShouldEqual, "T5")
			convey.So(model.Finish{Position: 7}.String(), convey.ShouldEqual, "7")
			convey.So(model.Finish{Status: model.Withdrawn}.String(), convey.ShouldEqual, "WD")
		})
	})
}

func TestResultJSON(t *testing.T) {
	convey.Convey("Given a results payload", t, func() {
		raw := []byte(`[{"competitor_id":1,"finish":"T3"},{"competitor_id":2,"finish":"CUT"}]`)

		var results []model.Result
		err := json.Unmarshal(raw, &results)

		convey.Convey("Then finishes are parsed while decoding", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(results, convey.ShouldHaveLength, 2)
			convey.So(results[0].Finish.Position, convey.ShouldEqual, 3)
			convey.So(results[1].Finish.Status, convey.ShouldEqual, model.Cut)
		})

		convey.Convey("Then garbage finishes fail decoding", func() {
			var bad []model.Result
			convey.So(json.Unmarshal([]byte(`[{"competitor_id":1,"finish":"??"}]`), &bad), convey.ShouldNotBeNil)
		})
	})
}

func TestBundle(t *testing.T) {
	convey.Convey("Given a bundle built from maps", t, func() {
		values := map[metric.ID]float64{metric.SGTotal: 1.25, metric.DrivingDistance: 301}
		samples := map[metric.Bucket]int{metric.Rounds: 4, metric.Fairway100to150: 18}
		b := model.NewBundle(9, "Player Nine", values, map[metric.ID]int{metric.SGTotal: 4, metric.DrivingDistance: 3}, samples)

		convey.Convey("Then later changes to the source maps do not leak in", func() {
			values[metric.SGPutting] = 2
			samples[metric.Rounds] = 99

			_, ok := b.Value(metric.SGPutting)
			convey.So(ok, convey.ShouldBeFalse)
			convey.So(b.Samples(metric.Rounds), convey.ShouldEqual, 4)
		})

		convey.Convey("Then absent metrics report no data rather than zero", func() {
			v, ok := b.Value(metric.SGTotal)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(v, convey.ShouldEqual, 1.25)

			v, ok = b.Value(metric.Scrambling)
			convey.So(ok, convey.ShouldBeFalse)
			convey.So(v, convey.ShouldEqual, 0)
		})

		convey.Convey("Then metrics are listed in ID order with their observations", func() {
			convey.So(b.Metrics(), convey.ShouldResemble, []metric.ID{metric.DrivingDistance, metric.SGTotal})
			convey.So(b.Observations(metric.SGTotal), convey.ShouldEqual, 4)
			convey.So(b.Samples(metric.Fairway100to150), convey.ShouldEqual, 18)
			convey.So(b.HasData(), convey.ShouldBeTrue)
		})

		convey.Convey("Then an empty bundle has no data", func() {
			empty := model.NewBundle(1, "", nil, nil, nil)
			convey.So(empty.HasData(), convey.ShouldBeFalse)
			convey.So(empty.Metrics(), convey.ShouldBeEmpty)
		})

		convey.Convey("Then it encodes with metric names", func() {
			raw, err := json.Marshal(b)
			convey.So(err, convey.ShouldBeNil)
			convey.So(string(raw), convey.ShouldContainSubstring, `"sg_total":1.25`)
			convey.So(string(raw), convey.ShouldContainSubstring, `"fw_100_150":18`)
		})
	})
}
