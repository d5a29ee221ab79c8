package aggregate_test

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/okian/fairway/internal/domain/aggregate"
	"github.com/okian/fairway/internal/domain/metric"
	"github.com/okian/fairway/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func round(id int64, event string, n int, stats map[metric.ID]float64) model.RoundRow {
	return model.RoundRow{CompetitorID: id, Name: "P", EventID: event, Round: n, Stats: stats}
}

func TestAggregate(t *testing.T) {
	ctx := context.Background()
	fw := metric.Approach(metric.Fairway100to150, metric.FieldGIR)

	Convey("Given per-round and approach rows", t, func() {
		rounds := []model.RoundRow{
			round(2, "e1", 1, map[metric.ID]float64{metric.SGTotal: 0.1, metric.DrivingDistance: 300}),
			round(2, "e1", 2, map[metric.ID]float64{metric.SGTotal: 0.2}),
			round(2, "e2", 1, map[metric.ID]float64{metric.SGTotal: 0.3, metric.DrivingDistance: 310}),
			round(1, "e1", 1, map[metric.ID]float64{metric.SGPutting: -0.5}),
		}
		approach := []model.ApproachRow{
			{CompetitorID: 2, Stats: map[metric.ID]float64{fw: 0.6}, Shots: map[metric.Bucket]int{metric.Fairway100to150: 12}},
			{CompetitorID: 2, Stats: map[metric.ID]float64{fw: 0.8}, Shots: map[metric.Bucket]int{metric.Fairway100to150: 10}},
			{CompetitorID: 3, Name: "Approach Only", Stats: map[metric.ID]float64{}},
		}

		res, err := aggregate.Aggregate(ctx, rounds, approach)
		So(err, ShouldBeNil)

		Convey("Then there is one bundle per competitor ordered by id", func() {
			So(res.Bundles, ShouldHaveLength, 3)
			So(res.Bundles[0].CompetitorID, ShouldEqual, 1)
			So(res.Bundles[1].CompetitorID, ShouldEqual, 2)
			So(res.Bundles[2].CompetitorID, ShouldEqual, 3)
		})

		Convey("Then each metric is the mean over the rows where it is present", func() {
			b := res.Bundles[1]
			v, ok := b.Value(metric.SGTotal)
			So(ok, ShouldBeTrue)
			So(v, ShouldAlmostEqual, 0.2, 1e-12)
			So(b.Observations(metric.SGTotal), ShouldEqual, 3)

			v, _ = b.Value(metric.DrivingDistance)
			So(v, ShouldEqual, 305)
			So(b.Observations(metric.DrivingDistance), ShouldEqual, 2)

			v, _ = b.Value(fw)
			So(v, ShouldAlmostEqual, 0.7, 1e-12)
		})

		Convey("Then sample counts are kept per bucket", func() {
			b := res.Bundles[1]
			So(b.Samples(metric.Rounds), ShouldEqual, 3)
			So(b.Samples(metric.Fairway100to150), ShouldEqual, 22)
			So(res.Bundles[0].Samples(metric.Rounds), ShouldEqual, 1)
		})

		Convey("Then metrics without rows are no data, not zero", func() {
			_, ok := res.Bundles[0].Value(metric.SGTotal)
			So(ok, ShouldBeFalse)
			So(res.Bundles[2].HasData(), ShouldBeFalse)
			So(res.Bundles[2].Name, ShouldEqual, "Approach Only")
			So(res.Diagnostics.EmptyBundles, ShouldEqual, 1)
		})

		Convey("Then shuffling the rows gives bit-identical bundles", func() {
			rng := rand.New(rand.NewSource(7))
			for i := 0; i < 10; i++ {
				r := append([]model.RoundRow(nil), rounds...)
				a := append([]model.ApproachRow(nil), approach...)
				rng.Shuffle(len(r), func(x, y int) { r[x], r[y] = r[y], r[x] })
				rng.Shuffle(len(a), func(x, y int) { a[x], a[y] = a[y], a[x] })

				again, err := aggregate.Aggregate(ctx, r, a)
				So(err, ShouldBeNil)
				So(again.Bundles, ShouldResemble, res.Bundles)
			}
		})
	})

	Convey("Given rows with unusable values", t, func() {
		rounds := []model.RoundRow{
			round(1, "e1", 1, map[metric.ID]float64{metric.SGTotal: math.NaN(), metric.SGPutting: math.Inf(1), metric.Unknown: 3, metric.Scrambling: 0.5}),
		}
		approach := []model.ApproachRow{
			{CompetitorID: 1, Shots: map[metric.Bucket]int{metric.Rounds: 4, metric.Fairway50to100: -1}},
		}

		res, err := aggregate.Aggregate(ctx, rounds, approach)

		Convey("Then they are dropped and counted", func() {
			So(err, ShouldBeNil)
			So(res.Diagnostics.NonFinite, ShouldEqual, 2)
			So(res.Diagnostics.InvalidKeys, ShouldEqual, 3)
			_, ok := res.Bundles[0].Value(metric.SGTotal)
			So(ok, ShouldBeFalse)
			So(res.Bundles[0].Metrics(), ShouldResemble, []metric.ID{metric.Scrambling})
			So(res.Bundles[0].Samples(metric.Rounds), ShouldEqual, 1)
		})
	})

	Convey("Given empty feeds", t, func() {
		res, err := aggregate.Aggregate(ctx, []model.RoundRow{}, nil)

		Convey("Then the result is empty but valid", func() {
			So(err, ShouldBeNil)
			So(res.Bundles, ShouldBeEmpty)
		})
	})

	Convey("Given no feeds at all", t, func() {
		_, err := aggregate.Aggregate(ctx, nil, nil)

		Convey("Then aggregation fails fast", func() {
			So(errors.Is(err, aggregate.ErrMissingInput), ShouldBeTrue)
		})
	})

	Convey("Given a repeated (competitor, event, round) row", t, func() {
		rounds := []model.RoundRow{
			round(1, "e1", 1, map[metric.ID]float64{metric.SGTotal: 1}),
			round(1, "e1", 1, map[metric.ID]float64{metric.SGTotal: 2}),
		}
		_, err := aggregate.Aggregate(ctx, rounds, nil)

		Convey("Then it is rejected", func() {
			So(errors.Is(err, aggregate.ErrDuplicateRow), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "competitor=1 event=e1 round=1")
		})
	})

	Convey("Given different display names for one competitor", t, func() {
		rounds := []model.RoundRow{
			{CompetitorID: 4, Name: "Smith, J", EventID: "e1", Round: 1},
			{CompetitorID: 4, Name: "", EventID: "e1", Round: 2},
			{CompetitorID: 4, Name: "J. Smith", EventID: "e1", Round: 3},
		}
		res, err := aggregate.Aggregate(ctx, rounds, nil)

		Convey("Then the smallest non-empty name wins", func() {
			So(err, ShouldBeNil)
			So(res.Bundles[0].Name, ShouldEqual, "J. Smith")
		})
	})
}
