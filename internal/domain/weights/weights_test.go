package weights_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/fairway/internal/domain/course"
	"github.com/okian/fairway/internal/domain/metric"
	"github.com/okian/fairway/internal/domain/weights"
	. "github.com/smartystreets/goconvey/convey"
)

func sample() weights.Config {
	return weights.Config{
		ID:        "test",
		Version:   2,
		Kind:      weights.KindArchetype,
		Archetype: course.Balanced,
		Groups: []weights.Group{
			{Name: "driving", Weight: 0.4, Metrics: []weights.MetricWeight{
				{Metric: metric.DrivingDistance, Weight: 0.6},
				{Metric: metric.DrivingAccuracy, Weight: 0.4},
				{Metric: metric.SGOffTee, Weight: 0},
			}},
			{Name: "putting", Weight: 0.3, Metrics: []weights.MetricWeight{
				{Metric: metric.SGPutting, Weight: 0.995},
			}},
			{Name: "shared", Weight: 0, Metrics: []weights.MetricWeight{
				{Metric: metric.Scrambling, Weight: 1},
			}},
		},
	}
}

func TestValidate(t *testing.T) {
	Convey("Given a well formed config", t, func() {
		c := sample()
		So(weights.Validate(c), ShouldBeNil)
		So(c.Key(), ShouldEqual, "test@2")

		Convey("Then expected metrics skip zero weights and zero-weight groups", func() {
			So(c.ExpectedMetrics(), ShouldResemble, []metric.ID{metric.DrivingDistance, metric.DrivingAccuracy, metric.SGPutting})
		})

		Convey("Then group weights need not sum to 1", func() {
			So(c.TotalGroupWeight(), ShouldAlmostEqual, 0.7, 1e-12)
		})
	})

	Convey("Given broken configs", t, func() {
		cases := []struct {
			name   string
			mutate func(c *weights.Config)
			want   error
		}{
			{"no id", func(c *weights.Config) { c.ID = " " }, weights.ErrMissingID},
			{"no groups", func(c *weights.Config) { c.Groups = nil }, weights.ErrNoGroups},
			{"group weight too high", func(c *weights.Config) { c.Groups[0].Weight = 1.5 }, weights.ErrWeightOutOfRange},
			{"negative metric weight", func(c *weights.Config) { c.Groups[0].Metrics[2].Weight = -0.1 }, weights.ErrWeightOutOfRange},
			{"NaN weight", func(c *weights.Config) { c.Groups[1].Weight = math.NaN() }, weights.ErrWeightOutOfRange},
			{"all placeholders", func(c *weights.Config) {
				c.Groups[1].Metrics = []weights.MetricWeight{{Metric: metric.SGPutting, Weight: 0}}
			}, weights.ErrEmptyGroup},
			{"no metrics", func(c *weights.Config) { c.Groups[1].Metrics = nil }, weights.ErrEmptyGroup},
			{"bad sum", func(c *weights.Config) { c.Groups[0].Metrics[0].Weight = 0.3 }, weights.ErrGroupWeightSum},
			{"duplicate metric", func(c *weights.Config) {
				c.Groups[1].Metrics = append(c.Groups[1].Metrics, weights.MetricWeight{Metric: metric.SGPutting, Weight: 0})
			}, weights.ErrDuplicateMetric},
			{"unknown metric", func(c *weights.Config) { c.Groups[1].Metrics[0].Metric = metric.Unknown }, weights.ErrUnknownMetric},
			{"unnamed group", func(c *weights.Config) { c.Groups[2].Name = "" }, weights.ErrInvalidConfig},
			{"repeated group", func(c *weights.Config) { c.Groups[2].Name = "driving" }, weights.ErrInvalidConfig},
		}

		for _, tc := range cases {
			c := sample()
			tc.mutate(&c)
			err := weights.Validate(c)
			Convey("Then "+tc.name+" is rejected", func() {
				So(errors.Is(err, tc.want), ShouldBeTrue)
			})
		}

		Convey("Then the error names the offending group and metric", func() {
			c := sample()
			c.Groups[0].Metrics[1].Weight = 2
			So(weights.Validate(c).Error(), ShouldContainSubstring, `test@2 group "driving" metric driving_accuracy weight 2`)
		})
	})
}

func TestNormalize(t *testing.T) {
	Convey("Given a config with placeholders and a small sum drift", t, func() {
		c := sample()
		n, err := weights.Normalize(c)
		So(err, ShouldBeNil)

		Convey("Then placeholders are dropped and groups sum to exactly 1", func() {
			So(n.Groups[0].Metrics, ShouldHaveLength, 2)
			So(n.Groups[1].Metrics[0].Weight, ShouldEqual, 1)
			for _, g := range n.Groups {
				sum := 0.0
				for _, m := range g.Metrics {
					sum += m.Weight
				}
				So(sum, ShouldAlmostEqual, 1, 1e-12)
			}
		})

		Convey("Then the input is left untouched", func() {
			So(c.Groups[0].Metrics, ShouldHaveLength, 3)
			So(c.Groups[1].Metrics[0].Weight, ShouldEqual, 0.995)
		})
	})

	Convey("Given an invalid config", t, func() {
		c := sample()
		c.Groups = nil
		_, err := weights.Normalize(c)
		So(errors.Is(err, weights.ErrNoGroups), ShouldBeTrue)
	})
}

func TestClone(t *testing.T) {
	Convey("Given a cloned config", t, func() {
		c := sample()
		cp := c.Clone()
		cp.Groups[0].Weight = 0.9
		cp.Groups[0].Metrics[0].Weight = 0.1

		Convey("Then the original does not change", func() {
			So(c.Groups[0].Weight, ShouldEqual, 0.4)
			So(c.Groups[0].Metrics[0].Weight, ShouldEqual, 0.6)
		})
	})
}
