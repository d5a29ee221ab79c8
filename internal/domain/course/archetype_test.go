package course_test

import (
	"errors"
	"testing"

	"github.com/okian/fairway/internal/domain/course"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParseArchetype(t *testing.T) {
	Convey("Given archetype names", t, func() {
		cases := map[string]course.Archetype{
			"balanced":             course.Balanced,
			"Distance_Dominant":    course.DistanceDominant,
			"distance":             course.DistanceDominant,
			"precision-dominant":   course.PrecisionDominant,
			"short game":           course.ShortGameDominant,
			" short_game_dominant": course.ShortGameDominant,
		}
		for in, want := range cases {
			got, err := course.ParseArchetype(in)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, want)
		}

		Convey("Then unknown names are rejected", func() {
			_, err := course.ParseArchetype("links")
			So(errors.Is(err, course.ErrUnknownArchetype), ShouldBeTrue)
		})

		Convey("Then every archetype round-trips through text", func() {
			for _, a := range course.Archetypes() {
				raw, err := a.MarshalText()
				So(err, ShouldBeNil)
				var back course.Archetype
				So(back.UnmarshalText(raw), ShouldBeNil)
				So(back, ShouldEqual, a)
			}
			_, err := course.Archetype(42).MarshalText()
			So(err, ShouldNotBeNil)
		})
	})
}
