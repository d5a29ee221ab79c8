package dedupe_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/okian/fairway/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		Convey("When creating a deduper with default options", func() {
			d := dedupe.NewInMemoryDeduper[string]()

			Convey("Then it should start empty", func() {
				So(d, ShouldNotBeNil)
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When recording keys", func() {
			d := dedupe.NewInMemoryDeduper[string]()

			Convey("And the key is new", func() {
				seen := d.SeenAndRecord("req-1")

				Convey("Then it should return false and record the key", func() {
					So(seen, ShouldBeFalse)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the key was already seen", func() {
				d.SeenAndRecord("req-1")
				seen := d.SeenAndRecord("req-1")

				Convey("Then it should return true", func() {
					So(seen, ShouldBeTrue)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the key is unrecorded", func() {
				d.SeenAndRecord("req-1")
				d.Unrecord("req-1")

				Convey("Then it can be recorded again", func() {
					So(d.Size(), ShouldEqual, 0)
					So(d.SeenAndRecord("req-1"), ShouldBeFalse)
				})
			})

			Convey("And an unknown key is unrecorded", func() {
				d.Unrecord("missing")

				Convey("Then nothing changes", func() {
					So(d.Size(), ShouldEqual, 0)
				})
			})
		})

		Convey("When tracking round row keys", func() {
			d := dedupe.NewInMemoryDeduper[dedupe.RowKey](dedupe.WithMaxSize(0))
			k := dedupe.RowKey{CompetitorID: 7, EventID: "open-2024", Round: 2}

			Convey("Then composite keys compare by value", func() {
				So(d.SeenAndRecord(k), ShouldBeFalse)
				So(d.SeenAndRecord(dedupe.RowKey{CompetitorID: 7, EventID: "open-2024", Round: 2}), ShouldBeTrue)
				So(d.SeenAndRecord(dedupe.RowKey{CompetitorID: 7, EventID: "open-2024", Round: 3}), ShouldBeFalse)
				So(k.String(), ShouldEqual, "competitor=7 event=open-2024 round=2")
			})
		})

		Convey("When the deduper is bounded", func() {
			d := dedupe.NewInMemoryDeduper[string](dedupe.WithMaxSize(2))
			d.SeenAndRecord("a")
			d.SeenAndRecord("b")
			d.SeenAndRecord("c")

			Convey("Then the oldest key is evicted", func() {
				So(d.Size(), ShouldEqual, 2)
				So(d.SeenAndRecord("b"), ShouldBeTrue)
				So(d.SeenAndRecord("c"), ShouldBeTrue)
				So(d.SeenAndRecord("a"), ShouldBeFalse)
			})
		})

		Convey("When a bounded key is unrecorded", func() {
			d := dedupe.NewInMemoryDeduper[string](dedupe.WithMaxSize(2))
			d.SeenAndRecord("a")
			d.SeenAndRecord("b")
			d.Unrecord("a")
			d.SeenAndRecord("c")

			Convey("Then the freed slot is reused", func() {
				So(d.Size(), ShouldEqual, 2)
				So(d.SeenAndRecord("b"), ShouldBeTrue)
				So(d.SeenAndRecord("c"), ShouldBeTrue)
			})
		})

		Convey("When used concurrently", func() {
			d := dedupe.NewInMemoryDeduper[string](dedupe.WithMaxSize(0))
			var wg sync.WaitGroup
			var mu sync.Mutex
			fresh := 0
			for g := 0; g < 8; g++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < 100; i++ {
						if !d.SeenAndRecord(fmt.Sprintf("k-%d", i)) {
							mu.Lock()
							fresh++
							mu.Unlock()
						}
					}
				}()
			}
			wg.Wait()

			Convey("Then each key is recorded exactly once", func() {
				So(fresh, ShouldEqual, 100)
				So(d.Size(), ShouldEqual, 100)
			})
		})
	})
}
