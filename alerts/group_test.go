// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package alerts

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"go.chromium.org/luci/common/data/stringset"
)

func keys(groups [][]*Alert) [][]string {
	out := make([][]string, len(groups))
	for i, g := range groups {
		for _, a := range g {
			out[i] = append(out[i], a.Key)
		}
	}
	return out
}

func TestShouldMerge(t *testing.T) {
	t.Parallel()

	Convey("ShouldMerge", t, func() {
		a := &Alert{Key: "a", Suite: "x", Measurement: "m", StartRevision: 0, EndRevision: 10}
		b := &Alert{Key: "b", Suite: "x", Measurement: "n", StartRevision: 5, EndRevision: 15}

		Convey("overlapping ranges in the same suite merge", func() {
			So(ShouldMerge(a, b, false), ShouldBeTrue)
			So(ShouldMerge(b, a, false), ShouldBeTrue)
		})

		Convey("touching ranges intersect", func() {
			b.StartRevision = 10
			So(ShouldMerge(a, b, false), ShouldBeTrue)
		})

		Convey("disjoint ranges never merge", func() {
			b.StartRevision, b.EndRevision = 11, 15
			So(ShouldMerge(a, b, false), ShouldBeFalse)
		})

		Convey("different suites without related names do not merge", func() {
			b.Suite = "y"
			So(ShouldMerge(a, b, false), ShouldBeFalse)
		})

		Convey("related names replace the suite check", func() {
			b.Suite = "y"
			a.RelatedNames = stringset.NewFromSlice("n")
			So(ShouldMerge(a, b, false), ShouldBeTrue)
			So(ShouldMerge(b, a, false), ShouldBeTrue)

			Convey("but unrelated measurements do not merge", func() {
				a.RelatedNames = stringset.NewFromSlice("o")
				So(ShouldMerge(a, b, false), ShouldBeFalse)
			})

			Convey("equal measurements are always related", func() {
				a.RelatedNames = stringset.New(0)
				b.Measurement = "m"
				So(ShouldMerge(a, b, false), ShouldBeTrue)
			})
		})

		Convey("with groupBugs", func() {
			Convey("equal bugs short-circuit the range check", func() {
				a.BugID, b.BugID = 5, 5
				b.StartRevision, b.EndRevision = 100, 200
				b.Suite = "y"
				So(ShouldMerge(a, b, true), ShouldBeTrue)
			})

			Convey("different bugs never merge", func() {
				a.BugID, b.BugID = 5, 6
				So(ShouldMerge(a, b, true), ShouldBeFalse)
			})

			Convey("triaged and untriaged do not merge", func() {
				a.BugID = 5
				So(ShouldMerge(a, b, true), ShouldBeFalse)
				So(ShouldMerge(a, b, false), ShouldBeTrue)
			})

			Convey("untriaged alerts fall through to the range check", func() {
				So(ShouldMerge(a, b, true), ShouldBeTrue)
			})
		})
	})
}

func TestGroup(t *testing.T) {
	t.Parallel()

	Convey("Group", t, func() {
		Convey("empty input", func() {
			So(Group(nil, false), ShouldBeEmpty)
		})

		Convey("single alert", func() {
			a := &Alert{Key: "a"}
			So(keys(Group([]*Alert{a}, false)), ShouldResemble, [][]string{{"a"}})
		})

		Convey("overlapping alerts group, disjoint ones split", func() {
			alerts := []*Alert{
				{Key: "A", Suite: "X", StartRevision: 0, EndRevision: 10},
				{Key: "B", Suite: "X", StartRevision: 5, EndRevision: 15},
				{Key: "C", Suite: "X", StartRevision: 20, EndRevision: 30},
			}
			So(keys(Group(alerts, false)), ShouldResemble, [][]string{{"A", "B"}, {"C"}})
		})

		Convey("same bug groups despite disjoint ranges", func() {
			alerts := []*Alert{
				{Key: "A", Suite: "X", StartRevision: 0, EndRevision: 10, BugID: 5},
				{Key: "B", Suite: "X", StartRevision: 50, EndRevision: 60, BugID: 5},
			}
			So(keys(Group(alerts, true)), ShouldResemble, [][]string{{"A", "B"}})
			So(keys(Group(alerts, false)), ShouldResemble, [][]string{{"A"}, {"B"}})
		})

		Convey("membership requires every pair to merge", func() {
			// B overlaps A and C, but A and C are disjoint.
			alerts := []*Alert{
				{Key: "A", Suite: "X", StartRevision: 0, EndRevision: 10},
				{Key: "B", Suite: "X", StartRevision: 8, EndRevision: 22},
				{Key: "C", Suite: "X", StartRevision: 20, EndRevision: 30},
			}
			So(keys(Group(alerts, false)), ShouldResemble, [][]string{{"A", "B"}, {"C"}})

			Convey("and input order changes the outcome", func() {
				reordered := []*Alert{alerts[1], alerts[0], alerts[2]}
				So(keys(Group(reordered, false)), ShouldResemble, [][]string{{"B", "A"}, {"C"}})
				reordered = []*Alert{alerts[0], alerts[2], alerts[1]}
				So(keys(Group(reordered, false)), ShouldResemble, [][]string{{"A", "B"}, {"C"}})
				reordered = []*Alert{alerts[2], alerts[1], alerts[0]}
				So(keys(Group(reordered, false)), ShouldResemble, [][]string{{"C", "B"}, {"A"}})
			})
		})

		Convey("an alert joins the first compatible group", func() {
			alerts := []*Alert{
				{Key: "A", Suite: "X", StartRevision: 0, EndRevision: 10},
				{Key: "B", Suite: "Y", StartRevision: 0, EndRevision: 10},
				{Key: "C", Suite: "Y", StartRevision: 5, EndRevision: 7},
			}
			So(keys(Group(alerts, false)), ShouldResemble, [][]string{{"A"}, {"B", "C"}})
		})
	})
}
