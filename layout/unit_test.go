// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package layout

import (
	"encoding/json"
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	. "go.chromium.org/luci/common/testing/assertions"
)

func TestUnit(t *testing.T) {
	t.Parallel()

	Convey("ParseUnit", t, func() {
		u, err := ParseUnit("ms_smallerIsBetter")
		So(err, ShouldBeNil)
		So(u, ShouldResemble, Unit{Name: "ms", Direction: SmallerIsBetter})
		So(u.String(), ShouldEqual, "ms_smallerIsBetter")
		So(u.BaseName(), ShouldEqual, "ms")

		u, err = ParseUnit("sizeInBytesDelta_biggerIsBetter")
		So(err, ShouldBeNil)
		So(u, ShouldResemble, Unit{Name: "sizeInBytes", Direction: BiggerIsBetter, IsDelta: true})
		So(u.BaseName(), ShouldEqual, "sizeInBytesDelta")
		So(u.String(), ShouldEqual, "sizeInBytesDelta_biggerIsBetter")

		u, err = ParseUnit("count")
		So(err, ShouldBeNil)
		So(u.Direction, ShouldEqual, DontCare)
		So(u.Delta().String(), ShouldEqual, "countDelta")

		_, err = ParseUnit("furlongs_biggerIsBetter")
		So(err, ShouldErrLike, "unknown unit")
		_, err = ParseUnit("")
		So(err, ShouldErrLike, "unknown unit")
	})

	Convey("Unit JSON", t, func() {
		var l Line
		So(json.Unmarshal([]byte(`{"unit": "W_smallerIsBetter"}`), &l), ShouldBeNil)
		So(l.Unit, ShouldResemble, Unit{Name: "W", Direction: SmallerIsBetter})
		out, err := json.Marshal(l.Unit)
		So(err, ShouldBeNil)
		So(string(out), ShouldEqual, `"W_smallerIsBetter"`)
	})

	Convey("Format", t, func() {
		cases := []struct {
			unit string
			v    float64
			want string
		}{
			{"ms", 10, "10 ms"},
			{"ms", 1234.5, "1,234.5 ms"},
			{"msDelta", 5, "+5 ms"},
			{"msDelta", -5, "-5 ms"},
			{"msBestFitFormat", 1500, "1.5 s"},
			{"n%", 0.5, "50%"},
			{"sizeInBytes", 1024, "1.0 KiB"},
			{"sizeInBytes", 5, "5 B"},
			{"W", 1500, "1.5 kW"},
			{"count", 2.5e6, "2.5 M"},
			{"count", 42, "42"},
			{"unitlessNumber", 3, "3"},
		}
		for _, tc := range cases {
			u, err := ParseUnit(tc.unit)
			So(err, ShouldBeNil)
			So(u.Format(tc.v), ShouldEqual, tc.want)
		}
		So(Unitless.Format(math.NaN()), ShouldEqual, "NaN")
	})
}

func TestRange(t *testing.T) {
	t.Parallel()

	Convey("Range", t, func() {
		var r Range
		So(r.Empty(), ShouldBeTrue)
		So(r.Span(), ShouldEqual, 0)
		So(math.IsNaN(r.Normalize(1)), ShouldBeTrue)

		r.AddValue(math.NaN())
		So(r.Empty(), ShouldBeTrue)
		r.AddValue(4)
		r.AddValue(-2)
		r.AddValue(math.Inf(1))
		So(r.Min(), ShouldEqual, -2)
		So(r.Max(), ShouldEqual, 4)
		So(r.Center(), ShouldEqual, 1)
		So(r.Normalize(1), ShouldEqual, 0.5)

		r.AddRange(Range{})
		So(r.Span(), ShouldEqual, 6)
		r.AddRange(ExplicitRange(10, 12))
		So(r.Max(), ShouldEqual, 12)

		e := ExplicitRange(0, 10).Extend(0.1)
		So(e.Min(), ShouldEqual, -1)
		So(e.Max(), ShouldEqual, 11)
		u := unextend(e, 0.1)
		So(u.Min(), ShouldAlmostEqual, 0)
		So(u.Max(), ShouldAlmostEqual, 10)

		Convey("JSON", func() {
			out, err := json.Marshal([]Range{{}, ExplicitRange(1, 2.5)})
			So(err, ShouldBeNil)
			So(string(out), ShouldEqual, `[null,{"min":1,"max":2.5}]`)

			var back []Range
			So(json.Unmarshal(out, &back), ShouldBeNil)
			So(back[0].Empty(), ShouldBeTrue)
			So(back[1], ShouldResemble, ExplicitRange(1, 2.5))
		})
	})
}
