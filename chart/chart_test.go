// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package chart

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	. "github.com/smartystreets/goconvey/convey"
	"go.chromium.org/luci/common/errors"
	. "go.chromium.org/luci/common/testing/assertions"
	"google.golang.org/api/iterator"

	"github.com/potato17/catapult/alerts"
	"github.com/potato17/catapult/layout"
	"github.com/potato17/catapult/timeseries"
)

func ts(revisions ...int64) []timeseries.RawSample {
	out := make([]timeseries.RawSample, len(revisions))
	for i, r := range revisions {
		out[i] = timeseries.RawSample{Revision: r, Avg: float64(r), Std: 1, Count: 1}
	}
	return out
}

func rev(r int64) *int64 { return &r }

func testDescriptor() *Descriptor {
	return &Descriptor{
		Suites:      []string{"speedometer"},
		Bots:        []string{"linux", "mac"},
		Measurement: "score",
		Statistic:   "avg",
		BuildType:   "test",
	}
}

func result(d *Descriptor, bot string, samples []timeseries.RawSample) Result {
	return Result{
		Descriptor: d,
		Fetch: FetchDescriptor{
			Suite:       d.Suites[0],
			Bot:         bot,
			Measurement: d.Measurement,
			Statistic:   d.Statistic,
			BuildType:   d.BuildType,
		},
		Unit:       "ms_smallerIsBetter",
		Timeseries: samples,
	}
}

func xs(l *layout.Line) []float64 {
	out := make([]float64, len(l.Data))
	for i, p := range l.Data {
		out[i] = p.X
	}
	return out
}

func ys(l *layout.Line) []float64 {
	out := make([]float64, len(l.Data))
	for i, p := range l.Data {
		out[i] = p.Y
	}
	return out
}

type fakeSource struct {
	batches []*Batch
}

func (s *fakeSource) Next(ctx context.Context) (*Batch, error) {
	if len(s.batches) == 0 {
		return nil, iterator.Done
	}
	b := s.batches[0]
	s.batches = s.batches[1:]
	return b, nil
}

func TestChart(t *testing.T) {
	t.Parallel()

	Convey("Chart", t, func() {
		ctx := context.Background()
		d := testDescriptor()
		batch := &Batch{Results: []Result{
			result(d, "linux", ts(1, 2, 3)),
			result(d, "mac", ts(2, 4)),
		}}

		Convey("merges the timeseries of a line", func() {
			c := New([]*Descriptor{d}, Options{})
			res, err := c.Apply(ctx, batch)
			So(err, ShouldBeNil)
			So(res.Lines, ShouldHaveLength, 1)
			l := res.Lines[0]
			So(xs(l), ShouldResemble, []float64{1, 2, 3, 4})
			So(l.Data[1].Datum.Count, ShouldEqual, 2)
			So(l.Unit, ShouldResemble, layout.Unit{Name: "ms", Direction: layout.SmallerIsBetter})
			So(l.Path, ShouldNotBeEmpty)
			So(c.Err(), ShouldBeNil)
		})

		Convey("is idempotent", func() {
			once := New([]*Descriptor{d}, Options{})
			want, err := once.Apply(ctx, batch)
			So(err, ShouldBeNil)

			twice := New([]*Descriptor{d}, Options{})
			_, err = twice.Apply(ctx, batch)
			So(err, ShouldBeNil)
			got, err := twice.Apply(ctx, batch)
			So(err, ShouldBeNil)

			So(cmp.Diff(want, got, cmp.AllowUnexported(layout.Range{})), ShouldBeEmpty)
		})

		Convey("later results replace earlier ones", func() {
			c := New([]*Descriptor{d}, Options{})
			_, err := c.Apply(ctx, &Batch{Results: []Result{result(d, "linux", ts(1, 2))}})
			So(err, ShouldBeNil)
			res, err := c.Apply(ctx, &Batch{Results: []Result{result(d, "linux", ts(1, 2, 3))}})
			So(err, ShouldBeNil)
			So(xs(res.Lines[0]), ShouldResemble, []float64{1, 2, 3})
			So(res.Lines[0].Data[0].Datum.Count, ShouldEqual, 1)
		})

		Convey("results without a fetch", func() {
			unnamed := func(samples []timeseries.RawSample) Result {
				r := result(d, "", samples)
				r.Fetch = FetchDescriptor{}
				return r
			}
			linux, mac := FetchDescriptors(d, XY)[0], FetchDescriptors(d, XY)[1]

			Convey("accumulate across batches", func() {
				c := New([]*Descriptor{d}, Options{})
				_, err := c.Apply(ctx, &Batch{Results: []Result{unnamed(ts(1, 2, 3))}})
				So(err, ShouldBeNil)
				second := &Batch{Results: []Result{unnamed(ts(10, 20))}}
				res, err := c.Apply(ctx, second)
				So(err, ShouldBeNil)
				So(xs(res.Lines[0]), ShouldResemble, []float64{1, 2, 3, 10, 20})

				ls := c.streams[d.Key()]
				So(ls.order, ShouldResemble, []string{linux.key(), mac.key()})

				res, err = c.Apply(ctx, second)
				So(err, ShouldBeNil)
				So(xs(res.Lines[0]), ShouldResemble, []float64{1, 2, 3, 10, 20})
				So(ls.order, ShouldHaveLength, 2)
			})

			Convey("skip timeseries already received by fetch", func() {
				c := New([]*Descriptor{d}, Options{})
				_, err := c.Apply(ctx, &Batch{Results: []Result{result(d, "linux", ts(1))}})
				So(err, ShouldBeNil)
				res, err := c.Apply(ctx, &Batch{Results: []Result{unnamed(ts(5))}})
				So(err, ShouldBeNil)
				So(xs(res.Lines[0]), ShouldResemble, []float64{1, 5})
				So(c.streams[d.Key()].order, ShouldResemble, []string{linux.key(), mac.key()})
			})

			Convey("beyond the line's fetches get their own keys", func() {
				c := New([]*Descriptor{d}, Options{})
				res, err := c.Apply(ctx, &Batch{Results: []Result{
					unnamed(ts(1)), unnamed(ts(2)), unnamed(ts(3)),
				}})
				So(err, ShouldBeNil)
				So(xs(res.Lines[0]), ShouldResemble, []float64{1, 2, 3})
				So(c.streams[d.Key()].order, ShouldResemble, []string{linux.key(), mac.key(), "#3"})
			})
		})

		Convey("matches lines regardless of list order", func() {
			shuffled := testDescriptor()
			shuffled.Bots = []string{"mac", "linux"}
			c := New([]*Descriptor{d}, Options{})
			res, err := c.Apply(ctx, &Batch{Results: []Result{result(shuffled, "mac", ts(5))}})
			So(err, ShouldBeNil)
			So(res.Lines, ShouldHaveLength, 1)
		})

		Convey("drops stale results and keeps prior state", func() {
			c := New([]*Descriptor{d}, Options{})
			first, err := c.Apply(ctx, batch)
			So(err, ShouldBeNil)

			other := testDescriptor()
			other.Measurement = "other"
			res, err := c.Apply(ctx, &Batch{Results: []Result{result(other, "linux", ts(1))}})
			So(err, ShouldBeNil)
			So(res, ShouldBeNil)
			So(c.Last(), ShouldEqual, first)
			So(c.Lines(), ShouldHaveLength, 1)
		})

		Convey("keeps fetch errors apart", func() {
			c := New([]*Descriptor{d}, Options{})
			res, err := c.Apply(ctx, &Batch{Errors: []error{errors.New("boom")}})
			So(err, ShouldBeNil)
			So(res, ShouldBeNil)
			merr, ok := c.Err().(errors.MultiError)
			So(ok, ShouldBeTrue)
			So(merr, ShouldHaveLength, 1)

			c.SetDescriptors([]*Descriptor{d})
			So(c.Err(), ShouldBeNil)
		})

		Convey("records each fetch error once", func() {
			c := New([]*Descriptor{d}, Options{})
			failed := &Batch{Errors: []error{errors.New("boom"), errors.New("timeout")}}
			_, err := c.Apply(ctx, failed)
			So(err, ShouldBeNil)
			_, err = c.Apply(ctx, failed)
			So(err, ShouldBeNil)
			_, err = c.Apply(ctx, &Batch{Errors: []error{errors.New("boom")}})
			So(err, ShouldBeNil)
			merr, ok := c.Err().(errors.MultiError)
			So(ok, ShouldBeTrue)
			So(merr, ShouldHaveLength, 2)
		})

		Convey("rejects a nil batch", func() {
			_, err := New(nil, Options{}).Apply(ctx, nil)
			So(err, ShouldNotBeNil)
		})

		Convey("delta mode subtracts the first value", func() {
			c := New([]*Descriptor{d}, Options{Layout: layout.Options{Mode: layout.Delta}})
			res, err := c.Apply(ctx, batch)
			So(err, ShouldBeNil)
			So(ys(res.Lines[0]), ShouldResemble, []float64{0, 1, 2, 3})
			So(res.Lines[0].Unit.IsDelta, ShouldBeTrue)

			Convey("and switching modes rebuilds the lines", func() {
				res, err := c.SetLayoutOptions(ctx, layout.Options{Mode: layout.NormalizeUnit})
				So(err, ShouldBeNil)
				So(ys(res.Lines[0]), ShouldResemble, []float64{1, 2, 3, 4})
				So(res.Lines[0].Unit.IsDelta, ShouldBeFalse)
			})
		})

		Convey("unknown units fall back to unitless", func() {
			r := result(d, "linux", ts(1))
			r.Unit = "furlongs"
			res, err := New([]*Descriptor{d}, Options{}).Apply(ctx, &Batch{Results: []Result{r}})
			So(err, ShouldBeNil)
			So(res.Lines[0].Unit, ShouldResemble, layout.Unitless)
		})

		Convey("revision range", func() {
			c := New([]*Descriptor{d}, Options{Range: timeseries.Range{Min: rev(3)}})
			res, err := c.Apply(ctx, batch)
			So(err, ShouldBeNil)
			So(xs(res.Lines[0]), ShouldResemble, []float64{3, 4})

			Convey("excluding everything drops the line until widened", func() {
				res, err := c.SetRange(ctx, timeseries.Range{Min: rev(10)})
				So(err, ShouldBeNil)
				So(res.Lines, ShouldBeEmpty)

				res, err = c.SetRange(ctx, timeseries.Range{})
				So(err, ShouldBeNil)
				So(res.Lines, ShouldHaveLength, 1)
				So(xs(res.Lines[0]), ShouldResemble, []float64{1, 2, 3, 4})
			})

			Convey("descriptor bounds take precedence", func() {
				bounded := testDescriptor()
				bounded.MaxRevision = rev(2)
				c := New([]*Descriptor{bounded}, Options{Range: timeseries.Range{Min: rev(2)}})
				fetches := c.FetchDescriptors()
				So(fetches, ShouldHaveLength, 2)
				So(*fetches[0].MinRevision, ShouldEqual, 2)
				So(*fetches[0].MaxRevision, ShouldEqual, 2)
			})
		})

		Convey("SetDescriptors forgets removed lines", func() {
			c := New([]*Descriptor{d}, Options{})
			_, err := c.Apply(ctx, batch)
			So(err, ShouldBeNil)
			c.SetDescriptors(nil)
			So(c.Lines(), ShouldBeEmpty)
			So(c.streams, ShouldBeEmpty)
		})

		Convey("Load consumes every batch", func() {
			c := New([]*Descriptor{d}, Options{})
			src := &fakeSource{batches: []*Batch{
				{Results: []Result{result(d, "linux", ts(1))}},
				{Errors: []error{errors.New("timeout")}},
				batch,
			}}
			res, err := c.Load(ctx, src)
			So(err, ShouldBeNil)
			So(xs(res.Lines[0]), ShouldResemble, []float64{1, 2, 3, 4})
			So(c.Err(), ShouldErrLike, "timeout")

			Convey("and stops when cancelled", func() {
				ctx, cancel := context.WithCancel(ctx)
				cancel()
				_, err := New([]*Descriptor{d}, Options{}).Load(ctx, &fakeSource{batches: []*Batch{batch}})
				So(err, ShouldEqual, context.Canceled)
			})
		})

		Convey("brushes snap to the nearest point", func() {
			c := New([]*Descriptor{d}, Options{BrushRevisions: []int64{3}})
			res, err := c.Apply(ctx, &Batch{Results: []Result{result(d, "linux", ts(0, 10, 20))}})
			So(err, ShouldBeNil)
			So(res.XAxis.Brushes, ShouldResemble, []layout.Brush{{X: 3, Pct: 0}})

			c.SetBrushRevisions([]int64{16, 100})
			So(c.Last().XAxis.Brushes, ShouldResemble, []layout.Brush{{X: 16, Pct: 100}, {X: 100, Pct: 100}})
		})

		Convey("ShowStd shades around each point", func() {
			c := New([]*Descriptor{d}, Options{ShowStd: true})
			res, err := c.Apply(ctx, &Batch{Results: []Result{result(d, "linux", ts(1, 2))}})
			So(err, ShouldBeNil)
			band := res.Lines[0].Data[0].ShadeRange
			So(band.Min(), ShouldEqual, 0)
			So(band.Max(), ShouldEqual, 2)
			So(res.Lines[0].ShadePoints, ShouldNotBeEmpty)
		})
	})
}

func TestAggregate(t *testing.T) {
	t.Parallel()

	Convey("Aggregate", t, func() {
		d := testDescriptor()
		regression := &alerts.Alert{Key: "r"}
		triaged := &alerts.Alert{Key: "t", BugID: 7}
		improvement := &alerts.Alert{Key: "i", Improvement: true}
		samples := ts(1, 2, 3, 4)
		samples[0].Alert = regression
		samples[1].Alert = triaged
		samples[2].Alert = improvement

		Convey("adds icons above the xy level of detail", func() {
			points := Aggregate(d, [][]timeseries.RawSample{samples}, Alerts, timeseries.Range{})
			So(points, ShouldHaveLength, 4)
			So(points[0].Icon, ShouldEqual, IconRegression)
			So(points[0].IconColor, ShouldEqual, ColorUntriaged)
			So(points[1].IconColor, ShouldEqual, ColorTriaged)
			So(points[2].Icon, ShouldEqual, IconImprovement)
			So(points[3].Icon, ShouldBeEmpty)
			So(points[0].XFixed, ShouldEqual, -1)
		})

		Convey("omits icons at the xy level of detail", func() {
			points := Aggregate(d, [][]timeseries.RawSample{samples}, XY, timeseries.Range{})
			So(points[0].Icon, ShouldBeEmpty)
		})

		Convey("selects the statistic", func() {
			d.Statistic = "count"
			points := Aggregate(d, [][]timeseries.RawSample{samples, ts(2)}, XY, timeseries.Range{})
			So(points[1].Y, ShouldEqual, 2)
		})

		Convey("empty input", func() {
			So(Aggregate(d, nil, XY, timeseries.Range{}), ShouldBeEmpty)
		})
	})
}

func TestTooltip(t *testing.T) {
	t.Parallel()

	Convey("Tooltip", t, func() {
		d := testDescriptor()
		d.Bots = []string{"linux"}
		l := &layout.Line{Descriptor: d, Unit: layout.Unit{Name: "ms"}}
		p := &layout.DisplayPoint{
			Y:         12,
			IconColor: ColorTriaged,
			Datum: &timeseries.MergedPoint{
				Revision:    42,
				Diagnostics: map[string]string{"v8": "1", "chromium": "2"},
				Alert: &alerts.Alert{
					BugID:             123,
					Unit:              "ms_smallerIsBetter",
					DeltaValue:        5,
					PercentDeltaValue: 0.25,
				},
			},
		}
		So(Tooltip(l, p), ShouldResemble, []TooltipRow{
			{Name: "bug", Value: "123"},
			{Name: "regression", Value: "+5 ms +25%", Color: ColorTriaged},
			{Name: "value", Value: "12 ms"},
			{Name: "revision", Value: "42"},
			{Name: "build type", Value: "test"},
			{Name: "test suite", Value: "speedometer"},
			{Name: "measurement", Value: "score"},
			{Name: "bot", Value: "linux"},
			{Name: "changed", Value: "chromium, v8", Color: colorDiagnostics},
		})
		So(Tooltip(l, nil), ShouldBeNil)

		Convey("at a revision picks the closest point of any line", func() {
			other := &layout.Line{Descriptor: d, Unit: layout.Unit{Name: "ms"}, Data: []layout.DisplayPoint{
				{X: 10, Y: 1, Datum: &timeseries.MergedPoint{Revision: 10}},
				{X: 50, Y: 2, Datum: &timeseries.MergedPoint{Revision: 50}},
			}}
			p.X = 42
			l.Data = []layout.DisplayPoint{*p}
			res := &layout.Result{Lines: []*layout.Line{other, l}}

			rows := TooltipAt(res, 45)
			So(rows[2], ShouldResemble, TooltipRow{Name: "value", Value: "12 ms"})
			rows = TooltipAt(res, 49)
			So(rows[0], ShouldResemble, TooltipRow{Name: "value", Value: "2 ms"})
			So(TooltipAt(&layout.Result{}, 1), ShouldBeNil)
			So(TooltipAt(nil, 1), ShouldBeNil)
		})
	})
}
