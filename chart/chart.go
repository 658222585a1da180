// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package chart

import (
	"context"
	"fmt"
	"math"

	"go.chromium.org/luci/common/clock"
	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"golang.org/x/exp/slices"
	"google.golang.org/api/iterator"

	"github.com/potato17/catapult/internal/metrics"
	"github.com/potato17/catapult/layout"
	"github.com/potato17/catapult/timeseries"
)

// Options configures a Chart.
type Options struct {
	Layout        layout.Options
	LevelOfDetail LevelOfDetail
	// Range limits the revisions of lines whose descriptor has no bounds.
	Range timeseries.Range
	// ShowStd shades one standard deviation around each point.
	ShowStd        bool
	BrushRevisions []int64
	Metrics        *metrics.Recorder
}

// BatchSource yields fetch batches. Next returns iterator.Done once
// exhausted.
type BatchSource interface {
	Next(ctx context.Context) (*Batch, error)
}

// stream is the latest timeseries received for one fetch.
type stream struct {
	unit    string
	samples []timeseries.RawSample
}

// lineStreams holds every timeseries received for one line.
type lineStreams struct {
	descriptor *Descriptor
	order      []string
	byFetch    map[string]stream
	// unnamed counts the results without a fetch that were given a key.
	unnamed int
}

// put replaces the timeseries of a fetch, so that resending a result does
// not duplicate its points.
func (s *lineStreams) put(key string, st stream) {
	if _, ok := s.byFetch[key]; !ok {
		s.order = append(s.order, key)
	}
	s.byFetch[key] = st
}

func (s *lineStreams) serieses() (serieses [][]timeseries.RawSample, unit string) {
	for _, key := range s.order {
		st := s.byFetch[key]
		serieses = append(serieses, st.samples)
		if unit == "" && len(st.samples) > 0 {
			unit = st.unit
		}
	}
	return serieses, unit
}

// keyFor returns the key r is stored under.
//
// A result without a fetch is the next timeseries of the line that has not
// been received yet, unless it repeats a timeseries already held. The count
// of such results survives across batches.
func (s *lineStreams) keyFor(r *Result, lod LevelOfDetail) string {
	if !r.Fetch.IsZero() {
		return r.Fetch.key()
	}
	for _, key := range s.order {
		if sameSamples(s.byFetch[key].samples, r.Timeseries) {
			return key
		}
	}
	fetches := FetchDescriptors(s.descriptor, lod)
	for s.unnamed < len(fetches) {
		key := fetches[s.unnamed].key()
		s.unnamed++
		if _, ok := s.byFetch[key]; !ok {
			return key
		}
	}
	s.unnamed++
	return fmt.Sprintf("#%d", s.unnamed)
}

func sameSamples(a, b []timeseries.RawSample) bool {
	return slices.EqualFunc(a, b, func(x, y timeseries.RawSample) bool {
		return x.Revision == y.Revision && x.Timestamp.Equal(y.Timestamp) &&
			x.Avg == y.Avg && x.Std == y.Std && x.Count == y.Count
	})
}

// Chart is the state of one chart. It is not safe for concurrent use.
type Chart struct {
	opt         Options
	descriptors []*Descriptor
	lines       []*layout.Line
	streams     map[string]*lineStreams
	errs        errors.MultiError
	errMsgs     stringset.Set
	last        *layout.Result
}

// New returns an empty chart for descriptors.
func New(descriptors []*Descriptor, opt Options) *Chart {
	if opt.LevelOfDetail == "" {
		opt.LevelOfDetail = XY
	}
	c := &Chart{opt: opt, streams: map[string]*lineStreams{}}
	c.SetDescriptors(descriptors)
	return c
}

// Descriptors returns the requested lines.
func (c *Chart) Descriptors() []*Descriptor {
	return append([]*Descriptor(nil), c.descriptors...)
}

// FetchDescriptors lists the timeseries needed by every requested line.
func (c *Chart) FetchDescriptors() []FetchDescriptor {
	var out []FetchDescriptor
	for _, d := range c.descriptors {
		r := c.rangeFor(d)
		for _, f := range FetchDescriptors(d, c.opt.LevelOfDetail) {
			f.MinRevision, f.MaxRevision = r.Min, r.Max
			out = append(out, f)
		}
	}
	return out
}

func (c *Chart) rangeFor(d *Descriptor) timeseries.Range {
	r := c.opt.Range
	if d.MinRevision != nil {
		r.Min = d.MinRevision
	}
	if d.MaxRevision != nil {
		r.Max = d.MaxRevision
	}
	return r
}

// Lines returns the current lines before layout.
func (c *Chart) Lines() []*layout.Line {
	return append([]*layout.Line(nil), c.lines...)
}

// Last returns the most recent layout, or nil.
func (c *Chart) Last() *layout.Result {
	return c.last
}

// Err returns the distinct fetch errors received since the descriptors were
// last set, as an errors.MultiError, or nil.
func (c *Chart) Err() error {
	if len(c.errs) == 0 {
		return nil
	}
	return append(errors.MultiError(nil), c.errs...)
}

// Apply merges a batch into the chart and lays it out.
//
// Results for lines that are no longer requested are dropped. Each result
// replaces any earlier result for the same fetch, so applying a batch twice
// leaves the chart as applying it once. If no result survives, the chart is
// unchanged and Apply returns a nil result.
//
// Results without a fetch are matched to the line's timeseries in arrival
// order across batches; set Fetch to replace a timeseries with a newer one.
// Fetch errors accumulate until SetDescriptors, once per distinct message.
func (c *Chart) Apply(ctx context.Context, b *Batch) (*layout.Result, error) {
	if b == nil {
		return nil, errors.New("nil batch")
	}
	fresh := 0
	for _, err := range b.Errors {
		if err == nil || !c.errMsgs.Add(err.Error()) {
			continue
		}
		logging.Warningf(ctx, "Fetch failed: %s", err)
		c.errs = append(c.errs, err)
		fresh++
	}
	c.opt.Metrics.FetchErrors(fresh)

	buckets, stale := Collate(b.Results, c.descriptors)
	c.opt.Metrics.StaleResults(stale)
	if stale > 0 {
		logging.Debugf(ctx, "Dropped %d stale results", stale)
	}
	if len(buckets) == 0 {
		return nil, nil
	}

	for _, bucket := range buckets {
		ls := c.streams[bucket.Key]
		if ls == nil {
			ls = &lineStreams{descriptor: bucket.Descriptor, byFetch: map[string]stream{}}
			c.streams[bucket.Key] = ls
		}
		for _, r := range bucket.Results {
			ls.put(ls.keyFor(r, c.opt.LevelOfDetail), stream{unit: r.Unit, samples: r.Timeseries})
		}
		if line := c.buildLine(ctx, ls); line != nil {
			c.putLine(line)
		}
	}
	return c.layout(ctx)
}

// Load applies batches from src until it is exhausted and returns the last
// layout.
func (c *Chart) Load(ctx context.Context, src BatchSource) (*layout.Result, error) {
	for {
		if err := ctx.Err(); err != nil {
			return c.last, err
		}
		b, err := src.Next(ctx)
		if err == iterator.Done {
			return c.last, nil
		}
		if err != nil {
			return c.last, errors.Annotate(err, "read batch").Err()
		}
		if _, err := c.Apply(ctx, b); err != nil {
			return c.last, err
		}
	}
}

// SetDescriptors replaces the requested lines. Lines and timeseries that are
// no longer requested are forgotten, as are earlier fetch errors.
func (c *Chart) SetDescriptors(descriptors []*Descriptor) {
	c.descriptors = c.descriptors[:0]
	for _, d := range descriptors {
		if d != nil {
			c.descriptors = append(c.descriptors, d)
		}
	}
	c.lines = slices.DeleteFunc(c.lines, func(l *layout.Line) bool {
		d, _ := l.Descriptor.(*Descriptor)
		return !matchesAny(d, c.descriptors)
	})
	for key, ls := range c.streams {
		if !matchesAny(ls.descriptor, c.descriptors) {
			delete(c.streams, key)
		}
	}
	c.errs = nil
	c.errMsgs = stringset.New(0)
}

// SetLayoutOptions changes the display options and lays the chart out again.
func (c *Chart) SetLayoutOptions(ctx context.Context, opt layout.Options) (*layout.Result, error) {
	c.opt.Layout = opt
	return c.rebuild(ctx)
}

// SetRange changes the default revision range and lays the chart out again.
func (c *Chart) SetRange(ctx context.Context, r timeseries.Range) (*layout.Result, error) {
	c.opt.Range = r
	return c.rebuild(ctx)
}

// SetBrushRevisions moves the brushes of the last layout.
func (c *Chart) SetBrushRevisions(revisions []int64) {
	c.opt.BrushRevisions = append([]int64(nil), revisions...)
	if c.last != nil {
		snapBrushes(c.last, c.opt.BrushRevisions)
	}
}

// rebuild re-merges every line from its stored timeseries. Lines keep their
// order; lines that were empty before are appended by key.
func (c *Chart) rebuild(ctx context.Context) (*layout.Result, error) {
	seen := stringset.New(len(c.streams))
	var lines []*layout.Line
	for _, l := range c.lines {
		key := l.Descriptor.(*Descriptor).Key()
		seen.Add(key)
		if line := c.buildLine(ctx, c.streams[key]); line != nil {
			lines = append(lines, line)
		}
	}
	var rest []string
	for key := range c.streams {
		if !seen.Has(key) {
			rest = append(rest, key)
		}
	}
	slices.Sort(rest)
	for _, key := range rest {
		if line := c.buildLine(ctx, c.streams[key]); line != nil {
			lines = append(lines, line)
		}
	}
	c.lines = lines
	return c.layout(ctx)
}

func (c *Chart) buildLine(ctx context.Context, ls *lineStreams) *layout.Line {
	if ls == nil {
		return nil
	}
	serieses, unitName := ls.serieses()
	points, skipped := aggregate(ls.descriptor, serieses, c.opt.LevelOfDetail, c.rangeFor(ls.descriptor))
	c.opt.Metrics.MergedPoints(len(points))
	c.opt.Metrics.SkippedSamples(skipped)
	if skipped > 0 {
		logging.Debugf(ctx, "Line %s: skipped %d invalid samples", ls.descriptor.Key(), skipped)
	}
	if len(points) == 0 {
		return nil
	}

	unit, err := layout.ParseUnit(unitName)
	if err != nil {
		logging.Warningf(ctx, "Line %s: %s, using %s", ls.descriptor.Key(), err, layout.Unitless)
		unit = layout.Unitless
	}
	if c.opt.Layout.Mode == layout.Delta {
		unit = unit.Delta()
		offset := points[0].Y
		for i := range points {
			points[i].Y -= offset
		}
	}
	if c.opt.ShowStd {
		shadeStd(points)
	}
	return &layout.Line{Descriptor: ls.descriptor, Unit: unit, Data: points}
}

// putLine replaces the line with an equal descriptor, or appends line.
func (c *Chart) putLine(line *layout.Line) {
	d := line.Descriptor.(*Descriptor)
	for i, l := range c.lines {
		if other, _ := l.Descriptor.(*Descriptor); d.Equal(other) {
			c.lines[i] = line
			return
		}
	}
	c.lines = append(c.lines, line)
}

func (c *Chart) layout(ctx context.Context) (*layout.Result, error) {
	start := clock.Now(ctx)
	res, err := layout.Layout(c.lines, c.opt.Layout)
	if err != nil {
		return nil, errors.Annotate(err, "lay out %d lines", len(c.lines)).Err()
	}
	c.opt.Metrics.ObserveLayout(clock.Since(ctx, start))
	snapBrushes(res, c.opt.BrushRevisions)
	c.last = res
	return res, nil
}

// snapBrushes positions each brush at the plotted point closest to its
// revision.
func snapBrushes(res *layout.Result, revisions []int64) {
	res.XAxis.Brushes = nil
	for _, rev := range revisions {
		x := float64(rev)
		var closest *layout.DisplayPoint
		for _, l := range res.Lines {
			p := closestPoint(l.Data, x)
			if p != nil && (closest == nil || math.Abs(p.X-x) < math.Abs(closest.X-x)) {
				closest = p
			}
		}
		if closest == nil {
			continue
		}
		res.XAxis.Brushes = append(res.XAxis.Brushes, layout.Brush{X: x, Pct: closest.XPct})
	}
}

// closestPoint returns the point of data, which is sorted by X, nearest to x.
func closestPoint(data []layout.DisplayPoint, x float64) *layout.DisplayPoint {
	if len(data) == 0 {
		return nil
	}
	i, _ := slices.BinarySearchFunc(data, x, func(p layout.DisplayPoint, x float64) int {
		switch {
		case p.X < x:
			return -1
		case p.X > x:
			return 1
		}
		return 0
	})
	switch {
	case i == len(data):
		return &data[i-1]
	case i > 0 && x-data[i-1].X <= data[i].X-x:
		return &data[i-1]
	}
	return &data[i]
}
