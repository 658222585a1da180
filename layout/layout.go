// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package layout

import (
	"math"
	"strconv"
	"strings"

	"go.chromium.org/luci/common/errors"
	"golang.org/x/exp/slices"
)

// Chart dimensions used to size the axis padding.
const (
	heightPx         = 200
	estimatedWidthPx = 1000
	iconWidthPx      = 24
	textHeightPx     = 15

	xExtension = iconWidthPx / 2.0 / estimatedWidthPx
	yExtension = textHeightPx / 2.0 / heightPx
)

// Layout computes coordinates, paths and ticks for lines.
//
// The input is not modified. The returned lines are copies whose points all
// live in one slice allocated for this call, so results of separate calls
// never alias each other. Identical inputs produce identical outputs.
func Layout(lines []*Line, opt Options) (*Result, error) {
	mode, err := ParseMode(string(opt.Mode))
	if err != nil {
		return nil, err
	}
	out, err := cloneLines(lines)
	if err != nil {
		return nil, err
	}

	p := &pass{
		mode:       mode,
		zeroYAxis:  opt.ZeroYAxis,
		lines:      out,
		dataRanges: make([]Range, len(out)),
		unitData:   map[string]Range{},
		unitRange:  map[string]Range{},
		unitOf:     map[string]Unit{},
	}
	if opt.FixedXAxis {
		p.rawXs = fixX(out)
	}
	if opt.GenerateYTicks {
		p.xExt, p.yExt = xExtension, yExtension
	}

	p.accumulate()
	p.project()

	res := &Result{
		Lines: out,
		XAxis: XAxis{Range: p.revisionRange().Extend(p.xExt)},
		YAxis: YAxis{RangeForUnit: p.unitRange},
	}
	if opt.GenerateXTicks {
		if res.XAxis.Ticks, err = p.xTicks(); err != nil {
			return nil, err
		}
	}
	if opt.GenerateYTicks {
		if err := p.yTicks(&res.YAxis); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func cloneLines(lines []*Line) ([]*Line, error) {
	total := 0
	for i, l := range lines {
		if l == nil {
			return nil, errors.Reason("line %d is nil", i).Err()
		}
		total += len(l.Data)
	}
	points := make([]DisplayPoint, 0, total)
	out := make([]*Line, len(lines))
	for i, l := range lines {
		start := len(points)
		points = append(points, l.Data...)
		c := *l
		c.Data = points[start:len(points):len(points)]
		c.YRange, c.Path, c.ShadePoints, c.Ticks = Range{}, "", "", nil
		for j := range c.Data {
			c.Data[j].XFixed = -1
		}
		out[i] = &c
	}
	return out, nil
}

// fixX replaces x coordinates by their rank among the distinct x values and
// returns those values in order.
func fixX(lines []*Line) []float64 {
	var xs []float64
	for _, l := range lines {
		for _, d := range l.Data {
			xs = append(xs, d.X)
		}
	}
	slices.Sort(xs)
	xs = slices.Compact(xs)
	for _, l := range lines {
		for j := range l.Data {
			l.Data[j].XFixed = lowIndex(xs, l.Data[j].X)
		}
	}
	return xs
}

func lowIndex(xs []float64, x float64) int {
	i, _ := slices.BinarySearch(xs, x)
	return i
}

// pass holds the intermediate state of one Layout call.
type pass struct {
	mode       Mode
	zeroYAxis  bool
	xExt, yExt float64
	lines      []*Line
	rawXs      []float64

	// xRange is padded and measured in plotted x.
	xRange Range
	// dataRanges are the unpadded y ranges of each line; ticks are computed
	// over these and positioned over the padded Line.YRange.
	dataRanges []Range
	unitData   map[string]Range
	unitRange  map[string]Range
	unitOf     map[string]Unit
	units      []string
}

func (p *pass) accumulate() {
	maxLineSpan := map[string]float64{}
	for i, l := range p.lines {
		var data Range
		if p.zeroYAxis {
			data.AddValue(0)
		}
		for j := range l.Data {
			p.xRange.AddValue(l.Data[j].plotX())
			data.AddValue(l.Data[j].Y)
		}
		p.dataRanges[i] = data
		l.YRange = data.Extend(p.yExt)

		// count_biggerIsBetter and count_smallerIsBetter share an axis.
		family := l.Unit.BaseName()
		if _, ok := p.unitOf[family]; !ok {
			u := l.Unit
			u.Direction = DontCare
			p.unitOf[family] = u
			p.units = append(p.units, family)
		}
		ud := p.unitData[family]
		ud.AddRange(data)
		p.unitData[family] = ud
		ur := p.unitRange[family]
		ur.AddRange(l.YRange)
		p.unitRange[family] = ur
		if span := l.YRange.Span(); span > maxLineSpan[family] {
			maxLineSpan[family] = span
		}
	}

	if p.mode == Center {
		// Lines keep their own center, so skewed data is padded unevenly.
		for i, l := range p.lines {
			if l.YRange.Empty() {
				continue
			}
			half := maxLineSpan[l.Unit.BaseName()] / 2
			c := l.YRange.Center()
			l.YRange = ExplicitRange(c-half, c+half)
			p.dataRanges[i] = unextend(l.YRange, p.yExt)
		}
	}

	p.xRange = p.xRange.Extend(p.xExt)
}

// unextend inverts Range.Extend.
func unextend(r Range, frac float64) Range {
	if r.Empty() || frac == 0 {
		return r
	}
	half := r.Span() / (1 + 2*frac) / 2
	c := r.Center()
	return ExplicitRange(c-half, c+half)
}

func (p *pass) yRangeOf(l *Line) Range {
	if p.mode.perLine() {
		return l.YRange
	}
	return p.unitRange[l.Unit.BaseName()]
}

// project fills in point percentages, paths and shade contours.
func (p *pass) project() {
	for _, l := range p.lines {
		yr := p.yRangeOf(l)
		var path, shade strings.Builder
		for j := range l.Data {
			d := &l.Data[j]
			d.XPct = pct(p.xRange.Normalize(d.plotX()))
			// Y coordinates increase downwards.
			d.YPct = pct(1 - yr.Normalize(d.Y))
			if j == 0 {
				path.WriteString("M")
			} else {
				path.WriteString(" L")
			}
			writePoint(&path, d.XPct, d.YPct)
			if d.ShadeRange != nil {
				shade.WriteString(" ")
				writePoint(&shade, d.XPct, pct(1-yr.Normalize(d.ShadeRange.Max())))
			}
		}
		for j := len(l.Data) - 1; j >= 0; j-- {
			d := &l.Data[j]
			if d.ShadeRange != nil {
				shade.WriteString(" ")
				writePoint(&shade, d.XPct, pct(1-yr.Normalize(d.ShadeRange.Min())))
			}
		}
		l.Path = path.String()
		l.ShadePoints = shade.String()
	}
}

// pct converts a fraction to a percentage rounded to a tenth. Degenerate
// values map to the midpoint.
func pct(frac float64) float64 {
	v := math.Round(frac*1000) / 10
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 50
	}
	if v == 0 {
		// Drop the sign of negative zero.
		return 0
	}
	return v
}

func writePoint(b *strings.Builder, x, y float64) {
	b.WriteString(formatFloat(x))
	b.WriteString(",")
	b.WriteString(formatFloat(y))
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// revisionRange spans the first and last raw x of every line.
func (p *pass) revisionRange() Range {
	var r Range
	for _, l := range p.lines {
		if len(l.Data) == 0 {
			continue
		}
		r.AddValue(l.Data[0].X)
		r.AddValue(l.Data[len(l.Data)-1].X)
	}
	return r
}

func (p *pass) xTicks() ([]Tick, error) {
	values, err := ComputeTicks(p.revisionRange(), DefaultNumTicks)
	if err != nil {
		return nil, err
	}
	ticks := make([]Tick, len(values))
	for i, v := range values {
		x := v
		if p.rawXs != nil {
			x = float64(lowIndex(p.rawXs, v))
		}
		ticks[i] = Tick{Value: v, Text: formatFloat(v), Pct: pct(p.xRange.Normalize(x))}
	}
	return ticks, nil
}

func (p *pass) yTicks(axis *YAxis) error {
	if p.mode.perLine() {
		for i, l := range p.lines {
			ticks, err := unitTicks(p.dataRanges[i], l.YRange, l.Unit)
			if err != nil {
				return err
			}
			l.Ticks = ticks
		}
		if len(p.lines) == 1 {
			axis.Ticks = p.lines[0].Ticks
		}
		return nil
	}

	axis.TicksForUnit = make(map[string][]Tick, len(p.units))
	for _, family := range p.units {
		ticks, err := unitTicks(p.unitData[family], p.unitRange[family], p.unitOf[family])
		if err != nil {
			return err
		}
		axis.TicksForUnit[family] = ticks
	}
	if len(p.units) == 1 {
		axis.Ticks = axis.TicksForUnit[p.units[0]]
	}
	return nil
}

// unitTicks computes ticks over data and positions them over display.
func unitTicks(data, display Range, u Unit) ([]Tick, error) {
	values, err := ComputeTicks(data, DefaultNumTicks)
	if err != nil {
		return nil, err
	}
	ticks := make([]Tick, len(values))
	for i, v := range values {
		ticks[i] = Tick{Value: v, Text: u.Format(v), Pct: pct(1 - display.Normalize(v))}
	}
	return ticks, nil
}
