// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package layout projects chart lines into percentage coordinates and
// computes axis ticks.
package layout

import (
	"go.chromium.org/luci/common/errors"

	"github.com/potato17/catapult/timeseries"
)

// Mode selects how lines share the y axis.
type Mode string

const (
	// NormalizeUnit shares one y range between all lines of a unit family.
	NormalizeUnit Mode = "normalizeUnit"
	// NormalizeLine gives every line its own y range.
	NormalizeLine Mode = "normalizeLine"
	// Center gives every line a y range centered on its own data and as
	// wide as the widest line of its unit family.
	Center Mode = "center"
	// Delta plots differences from each line's first value. Values are
	// shifted by the caller; lines are laid out as in NormalizeUnit.
	Delta Mode = "delta"
)

// ParseMode validates s. The empty string selects NormalizeUnit.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case "":
		return NormalizeUnit, nil
	case NormalizeUnit, NormalizeLine, Center, Delta:
		return m, nil
	}
	return "", errors.Reason("unknown mode %q", s).Err()
}

func (m Mode) perLine() bool {
	return m == NormalizeLine || m == Center
}

// Options configures a Layout call.
type Options struct {
	Mode       Mode `json:"mode" yaml:"mode"`
	ZeroYAxis  bool `json:"zeroYAxis" yaml:"zero_y_axis"`
	FixedXAxis bool `json:"fixedXAxis" yaml:"fixed_x_axis"`
	// GenerateXTicks and GenerateYTicks are false for minimaps. Axes are
	// padded to leave room for icons and labels only when y ticks are
	// generated.
	GenerateXTicks bool `json:"generateXTicks" yaml:"generate_x_ticks"`
	GenerateYTicks bool `json:"generateYTicks" yaml:"generate_y_ticks"`
}

// DisplayPoint is a merged point projected into chart space.
type DisplayPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	// XFixed is the rank of X among all distinct x values when the x axis is
	// fixed, and -1 otherwise.
	XFixed     int                     `json:"xFixed"`
	XPct       float64                 `json:"xPct"`
	YPct       float64                 `json:"yPct"`
	ShadeRange *Range                  `json:"shadeRange,omitempty"`
	Icon       string                  `json:"icon,omitempty"`
	IconColor  string                  `json:"iconColor,omitempty"`
	Datum      *timeseries.MergedPoint `json:"datum,omitempty"`
}

func (p *DisplayPoint) plotX() float64 {
	if p.XFixed >= 0 {
		return float64(p.XFixed)
	}
	return p.X
}

// Tick is one labelled axis position. Pct runs left to right on the x axis
// and top to bottom on the y axis.
type Tick struct {
	Value float64 `json:"value"`
	Text  string  `json:"text"`
	Pct   float64 `json:"pct"`
}

// Line is one rendered series.
type Line struct {
	// Descriptor identifies the line to its owner and is not interpreted.
	Descriptor any            `json:"descriptor,omitempty"`
	Unit       Unit           `json:"unit"`
	Data       []DisplayPoint `json:"data"`

	// Computed by Layout.
	YRange      Range  `json:"yRange"`
	Path        string `json:"path"`
	ShadePoints string `json:"shadePoints,omitempty"`
	Ticks       []Tick `json:"ticks,omitempty"`
}

// Brush marks a selected revision, snapped to the nearest plotted point.
type Brush struct {
	X   float64 `json:"x"`
	Pct float64 `json:"pct"`
}

// XAxis describes the shared x axis.
type XAxis struct {
	Range   Range   `json:"range"`
	Ticks   []Tick  `json:"ticks,omitempty"`
	Brushes []Brush `json:"brushes,omitempty"`
}

// YAxis describes the y axes. Ticks is set when there is a single unit
// family, or a single line in per-line modes.
type YAxis struct {
	Ticks        []Tick            `json:"ticks,omitempty"`
	TicksForUnit map[string][]Tick `json:"ticksForUnit,omitempty"`
	RangeForUnit map[string]Range  `json:"rangeForUnit"`
}

// Result is the output of Layout.
type Result struct {
	Lines []*Line `json:"lines"`
	XAxis XAxis   `json:"xAxis"`
	YAxis YAxis   `json:"yAxis"`
}
