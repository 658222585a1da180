// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package chart

import (
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/potato17/catapult/alerts"
	"github.com/potato17/catapult/layout"
)

// TooltipRow is one labelled value shown when hovering a point.
type TooltipRow struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Color string `json:"color,omitempty"`
}

const colorDiagnostics = "var(--primary-color-dark)"

// Tooltip describes point p of line l.
func Tooltip(l *layout.Line, p *layout.DisplayPoint) []TooltipRow {
	if l == nil || p == nil || p.Datum == nil {
		return nil
	}
	var rows []TooltipRow
	add := func(name, value string) {
		rows = append(rows, TooltipRow{Name: name, Value: value})
	}

	if a := p.Datum.Alert; a != nil {
		if a.Triaged() {
			add("bug", strconv.FormatInt(a.BugID, 10))
		}
		name := "regression"
		if a.Improvement {
			name = "improvement"
		}
		rows = append(rows, TooltipRow{Name: name, Value: alertDelta(a), Color: p.IconColor})
	}

	add("value", l.Unit.Format(p.Y))
	add("revision", strconv.FormatInt(p.Datum.Revision, 10))
	if !p.Datum.Timestamp.IsZero() {
		add("uploaded", p.Datum.Timestamp.UTC().Format(time.RFC3339))
	}

	if d, ok := l.Descriptor.(*Descriptor); ok {
		add("build type", d.BuildType)
		if len(d.Suites) == 1 {
			add("test suite", d.Suites[0])
		}
		add("measurement", d.Measurement)
		if len(d.Bots) == 1 {
			add("bot", d.Bots[0])
		}
		if len(d.Cases) == 1 {
			add("test case", d.Cases[0])
		}
	}

	if len(p.Datum.Diagnostics) > 0 {
		names := maps.Keys(p.Datum.Diagnostics)
		slices.Sort(names)
		rows = append(rows, TooltipRow{Name: "changed", Value: strings.Join(names, ", "), Color: colorDiagnostics})
	}
	return rows
}

// TooltipAt describes the plotted point of res closest to revision x, or
// returns nil if res has no points.
func TooltipAt(res *layout.Result, x float64) []TooltipRow {
	if res == nil {
		return nil
	}
	var line *layout.Line
	var closest *layout.DisplayPoint
	for _, l := range res.Lines {
		p := closestPoint(l.Data, x)
		if p != nil && (closest == nil || math.Abs(p.X-x) < math.Abs(closest.X-x)) {
			line, closest = l, p
		}
	}
	if closest == nil {
		return nil
	}
	return Tooltip(line, closest)
}

func alertDelta(a *alerts.Alert) string {
	u, err := layout.ParseUnit(a.Unit)
	if err != nil {
		u = layout.Unitless
	}
	percent := layout.Unit{Name: "n%"}.Delta()
	return u.Delta().Format(a.DeltaValue) + " " + percent.Format(a.PercentDeltaValue)
}
