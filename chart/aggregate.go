// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package chart

import (
	"golang.org/x/exp/slices"

	"github.com/potato17/catapult/alerts"
	"github.com/potato17/catapult/layout"
	"github.com/potato17/catapult/timeseries"
)

// Point icons and their colors.
const (
	IconImprovement = "cp:thumb-up"
	IconRegression  = "cp:error"

	ColorImprovement = "var(--improvement-color)"
	ColorTriaged     = "var(--neutral-color-dark)"
	ColorUntriaged   = "var(--error-color)"
)

// Aggregate merges the timeseries of one line into display points sorted by
// revision. The y value of each point is the statistic named by d.
func Aggregate(d *Descriptor, serieses [][]timeseries.RawSample, lod LevelOfDetail, r timeseries.Range) []layout.DisplayPoint {
	points, _ := aggregate(d, serieses, lod, r)
	return points
}

// aggregate is Aggregate that also returns the number of skipped samples.
func aggregate(d *Descriptor, serieses [][]timeseries.RawSample, lod LevelOfDetail, r timeseries.Range) ([]layout.DisplayPoint, int) {
	m := timeseries.NewMerger(serieses, r)
	var points []layout.DisplayPoint
	for m.Next() {
		x, datum := m.Point()
		y, _ := datum.Value(d.Statistic)
		p := layout.DisplayPoint{X: float64(x), Y: y, XFixed: -1, Datum: &datum}
		if lod != XY {
			p.Icon, p.IconColor = icon(datum.Alert)
		}
		points = append(points, p)
	}
	slices.SortStableFunc(points, func(a, b layout.DisplayPoint) int {
		switch {
		case a.X < b.X:
			return -1
		case a.X > b.X:
			return 1
		}
		return 0
	})
	return points, m.Skipped()
}

func icon(a *alerts.Alert) (string, string) {
	switch {
	case a == nil:
		return "", ""
	case a.Improvement:
		return IconImprovement, ColorImprovement
	case a.Triaged():
		return IconRegression, ColorTriaged
	}
	return IconRegression, ColorUntriaged
}

// shadeStd bands each point by one standard deviation.
func shadeStd(points []layout.DisplayPoint) {
	for i := range points {
		p := &points[i]
		if p.Datum == nil {
			continue
		}
		band := layout.ExplicitRange(p.Y-p.Datum.Std, p.Y+p.Datum.Std)
		p.ShadeRange = &band
	}
}
