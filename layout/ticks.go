// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package layout

import (
	"math"

	"go.chromium.org/luci/common/errors"
)

// DefaultNumTicks is the number of ticks requested for each axis.
const DefaultNumTicks = 5

// ComputeTicks returns round tick values covering r.
//
// Tick spacing is derived from the largest power of ten not exceeding the
// span, divided by ten when that leaves fewer than numTicks steps. Ranges
// that straddle zero always carry a tick at exactly zero. A zero-width range
// has a single tick and an empty range has none.
func ComputeTicks(r Range, numTicks int) ([]float64, error) {
	if numTicks < 2 {
		return nil, errors.Reason("numTicks must be at least 2, got %d", numTicks).Err()
	}
	if r.Empty() {
		return nil, nil
	}
	span := r.Span()
	if span == 0 || math.IsInf(span, 0) {
		return []float64{r.Min()}, nil
	}

	power := lesserPower(span)
	if span/power < float64(numTicks) {
		power /= 10
	}
	lo := r.Min() + power - math.Mod(r.Min(), power)
	hi := r.Max() - math.Mod(r.Max(), power)
	delta := (hi - lo) / float64(numTicks-1)
	if !(delta > 0) {
		return []float64{r.Min()}, nil
	}

	// Tolerate rounding in the last step.
	eps := span * 1e-9
	var ticks []float64
	if r.Min() < 0 && r.Max() > 0 {
		for i := 1; ; i++ {
			tick := -float64(i) * delta
			if tick < r.Min()-eps {
				break
			}
			ticks = append(ticks, tick)
		}
		for i, j := 0, len(ticks)-1; i < j; i, j = i+1, j-1 {
			ticks[i], ticks[j] = ticks[j], ticks[i]
		}
		for i := 0; ; i++ {
			tick := float64(i) * delta
			if tick > r.Max()+eps {
				break
			}
			ticks = append(ticks, tick)
		}
		return ticks, nil
	}
	for i := 0; ; i++ {
		tick := lo + float64(i)*delta
		if tick > r.Max()+eps {
			break
		}
		ticks = append(ticks, tick)
	}
	return ticks, nil
}

// lesserPower returns the largest power of ten that is at most x, for x > 0.
func lesserPower(x float64) float64 {
	p := math.Pow(10, math.Floor(math.Log10(x)))
	switch {
	case p > x:
		p /= 10
	case p*10 <= x:
		p *= 10
	}
	return p
}
