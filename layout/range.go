// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package layout

import (
	"encoding/json"
	"math"

	"go.chromium.org/luci/common/errors"
)

// Range is a closed interval of float64 values. The zero value is empty.
type Range struct {
	min, max float64
	set      bool
}

// ExplicitRange returns the range [min, max].
func ExplicitRange(min, max float64) Range {
	return Range{min: min, max: max, set: true}
}

// AddValue extends r to include v. Non-finite values are ignored.
func (r *Range) AddValue(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	if !r.set {
		*r = ExplicitRange(v, v)
		return
	}
	r.min = math.Min(r.min, v)
	r.max = math.Max(r.max, v)
}

// AddRange extends r to include o.
func (r *Range) AddRange(o Range) {
	if o.Empty() {
		return
	}
	r.AddValue(o.min)
	r.AddValue(o.max)
}

// Empty reports whether no value has been added to r.
func (r Range) Empty() bool { return !r.set }

// Min returns the lower bound, or NaN if r is empty.
func (r Range) Min() float64 {
	if !r.set {
		return math.NaN()
	}
	return r.min
}

// Max returns the upper bound, or NaN if r is empty.
func (r Range) Max() float64 {
	if !r.set {
		return math.NaN()
	}
	return r.max
}

// Span returns max-min, or 0 if r is empty.
func (r Range) Span() float64 {
	if !r.set {
		return 0
	}
	return r.max - r.min
}

// Center returns the midpoint of r, or NaN if r is empty.
func (r Range) Center() float64 {
	if !r.set {
		return math.NaN()
	}
	return (r.min + r.max) / 2
}

// Normalize maps v into r so that min is 0 and max is 1. The result is NaN
// for an empty range and not finite for a zero-width one.
func (r Range) Normalize(v float64) float64 {
	if !r.set {
		return math.NaN()
	}
	return (v - r.min) / (r.max - r.min)
}

// Extend pads both ends of r by frac of its span.
func (r Range) Extend(frac float64) Range {
	if !r.set || frac == 0 {
		return r
	}
	pad := r.Span() * frac
	return ExplicitRange(r.min-pad, r.max+pad)
}

type rangeJSON struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// MarshalJSON encodes r as {"min":..,"max":..}, or null when empty.
func (r Range) MarshalJSON() ([]byte, error) {
	if !r.set {
		return []byte("null"), nil
	}
	return json.Marshal(rangeJSON{Min: r.min, Max: r.max})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (r *Range) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = Range{}
		return nil
	}
	var raw rangeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Annotate(err, "decode range").Err()
	}
	*r = ExplicitRange(raw.Min, raw.Max)
	return nil
}
