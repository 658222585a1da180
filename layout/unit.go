// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package layout

import (
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/errors"
)

// Direction is the improvement direction of a unit.
type Direction int

const (
	DontCare Direction = iota
	BiggerIsBetter
	SmallerIsBetter
)

const (
	biggerIsBetterSuffix  = "_biggerIsBetter"
	smallerIsBetterSuffix = "_smallerIsBetter"
	deltaSuffix           = "Delta"
)

var knownUnits = stringset.NewFromSlice(
	"ms",
	"msBestFitFormat",
	"tsMs",
	"n%",
	"sizeInBytes",
	"J",
	"W",
	"A",
	"V",
	"Hz",
	"unitlessNumber",
	"count",
	"sigma",
)

// Unit is a measurement unit together with its improvement direction.
type Unit struct {
	Name      string
	Direction Direction
	IsDelta   bool
}

// Unitless is used when a series does not declare a known unit.
var Unitless = Unit{Name: "unitlessNumber"}

// ParseUnit parses names like "ms_smallerIsBetter" or "sizeInBytesDelta".
func ParseUnit(s string) (Unit, error) {
	u := Unit{Name: s}
	switch {
	case strings.HasSuffix(s, biggerIsBetterSuffix):
		u.Name, u.Direction = strings.TrimSuffix(s, biggerIsBetterSuffix), BiggerIsBetter
	case strings.HasSuffix(s, smallerIsBetterSuffix):
		u.Name, u.Direction = strings.TrimSuffix(s, smallerIsBetterSuffix), SmallerIsBetter
	}
	if !knownUnits.Has(u.Name) && strings.HasSuffix(u.Name, deltaSuffix) {
		u.Name, u.IsDelta = strings.TrimSuffix(u.Name, deltaSuffix), true
	}
	if !knownUnits.Has(u.Name) {
		return Unit{}, errors.Reason("unknown unit %q", s).Err()
	}
	return u, nil
}

// BaseName identifies the unit family: units that differ only in direction
// share a y-axis.
func (u Unit) BaseName() string {
	if u.IsDelta {
		return u.Name + deltaSuffix
	}
	return u.Name
}

func (u Unit) String() string {
	switch u.Direction {
	case BiggerIsBetter:
		return u.BaseName() + biggerIsBetterSuffix
	case SmallerIsBetter:
		return u.BaseName() + smallerIsBetterSuffix
	}
	return u.BaseName()
}

// Delta returns the unit of differences between values of u.
func (u Unit) Delta() Unit {
	u.IsDelta = true
	return u
}

// MarshalText implements encoding.TextMarshaler.
func (u Unit) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *Unit) UnmarshalText(text []byte) error {
	parsed, err := ParseUnit(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// Format renders v for display. Delta units carry an explicit sign.
func (u Unit) Format(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "NaN"
	}
	s := u.format(v)
	if u.IsDelta && v > 0 {
		s = "+" + s
	}
	return s
}

func (u Unit) format(v float64) string {
	switch u.Name {
	case "ms":
		return number(v, 3) + " ms"
	case "msBestFitFormat":
		return bestFitDuration(v)
	case "tsMs":
		if u.IsDelta {
			return bestFitDuration(v)
		}
		return time.UnixMilli(int64(v)).UTC().Format("2006-01-02 15:04:05")
	case "n%":
		return number(v*100, 1) + "%"
	case "sizeInBytes":
		b := humanize.IBytes(uint64(math.Round(math.Abs(v))))
		if v < 0 {
			return "-" + b
		}
		return b
	case "J", "W", "A", "V", "Hz":
		return humanize.SIWithDigits(v, 3, u.Name)
	case "sigma":
		return number(v, 3) + " σ"
	case "count":
		if math.Abs(v) >= 1e6 {
			return strings.TrimSpace(humanize.SIWithDigits(v, 3, ""))
		}
	}
	return number(v, 3)
}

func number(v float64, digits int) string {
	return humanize.CommafWithDigits(v, digits)
}

func bestFitDuration(ms float64) string {
	abs := math.Abs(ms)
	switch {
	case abs < 1000:
		return number(ms, 3) + " ms"
	case abs < 60*1000:
		return number(ms/1000, 3) + " s"
	case abs < 60*60*1000:
		return number(ms/(60*1000), 3) + " min"
	}
	return number(ms/(60*60*1000), 3) + " h"
}
