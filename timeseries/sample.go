// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package timeseries merges revision-ordered measurement streams into
// aggregated, downsampled points.
package timeseries

import (
	"encoding/json"
	"math"
	"time"

	"go.chromium.org/luci/common/errors"

	"github.com/potato17/catapult/alerts"
)

// RawSample is one measurement as produced by the data source.
type RawSample struct {
	Revision  int64
	Timestamp time.Time
	Avg       float64
	Std       float64
	Count     int64
	// Sum is nil when the source did not record it.
	Sum         *float64
	Diagnostics map[string]string
	Alert       *alerts.Alert
}

// Valid reports whether the sample carries usable statistics.
func (s *RawSample) Valid() bool {
	return s.Count >= 1 && isFinite(s.Avg) && isFinite(s.Std) && s.Std >= 0
}

type rawSampleJSON struct {
	Revision    int64             `json:"revision"`
	Timestamp   time.Time         `json:"timestamp"`
	Avg         *float64          `json:"avg"`
	Std         *float64          `json:"std"`
	Count       *int64            `json:"count"`
	Sum         *float64          `json:"sum,omitempty"`
	Diagnostics map[string]string `json:"diagnostics,omitempty"`
	Alert       *alerts.Alert     `json:"alert,omitempty"`
}

// UnmarshalJSON decodes a sample. Missing statistics decode as NaN (or a zero
// count) so that Valid rejects them instead of treating them as zeros.
func (s *RawSample) UnmarshalJSON(data []byte) error {
	var raw rawSampleJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Annotate(err, "decode sample").Err()
	}
	*s = RawSample{
		Revision:    raw.Revision,
		Timestamp:   raw.Timestamp,
		Avg:         math.NaN(),
		Std:         math.NaN(),
		Sum:         raw.Sum,
		Diagnostics: raw.Diagnostics,
		Alert:       raw.Alert,
	}
	if raw.Avg != nil {
		s.Avg = *raw.Avg
	}
	if raw.Std != nil {
		s.Std = *raw.Std
	}
	if raw.Count != nil {
		s.Count = *raw.Count
	}
	return nil
}

// MergedPoint aggregates one or more RawSamples.
//
// The zero value is an empty accumulator; Count is at least 1 once any valid
// sample has been added.
type MergedPoint struct {
	Revision    int64             `json:"revision"`
	Timestamp   time.Time         `json:"timestamp"`
	Avg         float64           `json:"avg"`
	Std         float64           `json:"std"`
	Count       int64             `json:"count"`
	Sum         float64           `json:"sum"`
	Diagnostics map[string]string `json:"diagnostics,omitempty"`
	Alert       *alerts.Alert     `json:"alert,omitempty"`
}

// Add folds s into p using the parallel pooled variance combination.
//
// Std is combined as if it were the square root of the sum of squared
// deviations, which makes the two-way merge exact and the result independent
// of the order in which samples are added.
func (p *MergedPoint) Add(s RawSample) {
	if p.Count == 0 {
		*p = MergedPoint{
			Revision:  s.Revision,
			Timestamp: s.Timestamp,
			Avg:       s.Avg,
			Std:       s.Std,
			Count:     s.Count,
			Alert:     s.Alert,
		}
		if s.Sum != nil {
			p.Sum = *s.Sum
		}
		if len(s.Diagnostics) > 0 {
			p.Diagnostics = make(map[string]string, len(s.Diagnostics))
			for k, v := range s.Diagnostics {
				p.Diagnostics[k] = v
			}
		}
		return
	}

	for k, v := range s.Diagnostics {
		if p.Diagnostics == nil {
			p.Diagnostics = make(map[string]string, len(s.Diagnostics))
		}
		if _, ok := p.Diagnostics[k]; !ok {
			p.Diagnostics[k] = v
		}
	}

	if s.Revision < p.Revision {
		p.Revision = s.Revision
	}
	if s.Timestamp.Before(p.Timestamp) {
		p.Timestamp = s.Timestamp
	}
	if p.Alert == nil {
		p.Alert = s.Alert
	}

	thisCount := float64(p.Count)
	otherCount := float64(s.Count)
	count := thisCount + otherCount
	deltaMean := p.Avg - s.Avg
	p.Avg = (p.Avg*thisCount + s.Avg*otherCount) / count
	p.Std = math.Sqrt(p.Std*p.Std + s.Std*s.Std + thisCount*otherCount*deltaMean*deltaMean/count)
	p.Count += s.Count
	if s.Sum != nil {
		p.Sum += *s.Sum
	}
}

// Statistic names accepted by Value.
const (
	StatAvg   = "avg"
	StatStd   = "std"
	StatCount = "count"
	StatSum   = "sum"
)

// Value returns the named statistic of p.
func (p *MergedPoint) Value(statistic string) (float64, bool) {
	switch statistic {
	case StatAvg, "":
		return p.Avg, true
	case StatStd:
		return p.Std, true
	case StatCount:
		return float64(p.Count), true
	case StatSum:
		return p.Sum, true
	}
	return math.NaN(), false
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
