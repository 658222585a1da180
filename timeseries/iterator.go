// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package timeseries

import (
	"math"

	"golang.org/x/exp/slices"
)

// MaxPoints bounds the number of samples yielded from any single series.
const MaxPoints = 500

// Range restricts iteration to revisions between Min and Max. A nil bound is
// open.
type Range struct {
	Min *int64 `json:"minRevision,omitempty"`
	Max *int64 `json:"maxRevision,omitempty"`
}

// Iterator walks one revision-sorted series, stride-sampling it down to at
// most MaxPoints samples.
//
// The first and last yielded samples are the first and last samples of the
// filtered range. Samples are used verbatim; nothing is interpolated.
type Iterator struct {
	samples []RawSample
	start   int
	// end is the index of the last sample that will be yielded.
	end  int
	step float64
	k    int
}

// NewIterator returns an Iterator over samples, which must be sorted by
// revision.
//
// The range starts at the first sample at or after r.Min and ends at the
// first sample at or after r.Max, or at the last sample.
func NewIterator(samples []RawSample, r Range) *Iterator {
	it := &Iterator{
		samples: samples,
		end:     len(samples) - 1,
		step:    1,
	}
	if r.Min != nil {
		it.start = lowIndex(samples, *r.Min)
	}
	if r.Max != nil {
		if i := lowIndex(samples, *r.Max); i < it.end {
			it.end = i
		}
	}
	if span := it.end - it.start; span >= MaxPoints {
		it.step = float64(span) / float64(MaxPoints-1)
	}
	return it
}

// lowIndex returns the index of the first sample whose revision is at least
// revision, or len(samples).
func lowIndex(samples []RawSample, revision int64) int {
	i, _ := slices.BinarySearchFunc(samples, revision, func(s RawSample, rev int64) int {
		switch {
		case s.Revision < rev:
			return -1
		case s.Revision > rev:
			return 1
		}
		return 0
	})
	return i
}

func (it *Iterator) index() int {
	return int(math.Round(float64(it.start) + float64(it.k)*it.step))
}

// Done reports whether the iterator has passed the end of its range.
func (it *Iterator) Done() bool {
	return len(it.samples) == 0 || it.index() > it.end
}

// Current returns the sample under the cursor. It must not be called once
// Done is true.
func (it *Iterator) Current() *RawSample {
	return &it.samples[it.index()]
}

// Next advances the cursor by one stride.
func (it *Iterator) Next() {
	it.k++
}
