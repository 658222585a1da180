// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package timeseries

import (
	"math"
)

// Merger merges several revision-sorted series into one stream of
// MergedPoints ordered by revision.
//
// At each step the samples of every series positioned at the smallest pending
// revision are merged into one point and only those series advance. A Merger
// is single-pass; construct a new one to iterate again.
//
// Typical use:
//
//	m := NewMerger(serieses, r)
//	for m.Next() {
//		x, p := m.Point()
//		...
//	}
type Merger struct {
	iterators []*Iterator
	x         int64
	point     MergedPoint
	skipped   int
}

// NewMerger returns a Merger over serieses restricted to r.
func NewMerger(serieses [][]RawSample, r Range) *Merger {
	m := &Merger{iterators: make([]*Iterator, 0, len(serieses))}
	for _, s := range serieses {
		m.iterators = append(m.iterators, NewIterator(s, r))
	}
	return m
}

// Next merges the next revision and reports whether a point is available.
//
// Samples that fail Valid are skipped; a revision whose samples were all
// skipped yields nothing.
func (m *Merger) Next() bool {
	for {
		minX, ok := m.minRevision()
		if !ok {
			return false
		}
		var merged MergedPoint
		for _, it := range m.iterators {
			if it.Done() {
				continue
			}
			s := it.Current()
			if s.Revision != minX {
				continue
			}
			if s.Valid() {
				merged.Add(*s)
			} else {
				m.skipped++
			}
			it.Next()
		}
		if merged.Count > 0 {
			m.x, m.point = minX, merged
			return true
		}
	}
}

func (m *Merger) minRevision() (int64, bool) {
	minX := int64(math.MaxInt64)
	found := false
	for _, it := range m.iterators {
		if it.Done() {
			continue
		}
		if rev := it.Current().Revision; !found || rev < minX {
			minX = rev
			found = true
		}
	}
	return minX, found
}

// Point returns the revision and merged point produced by the last call to
// Next.
func (m *Merger) Point() (int64, MergedPoint) {
	return m.x, m.point
}

// Skipped returns the number of invalid samples skipped so far.
func (m *Merger) Skipped() int {
	return m.skipped
}

// Entry is one merged revision.
type Entry struct {
	X     int64
	Point MergedPoint
}

// All drains m.
func (m *Merger) All() []Entry {
	var out []Entry
	for m.Next() {
		x, p := m.Point()
		out = append(out, Entry{X: x, Point: p})
	}
	return out
}
