// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package chart

import (
	"github.com/potato17/catapult/timeseries"
)

// Result is one fetched timeseries.
type Result struct {
	Descriptor *Descriptor `json:"lineDescriptor"`
	// Fetch identifies the timeseries within its line. A result with an
	// unset Fetch takes the next timeseries of its line not yet received.
	Fetch      FetchDescriptor        `json:"fetch"`
	Unit       string                 `json:"unit"`
	Timeseries []timeseries.RawSample `json:"timeseries"`
}

// Batch is one round of fetch results. Errors are reported by the fetcher
// and kept apart from the data.
type Batch struct {
	Results []Result
	Errors  []error
}

// Bucket holds the results of one line.
type Bucket struct {
	Key        string
	Descriptor *Descriptor
	Results    []*Result
}

// Collate groups results by line. Results whose descriptor matches none of
// requested are stale and only counted. Buckets are ordered by first
// appearance.
func Collate(results []Result, requested []*Descriptor) (buckets []*Bucket, stale int) {
	byKey := map[string]*Bucket{}
	for i := range results {
		r := &results[i]
		if !matchesAny(r.Descriptor, requested) {
			stale++
			continue
		}
		key := r.Descriptor.Key()
		b, ok := byKey[key]
		if !ok {
			b = &Bucket{Key: key, Descriptor: r.Descriptor}
			byKey[key] = b
			buckets = append(buckets, b)
		}
		b.Results = append(b.Results, r)
	}
	return buckets, stale
}

func matchesAny(d *Descriptor, requested []*Descriptor) bool {
	if d == nil {
		return false
	}
	for _, o := range requested {
		if d.Equal(o) {
			return true
		}
	}
	return false
}
