// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package chart assembles fetched timeseries into laid out chart lines.
//
// A Chart owns the lines requested by a set of Descriptors. Batches of fetch
// results are applied to it as they arrive; every application re-merges the
// affected lines and lays out the whole chart again.
package chart

import (
	"encoding/json"

	"go.chromium.org/luci/common/data/stringset"
	"golang.org/x/exp/slices"
)

// LevelOfDetail selects how much per-point information is fetched and shown.
type LevelOfDetail string

const (
	// XY carries values only.
	XY LevelOfDetail = "xy"
	// Alerts adds alert icons.
	Alerts LevelOfDetail = "alerts"
	// Annotations adds alerts and diagnostics.
	Annotations LevelOfDetail = "annotations"
)

// Descriptor identifies one chart line.
//
// A line merges the timeseries of every combination of its suites, bots and
// cases.
type Descriptor struct {
	Suites      []string `json:"suites"`
	Bots        []string `json:"bots"`
	Cases       []string `json:"cases"`
	Measurement string   `json:"measurement"`
	Statistic   string   `json:"statistic"`
	BuildType   string   `json:"buildType"`
	MinRevision *int64   `json:"minRevision,omitempty"`
	MaxRevision *int64   `json:"maxRevision,omitempty"`
}

// Equal reports whether d and o describe the same line. Suites, bots and
// cases are compared as sets.
func (d *Descriptor) Equal(o *Descriptor) bool {
	if d == o {
		return true
	}
	if d == nil || o == nil {
		return false
	}
	return setEqual(d.Suites, o.Suites) &&
		setEqual(d.Bots, o.Bots) &&
		setEqual(d.Cases, o.Cases) &&
		d.Measurement == o.Measurement &&
		d.Statistic == o.Statistic &&
		d.BuildType == o.BuildType &&
		revisionEqual(d.MinRevision, o.MinRevision) &&
		revisionEqual(d.MaxRevision, o.MaxRevision)
}

func setEqual(a, b []string) bool {
	sa, sb := stringset.NewFromSlice(a...), stringset.NewFromSlice(b...)
	return sa.Len() == sb.Len() && sa.HasAll(b...)
}

func revisionEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Key is a canonical string for d that ignores list order and the revision
// bounds.
func (d *Descriptor) Key() string {
	key, err := json.Marshal([]any{
		sorted(d.Suites),
		d.Measurement,
		sorted(d.Bots),
		sorted(d.Cases),
		d.Statistic,
		d.BuildType,
	})
	if err != nil {
		// Only strings are marshalled.
		panic(err)
	}
	return string(key)
}

func sorted(s []string) []string {
	out := append([]string{}, s...)
	slices.Sort(out)
	return out
}

// FetchDescriptor identifies one timeseries to fetch.
type FetchDescriptor struct {
	Suite         string        `json:"suite"`
	Bot           string        `json:"bot"`
	Measurement   string        `json:"measurement"`
	Case          string        `json:"case,omitempty"`
	Statistic     string        `json:"statistic"`
	BuildType     string        `json:"buildType"`
	LevelOfDetail LevelOfDetail `json:"levelOfDetail"`
	MinRevision   *int64        `json:"minRevision,omitempty"`
	MaxRevision   *int64        `json:"maxRevision,omitempty"`
}

// IsZero reports whether f is unset.
func (f *FetchDescriptor) IsZero() bool {
	return f.Suite == "" && f.Bot == "" && f.Measurement == "" && f.Case == ""
}

// key identifies the timeseries f fetches, independent of the revision
// bounds and level of detail.
func (f *FetchDescriptor) key() string {
	key, err := json.Marshal([]string{f.Suite, f.Bot, f.Measurement, f.Case, f.Statistic, f.BuildType})
	if err != nil {
		panic(err)
	}
	return string(key)
}

// FetchDescriptors expands d into one FetchDescriptor per suite, bot and
// case. A descriptor without cases fetches the summary timeseries.
func FetchDescriptors(d *Descriptor, lod LevelOfDetail) []FetchDescriptor {
	cases := d.Cases
	if len(cases) == 0 {
		cases = []string{""}
	}
	out := make([]FetchDescriptor, 0, len(d.Suites)*len(d.Bots)*len(cases))
	for _, suite := range d.Suites {
		for _, bot := range d.Bots {
			for _, c := range cases {
				out = append(out, FetchDescriptor{
					Suite:         suite,
					Bot:           bot,
					Measurement:   d.Measurement,
					Case:          c,
					Statistic:     d.Statistic,
					BuildType:     d.BuildType,
					LevelOfDetail: lod,
					MinRevision:   d.MinRevision,
					MaxRevision:   d.MaxRevision,
				})
			}
		}
	}
	return out
}
