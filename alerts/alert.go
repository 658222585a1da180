// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package alerts clusters regression and improvement alerts into groups
// suitable for bulk triage.
package alerts

import (
	"go.chromium.org/luci/common/data/stringset"
)

// Alert is a detected regression or improvement.
//
// Everything except BugID and IsSelected is fixed once the alert has been
// ingested.
type Alert struct {
	Key         string `json:"key"`
	Master      string `json:"master"`
	Bot         string `json:"bot"`
	Suite       string `json:"suite"`
	Measurement string `json:"measurement"`
	Case        string `json:"case"`
	Statistic   string `json:"statistic"`

	StartRevision int64 `json:"startRevision"`
	EndRevision   int64 `json:"endRevision"`

	// BugID is 0 for untriaged alerts.
	BugID int64 `json:"bugId"`

	Improvement       bool    `json:"improvement"`
	DeltaValue        float64 `json:"deltaValue"`
	PercentDeltaValue float64 `json:"percentDeltaValue"`
	// Unit is the full unit name including the improvement direction suffix,
	// e.g. "ms_smallerIsBetter".
	Unit string `json:"unit"`

	IsSelected bool `json:"isSelected"`

	// RelatedNames holds measurement names that are aliases of Measurement for
	// the purpose of grouping. nil means unset, which is different from empty.
	RelatedNames stringset.Set `json:"-"`
}

// Triaged reports whether the alert has been associated with a bug.
func (a *Alert) Triaged() bool {
	return a.BugID != 0
}

// TriagedSummary counts the triaged alerts of a Group.
type TriagedSummary struct {
	IsExpanded bool `json:"isExpanded"`
	Count      int  `json:"count"`
}

// Group is an ordered set of pairwise-mergeable alerts along with display
// state.
type Group struct {
	Alerts     []*Alert       `json:"alerts"`
	IsExpanded bool           `json:"isExpanded"`
	Triaged    TriagedSummary `json:"triaged"`
}
