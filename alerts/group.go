// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package alerts

// ShouldMerge reports whether a and b may share a group.
//
// With groupBugs set, alerts triaged to the same bug always merge. Otherwise
// the revision ranges must intersect, bug ids must agree (when groupBugs is
// set), and the alerts must be related: same suite when neither has related
// names, otherwise same or aliased measurement.
func ShouldMerge(a, b *Alert, groupBugs bool) bool {
	if groupBugs && a.BugID != 0 && b.BugID != 0 && a.BugID == b.BugID {
		return true
	}
	if !rangeIntersects(a.StartRevision, a.EndRevision, b.StartRevision, b.EndRevision) {
		return false
	}
	if groupBugs && a.BugID != b.BugID {
		return false
	}
	if a.RelatedNames == nil && b.RelatedNames == nil {
		return a.Suite == b.Suite
	}
	return isRelated(a, b)
}

// isRelated is true if the measurements are equal or either alert lists the
// other's measurement among its related names.
func isRelated(a, b *Alert) bool {
	if a.Measurement == b.Measurement {
		return true
	}
	if a.RelatedNames != nil && a.RelatedNames.Has(b.Measurement) {
		return true
	}
	if b.RelatedNames != nil && b.RelatedNames.Has(a.Measurement) {
		return true
	}
	return false
}

func rangeIntersects(aMin, aMax, bMin, bMax int64) bool {
	return aMin <= bMax && bMin <= aMax
}

// Group partitions alerts so that every pair of alerts within a group
// satisfies ShouldMerge.
//
// Grouping is greedy: each alert joins the first existing group whose every
// member it merges with, or starts a new group. The result therefore depends
// on the order of alerts. Alerts are expected to have been passed through
// Augment already; Group never modifies them.
func Group(alerts []*Alert, groupBugs bool) [][]*Alert {
	var groups [][]*Alert
	for _, alert := range alerts {
		merged := false
		for i, group := range groups {
			if !mergesWithAll(alert, group, groupBugs) {
				continue
			}
			groups[i] = append(group, alert)
			merged = true
			break
		}
		if !merged {
			groups = append(groups, []*Alert{alert})
		}
	}
	return groups
}

func mergesWithAll(alert *Alert, group []*Alert, groupBugs bool) bool {
	for _, other := range group {
		if !ShouldMerge(alert, other, groupBugs) {
			return false
		}
	}
	return true
}
