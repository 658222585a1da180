// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package alerts

import (
	"go.chromium.org/luci/common/data/stringset"
)

// Summarize wraps freshly grouped alerts in Groups.
//
// Groups are rebuilt on every pass, so expansion state is carried over from
// previous: a new group is expanded if any of its alerts was the first alert
// of an expanded previous group.
func Summarize(groups [][]*Alert, previous []*Group) []*Group {
	expanded := stringset.New(0)
	triagedExpanded := stringset.New(0)
	for _, g := range previous {
		if len(g.Alerts) == 0 {
			continue
		}
		if g.IsExpanded {
			expanded.Add(g.Alerts[0].Key)
		}
		if g.Triaged.IsExpanded {
			triagedExpanded.Add(g.Alerts[0].Key)
		}
	}

	out := make([]*Group, 0, len(groups))
	for _, alerts := range groups {
		g := &Group{Alerts: alerts}
		for _, a := range alerts {
			if expanded.Has(a.Key) {
				g.IsExpanded = true
			}
			if triagedExpanded.Has(a.Key) {
				g.Triaged.IsExpanded = true
			}
			if a.Triaged() {
				g.Triaged.Count++
			}
		}
		out = append(out, g)
	}
	return out
}

// DropTriaged removes groups in which every alert has been triaged.
func DropTriaged(groups []*Group) []*Group {
	out := groups[:0:0]
	for _, g := range groups {
		if len(g.Alerts) > g.Triaged.Count {
			out = append(out, g)
		}
	}
	return out
}

// Columns says which optional alert table columns carry information.
type Columns struct {
	Bug      bool `json:"showBugColumn"`
	Master   bool `json:"showMasterColumn"`
	TestCase bool `json:"showTestCaseColumn"`
	Triaged  bool `json:"showTriagedColumn"`
}

// VisibleColumns hides the bug, master, test case and triaged columns when
// every row would show the same thing.
func VisibleColumns(groups []*Group, showingTriaged bool) Columns {
	var c Columns
	masters := stringset.New(0)
	cases := stringset.New(0)
	for _, g := range groups {
		if g.Triaged.Count < len(g.Alerts) {
			c.Triaged = true
		}
		for _, a := range g.Alerts {
			if a.Triaged() {
				c.Bug = true
			}
			masters.Add(a.Master)
			cases.Add(a.Case)
		}
	}
	if showingTriaged {
		c.Triaged = false
	}
	c.Master = masters.Len() > 1
	c.TestCase = cases.Len() > 1
	return c
}
