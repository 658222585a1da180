// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package alerts

import (
	"math"
	"strings"

	"golang.org/x/exp/slices"

	"go.chromium.org/luci/common/errors"
)

// SortColumns lists the columns accepted by CompareAlerts.
var SortColumns = []string{
	"bug",
	"startRevision",
	"suite",
	"master",
	"bot",
	"measurement",
	"case",
	"delta",
	"deltaPct",
}

// CompareAlerts orders two alerts by column.
func CompareAlerts(a, b *Alert, column string) int {
	switch column {
	case "bug":
		return compareInt(a.BugID, b.BugID)
	case "startRevision":
		return compareInt(a.StartRevision, b.StartRevision)
	case "suite":
		return strings.Compare(a.Suite, b.Suite)
	case "master":
		return strings.Compare(a.Master, b.Master)
	case "bot":
		return strings.Compare(a.Bot, b.Bot)
	case "measurement":
		return strings.Compare(a.Measurement, b.Measurement)
	case "case":
		return strings.Compare(a.Case, b.Case)
	case "delta":
		return compareFloat(a.DeltaValue, b.DeltaValue)
	case "deltaPct":
		return compareFloat(math.Abs(a.PercentDeltaValue), math.Abs(b.PercentDeltaValue))
	}
	return 0
}

// SortGroups sorts the alerts within each group by column, then the groups by
// their first alert. Ties keep their current order.
func SortGroups(groups []*Group, column string, descending bool) error {
	if !slices.Contains(SortColumns, column) {
		return errors.Reason("unknown sort column %q", column).Err()
	}
	cmp := func(a, b *Alert) int {
		c := CompareAlerts(a, b, column)
		if descending {
			return -c
		}
		return c
	}
	for _, g := range groups {
		slices.SortStableFunc(g.Alerts, cmp)
	}
	slices.SortStableFunc(groups, func(a, b *Group) int {
		if len(a.Alerts) == 0 || len(b.Alerts) == 0 {
			return len(b.Alerts) - len(a.Alerts)
		}
		return cmp(a.Alerts[0], b.Alerts[0])
	})
	return nil
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
