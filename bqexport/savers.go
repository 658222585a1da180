// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package bqexport saves laid out charts and alert groups to BigQuery.
package bqexport

import (
	"time"

	"cloud.google.com/go/bigquery"

	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/errors"

	"github.com/potato17/catapult/alerts"
	"github.com/potato17/catapult/chart"
	"github.com/potato17/catapult/layout"
)

// PointSaver saves one plotted point of a chart line.
type PointSaver struct {
	Descriptor *chart.Descriptor
	Unit       layout.Unit
	Point      *layout.DisplayPoint
	RunID      string
	ExportTime time.Time
}

// Check that point saver is a bigquery.ValueSaver
var _ bigquery.ValueSaver = &PointSaver{}

// Save produces a bigquery record that can be saved.
func (s *PointSaver) Save() (row map[string]bigquery.Value, insertID string, err error) {
	switch {
	case s.Descriptor == nil:
		return nil, "", errors.Reason("PointSaver: descriptor cannot be nil").Err()
	case s.Point == nil || s.Point.Datum == nil:
		return nil, "", errors.Reason("PointSaver: point has no datum").Err()
	}
	d, p := s.Descriptor, s.Point

	row = make(map[string]bigquery.Value)
	row["line_key"] = d.Key()
	row["suites"] = d.Suites
	row["bots"] = d.Bots
	row["cases"] = d.Cases
	row["measurement"] = d.Measurement
	row["statistic"] = d.Statistic
	row["build_type"] = d.BuildType
	row["unit"] = s.Unit.String()
	row["revision"] = p.Datum.Revision
	row["timestamp"] = p.Datum.Timestamp
	row["avg"] = p.Datum.Avg
	row["std"] = p.Datum.Std
	row["count"] = p.Datum.Count
	row["sum"] = p.Datum.Sum
	row["y"] = p.Y
	if a := p.Datum.Alert; a != nil {
		row["alert_key"] = a.Key
		row["bug_id"] = a.BugID
	}
	row["run_id"] = s.RunID
	row["export_time"] = s.ExportTime

	return row, bigquery.NoDedupeID, nil
}

// GroupSaver saves one alert group.
type GroupSaver struct {
	// Index is the position of the group in display order.
	Index      int
	Group      *alerts.Group
	RunID      string
	ExportTime time.Time
}

// Check that group saver is a bigquery.ValueSaver
var _ bigquery.ValueSaver = &GroupSaver{}

// Save produces a bigquery record that can be saved.
func (s *GroupSaver) Save() (row map[string]bigquery.Value, insertID string, err error) {
	if s.Group == nil || len(s.Group.Alerts) == 0 {
		return nil, "", errors.Reason("GroupSaver: group %d is empty", s.Index).Err()
	}

	keys := make([]string, 0, len(s.Group.Alerts))
	measurements := stringset.New(len(s.Group.Alerts))
	start, end := s.Group.Alerts[0].StartRevision, s.Group.Alerts[0].EndRevision
	for _, a := range s.Group.Alerts {
		keys = append(keys, a.Key)
		measurements.Add(a.Measurement)
		if a.StartRevision < start {
			start = a.StartRevision
		}
		if a.EndRevision > end {
			end = a.EndRevision
		}
	}

	row = make(map[string]bigquery.Value)
	row["group_index"] = s.Index
	row["alert_keys"] = keys
	row["measurements"] = measurements.ToSortedSlice()
	row["start_revision"] = start
	row["end_revision"] = end
	row["triaged_count"] = s.Group.Triaged.Count
	row["untriaged_count"] = len(s.Group.Alerts) - s.Group.Triaged.Count
	row["run_id"] = s.RunID
	row["export_time"] = s.ExportTime

	return row, bigquery.NoDedupeID, nil
}
