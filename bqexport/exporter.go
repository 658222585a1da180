// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package bqexport

import (
	"context"
	"strings"
	"sync"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	"go.chromium.org/luci/common/clock"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/potato17/catapult/alerts"
	"github.com/potato17/catapult/chart"
	"github.com/potato17/catapult/internal/metrics"
	"github.com/potato17/catapult/layout"
)

const userAgent = "perfchart"

// DefaultBatchSize keeps each insert well below the BigQuery row and payload
// limits.
const DefaultBatchSize = 500

const maxConcurrentInserts = 8

// Putter inserts rows. *bigquery.Inserter is a Putter.
type Putter interface {
	Put(ctx context.Context, src interface{}) error
}

// TableRef names a BigQuery table.
type TableRef struct {
	Project string
	Dataset string
	Table   string
}

// ParseTableRef parses "<project>.<dataset>.<table>".
func ParseTableRef(ref string) (TableRef, error) {
	chunks := strings.Split(ref, ".")
	if len(chunks) != 3 || chunks[0] == "" || chunks[1] == "" || chunks[2] == "" {
		return TableRef{}, errors.Reason("table reference should have form <project>.<dataset>.<table>, got %q", ref).Err()
	}
	return TableRef{Project: chunks[0], Dataset: chunks[1], Table: chunks[2]}, nil
}

func (t TableRef) String() string {
	return t.Project + "." + t.Dataset + "." + t.Table
}

// Exporter writes chart points and alert groups to BigQuery.
type Exporter struct {
	// Points and Groups receive PointSavers and GroupSavers. Either may be nil
	// to skip that kind of row.
	Points    Putter
	Groups    Putter
	BatchSize int
	Metrics   *metrics.Recorder
	// RunID is written to every row to tell exports apart.
	RunID string
}

// NewExporter connects to BigQuery and returns an Exporter writing to the
// given tables, and a function closing the connection. Either table may be
// zero to skip it. Both tables must live in the same project.
func NewExporter(ctx context.Context, points, groups TableRef, m *metrics.Recorder, opts ...option.ClientOption) (*Exporter, func() error, error) {
	project := points.Project
	if project == "" {
		project = groups.Project
	}
	if project == "" {
		return nil, nil, errors.New("no table to export to")
	}
	if points.Project != "" && groups.Project != "" && points.Project != groups.Project {
		return nil, nil, errors.Reason("tables %s and %s are in different projects", points, groups).Err()
	}

	opts = append([]option.ClientOption{option.WithUserAgent(userAgent)}, opts...)
	client, err := bigquery.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, nil, errors.Annotate(err, "create bigquery client").Err()
	}
	e := &Exporter{Metrics: m, RunID: uuid.NewString()}
	if points.Table != "" {
		e.Points = client.Dataset(points.Dataset).Table(points.Table).Inserter()
	}
	if groups.Table != "" {
		e.Groups = client.Dataset(groups.Dataset).Table(groups.Table).Inserter()
	}
	return e, client.Close, nil
}

// ExportLayout saves every plotted point of res.
func (e *Exporter) ExportLayout(ctx context.Context, res *layout.Result) error {
	if e.Points == nil || res == nil {
		return nil
	}
	now := clock.Now(ctx).UTC()
	var rows []*PointSaver
	for _, l := range res.Lines {
		d, ok := l.Descriptor.(*chart.Descriptor)
		if !ok {
			return errors.Reason("line has descriptor of type %T", l.Descriptor).Err()
		}
		for i := range l.Data {
			rows = append(rows, &PointSaver{Descriptor: d, Unit: l.Unit, Point: &l.Data[i], RunID: e.RunID, ExportTime: now})
		}
	}
	return put(ctx, e, e.Points, rows)
}

// ExportGroups saves alert groups in display order.
func (e *Exporter) ExportGroups(ctx context.Context, groups []*alerts.Group) error {
	if e.Groups == nil {
		return nil
	}
	now := clock.Now(ctx).UTC()
	rows := make([]*GroupSaver, 0, len(groups))
	for i, g := range groups {
		rows = append(rows, &GroupSaver{Index: i, Group: g, RunID: e.RunID, ExportTime: now})
	}
	return put(ctx, e, e.Groups, rows)
}

// put inserts rows in batches. Row errors are collected into a
// bigquery.PutMultiError; any other error aborts the export.
func put[T bigquery.ValueSaver](ctx context.Context, e *Exporter, p Putter, rows []T) error {
	size := e.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	var mu sync.Mutex
	var multiErr bigquery.PutMultiError
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxConcurrentInserts)
	for i := 0; i < len(rows); i += size {
		batch := rows[i:min(i+size, len(rows))]
		offset := i
		eg.Go(func() error {
			err := p.Put(egCtx, batch)
			if err == nil {
				return nil
			}
			merr, ok := err.(bigquery.PutMultiError)
			if !ok {
				return err
			}
			mu.Lock()
			for _, rowErr := range merr {
				rowErr.RowIndex += offset
				multiErr = append(multiErr, rowErr)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return errors.Annotate(err, "insert rows").Err()
	}

	e.Metrics.ExportedRows(len(rows) - len(multiErr))
	if len(multiErr) > 0 {
		for _, rowErr := range multiErr {
			logging.Warningf(ctx, "Row %d: %s", rowErr.RowIndex, rowErr.Errors)
		}
		return multiErr
	}
	logging.Debugf(ctx, "Exported %d rows", len(rows))
	return nil
}
