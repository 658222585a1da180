// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package metrics counts chart pipeline events.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.chromium.org/luci/common/errors"
)

// Recorder holds the pipeline counters. A nil *Recorder records nothing.
type Recorder struct {
	mergedPoints   prometheus.Counter
	skippedSamples prometheus.Counter
	staleResults   prometheus.Counter
	fetchErrors    prometheus.Counter
	exportedRows   prometheus.Counter
	layoutLatency  prometheus.Histogram
}

// New creates a Recorder and registers its collectors with reg.
func New(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		mergedPoints: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "perfchart_merged_points_total",
			Help: "Points produced by merging timeseries.",
		}),
		skippedSamples: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "perfchart_skipped_samples_total",
			Help: "Samples dropped because their statistics were unusable.",
		}),
		staleResults: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "perfchart_stale_results_total",
			Help: "Fetch results for lines that are no longer requested.",
		}),
		fetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "perfchart_fetch_errors_total",
			Help: "Errors reported by fetchers.",
		}),
		exportedRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "perfchart_exported_rows_total",
			Help: "Rows written to BigQuery.",
		}),
		layoutLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "perfchart_layout_seconds",
			Help:    "Time spent laying out a chart.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
	}
	for _, c := range []prometheus.Collector{
		r.mergedPoints,
		r.skippedSamples,
		r.staleResults,
		r.fetchErrors,
		r.exportedRows,
		r.layoutLatency,
	} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Annotate(err, "register metrics").Err()
		}
	}
	return r, nil
}

func add(c prometheus.Counter, n int) {
	if n > 0 {
		c.Add(float64(n))
	}
}

// MergedPoints counts n merged points.
func (r *Recorder) MergedPoints(n int) {
	if r != nil {
		add(r.mergedPoints, n)
	}
}

// SkippedSamples counts n invalid samples.
func (r *Recorder) SkippedSamples(n int) {
	if r != nil {
		add(r.skippedSamples, n)
	}
}

// StaleResults counts n discarded results.
func (r *Recorder) StaleResults(n int) {
	if r != nil {
		add(r.staleResults, n)
	}
}

// FetchErrors counts n fetch errors.
func (r *Recorder) FetchErrors(n int) {
	if r != nil {
		add(r.fetchErrors, n)
	}
}

// ExportedRows counts n exported rows.
func (r *Recorder) ExportedRows(n int) {
	if r != nil {
		add(r.exportedRows, n)
	}
}

// ObserveLayout records the duration of one layout pass.
func (r *Recorder) ObserveLayout(d time.Duration) {
	if r != nil {
		r.layoutLatency.Observe(d.Seconds())
	}
}

// WriteTextfile writes everything gathered by g to path in the text
// exposition format, for the node exporter textfile collector.
func WriteTextfile(g prometheus.Gatherer, path string) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return errors.Annotate(err, "write metrics to %q", path).Err()
	}
	return nil
}
