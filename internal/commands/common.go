// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package commands implements the perfchart subcommands.
package commands

import (
	"context"
	"flag"

	"github.com/prometheus/client_golang/prometheus"

	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/flag/flagenum"
	"go.chromium.org/luci/common/logging"

	"github.com/potato17/catapult/chart"
	"github.com/potato17/catapult/internal/metrics"
	"github.com/potato17/catapult/layout"
)

var modeEnum = flagenum.Enum{
	string(layout.NormalizeUnit): layout.NormalizeUnit,
	string(layout.NormalizeLine): layout.NormalizeLine,
	string(layout.Center):        layout.Center,
	string(layout.Delta):         layout.Delta,
}

// modeFlag is the -mode flag.
type modeFlag struct {
	mode layout.Mode
}

var _ flag.Value = (*modeFlag)(nil)

// String implements flag.Value
func (f *modeFlag) String() string {
	return modeEnum.FlagString(f.mode)
}

// Set implements flag.Value
func (f *modeFlag) Set(v string) error {
	return modeEnum.FlagSet(&f.mode, v)
}

var levelOfDetailEnum = flagenum.Enum{
	string(chart.XY):          chart.XY,
	string(chart.Alerts):      chart.Alerts,
	string(chart.Annotations): chart.Annotations,
}

// levelOfDetailFlag is the -lod flag.
type levelOfDetailFlag struct {
	lod chart.LevelOfDetail
}

var _ flag.Value = (*levelOfDetailFlag)(nil)

// String implements flag.Value
func (f *levelOfDetailFlag) String() string {
	return levelOfDetailEnum.FlagString(f.lod)
}

// Set implements flag.Value
func (f *levelOfDetailFlag) Set(v string) error {
	return levelOfDetailEnum.FlagSet(&f.lod, v)
}

// setFlags returns the names of the flags given on the command line.
func setFlags(f *flag.FlagSet) stringset.Set {
	set := stringset.New(0)
	f.Visit(func(fl *flag.Flag) { set.Add(fl.Name) })
	return set
}

// newRecorder returns a metrics recorder backed by a fresh registry.
func newRecorder() (*prometheus.Registry, *metrics.Recorder, error) {
	reg := prometheus.NewRegistry()
	rec, err := metrics.New(reg)
	if err != nil {
		return nil, nil, errors.Annotate(err, "register metrics").Err()
	}
	return reg, rec, nil
}

// writeMetrics dumps reg to path, if set.
func writeMetrics(ctx context.Context, reg *prometheus.Registry, path string) error {
	if path == "" {
		return nil
	}
	if err := metrics.WriteTextfile(reg, path); err != nil {
		return errors.Annotate(err, "write metrics").Err()
	}
	logging.Debugf(ctx, "Wrote metrics to %s", path)
	return nil
}
