// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package site

import (
	"context"
	"flag"

	"go.chromium.org/luci/common/data/text"
	"go.chromium.org/luci/common/logging"
)

// CommonFlags are the flags common to all commands. Commands embed it so that
// the log level is applied to their context.
type CommonFlags struct {
	configPath      string
	metricsTextfile string
	logLevel        logging.Level
}

// Register adds the common flags to f.
func (fl *CommonFlags) Register(f *flag.FlagSet) {
	fl.logLevel = logging.Info
	f.StringVar(&fl.configPath, "config", "", text.Doc(`
		Path to a YAML config file with alias tables, layout defaults and
		BigQuery tables.
	`))
	f.StringVar(&fl.metricsTextfile, "metrics-textfile", "", text.Doc(`
		If set, pipeline counters are written to this file in the Prometheus
		text format when the command finishes.
	`))
	f.Var(&fl.logLevel, "loglevel", text.Doc(`
		Log level, valid options are "debug", "info", "warning", "error".
		Default is "info".
	`))
}

// ModifyContext returns a new Context with the log level set in the flags.
func (fl *CommonFlags) ModifyContext(ctx context.Context) context.Context {
	return logging.SetLevel(ctx, fl.logLevel)
}

// Config loads the config file named by -config.
func (fl *CommonFlags) Config() (*Config, error) {
	return LoadConfig(fl.configPath)
}

// MetricsTextfile is the path metrics are written to, or "".
func (fl *CommonFlags) MetricsTextfile() string {
	return fl.metricsTextfile
}
