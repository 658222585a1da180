// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package site

import (
	"bytes"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"go.chromium.org/luci/common/errors"

	"github.com/potato17/catapult/alerts"
	"github.com/potato17/catapult/layout"
)

// DefaultFetchConcurrency bounds the readers run at once.
const DefaultFetchConcurrency = 10

// Config is the perfchart config file.
//
// Example:
//
//	aliases:
//	  process:
//	    memory:chrome:browser_process:malloc:
//	      - memory:chrome:renderer_processes:malloc
//	layout:
//	  mode: normalizeLine
//	  zero_y_axis: true
//	fetch_concurrency: 4
//	bigquery:
//	  points_table: proj.perf.points
//	  groups_table: proj.perf.alert_groups
type Config struct {
	Aliases          alerts.AliasTables `yaml:"aliases"`
	Layout           layout.Options     `yaml:"layout"`
	FetchConcurrency int                `yaml:"fetch_concurrency"`
	BigQuery         BigQuery           `yaml:"bigquery"`
}

// BigQuery names the export tables as <project>.<dataset>.<table>.
type BigQuery struct {
	PointsTable string `yaml:"points_table"`
	GroupsTable string `yaml:"groups_table"`
}

// DefaultConfig is used when no config file is given. Fields missing from a
// config file keep these values.
func DefaultConfig() *Config {
	return &Config{
		Layout: layout.Options{
			Mode:           layout.NormalizeUnit,
			GenerateXTicks: true,
			GenerateYTicks: true,
		},
		FetchConcurrency: DefaultFetchConcurrency,
	}
}

// LoadConfig reads the config file at path. An empty path yields
// DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Annotate(err, "load config").Err()
	}
	cfg, err := ParseConfig(b)
	return cfg, errors.Annotate(err, "load config %s", path).Err()
}

// ParseConfig parses a YAML config. Unknown keys are rejected.
func ParseConfig(b []byte) (*Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, err
	}
	if _, err := layout.ParseMode(string(cfg.Layout.Mode)); err != nil {
		return nil, err
	}
	if cfg.FetchConcurrency < 0 {
		return nil, errors.Reason("fetch_concurrency must not be negative, got %d", cfg.FetchConcurrency).Err()
	}
	return cfg, nil
}
