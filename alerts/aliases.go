// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package alerts

import (
	"gopkg.in/yaml.v3"

	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/errors"
)

// AliasTables map a measurement name to names that should be treated as the
// same measurement when grouping alerts.
//
// Process aliases relate the same memory component across processes, component
// aliases relate components within a process. Both are consulted and unioned.
type AliasTables struct {
	Process   map[string][]string `yaml:"process" json:"process"`
	Component map[string][]string `yaml:"component" json:"component"`
}

// ParseAliasTables parses alias tables from YAML.
//
// Example:
//
//	process:
//	  memory:chrome:browser_process:reported_by_os:malloc:
//	    - memory:chrome:renderer_processes:reported_by_os:malloc
//	component:
//	  ...
func ParseAliasTables(data []byte) (AliasTables, error) {
	var t AliasTables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return AliasTables{}, errors.Annotate(err, "parse alias tables").Err()
	}
	return t, nil
}

// RelatedNames returns the union of both tables' aliases of measurement, or
// nil if neither table knows about it.
func (t AliasTables) RelatedNames(measurement string) stringset.Set {
	process, inProcess := t.Process[measurement]
	component, inComponent := t.Component[measurement]
	if !inProcess && !inComponent {
		return nil
	}
	names := stringset.New(len(process) + len(component))
	for _, name := range process {
		names.Add(name)
	}
	for _, name := range component {
		names.Add(name)
	}
	return names
}

// Augment returns copies of alerts with RelatedNames filled in from t.
//
// Alerts that already carry RelatedNames keep them. The input alerts are not
// modified, so the predicate evaluated during grouping sees only immutable
// values.
func Augment(alerts []*Alert, t AliasTables) []*Alert {
	out := make([]*Alert, len(alerts))
	for i, a := range alerts {
		c := *a
		if c.RelatedNames == nil {
			c.RelatedNames = t.RelatedNames(c.Measurement)
		}
		out[i] = &c
	}
	return out
}
