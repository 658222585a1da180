// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package alerts

import (
	"strings"

	"go.chromium.org/luci/common/errors"
)

// Unit name suffixes encoding the improvement direction.
const (
	BiggerIsBetter  = "_biggerIsBetter"
	SmallerIsBetter = "_smallerIsBetter"
)

// AnomalyDescriptor identifies the timeseries an anomaly was found on.
type AnomalyDescriptor struct {
	// Bot is "master:bot".
	Bot         string `json:"bot"`
	Measurement string `json:"measurement"`
	Statistic   string `json:"statistic"`
	TestCase    string `json:"testCase"`
	TestSuite   string `json:"testSuite"`
}

// Anomaly is an alert as served by the alerts API.
type Anomaly struct {
	Key                 string            `json:"key"`
	Descriptor          AnomalyDescriptor `json:"descriptor"`
	BugID               int64             `json:"bug_id"`
	Improvement         bool              `json:"improvement"`
	Units               string            `json:"units"`
	StartRevision       int64             `json:"start_revision"`
	EndRevision         int64             `json:"end_revision"`
	MedianBeforeAnomaly float64           `json:"median_before_anomaly"`
	MedianAfterAnomaly  float64           `json:"median_after_anomaly"`
}

// FromAnomaly converts an API anomaly into an Alert.
//
// The improvement direction is inferred from whether the change is an
// improvement and which way the value moved.
func FromAnomaly(an *Anomaly) (*Alert, error) {
	if an == nil {
		return nil, errors.New("nil anomaly")
	}
	if an.StartRevision > an.EndRevision {
		return nil, errors.Reason("anomaly %q: start revision %d after end revision %d",
			an.Key, an.StartRevision, an.EndRevision).Err()
	}
	delta := an.MedianAfterAnomaly - an.MedianBeforeAnomaly
	// A zero baseline has no meaningful relative change.
	percent := 0.0
	if an.MedianBeforeAnomaly != 0 {
		percent = delta / an.MedianBeforeAnomaly
	}

	suffix := BiggerIsBetter
	if an.Improvement == (delta < 0) {
		suffix = SmallerIsBetter
	}

	master, bot, found := strings.Cut(an.Descriptor.Bot, ":")
	if !found {
		master, bot = "", an.Descriptor.Bot
	}

	return &Alert{
		Key:               an.Key,
		Master:            master,
		Bot:               bot,
		Suite:             an.Descriptor.TestSuite,
		Measurement:       an.Descriptor.Measurement,
		Case:              an.Descriptor.TestCase,
		Statistic:         an.Descriptor.Statistic,
		StartRevision:     an.StartRevision,
		EndRevision:       an.EndRevision,
		BugID:             an.BugID,
		Improvement:       an.Improvement,
		DeltaValue:        delta,
		PercentDeltaValue: percent,
		Unit:              baseUnitName(an.Units) + suffix,
	}, nil
}

// baseUnitName strips any improvement direction suffix from a unit name.
func baseUnitName(unit string) string {
	unit = strings.TrimSuffix(unit, BiggerIsBetter)
	unit = strings.TrimSuffix(unit, SmallerIsBetter)
	if unit == "" {
		return "unitlessNumber"
	}
	return unit
}
