// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package layout

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestComputeTicks(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		r    Range
		n    int
		want []float64
	}{
		{"zero to hundred", ExplicitRange(0, 100), 5, []float64{10, 32.5, 55, 77.5, 100}},
		{"straddles zero", ExplicitRange(-50, 100), 5, []float64{-35, 0, 35, 70}},
		{"negative", ExplicitRange(-100, -50), 5, []float64{-90, -80, -70, -60, -50}},
		{"coarse power", ExplicitRange(0, 900), 5, []float64{100, 300, 500, 700, 900}},
		{"two ticks", ExplicitRange(1, 3), 2, []float64{2, 3}},
		{"zero width", ExplicitRange(5, 5), 5, []float64{5}},
		{"empty", Range{}, 5, nil},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := ComputeTicks(tc.r, tc.n)
			if err != nil {
				t.Fatalf("ComputeTicks: %s", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("unexpected diff (-want +got):\n%s", diff)
			}
		})
	}
}

func TestComputeTicksHasZero(t *testing.T) {
	t.Parallel()

	for _, r := range []Range{ExplicitRange(-50, 100), ExplicitRange(-0.3, 7), ExplicitRange(-1234, 5)} {
		ticks, err := ComputeTicks(r, DefaultNumTicks)
		if err != nil {
			t.Fatalf("ComputeTicks(%v): %s", r, err)
		}
		found := false
		for _, tick := range ticks {
			found = found || tick == 0
			if tick < r.Min() || tick > r.Max() {
				t.Errorf("tick %v outside [%v, %v]", tick, r.Min(), r.Max())
			}
		}
		if !found {
			t.Errorf("ComputeTicks(%v) = %v, want a tick at 0", r, ticks)
		}
	}
}

func TestComputeTicksRejectsFewTicks(t *testing.T) {
	t.Parallel()

	for _, n := range []int{-1, 0, 1} {
		if _, err := ComputeTicks(ExplicitRange(0, 1), n); err == nil {
			t.Errorf("ComputeTicks(n=%d) should fail", n)
		}
	}
}

func TestLesserPower(t *testing.T) {
	t.Parallel()

	for x, want := range map[float64]float64{
		1000: 1000,
		999:  100,
		100:  100,
		99.9: 10,
		1:    1,
		0.05: 0.01,
	} {
		if got := lesserPower(x); got != want {
			t.Errorf("lesserPower(%v) = %v, want %v", x, got, want)
		}
	}
}
