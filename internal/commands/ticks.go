// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package commands

import (
	"context"
	"math"

	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/errors"

	"github.com/potato17/catapult/internal/cmdlib"
	"github.com/potato17/catapult/layout"
)

// TicksCommand prints axis ticks for a range.
var TicksCommand = &subcommands.Command{
	UsageLine: "ticks -min <value> -max <value> [options...]",
	ShortDesc: "compute axis ticks",
	LongDesc:  "Compute round axis ticks for a range and print them as JSON.",
	CommandRun: func() subcommands.CommandRun {
		c := &ticksCommand{}
		c.Flags.Float64Var(&c.min, "min", math.NaN(), "Lower end of the range. Required.")
		c.Flags.Float64Var(&c.max, "max", math.NaN(), "Upper end of the range. Required.")
		c.Flags.IntVar(&c.n, "n", layout.DefaultNumTicks, "Number of ticks to aim for, at least 2.")
		c.Flags.StringVar(&c.unit, "unit", "unitlessNumber", "Unit used to label the ticks.")
		return c
	},
}

type ticksCommand struct {
	subcommands.CommandRunBase

	min  float64
	max  float64
	n    int
	unit string
}

// Run is the main entrypoint to ticks.
func (c *ticksCommand) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := cli.GetContext(a, c, env)
	if err := c.innerRun(ctx, a, args); err != nil {
		cmdlib.PrintError(a, err)
		return 1
	}
	return 0
}

func (c *ticksCommand) innerRun(ctx context.Context, a subcommands.Application, args []string) error {
	if len(args) != 0 {
		return cmdlib.NewUsageError(c.Flags, "unexpected positional arguments %q", args)
	}
	if math.IsNaN(c.min) || math.IsNaN(c.max) {
		return cmdlib.NewUsageError(c.Flags, "-min and -max are required")
	}
	unit, err := layout.ParseUnit(c.unit)
	if err != nil {
		return cmdlib.NewUsageError(c.Flags, "%s", err)
	}
	ticks, err := computeTicks(c.min, c.max, c.n, unit)
	if err != nil {
		return err
	}
	return cmdlib.WriteJSON(a.GetOut(), ticks)
}

// computeTicks labels the ticks of [min, max] with unit and positions them
// left to right.
func computeTicks(min, max float64, n int, unit layout.Unit) ([]layout.Tick, error) {
	if min > max {
		return nil, errors.Reason("min %g is greater than max %g", min, max).Err()
	}
	r := layout.ExplicitRange(min, max)
	values, err := layout.ComputeTicks(r, n)
	if err != nil {
		return nil, err
	}
	ticks := make([]layout.Tick, 0, len(values))
	for _, v := range values {
		pct := 0.0
		if r.Span() > 0 {
			pct = math.Round(r.Normalize(v)*1000) / 10
		}
		ticks = append(ticks, layout.Tick{Value: v, Text: unit.Format(v), Pct: pct})
	}
	return ticks, nil
}
