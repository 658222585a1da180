// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Command perfchart merges perf dashboard timeseries into laid out charts and
// groups perf alerts.
package main

import (
	"context"
	"os"

	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/logging/gologger"

	"github.com/potato17/catapult/internal/commands"
)

// getApplication returns the perfchart command line application.
func getApplication() *cli.Application {
	return &cli.Application{
		Name:  "perfchart",
		Title: "perf dashboard chart and alert tool",
		Context: func(ctx context.Context) context.Context {
			return gologger.StdConfig.Use(ctx)
		},
		Commands: []*subcommands.Command{
			subcommands.CmdHelp,
			commands.LayoutCommand,
			commands.GroupAlertsCommand,
			commands.TicksCommand,
		},
	}
}

// main is the entrypoint to the perfchart command line application.
func main() {
	os.Exit(subcommands.Run(getApplication(), nil))
}
