// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package commands

import (
	"context"
	"strings"

	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/data/text"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/potato17/catapult/alerts"
	"github.com/potato17/catapult/bqexport"
	"github.com/potato17/catapult/internal/cmdlib"
	"github.com/potato17/catapult/internal/metrics"
	"github.com/potato17/catapult/internal/site"
)

// GroupAlertsCommand groups alerts with overlapping revision ranges.
var GroupAlertsCommand = &subcommands.Command{
	UsageLine: "group-alerts -input <file> [options...]",
	ShortDesc: "group related alerts",
	LongDesc: text.Doc(`
		Group alerts whose revision ranges overlap and whose measurements are
		related.

		The input is a JSON object with "anomalies" as served by the alerts
		API, already converted "alerts", or both, and optionally the
		"previousGroups" printed by an earlier run. Alerts of previous groups
		are grouped again together with the new ones, and expanded groups
		stay expanded. Alias tables are read from the config file.
	`),
	CommandRun: func() subcommands.CommandRun {
		c := &groupAlertsCommand{}
		c.CommonFlags.Register(&c.Flags)
		c.Flags.StringVar(&c.input, "input", "-", `Input JSON file, "-" for stdin.`)
		c.Flags.BoolVar(&c.groupBugs, "group-bugs", false, "Group alerts that share a bug even if their ranges do not overlap.")
		c.Flags.BoolVar(&c.hideTriaged, "hide-triaged", false, "Drop groups whose alerts are all triaged.")
		c.Flags.StringVar(&c.sortColumn, "sort", "startRevision", "Sort column: "+strings.Join(alerts.SortColumns, ", ")+".")
		c.Flags.BoolVar(&c.descending, "descending", true, "Sort in descending order.")
		c.Flags.StringVar(&c.groupsTable, "bq-table", "", text.Doc(`
			BigQuery table to export groups to, in the form
			<project>.<dataset>.<table>. Overrides the config file.
		`))
		return c
	},
}

type groupAlertsCommand struct {
	subcommands.CommandRunBase
	site.CommonFlags

	input       string
	groupBugs   bool
	hideTriaged bool
	sortColumn  string
	descending  bool
	groupsTable string
}

// Run is the main entrypoint to group-alerts.
func (c *groupAlertsCommand) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := cli.GetContext(a, c, env)
	if err := c.innerRun(ctx, a, args); err != nil {
		cmdlib.PrintError(a, err)
		return 1
	}
	return 0
}

func (c *groupAlertsCommand) innerRun(ctx context.Context, a subcommands.Application, args []string) error {
	if len(args) != 0 {
		return cmdlib.NewUsageError(c.Flags, "unexpected positional arguments %q", args)
	}
	cfg, err := c.Config()
	if err != nil {
		return err
	}

	var in groupAlertsInput
	if err := cmdlib.ReadJSONFile(c.input, &in); err != nil {
		return err
	}
	out, err := groupAlerts(ctx, &in, cfg.Aliases, groupOptions{
		groupBugs:   c.groupBugs,
		hideTriaged: c.hideTriaged,
		sortColumn:  c.sortColumn,
		descending:  c.descending,
	})
	if err != nil {
		return err
	}

	reg, rec, err := newRecorder()
	if err != nil {
		return err
	}
	table := c.groupsTable
	if table == "" {
		table = cfg.BigQuery.GroupsTable
	}
	if table != "" {
		if err := exportGroups(ctx, table, out.Groups, rec); err != nil {
			return err
		}
	}
	if err := writeMetrics(ctx, reg, c.MetricsTextfile()); err != nil {
		return err
	}
	return cmdlib.WriteJSON(a.GetOut(), out)
}

type groupAlertsInput struct {
	Anomalies      []*alerts.Anomaly `json:"anomalies"`
	Alerts         []*alerts.Alert   `json:"alerts"`
	PreviousGroups []*alerts.Group   `json:"previousGroups"`
}

type groupAlertsOutput struct {
	Groups  []*alerts.Group `json:"groups"`
	Columns alerts.Columns  `json:"columns"`
}

type groupOptions struct {
	groupBugs   bool
	hideTriaged bool
	sortColumn  string
	descending  bool
}

func groupAlerts(ctx context.Context, in *groupAlertsInput, aliases alerts.AliasTables, opt groupOptions) (*groupAlertsOutput, error) {
	all := make([]*alerts.Alert, 0, len(in.Anomalies)+len(in.Alerts))
	for _, an := range in.Anomalies {
		a, err := alerts.FromAnomaly(an)
		if err != nil {
			return nil, errors.Annotate(err, "convert anomalies").Err()
		}
		all = append(all, a)
	}
	all = append(all, in.Alerts...)
	all = withPrevious(all, in.PreviousGroups)

	groups := alerts.Summarize(alerts.Group(alerts.Augment(all, aliases), opt.groupBugs), in.PreviousGroups)
	logging.Debugf(ctx, "Grouped %d alerts into %d groups", len(all), len(groups))
	if opt.hideTriaged {
		groups = alerts.DropTriaged(groups)
	}
	if err := alerts.SortGroups(groups, opt.sortColumn, opt.descending); err != nil {
		return nil, err
	}
	if groups == nil {
		groups = []*alerts.Group{}
	}
	return &groupAlertsOutput{
		Groups:  groups,
		Columns: alerts.VisibleColumns(groups, !opt.hideTriaged),
	}, nil
}

// withPrevious appends the alerts of earlier groups to incoming, so that they
// are grouped again with the new ones. Incoming alerts win over earlier
// alerts with the same key.
func withPrevious(incoming []*alerts.Alert, previous []*alerts.Group) []*alerts.Alert {
	seen := stringset.New(len(incoming))
	for _, a := range incoming {
		seen.Add(a.Key)
	}
	for _, g := range previous {
		for _, a := range g.Alerts {
			if a != nil && seen.Add(a.Key) {
				incoming = append(incoming, a)
			}
		}
	}
	return incoming
}

func exportGroups(ctx context.Context, table string, groups []*alerts.Group, rec *metrics.Recorder) error {
	ref, err := bqexport.ParseTableRef(table)
	if err != nil {
		return err
	}
	e, closeClient, err := bqexport.NewExporter(ctx, bqexport.TableRef{}, ref, rec)
	if err != nil {
		return err
	}
	defer closeClient()
	logging.Infof(ctx, "Exporting %d groups to %s", len(groups), ref)
	return e.ExportGroups(ctx, groups)
}
