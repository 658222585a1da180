// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package commands

import (
	"context"
	"strconv"

	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/data/text"
	"go.chromium.org/luci/common/errors"
	luciflag "go.chromium.org/luci/common/flag"
	"go.chromium.org/luci/common/logging"

	"github.com/potato17/catapult/batch"
	"github.com/potato17/catapult/bqexport"
	"github.com/potato17/catapult/chart"
	"github.com/potato17/catapult/internal/cmdlib"
	"github.com/potato17/catapult/internal/metrics"
	"github.com/potato17/catapult/internal/site"
	"github.com/potato17/catapult/layout"
)

// LayoutCommand merges fetched timeseries into chart lines and lays them out.
var LayoutCommand = &subcommands.Command{
	UsageLine: "layout -input <file> [options...]",
	ShortDesc: "merge timeseries and lay out a chart",
	LongDesc: text.Doc(`
		Merge fetched timeseries into chart lines and lay them out.

		The input is a JSON object with "lineDescriptors", "results" and
		"errors". Every result is fed to the chart as if fetched
		concurrently; results without a "fetch" are assigned the fetches of
		their line in order. The laid out chart is printed as JSON.
	`),
	CommandRun: func() subcommands.CommandRun {
		c := &layoutCommand{}
		c.CommonFlags.Register(&c.Flags)
		c.Flags.StringVar(&c.input, "input", "-", `Input JSON file, "-" for stdin.`)
		c.Flags.Var(&c.mode, "mode", "Layout mode: "+modeEnum.Choices()+".")
		c.Flags.BoolVar(&c.zeroYAxis, "zero-y", false, "Include zero in every y range.")
		c.Flags.BoolVar(&c.fixedXAxis, "fixed-x", false, "Space revisions evenly.")
		c.Flags.Var(&c.lod, "lod", "Level of detail: "+levelOfDetailEnum.Choices()+".")
		c.Flags.Int64Var(&c.minRevision, "min-rev", -1, "Drop revisions before this one. Negative means unbounded.")
		c.Flags.Int64Var(&c.maxRevision, "max-rev", -1, "Drop revisions after this one. Negative means unbounded.")
		c.Flags.BoolVar(&c.showStd, "show-std", false, "Shade one standard deviation around each point.")
		c.Flags.Var(luciflag.CommaList(&c.brushes), "brush", "Comma-separated revisions to place brushes at. Tooltips are printed for each.")
		c.Flags.StringVar(&c.pointsTable, "bq-table", "", text.Doc(`
			BigQuery table to export plotted points to, in the form
			<project>.<dataset>.<table>. Overrides the config file.
		`))
		return c
	},
}

type layoutCommand struct {
	subcommands.CommandRunBase
	site.CommonFlags

	input       string
	mode        modeFlag
	zeroYAxis   bool
	fixedXAxis  bool
	lod         levelOfDetailFlag
	minRevision int64
	maxRevision int64
	showStd     bool
	brushes     []string
	pointsTable string
}

// Run is the main entrypoint to layout.
func (c *layoutCommand) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := cli.GetContext(a, c, env)
	if err := c.innerRun(ctx, a, args); err != nil {
		cmdlib.PrintError(a, err)
		return 1
	}
	return 0
}

func (c *layoutCommand) innerRun(ctx context.Context, a subcommands.Application, args []string) error {
	if len(args) != 0 {
		return cmdlib.NewUsageError(c.Flags, "unexpected positional arguments %q", args)
	}
	cfg, err := c.Config()
	if err != nil {
		return err
	}
	opt, err := c.chartOptions(cfg)
	if err != nil {
		return cmdlib.NewUsageError(c.Flags, "%s", err)
	}

	var in layoutInput
	if err := cmdlib.ReadJSONFile(c.input, &in); err != nil {
		return err
	}

	reg, rec, err := newRecorder()
	if err != nil {
		return err
	}
	opt.Metrics = rec

	out, err := runLayout(ctx, &in, opt, cfg.FetchConcurrency)
	if err != nil {
		return err
	}

	table := c.pointsTable
	if table == "" {
		table = cfg.BigQuery.PointsTable
	}
	if table != "" {
		if err := exportLayout(ctx, table, out.Layout, rec); err != nil {
			return err
		}
	}
	if err := writeMetrics(ctx, reg, c.MetricsTextfile()); err != nil {
		return err
	}
	return cmdlib.WriteJSON(a.GetOut(), out)
}

// chartOptions applies the flags given on the command line over cfg.
func (c *layoutCommand) chartOptions(cfg *site.Config) (chart.Options, error) {
	opt := chart.Options{Layout: cfg.Layout, LevelOfDetail: chart.XY, ShowStd: c.showStd}
	set := setFlags(&c.Flags)
	if set.Has("mode") {
		opt.Layout.Mode = c.mode.mode
	}
	if set.Has("zero-y") {
		opt.Layout.ZeroYAxis = c.zeroYAxis
	}
	if set.Has("fixed-x") {
		opt.Layout.FixedXAxis = c.fixedXAxis
	}
	if set.Has("lod") {
		opt.LevelOfDetail = c.lod.lod
	}
	if c.minRevision >= 0 {
		lo := c.minRevision
		opt.Range.Min = &lo
	}
	if c.maxRevision >= 0 {
		hi := c.maxRevision
		opt.Range.Max = &hi
	}
	for _, b := range c.brushes {
		rev, err := strconv.ParseInt(b, 10, 64)
		if err != nil {
			return chart.Options{}, errors.Annotate(err, "bad -brush %q", b).Err()
		}
		opt.BrushRevisions = append(opt.BrushRevisions, rev)
	}
	return opt, nil
}

type layoutInput struct {
	LineDescriptors []*chart.Descriptor `json:"lineDescriptors"`
	Results         []chart.Result      `json:"results"`
	Errors          []string            `json:"errors"`
}

type brushTooltip struct {
	Revision int64              `json:"revision"`
	Rows     []chart.TooltipRow `json:"rows"`
}

type layoutOutput struct {
	Layout   *layout.Result `json:"layout"`
	Tooltips []brushTooltip `json:"tooltips,omitempty"`
	Errors   []string       `json:"errors,omitempty"`
}

// runLayout feeds in to a chart through concurrent readers and returns the
// final layout. Fetch errors are reported in the output rather than failing.
func runLayout(ctx context.Context, in *layoutInput, opt chart.Options, concurrency int) (*layoutOutput, error) {
	if len(in.LineDescriptors) == 0 {
		return nil, errors.New("no lineDescriptors in input")
	}
	c := chart.New(in.LineDescriptors, opt)
	readers, err := readersFor(in, c.Descriptors(), opt.LevelOfDetail)
	if err != nil {
		return nil, err
	}
	it := batch.NewIterator(ctx, concurrency, readers...)
	defer it.Stop()

	res, err := c.Load(ctx, it)
	if err != nil {
		return nil, err
	}
	if res == nil {
		logging.Warningf(ctx, "No data for any of %d lines", len(in.LineDescriptors))
		if res, err = layout.Layout(nil, opt.Layout); err != nil {
			return nil, err
		}
	}

	out := &layoutOutput{Layout: res}
	for _, b := range res.XAxis.Brushes {
		out.Tooltips = append(out.Tooltips, brushTooltip{Revision: int64(b.X), Rows: chart.TooltipAt(res, b.X)})
	}
	if merr, ok := c.Err().(errors.MultiError); ok {
		for _, e := range merr {
			out.Errors = append(out.Errors, e.Error())
		}
	}
	return out, nil
}

// readersFor returns one reader per input result and per input error.
//
// A result without a fetch descriptor takes the next unused fetch of its
// line, so that results of one line never replace each other.
func readersFor(in *layoutInput, descriptors []*chart.Descriptor, lod chart.LevelOfDetail) ([]batch.Reader, error) {
	used := make([]int, len(descriptors))
	var readers []batch.Reader
	for i := range in.Results {
		r := in.Results[i]
		if r.Fetch.IsZero() {
			if j := indexOf(descriptors, r.Descriptor); j >= 0 {
				fetches := chart.FetchDescriptors(descriptors[j], lod)
				if used[j] >= len(fetches) {
					return nil, errors.Reason("result %d: line %s has only %d timeseries", i, descriptors[j].Key(), len(fetches)).Err()
				}
				r.Fetch = fetches[used[j]]
				used[j]++
			}
		}
		readers = append(readers, func(ctx context.Context, emit func(chart.Result)) error {
			emit(r)
			return nil
		})
	}
	for _, msg := range in.Errors {
		msg := msg
		readers = append(readers, func(ctx context.Context, emit func(chart.Result)) error {
			return errors.New(msg)
		})
	}
	return readers, nil
}

func indexOf(descriptors []*chart.Descriptor, d *chart.Descriptor) int {
	if d == nil {
		return -1
	}
	for i, other := range descriptors {
		if d.Equal(other) {
			return i
		}
	}
	return -1
}

func exportLayout(ctx context.Context, table string, res *layout.Result, rec *metrics.Recorder) error {
	ref, err := bqexport.ParseTableRef(table)
	if err != nil {
		return err
	}
	e, closeClient, err := bqexport.NewExporter(ctx, ref, bqexport.TableRef{}, rec)
	if err != nil {
		return err
	}
	defer closeClient()
	logging.Infof(ctx, "Exporting points to %s", ref)
	return e.ExportLayout(ctx, res)
}
