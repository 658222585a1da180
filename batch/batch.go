// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package batch fans concurrent timeseries readers in to chart batches.
package batch

import (
	"context"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/iterator"

	"github.com/potato17/catapult/chart"
)

// Reader fetches timeseries and passes each one to emit. An error returned by
// a Reader is reported in a batch and does not stop the other readers.
type Reader func(ctx context.Context, emit func(chart.Result)) error

type item struct {
	result chart.Result
	err    error
}

// Iterator collects the output of readers into batches.
type Iterator struct {
	cancel context.CancelFunc
	items  chan item
}

var _ chart.BatchSource = (*Iterator)(nil)

// NewIterator starts readers, at most concurrency at a time. A concurrency
// of 0 or less does not limit them.
//
// Readers run until they return or ctx is done. Call Stop to release them
// early.
func NewIterator(ctx context.Context, concurrency int, readers ...Reader) *Iterator {
	ctx, cancel := context.WithCancel(ctx)
	it := &Iterator{cancel: cancel, items: make(chan item)}

	send := func(i item) {
		select {
		case it.items <- i:
		case <-ctx.Done():
		}
	}

	eg := &errgroup.Group{}
	if concurrency > 0 {
		eg.SetLimit(concurrency)
	}
	go func() {
		for i, r := range readers {
			i, r := i, r
			eg.Go(func() error {
				err := r(ctx, func(res chart.Result) { send(item{result: res}) })
				if err != nil {
					logging.Debugf(ctx, "Reader %d failed: %s", i, err)
					send(item{err: errors.Annotate(err, "reader %d", i).Err()})
				}
				return nil
			})
		}
		eg.Wait()
		close(it.items)
		cancel()
	}()
	return it
}

// Next waits for at least one result or error and returns it together with
// everything else that is ready. It returns iterator.Done once every reader
// has returned and all their output has been consumed.
func (it *Iterator) Next(ctx context.Context) (*chart.Batch, error) {
	b := &chart.Batch{}
	select {
	case i, ok := <-it.items:
		if !ok {
			return nil, iterator.Done
		}
		add(b, i)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	for {
		select {
		case i, ok := <-it.items:
			if !ok {
				return b, nil
			}
			add(b, i)
		default:
			return b, nil
		}
	}
}

func add(b *chart.Batch, i item) {
	if i.err != nil {
		b.Errors = append(b.Errors, i.err)
		return
	}
	b.Results = append(b.Results, i.result)
}

// Stop cancels the readers and waits for them to return. Output that has not
// been consumed is discarded.
func (it *Iterator) Stop() {
	it.cancel()
	for range it.items {
	}
}
