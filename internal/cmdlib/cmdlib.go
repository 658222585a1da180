// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package cmdlib holds helpers shared by perfchart subcommands.
package cmdlib

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/errors"
)

// UserErrorReporter reports a detailed error message to the user.
//
// PrintError() uses a UserErrorReporter to print multi-line user error details
// along with the actual error.
type UserErrorReporter interface {
	// Report a user-friendly error through w.
	ReportUserError(w io.Writer)
}

// PrintError reports errors back to the user.
//
// Detailed error information is printed if err is a UserErrorReporter. Each
// error of an errors.MultiError is printed on its own line.
func PrintError(a subcommands.Application, err error) {
	if u, ok := err.(UserErrorReporter); ok {
		u.ReportUserError(a.GetErr())
		return
	}
	if merr, ok := err.(errors.MultiError); ok && len(merr) > 1 {
		for _, e := range merr {
			fmt.Fprintf(a.GetErr(), "%s: %s\n", a.GetName(), e)
		}
		return
	}
	fmt.Fprintf(a.GetErr(), "%s: %s\n", a.GetName(), err)
}

// NewUsageError creates a new error that also reports flags usage error
// details.
func NewUsageError(flags flag.FlagSet, format string, a ...interface{}) error {
	return &usageError{
		error: fmt.Errorf(format, a...),
		flags: flags,
	}
}

type usageError struct {
	error
	flags flag.FlagSet
}

func (e *usageError) ReportUserError(w io.Writer) {
	fmt.Fprintf(w, "%s\n\nUsage:\n\n", e.error)
	e.flags.SetOutput(w)
	e.flags.PrintDefaults()
}

// ReadJSONFile decodes the JSON file at path into v. A path of "-" reads
// stdin.
func ReadJSONFile(path string, v interface{}) error {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return errors.Annotate(err, "read %s", path).Err()
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return errors.Annotate(err, "decode %s", path).Err()
	}
	return nil
}

// WriteJSON writes v to w as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Annotate(enc.Encode(v), "write json").Err()
}
