// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package site contains miscellaneous details of the perfchart tool that are
// not really related to charts or alerts, such as shared flags and the config
// file.
package site
