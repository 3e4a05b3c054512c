// Copyright 2015 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package dispatchutil collects convenience helpers for building a
// dispatch.HandlerEntry table and for loading dispatch.Config from the
// environment, mirroring the role fuseutil plays for the fuse package:
// none of this is required to use the core package directly, but it is
// the shape most callers reach for.
package dispatchutil

import (
	"errors"

	"github.com/dmshaw/dispatch"
)

// ErrNotImplemented is returned by NotImplementedHandler, the ENOSYS
// equivalent for a message type a server acknowledges but does not serve.
var ErrNotImplemented = errors.New("dispatchutil: handler not implemented")

// NotImplementedHandler is a dispatch.Handler that always fails with
// ErrNotImplemented without touching conn, for registering a type the
// server wants bound (so unknown-type panics don't trigger) while its
// behavior is still being written.
func NotImplementedHandler(conn *dispatch.Connection, msgType uint16) error {
	return ErrNotImplemented
}

// NewTable builds a []dispatch.HandlerEntry from entries, in order,
// skipping any whose Type is zero (the sentinel value is not meaningful
// in this API; see dispatch.HandlerEntry). It performs no deduplication:
// dispatch.Listen keeps the first match for a duplicated type, the same
// as a caller-built slice would.
func NewTable(entries ...dispatch.HandlerEntry) []dispatch.HandlerEntry {
	table := make([]dispatch.HandlerEntry, 0, len(entries))
	for _, e := range entries {
		if e.Type == 0 {
			continue
		}
		table = append(table, e)
	}
	return table
}
