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

package dispatchutil_test

import (
	"errors"
	"testing"

	"github.com/dmshaw/dispatch"
	"github.com/dmshaw/dispatch/dispatchutil"
)

func TestNewTableDropsSentinelEntries(t *testing.T) {
	table := dispatchutil.NewTable(
		dispatch.HandlerEntry{Type: 0, Handler: dispatchutil.NotImplementedHandler},
		dispatch.HandlerEntry{Type: 7, Handler: dispatchutil.NotImplementedHandler},
	)
	if len(table) != 1 {
		t.Fatalf("len(table) = %d, want 1", len(table))
	}
	if table[0].Type != 7 {
		t.Errorf("table[0].Type = %d, want 7", table[0].Type)
	}
}

func TestNotImplementedHandlerAlwaysFails(t *testing.T) {
	err := dispatchutil.NotImplementedHandler(nil, 42)
	if !errors.Is(err, dispatchutil.ErrNotImplemented) {
		t.Errorf("err = %v, want ErrNotImplemented", err)
	}
}
