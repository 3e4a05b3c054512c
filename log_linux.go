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

//go:build linux

package dispatch

import (
	"io"
	"os"
)

// dumpProcessStatus copies /proc/self/status to w, as the panic protocol's
// fallback when no PANIC handler is registered. It is a best-effort
// diagnostic dump; a failure to read the status file is itself written to
// w rather than propagated, since this runs on the way to process abort.
func dumpProcessStatus(w io.Writer) {
	f, err := os.Open("/proc/self/status")
	if err != nil {
		io.WriteString(w, "dispatch: could not open /proc/self/status: "+err.Error()+"\n")
		return
	}
	defer f.Close()

	io.Copy(w, f)
}
