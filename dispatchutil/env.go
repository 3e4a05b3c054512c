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

package dispatchutil

import (
	"os"
	"strconv"

	"github.com/dmshaw/dispatch"
)

// ConfigFromEnv overlays DISPATCH_MAX_CONCURRENCY, DISPATCH_STACK_SIZE, and
// DISPATCH_LOG_ACCEPT_FAILURES onto dispatch.DefaultConfig(), for operators
// wiring dispatch into a larger service without a code change. Any
// environment variable that is unset or fails to parse as a non-negative
// integer is left at its default value.
func ConfigFromEnv() dispatch.Config {
	cfg := dispatch.DefaultConfig()

	if v, ok := envInt("DISPATCH_MAX_CONCURRENCY"); ok {
		cfg.MaxConcurrency = v
	}
	if v, ok := envInt("DISPATCH_STACK_SIZE"); ok {
		cfg.StackSize = v
	}
	if v, ok := envInt("DISPATCH_LOG_ACCEPT_FAILURES"); ok {
		cfg.LogOnFailedAccept = v
	}

	return cfg
}

func envInt(name string) (int, bool) {
	s, ok := os.LookupEnv(name)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
