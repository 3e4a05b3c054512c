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

package dispatch

import (
	"errors"
	"log"
	"math"
	"sync"
)

// Config holds process-wide dispatch parameters. There is a single
// process-wide configuration, established by the first call to Init or,
// if Init was never called, lazily defaulted by the first call to Listen.
type Config struct {
	// MaxConcurrency bounds the number of handler invocations in progress
	// at once. Zero means unbounded (normalized internally to MaxInt32).
	MaxConcurrency int

	// StackSize is accepted for parity with the original library's
	// per-worker stack size parameter. Goroutines have no explicit stack
	// size knob, so this field is retained but has no effect; it is not
	// validated.
	StackSize int

	// PanicOnFailedAccept, if true, routes an accept error other than
	// EINTR through the panic protocol. If false, the accept loop logs
	// (subject to LogOnFailedAccept) and keeps accepting.
	PanicOnFailedAccept bool

	// LogOnFailedAccept is a modulus: when nonzero, every Nth accept
	// failure (1-based, counted for the lifetime of the process) is
	// logged. Zero means never log.
	LogOnFailedAccept int

	// DebugLog receives the accept-failure records selected by
	// LogOnFailedAccept, analogous to the teacher's debugLogger. Nil means
	// silent, in which case no accept failure is logged.
	DebugLog *log.Logger

	// ErrorLog receives panic-protocol records in addition to the
	// unconditional copy always written to stderr. Nil means the stderr
	// copy is the only one made.
	ErrorLog *log.Logger
}

// DefaultConfig returns the configuration installed implicitly when Listen
// is called before any Init: unbounded concurrency, OS-default stack size,
// fatal on failed accept, and no accept-failure logging.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency:      math.MaxInt32,
		StackSize:           0,
		PanicOnFailedAccept: true,
		LogOnFailedAccept:   0,
	}
}

var (
	configMu       sync.Mutex
	processConfig  *Config
	errAlreadyInit = errors.New("dispatch: Init has already been called for this process")
)

// Init installs cfg as the single process-wide configuration. It may be
// called at most once per process; a second call returns an error rather
// than silently replacing the first configuration (a deliberate departure
// from the original library, which clobbers a prior config on re-init —
// recorded as an explicit decision rather than reproduced, since silently
// discarding a caller's earlier configuration is surprising in Go code
// that might call Init from more than one package's init func).
// A MaxConcurrency of 0 is normalized to unbounded.
func Init(cfg Config) error {
	configMu.Lock()
	defer configMu.Unlock()

	if processConfig != nil {
		return errAlreadyInit
	}

	if cfg.MaxConcurrency == 0 {
		cfg.MaxConcurrency = math.MaxInt32
	}

	processConfig = &cfg
	return nil
}

// activeConfig returns the process-wide configuration, lazily installing
// DefaultConfig if Init was never called.
func activeConfig() *Config {
	configMu.Lock()
	defer configMu.Unlock()

	if processConfig == nil {
		cfg := DefaultConfig()
		processConfig = &cfg
	}
	return processConfig
}
