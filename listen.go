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
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/jacobsa/reqtrace"
	"github.com/jacobsa/syncutil"
	"github.com/jacobsa/timeutil"

	"github.com/dmshaw/dispatch/internal/dispatcherr"
	"github.com/dmshaw/dispatch/internal/sockaddr"
)

// acceptBacklog is the fixed backlog passed to listen(2).
const acceptBacklog = 100

// osExit is a package-level variable so tests can observe the panic
// protocol's abort path without killing the test process.
var osExit = os.Exit

// clock supplies timestamps for panic-protocol and unknown-type log lines;
// overridden in tests for determinism.
var clock timeutil.Clock = timeutil.RealClock()

// engine is the heap-owned accept-loop descriptor: the listening socket
// and the defensive copy of the caller's handler table. It lives from
// Listen until process exit; there is no graceful shutdown in this
// revision.
type engine struct {
	listenFD int
	handlers []HandlerEntry
	cfg      *Config

	// sem guards active against max concurrency. Its invariant is checked
	// on every Unlock the way the teacher documents GUARDED_BY
	// relationships on fuse.Connection.mu.
	sem    syncutil.InvariantMutex
	active int
	cond   sync.Cond

	acceptFailures int // lifetime count, never reset; guards panic/log modulus
}

// Listen validates its arguments as Open does, builds a listening local
// stream socket for service, and begins accepting connections dispatched
// to handlers. If flags includes NoReturn, the calling goroutine becomes
// the accept loop and Listen only returns via the panic protocol (which
// does not return at all); otherwise a goroutine is spawned to run the
// accept loop and Listen returns nil immediately.
func Listen(host, service string, flags Flags, handlers []HandlerEntry) error {
	if host != "" {
		return dispatcherr.New(Invalid, "listen", fmt.Errorf("non-empty host %q is not supported", host))
	}
	if flags&^knownFlags != 0 {
		return dispatcherr.New(Invalid, "listen", fmt.Errorf("unrecognized flag bits %#x", flags&^knownFlags))
	}
	if flags&Local == 0 {
		return dispatcherr.New(Invalid, "listen", fmt.Errorf("flags %#x do not include Local", flags))
	}

	addr, err := sockaddr.PopulateLocalAddress(service)
	if err != nil {
		return err
	}

	fd, err := unix.Socket(unix.AF_LOCAL, unix.SOCK_STREAM, 0)
	if err != nil {
		return dispatcherr.New(System, "socket", err)
	}

	if err := sockaddr.SetCloseOnExec(fd); err != nil {
		unix.Close(fd)
		return err
	}

	if service[0] == '/' {
		// Remove a stale filesystem node left behind by a previous
		// instance; abstract names live in a kernel-managed namespace and
		// need no such cleanup.
		_ = unix.Unlink(service)
	}

	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return dispatcherr.New(System, "bind", err)
	}

	if err := unix.Listen(fd, acceptBacklog); err != nil {
		unix.Close(fd)
		return dispatcherr.New(System, "listen", err)
	}

	e := &engine{
		listenFD: fd,
		handlers: copyHandlerTable(handlers),
		cfg:      activeConfig(),
	}
	e.sem = syncutil.NewInvariantMutex(e.checkInvariants)
	e.cond.L = &e.sem

	if flags&NoReturn != 0 {
		e.acceptLoop()
		return nil // unreachable: acceptLoop only returns via panic protocol
	}

	go e.acceptLoop()
	return nil
}

// copyHandlerTable takes a defensive copy of handlers, dropping any
// sentinel (type 0) entries a caller may have appended out of habit from
// the original C table format; type 0 is an encoding artifact in this
// API, not a value callers need to supply.
func copyHandlerTable(handlers []HandlerEntry) []HandlerEntry {
	out := make([]HandlerEntry, 0, len(handlers))
	for _, h := range handlers {
		if h.Type == 0 {
			continue
		}
		out = append(out, h)
	}
	return out
}

// checkInvariants enforces active <= MaxConcurrency on every unlock of e.sem.
func (e *engine) checkInvariants() {
	if e.active > e.cfg.MaxConcurrency {
		panic(fmt.Sprintf("active = %d exceeds MaxConcurrency = %d", e.active, e.cfg.MaxConcurrency))
	}
	if e.active < 0 {
		panic(fmt.Sprintf("active = %d went negative", e.active))
	}
}

// lookupHandler performs a linear scan of the handler table, first match
// wins, falling back to the built-in PING handler if the type is TypePing
// and the caller did not register one explicitly. TypePanic is never
// dispatched from the network: it is reported as unknown even when a
// PANIC handler is registered.
func (e *engine) lookupHandler(msgType uint16) (Handler, bool) {
	if msgType == TypePanic {
		return nil, false
	}
	for _, h := range e.handlers {
		if h.Type == msgType {
			return h.Handler, true
		}
	}
	if msgType == TypePing {
		return servePing, true
	}
	return nil, false
}

// servePing is the default handler for TypePing: reply with a single zero
// byte and read nothing, regardless of whatever payload a client sends
// after the type.
func servePing(conn *Connection, _ uint16) error {
	return conn.WriteUint8(0)
}

// acquireSlot blocks until active < MaxConcurrency, then increments active.
func (e *engine) acquireSlot() {
	e.sem.Lock()
	for e.active >= e.cfg.MaxConcurrency {
		e.cond.Wait()
	}
	e.active++
	e.sem.Unlock()
}

// releaseSlot decrements active and wakes one waiter, if any.
func (e *engine) releaseSlot() {
	e.sem.Lock()
	e.active--
	e.sem.Unlock()
	e.cond.Signal()
}

// acceptLoop repeatedly accepts connections, reads their message header,
// and dispatches to a worker goroutine. It never returns except through
// the panic protocol (which itself never returns).
func (e *engine) acceptLoop() {
	for {
		nfd, _, err := unix.Accept(e.listenFD)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			e.onAcceptFailure(err)
			continue
		}

		conn := newConnection(nfd, 0, true)

		if err := sockaddr.SetCloseOnExec(nfd); err != nil {
			e.panicProtocol("accept_cloexec", err)
			continue
		}

		e.acquireSlot()

		msgType, err := conn.readHeader()
		if err != nil {
			if errors.Is(err, io.EOF) {
				// EOF between slot acquisition and header read is not a
				// panic: the peer simply closed before sending anything.
				conn.Close()
				e.releaseSlot()
				continue
			}
			e.releaseSlot()
			e.panicProtocol("msg_read", err)
			continue
		}

		handler, ok := e.lookupHandler(msgType)
		if !ok {
			e.fatalUnknownType(msgType)
			continue
		}

		go e.runWorker(conn, handler, msgType)
	}
}

// runWorker invokes handler with conn, then closes the connection and
// releases the concurrency slot regardless of the handler's outcome.
// The invocation is wrapped in a reqtrace span so handler execution is
// traceable the way the teacher traces op handling on fuse.Connection.
func (e *engine) runWorker(conn *Connection, handler Handler, msgType uint16) {
	defer e.releaseSlot()
	defer conn.Close()

	_, report := reqtrace.Trace(context.Background(), fmt.Sprintf("dispatch.Handler(type=%d)", msgType))

	err := handler(conn, msgType)
	report(err)
}

// onAcceptFailure implements the accept-error branch of the panic
// protocol's trigger conditions: panic if configured fatal, otherwise log
// every Nth failure (the counter is lifetime-monotonic and never resets).
func (e *engine) onAcceptFailure(err error) {
	e.acceptFailures++

	if e.cfg.PanicOnFailedAccept {
		e.panicProtocol("accept", err)
		return
	}

	if e.cfg.LogOnFailedAccept > 0 && e.acceptFailures%e.cfg.LogOnFailedAccept == 0 {
		e.logf("accept failure #%d: %v", e.acceptFailures, err)
	}
}

// fatalUnknownType implements the engine's direct fatal path for an
// unregistered message type: log and abort without invoking a registered
// PANIC handler, mirroring the original library's lookup_handler failure
// (a distinct, simpler path from call_panic).
func (e *engine) fatalUnknownType(msgType uint16) {
	msg := fmt.Sprintf("dispatch: fatal: unknown message type %d at %v", msgType, clock.Now())
	fmt.Fprintln(os.Stderr, msg)
	if e.cfg.ErrorLog != nil {
		e.cfg.ErrorLog.Println(msg)
	}
	osExit(1)
}

// panicProtocol implements the panic protocol: log to stderr and the
// configured error log with the failing operation, current vs maximum
// concurrency, and the error string; invoke a registered PANIC handler if
// present, otherwise dump /proc/self/status where available; then abort.
func (e *engine) panicProtocol(op string, err error) {
	e.sem.Lock()
	active := e.active
	e.sem.Unlock()

	msg := fmt.Sprintf(
		"dispatch: PANIC at %v: op=%s active=%d max=%d error=%v",
		clock.Now(), op, active, e.cfg.MaxConcurrency, err)

	fmt.Fprintln(os.Stderr, msg)
	if e.cfg.ErrorLog != nil {
		e.cfg.ErrorLog.Println(msg)
	}

	if panicHandler, ok := e.lookupPanicHandler(); ok {
		_ = panicHandler(nil, TypePanic)
	} else {
		dumpProcessStatus(os.Stderr)
	}

	osExit(1)
}

// lookupPanicHandler finds a caller-registered TypePanic handler, if any.
// It bypasses lookupHandler's PING fallback since PANIC has no built-in.
func (e *engine) lookupPanicHandler() (Handler, bool) {
	for _, h := range e.handlers {
		if h.Type == TypePanic {
			return h.Handler, true
		}
	}
	return nil, false
}

func (e *engine) logf(format string, args ...interface{}) {
	if e.cfg.DebugLog != nil {
		e.cfg.DebugLog.Printf(format, args...)
	}
}
