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

// Package dispatch implements a connection-oriented, typed-message RPC
// substrate over local (filesystem and abstract-namespace) stream sockets.
//
// A client calls Open against a service address, which performs a short
// handshake, then writes a message type with WriteType followed by whatever
// payload the two sides have agreed the type means. A server calls Listen
// with a table mapping message types to Handler functions; the engine it
// starts accepts connections concurrently, reads the type from each one,
// looks up the handler, and invokes it on its own goroutine, bounded by
// Config.MaxConcurrency concurrent handler invocations at a time.
//
// There is no message multiplexing within a connection: once a handler is
// invoked it owns the Connection until it returns, at which point the
// connection is closed by the engine. There is no authentication beyond
// whatever the operating system's peer-credential mechanism exposes via
// PeerInfo, and no transparent reconnection.
package dispatch
