// Package agentwire drives agent CLIs as if they were remote services.
//
// A client spawns the agent binary, writes one JSON value per line to its
// stdin, and reads one JSON value per line from its stdout. Two dialects are
// supported:
//
//   - Streaming (package claude): one query yields a finite sequence of
//     events ending with a terminal "result" event.
//   - Multi-turn (package codex): id-correlated requests, each answered by
//     exactly one response, with notifications and server requests
//     interleaved at any time.
//
// # Core Types
//
//   - [Options] / [Option]: shared client configuration (logger, buffer size,
//     strict correlation)
//   - [IOError], [DecodeError], [RPCError], [ProtocolError]: the error taxonomy
//   - [ErrConnectionClosed], [ErrUninitialized]: sentinel conditions
//
// The building blocks live in subpackages: proc (process handle), wire
// (line framing, tolerant decoding, turn tracking), jsonrpc (correlation).
//
// # Variants
//
// Every facade comes in two flavours with identical observable sequencing.
// The Sync variants block on the caller's goroutine and take no context. The
// context-aware variants honour ctx at every read, write, and wait.
//
// # Quick Start
//
//	c, err := claude.Start(ctx, claude.Builder{Model: "sonnet"})
//	if err != nil { log.Fatal(err) }
//	defer c.Close()
//	stream, err := c.Query(ctx, "What is 2+2?")
//	if err != nil { log.Fatal(err) }
//	for out, err := range stream.All(ctx) {
//	    if err != nil { log.Fatal(err) }
//	    fmt.Println(out.Type)
//	}
package agentwire
