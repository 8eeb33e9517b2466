// Package claude drives the Claude Code CLI in bidirectional stream-json
// mode.
//
// A [Builder] describes the command line. [Start] spawns it and returns a
// context-aware [Client]; [StartSync] returns a blocking [SyncClient]. Both
// share one engine and observe the wire in the same order.
//
// # Turns
//
// [Client.Query] writes a user message and returns a [Stream] of [Output]
// values. The stream ends after the "result" message; the next Query starts
// a fresh stream. The session id carried by the first message that has one
// is captured and reused for later turns.
//
// # Tool Approval
//
// [Client.EnableToolApproval] sends an initialize control request. From
// then on the CLI asks before running tools: a "control_request" with
// subtype can_use_tool appears in the stream, and the caller answers with
// [Client.RespondControl] and an [Allow] or [Deny] result.
//
//	for out, err := range stream.All(ctx) {
//	    if err != nil { return err }
//	    if req := out.ControlRequest; req != nil && req.Request.Subtype == claude.ControlCanUseTool {
//	        _ = c.RespondControl(ctx, req.RequestID, claude.Allow(req.Request.Input))
//	    }
//	}
//
// # Message Types
//
// [Output] is a tagged union over system, user, assistant, result,
// control_request, control_response, error, rate_limit_event, and
// stream_event. Sub-kinds (system subtypes, content block types, stop
// reasons) decode from any string; values this package does not know are
// kept as-is and report Known() == false.
package claude
