// Package codex drives the Codex CLI, either as a long-lived app-server or
// as one-shot exec runs.
//
// # App-server
//
// [Start] spawns "codex app-server --listen stdio://", performs the
// initialize handshake, and returns a [Client]. Requests are JSON-RPC
// without the "jsonrpc" field. Each typed request ([Client.ThreadStart],
// [Client.TurnStart], ...) waits for its own response; notifications and
// server requests read meanwhile are queued and come out of
// [Client.NextMessage] in wire order.
//
//	cl, err := codex.Start(ctx, codex.AppServer{})
//	th, err := cl.ThreadStart(ctx, codex.ThreadStartParams{})
//	_, err = cl.TurnStart(ctx, codex.TurnStartParams{
//	    ThreadID: th.ID(),
//	    Input:    []codex.UserInput{codex.TextInput("What is 2+2?")},
//	})
//	for m, err := range cl.Messages(ctx) {
//	    if err != nil { return err }
//	    switch m.Method {
//	    case codex.MethodAgentMessageDelta:
//	        d, _ := codex.DecodeParams[codex.DeltaNotification](m)
//	        fmt.Print(d.Delta)
//	    case codex.MethodCommandApproval, codex.MethodFileChangeApproval:
//	        _ = cl.RespondApproval(ctx, m.ID, codex.DecisionAccept)
//	    }
//	    if m.Method == codex.MethodTurnCompleted {
//	        break
//	    }
//	}
//
// [StartSync] returns the blocking [SyncClient] with the same operations.
//
// # Exec
//
// [Exec] runs "codex exec --json" for one prompt and returns an
// [ExecSession] over its [ThreadEvent] lines. The session ends after
// turn.completed or turn.failed and remembers the thread id from
// thread.started for a later resume.
package codex
