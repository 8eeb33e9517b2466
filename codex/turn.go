package codex

import (
	"context"

	"github.com/dmora/agentwire"
	"github.com/dmora/agentwire/jsonrpc"
)

// TurnHandler sees every message of a turn, including the closing
// turn/completed. It must answer server requests (approvals) itself; a
// non-nil error stops the turn.
type TurnHandler func(ServerMessage) error

// declineAll is the handler used when none is given: approvals are
// declined and other requests get method-not-found.
func (c *conn) declineAll(ctx context.Context) TurnHandler {
	return func(m ServerMessage) error {
		if !m.IsRequest() {
			return nil
		}
		switch m.Method {
		case MethodCommandApproval, MethodFileChangeApproval:
			return c.respond(ctx, m.ID, ApprovalResponse{Decision: DecisionDecline})
		}
		return c.respondError(ctx, m.ID, jsonrpc.CodeMethodNotFound, "unsupported request "+m.Method, nil)
	}
}

// runTurn starts a turn and feeds handle until the matching turn/completed.
// A turn/completed for another turn id is passed to handle and skipped.
// If input ends first the result is ErrConnectionClosed.
func (c *conn) runTurn(ctx context.Context, p TurnStartParams, handle TurnHandler) (Turn, error) {
	if handle == nil {
		handle = c.declineAll(ctx)
	}
	resp, err := c.turnStart(ctx, p)
	if err != nil {
		return Turn{}, err
	}
	var turnID string
	if resp.Turn != nil {
		turnID = resp.Turn.ID
	}
	for m, err := range c.messages(ctx) {
		if err != nil {
			return Turn{}, err
		}
		if err := handle(m); err != nil {
			return Turn{}, err
		}
		if m.Method != MethodTurnCompleted {
			continue
		}
		tc, err := DecodeParams[TurnCompletedNotification](m)
		if err != nil {
			return Turn{}, err
		}
		if tc.ThreadID != "" && tc.ThreadID != p.ThreadID {
			continue
		}
		if turnID != "" && tc.Turn.ID != turnID {
			c.logger.Debug("turn completed for another turn", "want", turnID, "got", tc.Turn.ID)
			continue
		}
		return tc.Turn, nil
	}
	return Turn{}, agentwire.ErrConnectionClosed
}

// RunTurn starts a turn and drains messages through handle until it
// completes, returning the completed turn. A nil handle declines every
// approval. Check Turn.Status: a failed turn is not an error here.
func (cl *Client) RunTurn(ctx context.Context, p TurnStartParams, handle TurnHandler) (Turn, error) {
	return cl.c.runTurn(ctx, p, handle)
}

// RunTurn is the blocking form of Client.RunTurn.
func (cl *SyncClient) RunTurn(p TurnStartParams, handle TurnHandler) (Turn, error) {
	return cl.c.runTurn(context.Background(), p, handle)
}
