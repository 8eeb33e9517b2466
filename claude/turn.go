package claude

import (
	"context"

	"github.com/dmora/agentwire"
)

// TurnHandler sees every message of a turn, including the result. When
// tool approval is enabled it must answer can_use_tool requests with
// RespondControl. A non-nil error stops the turn.
type TurnHandler func(Output) error

// denyTools answers permission requests when no handler is given.
func (c *conn) denyTools(ctx context.Context) TurnHandler {
	return func(out Output) error {
		req := out.ControlRequest
		if req == nil || req.Request.Subtype != ControlCanUseTool {
			return nil
		}
		return c.respondControl(ctx, req.RequestID, Deny("no approval handler"))
	}
}

func (c *conn) runTurn(ctx context.Context, in Input, handle TurnHandler) (*ResultMessage, error) {
	if handle == nil {
		handle = c.denyTools(ctx)
	}
	s, err := c.query(ctx, in)
	if err != nil {
		return nil, err
	}
	for out, err := range s.All(ctx) {
		if err != nil {
			return nil, err
		}
		if err := handle(out); err != nil {
			return nil, err
		}
		if out.Result != nil {
			return out.Result, nil
		}
	}
	return nil, agentwire.ErrConnectionClosed
}

// RunTurn sends text and drains the turn through handle, returning the
// result message. A nil handle denies every tool request. An error result
// (IsError) is returned as a value, not an error.
func (cl *Client) RunTurn(ctx context.Context, text string, handle TurnHandler) (*ResultMessage, error) {
	return cl.c.runTurn(ctx, TextInput(text), handle)
}

// RunTurn is the blocking form of Client.RunTurn.
func (cl *SyncClient) RunTurn(text string, handle TurnHandler) (*ResultMessage, error) {
	return cl.c.runTurn(context.Background(), TextInput(text), handle)
}
