package codex

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmora/agentwire"
)

const (
	lineTurnStarted   = `{"method":"turn/started","params":{"threadId":"th_1","turnId":"t_1"}}`
	lineDelta         = `{"method":"item/agentMessage/delta","params":{"threadId":"th_1","itemId":"m_1","delta":"4"}}`
	lineApproval      = `{"id":"ap-1","method":"item/commandExecution/requestApproval","params":{"threadId":"th_1","turnId":"t_1","callId":"c1","command":"ls","cwd":"/tmp"}}`
	lineTurnCompleted = `{"method":"turn/completed","params":{"threadId":"th_1","turnId":"t_1","turn":{"id":"t_1","items":[{"type":"agentMessage","id":"m_1","text":"4"}],"status":"completed"}}}`
)

func turnParams() TurnStartParams {
	return TurnStartParams{ThreadID: "th_1", Input: []UserInput{TextInput("2+2?")}}
}

func TestRunTurn_Normal(t *testing.T) {
	forEachVariant(t, func(t *testing.T, v variant) {
		c, peer, _ := newTestConn(t, v)
		ctx := ctxWithTimeout(t)

		var (
			turn    Turn
			methods []string
		)
		done := serve(func() (err error) {
			turn, err = c.runTurn(ctx, turnParams(), func(m ServerMessage) error {
				methods = append(methods, m.Method)
				if m.IsRequest() {
					return c.respond(ctx, m.ID, ApprovalResponse{Decision: DecisionAccept})
				}
				return nil
			})
			return err
		})

		req := peer.RecvMap()
		assert.Equal(t, MethodTurnStart, req["method"])
		peer.SendRaw(lineTurnStarted)
		peer.SendRaw(`{"id":1,"result":{"turn":{"id":"t_1","items":[],"status":"inProgress"}}}`)
		peer.SendRaw(lineDelta)
		peer.SendRaw(lineApproval)
		assert.JSONEq(t, `{"id":"ap-1","result":{"decision":"accept"}}`, string(peer.Recv()))
		peer.SendRaw(lineTurnCompleted)

		require.NoError(t, await(t, done))
		assert.Equal(t, []string{MethodTurnStarted, MethodAgentMessageDelta, MethodCommandApproval, MethodTurnCompleted}, methods)
		assert.Equal(t, TurnCompleted, turn.Status)
		require.Len(t, turn.Items, 1)
		assert.Equal(t, "4", turn.Items[0].Text())
	})
}

func TestRunTurn_SkipsOtherTurnCompletion(t *testing.T) {
	c, peer, _ := newTestConn(t, variants[1])
	ctx := ctxWithTimeout(t)

	var turn Turn
	done := serve(func() (err error) {
		turn, err = c.runTurn(ctx, turnParams(), nil)
		return err
	})
	peer.Recv()
	peer.SendRaw(`{"id":1,"result":{"turn":{"id":"t_1","items":[],"status":"inProgress"}}}`)
	peer.SendRaw(`{"method":"turn/completed","params":{"threadId":"th_1","turnId":"t_0","turn":{"id":"t_0","items":[],"status":"interrupted"}}}`)
	peer.SendRaw(`{"method":"turn/completed","params":{"threadId":"th_2","turnId":"t_1","turn":{"id":"t_1","items":[],"status":"failed"}}}`)
	peer.SendRaw(lineTurnCompleted)

	require.NoError(t, await(t, done))
	assert.Equal(t, "t_1", turn.ID)
	assert.Equal(t, TurnCompleted, turn.Status)
}

func TestRunTurn_NilHandlerDeclines(t *testing.T) {
	c, peer, _ := newTestConn(t, variants[0])
	ctx := ctxWithTimeout(t)

	done := serve(func() error {
		_, err := c.runTurn(ctx, turnParams(), nil)
		return err
	})
	peer.Recv()
	peer.SendRaw(`{"id":1,"result":{}}`)
	peer.SendRaw(lineApproval)
	assert.JSONEq(t, `{"id":"ap-1","result":{"decision":"decline"}}`, string(peer.Recv()))
	peer.SendRaw(`{"id":9,"method":"item/tool/call","params":{}}`)
	assert.JSONEq(t, `{"id":9,"error":{"code":-32601,"message":"unsupported request item/tool/call"}}`, string(peer.Recv()))
	peer.SendRaw(lineTurnCompleted)

	require.NoError(t, await(t, done))
}

func TestRunTurn_HandlerErrorStops(t *testing.T) {
	c, peer, _ := newTestConn(t, variants[1])
	ctx := ctxWithTimeout(t)
	stop := errors.New("stop")

	done := serve(func() error {
		_, err := c.runTurn(ctx, turnParams(), func(ServerMessage) error { return stop })
		return err
	})
	peer.Recv()
	peer.SendRaw(`{"id":1,"result":{}}`)
	peer.SendRaw(lineDelta)

	assert.ErrorIs(t, await(t, done), stop)
}

func TestRunTurn_EndOfInput(t *testing.T) {
	forEachVariant(t, func(t *testing.T, v variant) {
		c, peer, _ := newTestConn(t, v)
		ctx := ctxWithTimeout(t)

		done := serve(func() error {
			_, err := c.runTurn(ctx, turnParams(), nil)
			return err
		})
		peer.Recv()
		peer.SendRaw(`{"id":1,"result":{}}`)
		peer.SendRaw(lineTurnStarted)
		peer.Close()

		assert.ErrorIs(t, await(t, done), agentwire.ErrConnectionClosed)
	})
}

func TestRunTurn_StartErrorReturned(t *testing.T) {
	c, peer, _ := newTestConn(t, variants[0])
	ctx := ctxWithTimeout(t)

	done := serve(func() error {
		_, err := c.runTurn(ctx, turnParams(), nil)
		return err
	})
	peer.Recv()
	peer.SendRaw(`{"id":1,"error":{"code":-32600,"message":"no such thread"}}`)

	var rerr *agentwire.RPCError
	assert.ErrorAs(t, await(t, done), &rerr)
}
