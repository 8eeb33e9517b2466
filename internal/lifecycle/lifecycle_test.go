package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeProcess struct {
	mu         sync.Mutex
	alive      bool
	terminated int
	released   int
	err        error
}

func (p *fakeProcess) IsAlive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.alive
}

func (p *fakeProcess) Terminate(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.terminated++
	p.alive = false
	return p.err
}

func (p *fakeProcess) Release() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released++
	return nil
}

func TestGuard_CloseTerminatesLiveChild(t *testing.T) {
	p := &fakeProcess{alive: true}
	stops := 0
	g := New(p, func() { stops++ })

	assert.False(t, g.Closed())
	assert.NoError(t, g.Close())
	assert.NoError(t, g.Close())
	assert.NoError(t, g.Shutdown(context.Background()))

	assert.True(t, g.Closed())
	assert.Equal(t, 1, p.terminated)
	assert.Equal(t, 1, stops)
}

func TestGuard_CloseAfterShutdownIsNoop(t *testing.T) {
	p := &fakeProcess{alive: true}
	g := New(p, nil)
	assert.NoError(t, g.Shutdown(context.Background()))
	p.alive = true
	assert.NoError(t, g.Close())
	assert.Equal(t, 1, p.terminated)
}

func TestGuard_CloseSkipsExitedChild(t *testing.T) {
	p := &fakeProcess{}
	stops := 0
	g := New(p, func() { stops++ })
	assert.NoError(t, g.Close())
	assert.Equal(t, 0, p.terminated)
	assert.Equal(t, 1, p.released)
	assert.Equal(t, 1, stops)
	assert.True(t, g.Closed())

	assert.NoError(t, g.Close())
	assert.Equal(t, 1, p.released)
}

func TestGuard_ShutdownReportsTerminateError(t *testing.T) {
	boom := errors.New("boom")
	g := New(&fakeProcess{alive: true, err: boom}, nil)
	assert.ErrorIs(t, g.Shutdown(context.Background()), boom)
	assert.NoError(t, g.Shutdown(context.Background()))
}
