package generator

import (
	"context"
	"sync"
)

// Call is a generation running in the background. It can be cancelled
// from another goroutine, e.g. a second HTTP request.
type Call struct {
	cancel context.CancelFunc
	done   chan struct{}

	once   sync.Once
	result Result
	err    error
}

// Start runs Generate in a new goroutine. The call ends when it completes,
// when ctx is done, or when Cancel is called.
func (g *Generator) Start(ctx context.Context, req Request) *Call {
	ctx, cancel := context.WithCancel(ctx)
	c := &Call{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(c.done)
		defer cancel()
		c.result, c.err = g.Generate(ctx, req)
	}()
	return c
}

// Cancel aborts the call. Wait then reports an ABORTED error unless the
// result was already complete.
func (c *Call) Cancel() {
	c.once.Do(c.cancel)
}

// Done is closed when the call has finished.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the call has finished and returns its outcome.
func (c *Call) Wait() (Result, error) {
	<-c.done
	return c.result, c.err
}
