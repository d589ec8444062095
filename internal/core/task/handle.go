package task

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Handle controls a job running in the background.
type Handle struct {
	name   string
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// newHandle starts loop in the background. onExit sees the loop's result
// before Done is closed.
func newHandle(name string, loop func(context.Context) error, onExit func(error)) *Handle {
	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	h := &Handle{name: name, cancel: cancel, done: make(chan struct{})}
	g.Go(func() error { return loop(gctx) })
	go func() {
		h.err = g.Wait()
		cancel()
		onExit(h.err)
		close(h.done)
	}()
	return h
}

func (h *Handle) Name() string { return h.name }

// Stop prevents further runs. A run in progress completes first.
func (h *Handle) Stop() { h.cancel() }

// Done is closed once the background goroutine has exited.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the background goroutine exits and returns the error of
// the run that stopped it, if any.
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}
