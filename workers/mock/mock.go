// Package mock provides a fully scriptable worker.Task for exercising
// the Driver Manager without a real protocol implementation.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/simumatik/drivermanager/protocol"
	"github.com/simumatik/drivermanager/worker"
)

// Worker records every command it receives and lets a test emit worker
// messages on demand through Emit, once Run has attached its channel
// side.
type Worker struct {
	ready chan struct{}
	side  worker.WorkerSide

	mu       sync.Mutex
	received []protocol.WorkerCommand
}

// New returns an unstarted mock worker.
func New() *Worker {
	return &Worker{ready: make(chan struct{})}
}

// Run implements worker.Task: it polls commands until ctx is cancelled or
// an ExitCommand arrives.
func (w *Worker) Run(ctx context.Context, side worker.WorkerSide) error {
	w.side = side
	close(w.ready)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		cmd, ok := side.PollCommand()
		if !ok {
			time.Sleep(time.Millisecond)
			continue
		}
		w.mu.Lock()
		w.received = append(w.received, cmd)
		w.mu.Unlock()
		if _, exit := cmd.(protocol.ExitCommand); exit {
			return nil
		}
	}
}

// Received returns every command observed so far, in arrival order.
func (w *Worker) Received() []protocol.WorkerCommand {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]protocol.WorkerCommand, len(w.received))
	copy(out, w.received)
	return out
}

// Emit sends a worker message toward the manager. It blocks until Run has
// started (so tests can call it immediately after launch).
func (w *Worker) Emit(msg protocol.WorkerMessage) error {
	<-w.ready
	return w.side.SendMessage(msg)
}

// Factory builds mock workers and remembers every instance it created, so
// a test can reach back into a specific driver's worker after
// provisioning.
type Factory struct {
	mu      sync.Mutex
	Created []*Worker
}

func (f *Factory) New(params map[string]interface{}) (worker.Task, error) {
	w := New()
	f.mu.Lock()
	f.Created = append(f.Created, w)
	f.mu.Unlock()
	return w, nil
}

// Last returns the most recently created worker, or nil if none yet.
func (f *Factory) Last() *Worker {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Created) == 0 {
		return nil
	}
	return f.Created[len(f.Created)-1]
}
