// Package worker defines the Driver Worker Contract: the abstract peer the
// manager talks to over one bidirectional channel per driver, and the two
// isolation strategies (goroutine or OS subprocess) that can back it.
package worker

import (
	"errors"

	"github.com/simumatik/drivermanager/protocol"
)

// ErrChannelClosed is returned by Send once the peer side has closed its
// end of the pipe.
var ErrChannelClosed = errors.New("worker channel closed")

// ManagerSide is the manager's endpoint of a driver's channel. Reads are
// non-blocking (poll-then-recv); sends may block briefly if the
// underlying buffer is full, but never while holding a lock.
type ManagerSide interface {
	SendCommand(cmd protocol.WorkerCommand) error
	PollMessage() (protocol.WorkerMessage, bool)
	Close() error
}

// WorkerSide is the worker's endpoint of the same channel, handed to a
// Task's Run method (goroutine strategy) or driven internally by the
// subprocess framing (process strategy).
type WorkerSide interface {
	SendMessage(msg protocol.WorkerMessage) error
	PollCommand() (protocol.WorkerCommand, bool)
	Close() error
}

// pipe is an in-process, goroutine-backed bidirectional channel, modeled
// on a pair of connected pipe ends rather than a single shared queue: each
// side owns an inbound buffer the other side writes to.
type pipe struct {
	toWorker  chan protocol.WorkerCommand
	toManager chan protocol.WorkerMessage
	closed    chan struct{}
}

// NewPipe returns the two connected ends of an in-process channel, sized
// to tolerate a manager cycle's worth of traffic without blocking under
// normal load.
func NewPipe() (ManagerSide, WorkerSide) {
	p := &pipe{
		toWorker:  make(chan protocol.WorkerCommand, 64),
		toManager: make(chan protocol.WorkerMessage, 64),
		closed:    make(chan struct{}),
	}
	return (*managerEnd)(p), (*workerEnd)(p)
}

type managerEnd pipe

func (m *managerEnd) SendCommand(cmd protocol.WorkerCommand) error {
	select {
	case <-m.closed:
		return ErrChannelClosed
	default:
	}
	select {
	case m.toWorker <- cmd:
		return nil
	case <-m.closed:
		return ErrChannelClosed
	}
}

func (m *managerEnd) PollMessage() (protocol.WorkerMessage, bool) {
	select {
	case msg := <-m.toManager:
		return msg, true
	default:
		return nil, false
	}
}

func (m *managerEnd) Close() error {
	closePipeOnce((*pipe)(m))
	return nil
}

type workerEnd pipe

func (w *workerEnd) SendMessage(msg protocol.WorkerMessage) error {
	select {
	case <-w.closed:
		return ErrChannelClosed
	default:
	}
	select {
	case w.toManager <- msg:
		return nil
	case <-w.closed:
		return ErrChannelClosed
	}
}

func (w *workerEnd) PollCommand() (protocol.WorkerCommand, bool) {
	select {
	case cmd := <-w.toWorker:
		return cmd, true
	default:
		return nil, false
	}
}

func (w *workerEnd) Close() error {
	closePipeOnce((*pipe)(w))
	return nil
}

func closePipeOnce(p *pipe) {
	select {
	case <-p.closed:
	default:
		close(p.closed)
	}
}
