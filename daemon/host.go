package daemon

import "github.com/simumatik/drivermanager/protocol"

// HostChannel is the manager's one bidirectional channel to the host.
// The manager only depends on this interface; how frames actually reach
// a process boundary is up to the embedder (see cmd/drivermanagerd for a
// stdio JSON-line implementation).
type HostChannel interface {
	// PollCommand is non-blocking: a false return means no frame is
	// currently available.
	PollCommand() (protocol.HostCommand, bool)
	// Send delivers an outbound frame. The manager treats this as
	// non-blocking and never waits for the host to drain.
	Send(frame protocol.HostFrame) error
}

// HostPipe is an in-process HostChannel backed by buffered Go channels,
// used by tests and by in-process embedders of Manager.
type HostPipe struct {
	Commands chan protocol.HostCommand
	Frames   chan protocol.HostFrame
}

// NewHostPipe returns a HostPipe with buffering generous enough that a
// test driving the manager directly never blocks on Send.
func NewHostPipe() *HostPipe {
	return &HostPipe{
		Commands: make(chan protocol.HostCommand, 256),
		Frames:   make(chan protocol.HostFrame, 256),
	}
}

func (p *HostPipe) PollCommand() (protocol.HostCommand, bool) {
	select {
	case cmd := <-p.Commands:
		return cmd, true
	default:
		return nil, false
	}
}

func (p *HostPipe) Send(frame protocol.HostFrame) error {
	select {
	case p.Frames <- frame:
		return nil
	default:
		// Outbound state is already coalesced upstream of this call;
		// a full buffer here means the host isn't draining, which is
		// a host problem, not ours.
		return nil
	}
}
