package worker

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os/exec"
	"sync"

	"github.com/simumatik/drivermanager/protocol"
)

// ProcessStrategy launches each worker as an isolated OS subprocess,
// framing protocol.WorkerCommand/WorkerMessage as newline-delimited JSON
// over the child's stdin/stdout. Executables maps driver class -> the
// worker binary (and any fixed leading args) to exec.
type ProcessStrategy struct {
	Executables map[string][]string
}

func (s *ProcessStrategy) Launch(class string, params map[string]interface{}) (ManagerSide, Handle, error) {
	argv, ok := s.Executables[class]
	if !ok || len(argv) == 0 {
		return nil, nil, ErrUnknownClass{Class: class}
	}

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, nil, err
	}

	cmd := exec.Command(argv[0], append(append([]string{}, argv[1:]...), string(paramsJSON))...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("worker: launching %s: %w", argv[0], err)
	}

	side := &processSide{
		cmd:      cmd,
		stdin:    stdin,
		messages: make(chan protocol.WorkerMessage, 64),
		done:     make(chan struct{}),
	}
	go side.pump(stdout)

	return side, side, nil
}

// processSide implements both ManagerSide and Handle for a subprocess
// worker: sending writes a line to the child's stdin, polling drains a
// channel fed by a background reader goroutine.
type processSide struct {
	cmd   *exec.Cmd
	stdin writeCloser

	mu     sync.Mutex
	closed bool

	messages chan protocol.WorkerMessage
	done     chan struct{}
}

type writeCloser interface {
	Write(p []byte) (int, error)
	Close() error
}

func (p *processSide) pump(stdout readCloser) {
	defer close(p.done)
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		msg, err := decodeMessage(scanner.Bytes())
		if err != nil {
			continue
		}
		p.messages <- msg
	}
}

type readCloser interface {
	Read(p []byte) (int, error)
}

func (p *processSide) SendCommand(cmd protocol.WorkerCommand) error {
	line, err := encodeCommand(cmd)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrChannelClosed
	}
	line = append(line, '\n')
	_, err = p.stdin.Write(line)
	return err
}

func (p *processSide) PollMessage() (protocol.WorkerMessage, bool) {
	select {
	case msg := <-p.messages:
		return msg, true
	default:
		return nil, false
	}
}

func (p *processSide) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.stdin.Close()
}

func (p *processSide) Join() error {
	p.Close()
	<-p.done
	return p.cmd.Wait()
}
