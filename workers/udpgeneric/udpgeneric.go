// Package udpgeneric is a generic UDP polling driver: it exchanges JSON
// telegrams with a peer, using a periodic {"poll": <sec>} message as a
// liveness heartbeat in both directions.
package udpgeneric

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/simumatik/drivermanager/protocol"
	"github.com/simumatik/drivermanager/worker"
)

const (
	defaultIP       = "127.0.0.1"
	defaultPort     = 8400
	defaultPolling  = time.Second
	defaultMaxBytes = 1024
)

// Worker is a single UDP-peer driver instance.
type Worker struct {
	addr    *net.UDPAddr
	polling time.Duration
	maxSize int

	conn *net.UDPConn

	variables map[string]protocol.VariableSpec
	lastSent  time.Time
	lastRecv  time.Time
}

// New constructs a udpgeneric worker from setup parameters: ip, port,
// polling (seconds), max_size (bytes), all optional.
func New(params map[string]interface{}) (worker.Task, error) {
	ip := defaultIP
	if v, ok := params["ip"].(string); ok && v != "" {
		ip = v
	}
	port := defaultPort
	if v, ok := toInt(params["port"]); ok {
		port = v
	}
	polling := defaultPolling
	if v, ok := toInt(params["polling"]); ok && v > 0 {
		polling = time.Duration(v) * time.Second
	}
	maxSize := defaultMaxBytes
	if v, ok := toInt(params["max_size"]); ok && v > 0 {
		maxSize = v
	}

	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", ip, port))
	if err != nil {
		return nil, err
	}

	return &Worker{
		addr:      addr,
		polling:   polling,
		maxSize:   maxSize,
		variables: map[string]protocol.VariableSpec{},
	}, nil
}

// Factory adapts New to worker.Factory.
var Factory = worker.FactoryFunc(New)

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}

func (w *Worker) Run(ctx context.Context, side worker.WorkerSide) error {
	if err := w.connect(); err != nil {
		_ = side.SendMessage(protocol.Info{Text: fmt.Sprintf("Connection failed: %v", err)})
		_ = side.SendMessage(protocol.Status{Status: protocol.StatusError})
	} else {
		_ = side.SendMessage(protocol.Status{Status: protocol.StatusRunning})
	}
	defer w.disconnect()

	buf := make([]byte, w.maxSize)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if cmd, ok := side.PollCommand(); ok {
			if w.handleCommand(side, cmd) {
				return nil
			}
		}

		if w.conn != nil {
			w.poll(side, buf)
		} else {
			time.Sleep(time.Millisecond)
		}
	}
}

func (w *Worker) handleCommand(side worker.WorkerSide, cmd protocol.WorkerCommand) (exit bool) {
	switch c := cmd.(type) {
	case protocol.AddVariables:
		for _, e := range c.Variables {
			w.variables[e.ID] = e.Spec
		}
	case protocol.UpdateCommand:
		w.write(side, c.Values)
	case protocol.ExitCommand:
		return true
	}
	return false
}

func (w *Worker) connect() error {
	conn, err := net.DialUDP("udp", nil, w.addr)
	if err != nil {
		return err
	}
	w.conn = conn
	w.lastSent = time.Now()
	w.lastRecv = time.Now()
	return nil
}

func (w *Worker) disconnect() {
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
}

// poll drains any pending datagrams, tracks the liveness heartbeat, and
// reports ERROR status if the peer has gone silent for more than two
// polling intervals.
func (w *Worker) poll(side worker.WorkerSide, buf []byte) {
	w.conn.SetReadDeadline(time.Now().Add(time.Millisecond))
	values := map[string]interface{}{}

	for {
		n, err := w.conn.Read(buf)
		if err != nil {
			break
		}
		var telegram map[string]interface{}
		if err := json.Unmarshal(buf[:n], &telegram); err != nil {
			continue
		}
		if _, ok := telegram["poll"]; ok {
			w.lastRecv = time.Now()
			delete(telegram, "poll")
		}
		for k, v := range telegram {
			values[k] = v
		}
	}

	if time.Since(w.lastRecv) > 2*w.polling {
		_ = side.SendMessage(protocol.Status{Status: protocol.StatusError})
		_ = side.SendMessage(protocol.Info{Text: "Polling msg was not received on time"})
	}

	if len(values) > 0 {
		_ = side.SendMessage(protocol.UpdateMessage{Values: values})
	}

	if time.Since(w.lastSent) >= w.polling {
		w.sendTelegram(map[string]interface{}{"poll": time.Now().Unix()})
		w.lastSent = time.Now()
	}
}

func (w *Worker) write(side worker.WorkerSide, values map[string]interface{}) {
	telegram := make(map[string]interface{}, len(values))
	if time.Since(w.lastSent) >= w.polling {
		telegram["poll"] = time.Now().Unix()
		w.lastSent = time.Now()
	}
	for k, v := range values {
		telegram[k] = v
	}
	w.sendTelegram(telegram)
}

func (w *Worker) sendTelegram(telegram map[string]interface{}) {
	data, err := json.Marshal(telegram)
	if err != nil {
		return
	}
	_, _ = w.conn.Write(data)
}
