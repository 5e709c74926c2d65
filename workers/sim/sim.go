// Package sim provides a free-running synthetic variable generator
// worker: a driver with no external device, useful for development and
// for exercising update coalescing without any transport dependency.
package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/simumatik/drivermanager/protocol"
	"github.com/simumatik/drivermanager/worker"
)

const defaultTick = 100 * time.Millisecond

// Worker increments every registered variable by one on each tick and
// reports the result as an UPDATE message.
type Worker struct {
	tick   time.Duration
	values map[string]float64
}

// New constructs a sim worker. params["tick_ms"], if present, overrides
// the default tick interval.
func New(params map[string]interface{}) (worker.Task, error) {
	w := &Worker{tick: defaultTick, values: map[string]float64{}}
	if ms, ok := params["tick_ms"].(float64); ok && ms > 0 {
		w.tick = time.Duration(ms) * time.Millisecond
	}
	return w, nil
}

// Factory adapts New to worker.Factory.
var Factory = worker.FactoryFunc(New)

func (w *Worker) Run(ctx context.Context, side worker.WorkerSide) error {
	_ = side.SendMessage(protocol.Status{Status: protocol.StatusRunning})

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.tickOnce(side)
		default:
			if cmd, ok := side.PollCommand(); ok {
				if w.handleCommand(side, cmd) {
					return nil
				}
			} else {
				time.Sleep(time.Millisecond)
			}
		}
	}
}

func (w *Worker) handleCommand(side worker.WorkerSide, cmd protocol.WorkerCommand) (exit bool) {
	switch c := cmd.(type) {
	case protocol.AddVariables:
		for _, e := range c.Variables {
			w.values[e.ID] = 0
		}
	case protocol.UpdateCommand:
		for varID, v := range c.Values {
			if f, ok := toFloat(v); ok {
				w.values[varID] = f
			}
		}
	case protocol.ExitCommand:
		return true
	}
	return false
}

func (w *Worker) tickOnce(side worker.WorkerSide) {
	if len(w.values) == 0 {
		return
	}
	out := make(map[string]interface{}, len(w.values))
	for varID, v := range w.values {
		v++
		w.values[varID] = v
		out[varID] = v
	}
	_ = side.SendMessage(protocol.UpdateMessage{Values: out})
	_ = side.SendMessage(protocol.Info{Text: fmt.Sprintf("tick: %d variables", len(out))})
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
