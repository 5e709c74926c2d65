package daemon

import (
	"context"
	"strings"

	opentracing "github.com/opentracing/opentracing-go"

	"github.com/simumatik/drivermanager/protocol"
)

const latencyMarker = "Latency"

// reconcile drains up to Config.MaxPipeLoops worker messages per driver,
// in insertion order, and classifies them into the four outbound
// coalescing maps. The per-driver cap keeps one chatty worker from
// monopolizing a cycle. Returns whether any message was processed, so
// the dispatcher knows the cycle did work.
func (m *Manager) reconcile(ctx context.Context) bool {
	sp, _ := opentracing.StartSpanFromContext(ctx, "drivermanager.reconcile")
	defer sp.Finish()

	didWork := false
	for _, name := range m.order {
		d, ok := m.drivers[name]
		if !ok {
			continue
		}
		for i := 0; i < m.cfg.MaxPipeLoops; i++ {
			msg, ok := d.channel.PollMessage()
			if !ok {
				break
			}
			didWork = true
			m.applyWorkerMessage(d, msg)
		}
	}
	return didWork
}

func (m *Manager) applyWorkerMessage(d *driverRecord, msg protocol.WorkerMessage) {
	switch v := msg.(type) {
	case protocol.Status:
		m.applyStatus(d, v)
	case protocol.Info:
		m.applyInfo(d, v)
	case protocol.VarInfo:
		m.applyVarInfo(d, v)
	case protocol.UpdateMessage:
		m.applyUpdate(d, v)
	default:
		m.log.WithField("driver", d.name).Error(ErrUnknownWorkerMessage.New(msg, d.name).Error())
	}
}

func (m *Manager) applyStatus(d *driverRecord, msg protocol.Status) {
	if msg.Status == d.status {
		return
	}
	d.status = msg.Status
	driverStatusTotal.WithLabelValues(string(msg.Status)).Inc()
	for _, h := range d.handlers {
		m.statusUpdates.set(h, msg.Status)
	}
}

func (m *Manager) applyInfo(d *driverRecord, msg protocol.Info) {
	if strings.Contains(msg.Text, latencyMarker) {
		d.latency = msg.Text
		return
	}
	d.pushInfo(msg.Text)
	d.info = msg.Text
	for _, h := range d.handlers {
		m.infoUpdates.set(h, msg.Text)
	}
}

func (m *Manager) applyVarInfo(d *driverRecord, msg protocol.VarInfo) {
	v, ok := d.variables[msg.VarID]
	if !ok {
		return
	}
	if v.info == msg.Text {
		return
	}
	v.info = msg.Text
	for _, h := range v.handlers {
		m.varInfoUpdates.set(h, msg.Text)
	}
}

func (m *Manager) applyUpdate(d *driverRecord, msg protocol.UpdateMessage) {
	for varID, value := range msg.Values {
		v, ok := d.variables[varID]
		if !ok {
			continue
		}
		if v.hasValue && valuesEqual(v.value, value) {
			continue
		}
		v.value = value
		v.hasValue = true
		v.readCount++
		for _, h := range v.handlers {
			m.valueUpdates.set(h, value)
		}
	}
}
