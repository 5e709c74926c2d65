package daemon

import (
	"github.com/simumatik/drivermanager/protocol"
)

// applyHostWrites routes each entry of a host UPDATES batch through the
// handle index, drops writes to non-RUNNING drivers, and coalesces a
// change-only value into the owning driver's pendingUpdates. After the
// whole batch, every driver with a non-empty pendingUpdates gets exactly
// one UPDATE command.
func (m *Manager) applyHostWrites(cmd protocol.Updates) {
	touched := map[string]*driverRecord{}

	for handle, value := range cmd.Values {
		entry, ok := m.index.lookup(handle)
		if !ok {
			m.log.WithField("handle", handle).Error(ErrUnknownHandle.New(handle).Error())
			continue
		}
		d, ok := m.drivers[entry.driver]
		if !ok {
			continue
		}
		if d.status != protocol.StatusRunning {
			continue
		}
		v, ok := d.variables[entry.varID]
		if !ok {
			continue
		}
		if v.hasValue && valuesEqual(v.value, value) {
			continue
		}

		d.pendingUpdates[entry.varID] = value
		v.value = value
		v.hasValue = true
		v.writeCount++
		touched[d.name] = d
	}

	for _, d := range touched {
		if len(d.pendingUpdates) == 0 {
			continue
		}
		_ = d.channel.SendCommand(protocol.UpdateCommand{Values: d.pendingUpdates})
		d.pendingUpdates = map[string]interface{}{}
	}
}
