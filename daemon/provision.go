package daemon

import (
	"context"
	"fmt"

	"github.com/simumatik/drivermanager/protocol"
	"github.com/simumatik/drivermanager/worker"
)

// setupDrivers provisions a driver for every entry of a SETUP_DRIVERS
// command, in the host-supplied order. A launch failure marks that
// handle FAILED and leaves the rest of the batch unaffected.
func (m *Manager) setupDrivers(ctx context.Context, cmd protocol.SetupDrivers) protocol.SetupDriversReply {
	results := make(map[string]string, len(cmd.Entries))
	for _, e := range cmd.Entries {
		if err := m.provisionOne(ctx, e.Handle, e.Spec); err != nil {
			m.log.WithError(err).WithField("handle", e.Handle).Error("provisioning failed")
			results[e.Handle] = "FAILED"
			continue
		}
		results[e.Handle] = "SUCCESS"
	}
	return protocol.SetupDriversReply{Results: results}
}

func (m *Manager) provisionOne(ctx context.Context, handle string, spec protocol.DriverSpec) error {
	d := findCompatible(m.order, m.drivers, spec.Class, spec.Setup.Parameters)
	if d == nil {
		var err error
		d, err = m.startDriver(spec.Class, spec.Setup.Parameters, handle)
		if err != nil {
			driverLaunchErrors.Inc()
			return err
		}
	} else {
		d.addHandler(handle)
		// The new alias learns the driver's current state right away,
		// through the next STATUS emission; a fresh driver reports its
		// own state once its worker comes up.
		m.statusUpdates.set(handle, d.status)
	}

	m.registerVariables(d, spec.Setup.Variables)
	return nil
}

func (m *Manager) startDriver(class string, params map[string]interface{}, firstHandle string) (*driverRecord, error) {
	channel, h, err := m.strategy.Launch(class, params)
	if err != nil {
		if _, unknown := err.(worker.ErrUnknownClass); unknown {
			return nil, ErrUnknownDriverClass.New(class)
		}
		return nil, ErrWorkerLaunch.Wrap(err, class)
	}

	m.nextID++
	name := fmt.Sprintf("DRIVER_%d", m.nextID)
	d := newDriverRecord(name, class, params, firstHandle, channel, h)
	m.drivers[name] = d
	m.order = append(m.order, name)
	m.log.WithFields(map[string]interface{}{
		"driver":      d.name,
		"instance_id": d.instanceID,
		"class":       d.class,
	}).Info("driver launched")
	return d, nil
}

// registerVariables creates variable records for ids new on this driver,
// appends handles to existing ones, and sends a single ADD_VARIABLES
// command carrying only the variables new on this call, if any. Entries
// are processed in the host-supplied order.
func (m *Manager) registerVariables(d *driverRecord, entries []protocol.VariableEntry) {
	var newVars []protocol.VariableEntry

	for _, e := range entries {
		if e.Spec.Handle == "" {
			continue
		}

		v, exists := d.variables[e.ID]
		if !exists {
			v = newVariableRecord(e.Spec.Handle, e.Spec.Parameters)
			d.variables[e.ID] = v
			d.varOrder = append(d.varOrder, e.ID)
			newVars = append(newVars, e)
		} else {
			v.addHandler(e.Spec.Handle)
		}

		m.index[e.Spec.Handle] = handleEntry{varID: e.ID, driver: d.name}
	}

	if len(newVars) > 0 {
		_ = d.channel.SendCommand(protocol.AddVariables{Variables: newVars})
	}
}
