package daemon

import (
	"github.com/simumatik/drivermanager/protocol"
	"github.com/simumatik/drivermanager/worker"
)

const infoLogCap = 5

// variableRecord is one entry in a driver's variable table.
type variableRecord struct {
	handlers   []string
	parameters map[string]interface{}
	value      interface{}
	hasValue   bool
	info       string
	readCount  int
	writeCount int
}

func newVariableRecord(handle string, parameters map[string]interface{}) *variableRecord {
	return &variableRecord{
		handlers:   []string{handle},
		parameters: parameters,
	}
}

func (v *variableRecord) addHandler(h string) {
	for _, existing := range v.handlers {
		if existing == h {
			return
		}
	}
	v.handlers = append(v.handlers, h)
}

// driverRecord is one entry in the manager's driver table.
type driverRecord struct {
	name       string
	instanceID string // ULID, internal only; for log correlation across a crash/respawn-free lifetime
	class      string
	parameters map[string]interface{}
	handlers   []string
	variables  map[string]*variableRecord
	varOrder   []string // insertion order, for deterministic snapshot output

	status  protocol.DriverStatus
	latency string
	info    string
	infoLog []string

	channel worker.ManagerSide
	handle  worker.Handle

	pendingUpdates map[string]interface{} // var_id -> value, flushed each cycle
}

func newDriverRecord(name, class string, parameters map[string]interface{}, firstHandle string, channel worker.ManagerSide, h worker.Handle) *driverRecord {
	return &driverRecord{
		name:           name,
		instanceID:     newInstanceID(),
		class:          class,
		parameters:     parameters,
		handlers:       []string{firstHandle},
		variables:      map[string]*variableRecord{},
		status:         protocol.StatusSetup,
		channel:        channel,
		handle:         h,
		pendingUpdates: map[string]interface{}{},
	}
}

func (d *driverRecord) addHandler(h string) {
	for _, existing := range d.handlers {
		if existing == h {
			return
		}
	}
	d.handlers = append(d.handlers, h)
}

func (d *driverRecord) pushInfo(text string) {
	d.infoLog = append(d.infoLog, text)
	if len(d.infoLog) > infoLogCap {
		d.infoLog = d.infoLog[len(d.infoLog)-infoLogCap:]
	}
}

// handleEntry is the Handle Index payload: (variable-id, driver-name).
type handleEntry struct {
	varID  string
	driver string
}

// handleIndex is the manager's global handle -> (variable, driver) table.
// Kept as a flat map with back-references rather than an object graph, so
// ownership stays with the driver table.
type handleIndex map[string]handleEntry

func (idx handleIndex) lookup(handle string) (handleEntry, bool) {
	e, ok := idx[handle]
	return e, ok
}
