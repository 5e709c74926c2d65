// Package protocol defines the closed message sets exchanged across the
// Driver Manager's two channel boundaries: Host<->Manager and
// Manager<->Worker. Payloads are declared as concrete Go types behind
// marker interfaces rather than as open maps, so the dispatcher's message
// switch is exhaustive and compile-checked.
package protocol

// DriverStatus is the lifecycle state of a driver, driven exclusively by
// worker Status messages (see Manager.reconcile).
type DriverStatus string

const (
	StatusSetup   DriverStatus = "SETUP"
	StatusRunning DriverStatus = "RUNNING"
	StatusError   DriverStatus = "ERROR"
	StatusExited  DriverStatus = "EXITED"
)

// HostCommand is a frame sent by the host to the manager.
type HostCommand interface {
	hostCommand()
}

// SetupDrivers carries one setup request per host handle, in the order
// the host supplied them. Order matters: an entry with no parameters is
// compatible with any earlier driver of the same class, so which driver
// it aliases onto depends on what came before it.
type SetupDrivers struct {
	Entries []SetupEntry
}

// SetupEntry pairs a host handle with its driver spec.
type SetupEntry struct {
	Handle string
	Spec   DriverSpec
}

// DriverSpec is the payload of a single SetupDrivers entry.
type DriverSpec struct {
	Class string
	Setup DriverSetup
}

// DriverSetup holds a driver's immutable parameters and the variables the
// host wants registered on it, in the host-supplied order.
type DriverSetup struct {
	Parameters map[string]interface{}
	Variables  []VariableEntry
}

// VariableEntry pairs a variable id with its host-declared spec.
type VariableEntry struct {
	ID   string
	Spec VariableSpec
}

// VariableSpec is the host-declared shape of one variable. Handle may be
// empty, in which case registration skips the entry.
type VariableSpec struct {
	Handle     string
	Parameters map[string]interface{}
}

// Updates carries host-commanded writes, keyed by host handle.
type Updates struct {
	Values map[string]interface{}
}

// Clean requests cooperative shutdown of every driver and the manager
// loop itself.
type Clean struct{}

func (SetupDrivers) hostCommand() {}
func (Updates) hostCommand()      {}
func (Clean) hostCommand()        {}

// HostFrame is a frame emitted by the manager toward the host, either a
// reply to a command or an asynchronous update.
type HostFrame interface {
	hostFrame()
}

// SetupDriversReply answers a SetupDrivers command, one SUCCESS/FAILED
// verdict per input handle.
type SetupDriversReply struct {
	Results map[string]string
}

// CleanReply answers a Clean command; the manager terminates its loop
// immediately after emitting it.
type CleanReply struct {
	Result string
}

// StatusFrame reports each affected handle's current DriverStatus, one
// entry per handle in first-write order within the cycle.
type StatusFrame struct {
	Updates []StatusUpdate
}

// StatusUpdate is one handle's coalesced status change.
type StatusUpdate struct {
	Handle string
	Status DriverStatus
}

// InfoUpdate is one handle's coalesced info line.
type InfoUpdate struct {
	Handle string
	Text   string
}

// InfoFrame reports the latest non-latency info line per affected
// handle, in first-write order.
type InfoFrame struct {
	Updates []InfoUpdate
}

// VarInfoFrame reports the latest per-variable info per affected handle,
// in first-write order.
type VarInfoFrame struct {
	Updates []InfoUpdate
}

// ValueUpdate is one handle's coalesced observed value.
type ValueUpdate struct {
	Handle string
	Value  interface{}
}

// UpdatesFrame reports the latest observed value per affected handle, in
// first-write order.
type UpdatesFrame struct {
	Updates []ValueUpdate
}

// StatsFrame is emitted once per wall-second of uptime.
type StatsFrame struct {
	DriverCount   int
	VariableCount int
}

func (SetupDriversReply) hostFrame() {}
func (CleanReply) hostFrame()        {}
func (StatusFrame) hostFrame()       {}
func (InfoFrame) hostFrame()         {}
func (VarInfoFrame) hostFrame()      {}
func (UpdatesFrame) hostFrame()      {}
func (StatsFrame) hostFrame()        {}
