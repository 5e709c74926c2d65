package daemon

import (
	"context"
	"time"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"

	"github.com/simumatik/drivermanager/protocol"
	"github.com/simumatik/drivermanager/worker"
)

const maxHostFramesPerCycle = 10

// Manager supervises the lifecycle of driver workers: it demultiplexes
// host commands, deduplicates device connections across overlapping setup
// requests, maintains the variable/handle registry, reconciles updates
// between host and workers, and produces the periodic status snapshot.
//
// All mutation of the driver registry, variable registry, and handle
// index happens on the single goroutine running Run; no locks are needed
// on that state.
type Manager struct {
	cfg      Config
	log      *logrus.Entry
	strategy worker.Strategy
	host     HostChannel

	order   []string
	drivers map[string]*driverRecord
	index   handleIndex
	nextID  int

	statusUpdates  *updateBuffer
	infoUpdates    *updateBuffer
	varInfoUpdates *updateBuffer
	valueUpdates   *updateBuffer

	startedAt     time.Time
	lastStatsAt   time.Time
	lastWriteTime time.Duration

	logRing []logEntry
	running bool
}

// New constructs a Manager. The manager does not start processing until
// Run is called.
func New(cfg Config, host HostChannel) *Manager {
	cfg = cfg.withDefaults()
	now := time.Now()
	m := &Manager{
		cfg:            cfg,
		log:            cfg.Logger,
		strategy:       cfg.strategy(),
		host:           host,
		drivers:        map[string]*driverRecord{},
		index:          handleIndex{},
		statusUpdates:  newUpdateBuffer(),
		infoUpdates:    newUpdateBuffer(),
		varInfoUpdates: newUpdateBuffer(),
		valueUpdates:   newUpdateBuffer(),
		startedAt:      now,
		lastStatsAt:    now,
	}
	if cfg.Logger.Logger != nil {
		cfg.Logger.Logger.AddHook(&logRingHook{m: m})
	}
	return m
}

// Run drives the dispatcher loop until a CLEAN command completes or ctx
// is cancelled. It returns nil on a CLEAN-driven exit.
func (m *Manager) Run(ctx context.Context) error {
	m.running = true
	for m.running {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		didWork := m.drainHost(ctx)
		didWork = m.reconcile(ctx) || didWork
		m.flushUpdates()
		didWork = m.maybeSnapshot() || didWork

		if !didWork {
			time.Sleep(m.cfg.IdleSleep)
		}
	}
	return nil
}

// drainHost performs a non-blocking drain of up to maxHostFramesPerCycle
// host frames.
func (m *Manager) drainHost(ctx context.Context) bool {
	didWork := false
	for i := 0; i < maxHostFramesPerCycle && m.running; i++ {
		cmd, ok := m.host.PollCommand()
		if !ok {
			break
		}
		didWork = true
		m.dispatch(ctx, cmd)
	}
	return didWork
}

func (m *Manager) dispatch(ctx context.Context, cmd protocol.HostCommand) {
	sp, ctx := opentracing.StartSpanFromContext(ctx, "drivermanager.dispatch")
	defer sp.Finish()

	switch c := cmd.(type) {
	case protocol.SetupDrivers:
		reply := m.setupDrivers(ctx, c)
		_ = m.host.Send(reply)
	case protocol.Updates:
		m.applyHostWrites(c)
	case protocol.Clean:
		m.clean(ctx)
	default:
		m.log.WithField("command", cmd).Error(ErrUnknownCommand.New(cmd).Error())
	}
}

// flushUpdates emits every non-empty coalesced buffer as its own frame,
// entries in first-write order, and resets it.
func (m *Manager) flushUpdates() {
	if m.statusUpdates.len() > 0 {
		updates := make([]protocol.StatusUpdate, 0, m.statusUpdates.len())
		for _, h := range m.statusUpdates.keys {
			updates = append(updates, protocol.StatusUpdate{Handle: h, Status: m.statusUpdates.values[h].(protocol.DriverStatus)})
		}
		_ = m.host.Send(protocol.StatusFrame{Updates: updates})
		m.statusUpdates.reset()
	}
	if m.infoUpdates.len() > 0 {
		_ = m.host.Send(protocol.InfoFrame{Updates: infoUpdatesOf(m.infoUpdates)})
		m.infoUpdates.reset()
	}
	if m.varInfoUpdates.len() > 0 {
		_ = m.host.Send(protocol.VarInfoFrame{Updates: infoUpdatesOf(m.varInfoUpdates)})
		m.varInfoUpdates.reset()
	}
	if m.valueUpdates.len() > 0 {
		updates := make([]protocol.ValueUpdate, 0, m.valueUpdates.len())
		for _, h := range m.valueUpdates.keys {
			updates = append(updates, protocol.ValueUpdate{Handle: h, Value: m.valueUpdates.values[h]})
		}
		_ = m.host.Send(protocol.UpdatesFrame{Updates: updates})
		m.valueUpdates.reset()
	}
}

func infoUpdatesOf(b *updateBuffer) []protocol.InfoUpdate {
	updates := make([]protocol.InfoUpdate, 0, b.len())
	for _, h := range b.keys {
		updates = append(updates, protocol.InfoUpdate{Handle: h, Text: b.values[h].(string)})
	}
	return updates
}

// clean shuts every driver down cooperatively: EXIT on its channel, join
// the worker, drop it from the registry in pop order. Only once every
// join has completed does the loop stop and the reply go out.
func (m *Manager) clean(ctx context.Context) {
	for len(m.order) > 0 {
		name := m.order[0]
		m.order = m.order[1:]
		d, ok := m.drivers[name]
		if !ok {
			continue
		}
		_ = d.channel.SendCommand(protocol.ExitCommand{})
		_ = d.handle.Join()
		_ = d.channel.Close()
		for varID := range d.variables {
			for _, h := range d.variables[varID].handlers {
				delete(m.index, h)
			}
		}
		delete(m.drivers, name)
		m.log.WithField("driver", name).Info("driver stopped")
	}
	m.running = false
	_ = m.host.Send(protocol.CleanReply{Result: "SUCCESS"})
}
