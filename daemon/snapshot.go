package daemon

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/simumatik/drivermanager/protocol"
)

const logRingCap = 50

type logEntry struct {
	at      time.Time
	level   string
	message string
}

// logRingHook is a logrus.Hook that feeds the manager's in-memory ring
// of recent log entries, which backs the status file's Logs section.
type logRingHook struct {
	m *Manager
}

func (h *logRingHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *logRingHook) Fire(e *logrus.Entry) error {
	h.m.logRing = append(h.m.logRing, logEntry{at: e.Time, level: e.Level.String(), message: e.Message})
	if len(h.m.logRing) > logRingCap {
		h.m.logRing = h.m.logRing[len(h.m.logRing)-logRingCap:]
	}
	return nil
}

// maybeSnapshot runs once per wall-second, measured against the monotonic
// clock captured at construction: it rebuilds the stats frame and, if a
// path is configured, rewrites the status file. The measured write time
// lands in the next snapshot's header.
func (m *Manager) maybeSnapshot() bool {
	now := time.Now()
	if now.Sub(m.lastStatsAt) < time.Second {
		return false
	}
	m.lastStatsAt = now

	driverCount.Set(float64(len(m.drivers)))
	variableCount.Set(float64(len(m.index)))

	uptime := now.Sub(m.startedAt)
	_ = m.host.Send(protocol.StatsFrame{
		DriverCount:   len(m.drivers),
		VariableCount: len(m.index),
	})

	if m.cfg.StatusFilePath != "" {
		writeStart := time.Now()
		err := m.writeStatusFile(uptime, m.lastWriteTime)
		m.lastWriteTime = time.Since(writeStart)
		statusWriteSeconds.Observe(m.lastWriteTime.Seconds())
		if err != nil {
			m.log.WithError(err).Error(ErrStatusFileWrite.New(m.cfg.StatusFilePath).Error())
		}
	}

	return true
}

// writeStatusFile serializes a human-readable snapshot best-effort: any
// I/O failure is logged by the caller and does not disturb steady state.
func (m *Manager) writeStatusFile(uptime time.Duration, writeTime time.Duration) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Driver Manager status: (clock = %.0fs, %.1fms to write)\n", uptime.Seconds(), float64(writeTime.Microseconds())/1000.0)
	fmt.Fprintln(&b, strings.Repeat("-", 72))

	for _, name := range m.order {
		d, ok := m.drivers[name]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%s\n", d.name)
		fmt.Fprintf(&b, "  Type: %s\n", d.class)
		fmt.Fprintf(&b, "  Status: %s\n", d.status)
		if d.latency != "" {
			fmt.Fprintf(&b, "  %s\n", d.latency)
		}
		fmt.Fprintln(&b, "  Info:")
		for _, line := range d.infoLog {
			fmt.Fprintf(&b, "    %s\n", line)
		}
		fmt.Fprintf(&b, "  Parameters: %v\n", d.parameters)
		fmt.Fprintf(&b, "  Handlers (%d): %v, %d variables\n", len(d.handlers), d.handlers, len(d.variables))
		for _, varID := range d.varOrder {
			v, ok := d.variables[varID]
			if !ok {
				continue
			}
			value := "unset"
			if v.hasValue {
				value = fmt.Sprintf("%v", v.value)
			}
			fmt.Fprintf(&b, "  %s %v = %s  (R:%d W:%d) - %s\n", varID, v.handlers, value, v.readCount, v.writeCount, v.info)
		}
		fmt.Fprintln(&b, strings.Repeat("-", 72))
	}

	fmt.Fprintln(&b, "Logs:")
	for i := len(m.logRing) - 1; i >= 0; i-- {
		e := m.logRing[i]
		fmt.Fprintf(&b, "%s - %s: %s\n", e.at.Format(time.RFC3339), e.level, e.message)
	}

	return os.WriteFile(m.cfg.StatusFilePath, []byte(b.String()), 0o644)
}
