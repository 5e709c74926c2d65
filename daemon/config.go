package daemon

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/simumatik/drivermanager/worker"
)

// Config is construction-time, immutable after New. New fills defaults
// for any numeric field or Logger left unset.
type Config struct {
	// UseProcesses selects the worker isolation strategy: goroutine
	// (false, default) or OS subprocess (true).
	UseProcesses bool
	// Executables maps driver class -> subprocess argv, consulted only
	// when UseProcesses is true.
	Executables map[string][]string
	// StatusFilePath, if non-empty, is rewritten on every snapshot
	// cycle. Empty disables status-file writes.
	StatusFilePath string
	// MaxPipeLoops bounds how many worker messages are drained per
	// driver per cycle. Default 10.
	MaxPipeLoops int
	// IdleSleep is how long the dispatcher sleeps when a cycle did no
	// work. Default 1ms.
	IdleSleep time.Duration
	// Registry maps driver class name -> worker.Factory. Consulted only
	// when UseProcesses is false.
	Registry map[string]worker.Factory
	// Logger is the base entry every manager/driver log line derives
	// from. Defaults to logrus.StandardLogger() with a component field.
	Logger *logrus.Entry
}

const (
	defaultMaxPipeLoops = 10
	defaultIdleSleep    = time.Millisecond
)

func (c Config) withDefaults() Config {
	if c.MaxPipeLoops <= 0 {
		c.MaxPipeLoops = defaultMaxPipeLoops
	}
	if c.IdleSleep <= 0 {
		c.IdleSleep = defaultIdleSleep
	}
	if c.Logger == nil {
		c.Logger = logrus.WithField("component", "drivermanager")
	}
	if c.Registry == nil {
		c.Registry = map[string]worker.Factory{}
	}
	return c
}

func (c Config) strategy() worker.Strategy {
	if c.UseProcesses {
		return &worker.ProcessStrategy{Executables: c.Executables}
	}
	return &worker.GoroutineStrategy{Registry: c.Registry}
}
