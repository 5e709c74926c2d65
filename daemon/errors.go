package daemon

import (
	"gopkg.in/src-d/go-errors.v1"
)

var (
	// ErrUnknownDriverClass indicates a SETUP_DRIVERS request named a
	// driver class absent from Config.Registry (or, with UseProcesses,
	// from Config.Executables).
	ErrUnknownDriverClass = errors.NewKind("unknown driver class %q")
	// ErrWorkerLaunch indicates the configured Strategy failed to start
	// a worker for an otherwise-known driver class.
	ErrWorkerLaunch = errors.NewKind("failed to launch worker for class %q")
	// ErrUnknownCommand indicates a host frame carried a command tag the
	// dispatcher does not recognize.
	ErrUnknownCommand = errors.NewKind("unknown host command %T")
	// ErrUnknownHandle indicates an UPDATES entry referenced a handle
	// absent from the Handle Index.
	ErrUnknownHandle = errors.NewKind("unknown handle %q")
	// ErrUnknownWorkerMessage indicates a driver's channel produced a
	// message type the reconciler does not recognize.
	ErrUnknownWorkerMessage = errors.NewKind("unknown worker message %T from driver %q")
	// ErrStatusFileWrite indicates the snapshot file could not be
	// written; the manager logs and continues.
	ErrStatusFileWrite = errors.NewKind("writing status file %q")
)
