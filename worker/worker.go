package worker

import (
	"context"
)

// Task is the worker side of a driver: the goroutine-strategy entry
// point. Run owns side exclusively until ctx is cancelled or an
// ExitCommand is received; it must return promptly once either happens.
type Task interface {
	Run(ctx context.Context, side WorkerSide) error
}

// Factory constructs a Task for a driver class from its setup parameters.
// Registry (daemon.Config.Registry) maps class name -> Factory, so new
// protocol classes plug in without touching the manager.
type Factory interface {
	New(params map[string]interface{}) (Task, error)
}

// FactoryFunc adapts a plain function to a Factory.
type FactoryFunc func(params map[string]interface{}) (Task, error)

func (f FactoryFunc) New(params map[string]interface{}) (Task, error) {
	return f(params)
}

// Handle is a join-able reference to a launched worker, thread or
// process. Join blocks until the worker has fully stopped; the manager
// calls it only during shutdown.
type Handle interface {
	Join() error
}
