package worker

import "context"

// Strategy launches a worker for a driver class and returns the manager's
// channel endpoint plus a joinable handle. The choice between Goroutine
// and Process strategies is a construction-time flag; the manager only
// ever depends on this interface.
type Strategy interface {
	Launch(class string, params map[string]interface{}) (ManagerSide, Handle, error)
}

// GoroutineStrategy runs each worker as a cooperatively scheduled task in
// the manager's own address space, communicating over an in-process Pipe.
type GoroutineStrategy struct {
	Registry map[string]Factory
}

type goroutineHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Join waits for the task to return on its own (the manager sends
// ExitCommand first), then releases the task's context.
func (h *goroutineHandle) Join() error {
	<-h.done
	h.cancel()
	return nil
}

// Launch resolves class against Registry, constructs a Task, and runs it
// on its own goroutine over a fresh Pipe.
func (s *GoroutineStrategy) Launch(class string, params map[string]interface{}) (ManagerSide, Handle, error) {
	factory, ok := s.Registry[class]
	if !ok {
		return nil, nil, ErrUnknownClass{Class: class}
	}
	task, err := factory.New(params)
	if err != nil {
		return nil, nil, err
	}

	managerSide, workerSide := NewPipe()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer workerSide.Close()
		_ = task.Run(ctx, workerSide)
	}()

	return managerSide, &goroutineHandle{cancel: cancel, done: done}, nil
}

// ErrUnknownClass is returned by a Strategy when asked to launch a driver
// class it does not recognize.
type ErrUnknownClass struct {
	Class string
}

func (e ErrUnknownClass) Error() string {
	return "worker: unknown driver class " + e.Class
}
