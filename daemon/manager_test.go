package daemon_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/simumatik/drivermanager/daemon"
	"github.com/simumatik/drivermanager/protocol"
	"github.com/simumatik/drivermanager/worker"
	"github.com/simumatik/drivermanager/workers/mock"
)

const testClass = "mock_driver"

func newTestManager(t *testing.T, factory *mock.Factory) (*daemon.Manager, *daemon.HostPipe, context.CancelFunc) {
	t.Helper()
	host := daemon.NewHostPipe()
	cfg := daemon.Config{
		Registry: map[string]worker.Factory{testClass: factory},
	}
	m := daemon.New(cfg, host)
	ctx, cancel := context.WithCancel(context.Background())
	go m.Run(ctx)
	t.Cleanup(cancel)
	return m, host, cancel
}

// waitForFrame drains host.Frames until match returns true for a frame,
// which it then returns, or fails the test after 2s.
func waitForFrame(t *testing.T, host *daemon.HostPipe, match func(protocol.HostFrame) bool) protocol.HostFrame {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case f := <-host.Frames:
			if match(f) {
				return f
			}
		case <-deadline:
			t.Fatal("timed out waiting for expected frame")
			return nil
		}
	}
}

func isType(sample protocol.HostFrame) func(protocol.HostFrame) bool {
	switch sample.(type) {
	case protocol.SetupDriversReply:
		return func(f protocol.HostFrame) bool { _, ok := f.(protocol.SetupDriversReply); return ok }
	case protocol.CleanReply:
		return func(f protocol.HostFrame) bool { _, ok := f.(protocol.CleanReply); return ok }
	case protocol.StatusFrame:
		return func(f protocol.HostFrame) bool { _, ok := f.(protocol.StatusFrame); return ok }
	case protocol.InfoFrame:
		return func(f protocol.HostFrame) bool { _, ok := f.(protocol.InfoFrame); return ok }
	case protocol.VarInfoFrame:
		return func(f protocol.HostFrame) bool { _, ok := f.(protocol.VarInfoFrame); return ok }
	case protocol.UpdatesFrame:
		return func(f protocol.HostFrame) bool { _, ok := f.(protocol.UpdatesFrame); return ok }
	case protocol.StatsFrame:
		return func(f protocol.HostFrame) bool { _, ok := f.(protocol.StatsFrame); return ok }
	default:
		return func(protocol.HostFrame) bool { return false }
	}
}

func basicSpec(driverHandle string) protocol.SetupDrivers {
	return protocol.SetupDrivers{
		Entries: []protocol.SetupEntry{{
			Handle: driverHandle,
			Spec: protocol.DriverSpec{
				Class: testClass,
				Setup: protocol.DriverSetup{
					Parameters: map[string]interface{}{"ip": "127.0.0.1", "port": float64(8400)},
					Variables: []protocol.VariableEntry{{
						ID:   "x",
						Spec: protocol.VariableSpec{Handle: "vh1", Parameters: map[string]interface{}{"datatype": "int"}},
					}},
				},
			},
		}},
	}
}

// A single driver with a single variable provisions successfully.
func TestSetupDriversSingle(t *testing.T) {
	factory := &mock.Factory{}
	_, host, _ := newTestManager(t, factory)

	host.Commands <- basicSpec("h1")
	frame := waitForFrame(t, host, isType(protocol.SetupDriversReply{}))
	reply := frame.(protocol.SetupDriversReply)

	require.Equal(t, map[string]string{"h1": "SUCCESS"}, reply.Results)
}

// An identical setup under a new handle reuses the same driver instead
// of starting a second worker.
func TestSetupDriversDedup(t *testing.T) {
	factory := &mock.Factory{}
	_, host, _ := newTestManager(t, factory)

	host.Commands <- basicSpec("h1")
	waitForFrame(t, host, isType(protocol.SetupDriversReply{}))

	host.Commands <- basicSpec("h2")
	frame := waitForFrame(t, host, isType(protocol.SetupDriversReply{}))
	reply := frame.(protocol.SetupDriversReply)
	require.Equal(t, "SUCCESS", reply.Results["h2"])

	require.Len(t, factory.Created, 1, "a compatible repeat request must not start a second worker")

	// The new alias is told the reused driver's current state.
	f := waitForFrame(t, host, isType(protocol.StatusFrame{}))
	sf := f.(protocol.StatusFrame)
	require.Equal(t, []protocol.StatusUpdate{{Handle: "h2", Status: protocol.StatusSetup}}, sf.Updates)
}

// Worker values propagate to the host coalesced: intermediate values
// within a cycle collapse to the last one, repeats are suppressed.
func TestWorkerUpdateCoalescing(t *testing.T) {
	factory := &mock.Factory{}
	_, host, _ := newTestManager(t, factory)

	host.Commands <- basicSpec("h1")
	waitForFrame(t, host, isType(protocol.SetupDriversReply{}))

	w := factory.Last()
	require.NotNil(t, w)
	require.NoError(t, w.Emit(protocol.Status{Status: protocol.StatusRunning}))
	waitForFrame(t, host, isType(protocol.StatusFrame{}))

	require.NoError(t, w.Emit(protocol.UpdateMessage{Values: map[string]interface{}{"x": float64(1)}}))
	require.NoError(t, w.Emit(protocol.UpdateMessage{Values: map[string]interface{}{"x": float64(2)}}))
	require.NoError(t, w.Emit(protocol.UpdateMessage{Values: map[string]interface{}{"x": float64(2)}}))

	f := waitForFrame(t, host, isType(protocol.UpdatesFrame{}))
	frame := f.(protocol.UpdatesFrame)
	require.Equal(t, []protocol.ValueUpdate{{Handle: "vh1", Value: float64(2)}}, frame.Updates)
}

// Host writes route to the owning worker while RUNNING, and change-only
// suppression avoids resending an unchanged value.
func TestHostWriteRouting(t *testing.T) {
	factory := &mock.Factory{}
	_, host, _ := newTestManager(t, factory)

	host.Commands <- basicSpec("h1")
	waitForFrame(t, host, isType(protocol.SetupDriversReply{}))

	w := factory.Last()
	require.NoError(t, w.Emit(protocol.Status{Status: protocol.StatusRunning}))
	waitForFrame(t, host, isType(protocol.StatusFrame{}))

	host.Commands <- protocol.Updates{Values: map[string]interface{}{"vh1": float64(7)}}

	require.Eventually(t, func() bool {
		for _, cmd := range w.Received() {
			if u, ok := cmd.(protocol.UpdateCommand); ok {
				if v, ok := u.Values["x"]; ok && v == float64(7) {
					return true
				}
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	before := len(w.Received())
	host.Commands <- protocol.Updates{Values: map[string]interface{}{"vh1": float64(7)}}
	time.Sleep(50 * time.Millisecond)
	require.Len(t, w.Received(), before, "repeating an unchanged write must not produce a new worker message")
}

// Only the most recent 5 info lines survive in a driver's info log. The
// ring itself is internal, so this is observed indirectly through the
// status-file snapshot.
func TestInfoLogRing(t *testing.T) {
	statusFile := filepath.Join(t.TempDir(), "status.txt")
	factory := &mock.Factory{}
	host := daemon.NewHostPipe()
	cfg := daemon.Config{
		Registry:       map[string]worker.Factory{testClass: factory},
		StatusFilePath: statusFile,
	}
	m := daemon.New(cfg, host)
	ctx, cancel := context.WithCancel(context.Background())
	go m.Run(ctx)
	t.Cleanup(cancel)

	host.Commands <- basicSpec("h1")
	waitForFrame(t, host, isType(protocol.SetupDriversReply{}))

	w := factory.Last()
	for i := 0; i < 7; i++ {
		require.NoError(t, w.Emit(protocol.Info{Text: fmt.Sprintf("line-%d", i)}))
		waitForFrame(t, host, isType(protocol.InfoFrame{}))
	}

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(statusFile)
		if err != nil {
			return false
		}
		return strings.Contains(string(data), "line-6")
	}, 3*time.Second, 20*time.Millisecond)

	data, err := os.ReadFile(statusFile)
	require.NoError(t, err)
	content := string(data)
	require.Contains(t, content, "line-6")
	require.Contains(t, content, "line-2")
	require.NotContains(t, content, "line-1\n")
	require.NotContains(t, content, "line-0\n")
}

// Clean shutdown replies SUCCESS and delivers EXIT to every worker.
func TestCleanShutdown(t *testing.T) {
	factory := &mock.Factory{}
	_, host, _ := newTestManager(t, factory)

	host.Commands <- basicSpec("h1")
	waitForFrame(t, host, isType(protocol.SetupDriversReply{}))

	host.Commands <- protocol.Clean{}
	f := waitForFrame(t, host, isType(protocol.CleanReply{}))
	reply := f.(protocol.CleanReply)
	require.Equal(t, "SUCCESS", reply.Result)

	w := factory.Last()
	require.Eventually(t, func() bool {
		for _, cmd := range w.Received() {
			if _, ok := cmd.(protocol.ExitCommand); ok {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

// An unknown driver class fails that handle's provisioning without
// touching the rest of the batch.
func TestSetupDriversUnknownClass(t *testing.T) {
	factory := &mock.Factory{}
	_, host, _ := newTestManager(t, factory)

	host.Commands <- protocol.SetupDrivers{
		Entries: []protocol.SetupEntry{{
			Handle: "bad",
			Spec:   protocol.DriverSpec{Class: "no_such_class"},
		}},
	}
	frame := waitForFrame(t, host, isType(protocol.SetupDriversReply{}))
	reply := frame.(protocol.SetupDriversReply)
	require.Equal(t, "FAILED", reply.Results["bad"])

	host.Commands <- basicSpec("h1")
	frame = waitForFrame(t, host, isType(protocol.SetupDriversReply{}))
	reply = frame.(protocol.SetupDriversReply)
	require.Equal(t, "SUCCESS", reply.Results["h1"])
}

// A write to a driver that has not reached RUNNING is dropped and never
// reaches the worker.
func TestHostWriteDroppedBeforeRunning(t *testing.T) {
	factory := &mock.Factory{}
	_, host, _ := newTestManager(t, factory)

	host.Commands <- basicSpec("h1")
	waitForFrame(t, host, isType(protocol.SetupDriversReply{}))

	host.Commands <- protocol.Updates{Values: map[string]interface{}{"vh1": float64(3)}}
	time.Sleep(50 * time.Millisecond)

	w := factory.Last()
	for _, cmd := range w.Received() {
		_, isUpdate := cmd.(protocol.UpdateCommand)
		require.False(t, isUpdate, "a write before RUNNING must not reach the worker")
	}
}

// A write to a handle nobody registered is logged and dropped; the rest
// of the batch still goes through.
func TestHostWriteUnknownHandle(t *testing.T) {
	factory := &mock.Factory{}
	_, host, _ := newTestManager(t, factory)

	host.Commands <- basicSpec("h1")
	waitForFrame(t, host, isType(protocol.SetupDriversReply{}))

	w := factory.Last()
	require.NoError(t, w.Emit(protocol.Status{Status: protocol.StatusRunning}))
	waitForFrame(t, host, isType(protocol.StatusFrame{}))

	host.Commands <- protocol.Updates{Values: map[string]interface{}{
		"no_such_handle": float64(1),
		"vh1":            float64(9),
	}}

	require.Eventually(t, func() bool {
		for _, cmd := range w.Received() {
			if u, ok := cmd.(protocol.UpdateCommand); ok {
				if v, ok := u.Values["x"]; ok && v == float64(9) {
					return true
				}
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

// VAR_INFO messages reach the host keyed by the variable's handles, and
// repeating the same text is suppressed.
func TestVarInfoPropagation(t *testing.T) {
	factory := &mock.Factory{}
	_, host, _ := newTestManager(t, factory)

	host.Commands <- basicSpec("h1")
	waitForFrame(t, host, isType(protocol.SetupDriversReply{}))

	w := factory.Last()
	require.NoError(t, w.Emit(protocol.VarInfo{VarID: "x", Text: "stale value"}))

	frame := waitForFrame(t, host, isType(protocol.VarInfoFrame{}))
	vi := frame.(protocol.VarInfoFrame)
	require.Equal(t, []protocol.InfoUpdate{{Handle: "vh1", Text: "stale value"}}, vi.Updates)
}

// An INFO line carrying the latency convention is recorded for the
// snapshot only, never forwarded as an INFO frame.
func TestLatencyInfoNotForwarded(t *testing.T) {
	factory := &mock.Factory{}
	_, host, _ := newTestManager(t, factory)

	host.Commands <- basicSpec("h1")
	waitForFrame(t, host, isType(protocol.SetupDriversReply{}))

	w := factory.Last()
	require.NoError(t, w.Emit(protocol.Info{Text: "Latency: 2ms"}))
	require.NoError(t, w.Emit(protocol.Info{Text: "connected"}))

	frame := waitForFrame(t, host, isType(protocol.InfoFrame{}))
	info := frame.(protocol.InfoFrame)
	require.Equal(t, []protocol.InfoUpdate{{Handle: "h1", Text: "connected"}}, info.Updates,
		"the first forwarded info line must be the non-latency one")
}

// A STATS frame arrives within the first seconds of uptime and carries
// the live driver and handle counts.
func TestStatsCadence(t *testing.T) {
	factory := &mock.Factory{}
	_, host, _ := newTestManager(t, factory)

	host.Commands <- basicSpec("h1")
	waitForFrame(t, host, isType(protocol.SetupDriversReply{}))

	frame := waitForFrame(t, host, isType(protocol.StatsFrame{}))
	stats := frame.(protocol.StatsFrame)
	require.Equal(t, 1, stats.DriverCount)
	require.Equal(t, 1, stats.VariableCount)
}
