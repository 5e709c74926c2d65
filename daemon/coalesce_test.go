package daemon

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/simumatik/drivermanager/protocol"
)

func TestUpdateBufferKeepsFirstWriteOrder(t *testing.T) {
	b := newUpdateBuffer()
	b.set("b", 1)
	b.set("a", 2)
	b.set("b", 3)

	require.Equal(t, []string{"b", "a"}, b.keys, "an overwrite must not move a key")
	require.Equal(t, 3, b.values["b"], "last writer wins")
	require.Equal(t, 2, b.len())

	b.reset()
	require.Equal(t, 0, b.len())
	b.set("c", 4)
	require.Equal(t, []string{"c"}, b.keys)
}

func TestFlushEmitsFirstWriteOrder(t *testing.T) {
	host := NewHostPipe()
	m := New(Config{}, host)

	m.valueUpdates.set("vh2", float64(1))
	m.valueUpdates.set("vh1", float64(2))
	m.valueUpdates.set("vh2", float64(3))
	m.infoUpdates.set("h1", "connected")
	m.flushUpdates()

	f := <-host.Frames
	info := f.(protocol.InfoFrame)
	require.Equal(t, []protocol.InfoUpdate{{Handle: "h1", Text: "connected"}}, info.Updates)

	f = <-host.Frames
	values := f.(protocol.UpdatesFrame)
	require.Equal(t, []protocol.ValueUpdate{
		{Handle: "vh2", Value: float64(3)},
		{Handle: "vh1", Value: float64(2)},
	}, values.Updates)

	require.Equal(t, 0, m.valueUpdates.len(), "flush must reset the buffer")
}
