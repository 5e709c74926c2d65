package daemon

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParametersCompatibleDontCare(t *testing.T) {
	existing := map[string]interface{}{"ip": "127.0.0.1", "port": float64(8400)}

	// Extra key on the incoming side, absent from existing: don't care.
	require.True(t, parametersCompatible(map[string]interface{}{"ip": "127.0.0.1", "timeout": float64(5)}, existing),
		"absent key should be don't-care")

	// Overlapping key with a different value: incompatible.
	require.False(t, parametersCompatible(map[string]interface{}{"ip": "127.0.0.1", "port": float64(9999)}, existing),
		"overlapping key with a different value must not match")
}

func TestFindCompatibleFirstMatchWins(t *testing.T) {
	drivers := map[string]*driverRecord{
		"DRIVER_1": {name: "DRIVER_1", class: "udp_driver", parameters: map[string]interface{}{"port": float64(1)}},
		"DRIVER_2": {name: "DRIVER_2", class: "udp_driver", parameters: map[string]interface{}{"port": float64(2)}},
	}
	order := []string{"DRIVER_1", "DRIVER_2"}

	d := findCompatible(order, drivers, "udp_driver", map[string]interface{}{})
	require.NotNil(t, d)
	require.Equal(t, "DRIVER_1", d.name, "an empty parameter set matches the first driver of the class")

	d = findCompatible(order, drivers, "udp_driver", map[string]interface{}{"port": float64(2)})
	require.NotNil(t, d)
	require.Equal(t, "DRIVER_2", d.name)

	d = findCompatible(order, drivers, "s7protocol", map[string]interface{}{})
	require.Nil(t, d, "a different class must not match")
}
