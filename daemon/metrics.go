package daemon

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Driver Registry metrics
var (
	driverCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "drivermanager_driver_count",
		Help: "The current number of live drivers",
	})
	variableCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "drivermanager_variable_count",
		Help: "The current number of entries in the handle index",
	})
	statusWriteSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "drivermanager_status_write_seconds",
		Help: "Time spent writing the status file",
	})
)

// Driver lifecycle metrics
var (
	driverStatusTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drivermanager_driver_status_total",
		Help: "The total number of driver status transitions, by status",
	}, []string{"status"})
	driverLaunchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "drivermanager_driver_launch_errors_total",
		Help: "The total number of worker launch failures during provisioning",
	})
)
