// Package cmd implements drivermanagerctl's subcommands: a read-only
// introspection client over the status file the manager rewrites once
// per wall-second. The host channel is the manager's only control
// boundary, so every subcommand here reads the status file directly
// rather than dialing a service.
package cmd

import (
	"fmt"
)

// StatusFileCommand is embedded by subcommands that need the path to the
// manager's status file.
type StatusFileCommand struct {
	StatusFile string `long:"status-file" default:"/var/run/drivermanager.status" description:"path to the manager's status file"`
}

func (c *StatusFileCommand) requirePath() error {
	if c.StatusFile == "" {
		return fmt.Errorf("no --status-file configured")
	}
	return nil
}
