package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
)

const (
	StatusCommandDescription = "Show a snapshot of live drivers"
	StatusCommandHelp        = StatusCommandDescription + "\n\n" +
		"Reads the manager's status file and prints a table of every live\n" +
		"driver: its class, status, handle count and variable count."
)

// StatusCommand prints the manager's current snapshot as a table.
type StatusCommand struct {
	StatusFileCommand
}

func (c *StatusCommand) Execute(args []string) error {
	if err := c.requirePath(); err != nil {
		return err
	}
	snap, err := parseStatusFile(c.StatusFile)
	if err != nil {
		return err
	}
	renderSnapshot(snap)
	return nil
}

func renderSnapshot(snap *statusSnapshot) {
	if snap.header != "" {
		fmt.Println(snap.header)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Driver", "Class", "Status", "Handlers", "Variables"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	colorize := isatty.IsTerminal(os.Stdout.Fd())
	for _, d := range snap.drivers {
		status := d.status
		if colorize {
			status = colorForStatus(d.status)
		}
		table.Append([]string{
			d.name, d.class, status,
			fmt.Sprintf("%d", d.handlers),
			fmt.Sprintf("%d", d.vars),
		})
	}
	table.Render()
}

func colorForStatus(status string) string {
	switch status {
	case "RUNNING":
		return color.GreenString(status)
	case "ERROR":
		return color.RedString(status)
	case "EXITED":
		return color.New(color.Faint).Sprint(status)
	default:
		return color.YellowString(status)
	}
}
