package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	units "github.com/docker/go-units"
)

const (
	WatchCommandDescription = "Wait for the next status-file rewrite and print it"
	WatchCommandHelp        = WatchCommandDescription + "\n\n" +
		"Polls the status file's modification time and shows a spinner\n" +
		"until it changes, then renders the new snapshot."
)

// WatchCommand waits for the manager's next snapshot cycle (the file is
// rewritten once per wall-second) and then renders it.
type WatchCommand struct {
	StatusFileCommand
	Timeout time.Duration `long:"timeout" default:"5s" description:"how long to wait for a fresh snapshot"`
}

func (c *WatchCommand) Execute(args []string) error {
	if err := c.requirePath(); err != nil {
		return err
	}

	info, err := os.Stat(c.StatusFile)
	var since time.Time
	if err == nil {
		since = info.ModTime()
	}

	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond)
	s.Suffix = " waiting for snapshot..."
	s.Start()

	deadline := time.Now().Add(c.Timeout)
	for time.Now().Before(deadline) {
		info, err := os.Stat(c.StatusFile)
		if err == nil && info.ModTime().After(since) {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	s.Stop()

	snap, err := parseStatusFile(c.StatusFile)
	if err != nil {
		return err
	}
	fmt.Printf("waited %s\n", units.HumanDuration(time.Since(deadline.Add(-c.Timeout))))
	renderSnapshot(snap)
	return nil
}
