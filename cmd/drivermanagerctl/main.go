package main

import (
	"fmt"
	"os"

	"github.com/simumatik/drivermanager/cmd/drivermanagerctl/cmd"

	flags "github.com/jessevdk/go-flags"
)

var version = "undefined"

func main() {
	parser := flags.NewNamedParser("drivermanagerctl", flags.Default)
	parser.AddCommand("status",
		cmd.StatusCommandDescription, cmd.StatusCommandHelp,
		&cmd.StatusCommand{},
	)
	parser.AddCommand("watch",
		cmd.WatchCommandDescription, cmd.WatchCommandHelp,
		&cmd.WatchCommand{},
	)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		fmt.Println()
		parser.WriteHelp(os.Stdout)
		fmt.Printf("\nBuild information\n  version: %s\n", version)
		os.Exit(1)
	}
}
