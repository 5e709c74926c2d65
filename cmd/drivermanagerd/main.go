package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	flags "github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"

	"github.com/simumatik/drivermanager/daemon"
	"github.com/simumatik/drivermanager/protocol"
	"github.com/simumatik/drivermanager/worker"
	"github.com/simumatik/drivermanager/workers/sim"
	"github.com/simumatik/drivermanager/workers/udpgeneric"
)

var version = "undefined"

var opts struct {
	StatusFile   string `long:"status-file" description:"path to rewrite a human-readable status snapshot to"`
	UseProcesses bool   `long:"use-processes" description:"isolate drivers in OS subprocesses instead of goroutines"`
	LogLevel     string `long:"log-level" default:"info" description:"log level: panic, fatal, error, warning, info, debug"`
	LogFormat    string `long:"log-format" default:"text" description:"format of the logs: text or json"`
}

func main() {
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}

	buildLogger()
	logrus.Infof("drivermanagerd version: %s", version)

	host := daemon.NewHostPipe()
	cfg := daemon.Config{
		UseProcesses:   opts.UseProcesses,
		StatusFilePath: opts.StatusFile,
		Registry: map[string]worker.Factory{
			"udp_driver":  udpgeneric.Factory,
			"development": sim.Factory,
		},
		Logger: logrus.WithField("component", "drivermanager"),
	}

	m := daemon.New(cfg, host)
	ctx, cancel := context.WithCancel(context.Background())

	go pumpStdin(os.Stdin, host.Commands)
	go pumpStdout(os.Stdout, host.Frames)
	handleSignals(host.Commands)

	if err := m.Run(ctx); err != nil {
		logrus.WithError(err).Error("manager exited with error")
		cancel()
		os.Exit(1)
	}
	cancel()
}

func handleSignals(commands chan<- protocol.HostCommand) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		logrus.Warning("signal received, requesting clean shutdown")
		commands <- protocol.Clean{}
	}()
}

func buildLogger() {
	level, err := logrus.ParseLevel(opts.LogLevel)
	if err != nil {
		logrus.Errorf("invalid log level %q: %s", opts.LogLevel, err)
		os.Exit(1)
	}
	logrus.SetLevel(level)
	if opts.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
}
