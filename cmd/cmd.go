package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/usi-icn/nfnd/core"
	"github.com/spf13/cobra"
)

var config = core.DefaultConfig()

// CmdNfnd is the root command, mirroring the teacher's CmdYaNFD shape: a
// single required config-file argument, graceful shutdown on SIGINT/
// SIGTERM.
var CmdNfnd = &cobra.Command{
	Use:   "nfnd CONFIG-FILE",
	Short: "NDN forwarding daemon with Named Function Networking support",
	Args:  cobra.ExactArgs(1),
	Run:   run,
}

func run(cmd *cobra.Command, args []string) {
	configFile := args[0]
	if err := core.ReadYAMLConfig(config, configFile); err != nil {
		core.Log.Fatal(rootLogName{}, "failed to read config file", "err", err)
	}

	level, err := core.ParseLevel(config.Core.LogLevel)
	if err == nil {
		core.Log.SetLevel(level)
	}

	p := NewPipeline(config)
	p.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	core.Log.Info(p, "received signal, shutting down", "signal", sig.String())

	p.Stop()
}

type rootLogName struct{}

func (rootLogName) String() string { return "nfnd" }
