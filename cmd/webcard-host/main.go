// Command webcard-host is the native-messaging process a browser
// extension spawns to reach the local PC/SC smart-card resource manager.
// It speaks length-prefixed JSON on stdin/stdout and nothing else; every
// other line of output goes to stderr.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/cardid/webcard/internal/host"
	"github.com/cardid/webcard/internal/obs"
	"github.com/cardid/webcard/internal/pcsc"
	"github.com/cardid/webcard/internal/wire"
)

func main() {
	os.Exit(run())
}

func run() int {
	// No flag here changes wire behavior (spec §6.2: "argv ignored"); this
	// is purely an operational log-verbosity knob.
	verbose := flag.Bool("log-level-debug", false, "emit debug-level log lines to stderr")
	flag.Parse()

	log := obs.New(*verbose)

	if err := wire.ValidateStreams(os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "webcard-host: startup validation failed:", err)
		return 1
	}

	rm := pcsc.NewPCSCLite()
	ctx := context.Background()

	engine, err := host.NewEngine(ctx, rm, os.Stdin, os.Stdout, log)
	if err != nil {
		log.Error("failed to start engine", "err", err)
		return 1
	}

	if err := engine.Run(ctx); err != nil {
		log.Error("event loop exited with error", "err", err)
		return 1
	}
	return 0
}
