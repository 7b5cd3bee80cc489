package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	app := &cli.App{
		Name:  "xrpwalk",
		Usage: "XRPL ledger visualizer CLI",
		Description: `A command-line tool for tailing and debugging the xrpwalk visualizer.

Use this CLI to stream presenter directives from a running server, watch the
XRPL ledger feed directly, or analyze a single ledger's transactions.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			streamCommand(),
			watchCommand(),
			analyzeCommand(),
			// Server utility commands
			{
				Name:  "server",
				Usage: "Server utility commands",
				Subcommands: []*cli.Command{
					healthCommand(),
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
