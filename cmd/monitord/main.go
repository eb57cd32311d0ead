package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "monitord",
		Usage: "Consume monitor operation envelopes and maintain the event archive",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run the monitor daemon",
				Flags:  runFlags(),
				Action: run,
			},
		},
	}
	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
