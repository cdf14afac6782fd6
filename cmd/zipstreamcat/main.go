// Command zipstreamcat exercises the zipstream reader from the command
// line: list prints an entry table, cat streams one entry's content.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

var logger zerolog.Logger

func main() {
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	app := newApp()
	if err := app.Run(os.Args); err != nil {
		logger.Fatal().Err(err).Msg("zipstreamcat failed")
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "zipstreamcat",
		Usage: "inspect ZIP archives through a forward-only streaming reader",
		Commands: []*cli.Command{
			newListCommand(),
			newCatCommand(),
		},
	}
}
