package main

import (
	"context"
	"os"

	"github.com/desertthunder/nowplaying/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:    "nowplaying",
		Usage:   "Mirror Spotify playback onto your Telegram profile",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Before:   runner.Before,
		Commands: runner.register(),
	}

	err := app.Run(context.Background(), os.Args)
	runner.Close()
	if err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
