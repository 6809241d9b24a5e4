// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand prepares the config file, database and session directory.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml, initialize the database and the sessions directory",
		Action: r.Setup,
	}
}

// spotifyCommand handles Spotify operations
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify account operations",
		Commands: []*cli.Command{
			{
				Name:  "auth",
				Usage: "Authenticate with Spotify using OAuth2",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the consent URL instead of opening a browser",
					},
				},
				Action: r.SpotifyAuth,
			},
			{
				Name:    "now",
				Aliases: []string{"np"},
				Usage:   "Show what is playing right now",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.SpotifyNow,
			},
			{
				Name:   "status",
				Usage:  "Check the stored Spotify token against the API",
				Action: r.SpotifyStatus,
			},
		},
	}
}

// telegramCommand handles Telegram session operations
func telegramCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "telegram",
		Aliases: []string{"tg"},
		Usage:   "Telegram session operations",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Sign in with the configured phone number and store the session",
				Action: r.TelegramLogin,
			},
			{
				Name:  "profile",
				Usage: "Show the current bio and emoji status",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.TelegramProfile,
			},
		},
	}
}

// runCommand returns the top-level command that mirrors playback until interrupted.
func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"start"},
		Usage:   "Mirror Spotify playback onto the Telegram profile until interrupted",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Show a live status view",
			},
		},
		Action: r.Run,
	}
}
