package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/nowplaying/internal/presence"
	"github.com/desertthunder/nowplaying/internal/telegram"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

// profileView is the JSON form of `telegram profile`.
type profileView struct {
	Bio         string `json:"bio"`
	EmojiStatus int64  `json:"emoji_status"`
}

// TelegramLogin signs in and stores the session file.
func (r *Runner) TelegramLogin(ctx context.Context, cmd *cli.Command) error {
	client, err := r.telegramClient()
	if err != nil {
		return err
	}
	client.SetCodePrompt(telegram.TerminalPrompt(r.input, r.output))

	user, err := client.Login(ctx)
	if err != nil {
		return err
	}

	name := user.FirstName
	if user.Username != "" {
		name = "@" + user.Username
	}
	r.writePlainln("✓ Logged in as %s", name)
	r.writePlain("✓ Session saved to %s\n", client.SessionPath())
	return nil
}

// TelegramProfile prints the bio and emoji status as Telegram currently reports them.
func (r *Runner) TelegramProfile(ctx context.Context, cmd *cli.Command) error {
	return r.withProfile(ctx, func(ctx context.Context, profile presence.Profile) error {
		bio, err := profile.ReadBio(ctx)
		if err != nil {
			return err
		}
		emoji, err := profile.ReadEmojiStatus(ctx)
		if err != nil {
			return err
		}

		if cmd.Bool("json") {
			return r.writeJSON(profileView{Bio: bio, EmojiStatus: emoji}, true)
		}

		r.writePlainHeader("Telegram")
		r.writePlain("Bio:          %q (%d chars)\n", bio, len([]rune(bio)))
		if emoji == 0 {
			r.writePlain("Emoji status: none\n")
		} else {
			r.writePlain("Emoji status: %s\n", humanize.Comma(emoji))
		}
		return nil
	})
}

func (r *Runner) telegramClient() (*telegram.Client, error) {
	creds := r.config.Credentials.Telegram
	client, err := telegram.New(telegram.Config{
		APIID:       creds.APIID,
		APIHash:     creds.APIHash,
		Phone:       creds.Phone,
		Password:    creds.Password,
		SessionsDir: r.config.Telegram.SessionsPath,
		Timeout:     r.config.Telegram.Timeout(),
	}, r.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram client: %w", err)
	}
	return client, nil
}

// withProfile calls fn with the injected profile, or with a live Telegram profile for the duration of the connection.
//
// The connection lives as long as ctx, so callers that must write after an interrupt pass a context the signal does not cancel.
func (r *Runner) withProfile(ctx context.Context, fn func(ctx context.Context, profile presence.Profile) error) error {
	if r.profile != nil {
		return fn(ctx, r.profile)
	}

	client, err := r.telegramClient()
	if err != nil {
		return err
	}

	return client.Run(ctx, func(ctx context.Context, profile *telegram.Profile) error {
		r.logger.Debug("telegram connected", "session", client.SessionPath())
		return fn(ctx, profile)
	})
}

var _ presence.Profile = (*telegram.Profile)(nil)
