package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/nowplaying/internal/playback"
	"github.com/desertthunder/nowplaying/internal/presence"
	"github.com/desertthunder/nowplaying/internal/shared"
	"github.com/desertthunder/nowplaying/internal/ui"
	"github.com/urfave/cli/v3"
)

const defaultTUILog = "./tmp/nowplaying.log"

// statusView feeds the status screen from the running coordinator and poller.
type statusView struct {
	*presence.Coordinator
	*playback.Poller
}

// Run mirrors playback onto the profile until SIGINT or SIGTERM, then restores the user's values.
func (r *Runner) Run(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Validate(); errors.Is(err, shared.ErrInvalidConfig) {
		return err
	}

	tui := cmd.Bool("tui")
	if tui {
		// Redirect logs to file to avoid interfering with TUI rendering
		path := r.config.Logging.File
		if path == "" {
			path = defaultTUILog
		}
		fileLogger, err := shared.NewFileLogger(path)
		if err != nil {
			return fmt.Errorf("failed to create file logger: %w", err)
		}
		shared.SetLogLevel(fileLogger, shared.ParseLogLevel(r.config.Logging.Level))
		r.SetLogger(fileLogger)
	}

	interrupt, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, err := r.spotifyClient(ctx)
	if err != nil {
		return err
	}

	// The connection is bound to ctx, not interrupt, so the restore writes still have a live session.
	return r.withProfile(ctx, func(connCtx context.Context, profile presence.Profile) error {
		mirrorCtx, cancel := context.WithCancel(interrupt)
		defer cancel()
		detach := context.AfterFunc(connCtx, cancel)
		defer detach()

		if err := r.mirror(mirrorCtx, source, profile, tui); err != nil {
			return err
		}
		if connCtx.Err() != nil && interrupt.Err() == nil {
			return fmt.Errorf("%w: telegram connection closed", shared.ErrRemote)
		}
		return nil
	})
}

// mirror connects a [presence.Coordinator] to profile, drives it from source until ctx is done and restores the profile.
func (r *Runner) mirror(ctx context.Context, source playback.Source, profile presence.Profile, tui bool) error {
	cfg := r.config.Presence
	coord := presence.New(profile, presence.Options{
		EmojiID:  cfg.EmojiStatusID,
		BioLimit: cfg.BioCharLimit,
		Interval: cfg.MonitorEvery(),
		Clock:    r.clock,
		Logger:   r.logger,
	})

	if err := coord.Connect(ctx); err != nil {
		return fmt.Errorf("failed to read profile: %w", err)
	}
	if err := coord.StartMonitoring(ctx); err != nil {
		return err
	}
	defer r.restore(coord)

	poller := playback.NewPoller(source, coord, cfg.CheckTrackEvery(), r.clock, r.logger)
	r.logger.Info("mirroring playback", "check_every", cfg.CheckTrackEvery(), "monitor_every", cfg.MonitorEvery())

	var err error
	if tui {
		err = r.runTUI(ctx, coord, poller)
	} else {
		err = poller.Run(ctx)
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (r *Runner) runTUI(ctx context.Context, coord *presence.Coordinator, poller *playback.Poller) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- poller.Run(ctx) }()

	model := ui.NewModel(ctx, statusView{Coordinator: coord, Poller: poller}, time.Second)
	_, err := tea.NewProgram(model).Run()

	cancel()
	<-done

	if err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

// restore stops both monitors and puts the user's bio and emoji status back, on a context of its own.
func (r *Runner) restore(coord *presence.Coordinator) {
	if err := coord.StopMonitoring(); err != nil {
		r.logger.Warn("failed to stop monitoring", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.config.Telegram.Timeout())
	defer cancel()
	coord.HideTrack(ctx)

	snap := coord.Snapshot()
	if snap.Bio.Pending || snap.Emoji.Pending {
		r.logger.Error("profile could not be fully restored", "bio", snap.Bio.Default, "emoji", snap.Emoji.Default)
		return
	}
	r.logger.Info("profile restored")
}
