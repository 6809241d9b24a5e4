// package playback polls the music service and turns playback snapshots into track start and stop events.
package playback

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/nowplaying/internal/models"
	"github.com/desertthunder/nowplaying/internal/shared"
	"github.com/jonboulle/clockwork"
)

// Source reports what the user is currently playing.
//
// A nil playback means nothing is playing.
type Source interface {
	CurrentPlayback(ctx context.Context) (*models.Playback, error)
}

// Presenter receives track transitions, e.g. [presence.Coordinator].
type Presenter interface {
	ShowTrack(ctx context.Context, track *models.Track)
	HideTrack(ctx context.Context)
}

// Event is the outcome of one poll.
type Event int

const (
	NoEvent Event = iota
	TrackStarted
	TrackStopped
)

func (e Event) String() string {
	switch e {
	case TrackStarted:
		return "track_started"
	case TrackStopped:
		return "track_stopped"
	default:
		return "none"
	}
}

// Status is what the poller last saw.
type Status struct {
	Track    *models.Track
	LastPoll time.Time
	Err      error
}

// Poller turns playback snapshots into [Presenter] calls.
type Poller struct {
	source    Source
	presenter Presenter
	interval  time.Duration
	clock     clockwork.Clock
	logger    *log.Logger

	mu       sync.Mutex
	current  *models.Track
	lastPoll time.Time
	lastErr  error
}

// NewPoller creates a [Poller]. A zero interval defaults to three seconds and a nil clock to the real clock.
func NewPoller(source Source, presenter Presenter, interval time.Duration, clock clockwork.Clock, logger *log.Logger) *Poller {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &Poller{
		source:    source,
		presenter: presenter,
		interval:  interval,
		clock:     clock,
		logger:    shared.WithLogger(logger, "component", "playback"),
	}
}

// Poll asks the source once and dispatches the resulting transition.
//
// A source failure is NoEvent and leaves the current track as it was.
func (p *Poller) Poll(ctx context.Context) Event {
	playback, err := p.source.CurrentPlayback(ctx)

	p.mu.Lock()
	p.lastPoll = p.clock.Now()
	p.lastErr = err
	if err != nil {
		p.mu.Unlock()
		p.logger.Warn("failed to fetch playback", "err", err)
		return NoEvent
	}

	next := playback.Playing()
	prev := p.current
	event := transition(prev, next)
	if event != NoEvent {
		p.current = next
	}
	p.mu.Unlock()

	switch event {
	case TrackStarted:
		p.logger.Info("track started", "track", next.String())
		p.presenter.ShowTrack(ctx, next)
	case TrackStopped:
		p.logger.Info("track stopped", "track", prev.String())
		p.presenter.HideTrack(ctx)
	}
	return event
}

func transition(prev, next *models.Track) Event {
	switch {
	case next == nil && prev == nil:
		return NoEvent
	case next == nil:
		return TrackStopped
	case prev.Same(next):
		return NoEvent
	default:
		return TrackStarted
	}
}

// Run polls immediately and then on every tick until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	p.Poll(ctx)
	for {
		select {
		case <-ticker.Chan():
			p.Poll(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Current returns the track the poller believes is playing, or nil.
func (p *Poller) Current() *models.Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Status returns the result of the most recent poll.
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{Track: p.current, LastPoll: p.lastPoll, Err: p.lastErr}
}
