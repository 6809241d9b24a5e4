package presence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/nowplaying/internal/formatter"
	"github.com/desertthunder/nowplaying/internal/models"
	"github.com/desertthunder/nowplaying/internal/shared"
	"github.com/jonboulle/clockwork"
)

// Profile reads and writes the two profile values the coordinator manages.
//
// Implementations bound every call with their own timeout and wrap transport failures in [shared.ErrRemote].
type Profile interface {
	ReadBio(ctx context.Context) (string, error)
	WriteBio(ctx context.Context, bio string) error
	ReadEmojiStatus(ctx context.Context) (int64, error)
	WriteEmojiStatus(ctx context.Context, id int64) error
}

// Options configures a [Coordinator].
type Options struct {
	EmojiID  int64         // Emoji status shown while a track plays
	BioLimit int           // Maximum bio length in runes, 0 for no limit
	Interval time.Duration // Monitor tick, defaults to one second
	Clock    clockwork.Clock
	Logger   *log.Logger
}

// Snapshot is a point-in-time copy of both fields.
type Snapshot struct {
	Bio        FieldState[string]
	Emoji      FieldState[int64]
	Connected  bool
	Monitoring bool
}

// Coordinator owns the bio and emoji status of one profile.
type Coordinator struct {
	profile  Profile
	emojiID  int64
	bioLimit int
	interval time.Duration
	clock    clockwork.Clock
	logger   *log.Logger

	bio   *field[string]
	emoji *field[int64]

	mu        sync.Mutex
	connected bool
	running   bool
	live      int // monitor goroutines still running
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// New creates a [Coordinator] for profile. Call [Coordinator.Connect] before anything else.
func New(profile Profile, opts Options) *Coordinator {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	logger := shared.WithLogger(opts.Logger, "component", "presence")

	return &Coordinator{
		profile:  profile,
		emojiID:  opts.EmojiID,
		bioLimit: opts.BioLimit,
		interval: opts.Interval,
		clock:    opts.Clock,
		logger:   logger,
		bio: &field[string]{
			name:   "bio",
			equal:  sameBio,
			read:   profile.ReadBio,
			write:  profile.WriteBio,
			logger: shared.WithLogger(logger, "field", "bio"),
		},
		emoji: &field[int64]{
			name:   "emoji",
			equal:  func(a, b int64) bool { return a == b },
			read:   profile.ReadEmojiStatus,
			write:  profile.WriteEmojiStatus,
			logger: shared.WithLogger(logger, "field", "emoji"),
		},
	}
}

// sameBio compares bios ignoring whitespace that other clients may reformat.
func sameBio(a, b string) bool {
	return shared.CollapseWhitespace(a) == shared.CollapseWhitespace(b)
}

// Connect reads the profile and takes its current values as the defaults, clearing any overlay.
func (c *Coordinator) Connect(ctx context.Context) error {
	bio, err := c.profile.ReadBio(ctx)
	if err != nil {
		return fmt.Errorf("%w: read bio: %w", shared.ErrRemote, err)
	}
	emoji, err := c.profile.ReadEmojiStatus(ctx)
	if err != nil {
		return fmt.Errorf("%w: read emoji status: %w", shared.ErrRemote, err)
	}

	c.bio.seed(bio)
	c.emoji.seed(emoji)

	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()

	c.logger.Info("connected", "bio", bio, "emoji", emoji)
	return nil
}

// ShowTrack writes the listening overlay for track to both fields.
//
// Calling it again with the same or another track rewrites the overlay.
func (c *Coordinator) ShowTrack(ctx context.Context, track *models.Track) {
	if track == nil {
		c.HideTrack(ctx)
		return
	}

	c.logger.Info("showing track", "track", track.String())
	c.bio.show(ctx, formatter.ListeningString(track, c.bioLimit))
	c.emoji.show(ctx, c.emojiID)
}

// HideTrack restores both fields to their defaults.
func (c *Coordinator) HideTrack(ctx context.Context) {
	c.logger.Info("restoring profile")
	c.bio.hide(ctx)
	c.emoji.hide(ctx)
}

// StartMonitoring starts one reconciliation loop per field.
//
// The loops stop on [Coordinator.StopMonitoring] or when ctx is done. In the second case the
// coordinator still counts as started until StopMonitoring is called, but [Snapshot] reports
// Monitoring false once both loops have exited.
func (c *Coordinator) StartMonitoring(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return shared.ErrNotConnected
	}
	if c.running {
		return fmt.Errorf("%w: already monitoring", shared.ErrMonitoringState)
	}

	c.running = true
	c.live = 2
	c.stopCh = make(chan struct{})

	c.wg.Add(2)
	go c.monitor(ctx, c.stopCh, c.bio.name, c.bio.reconcile)
	go c.monitor(ctx, c.stopCh, c.emoji.name, c.emoji.reconcile)

	c.logger.Info("monitoring started", "interval", c.interval)
	return nil
}

// StopMonitoring stops both loops and waits for them to exit.
//
// A loop finishes its current tick first; in-flight profile calls are not cancelled.
func (c *Coordinator) StopMonitoring() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return fmt.Errorf("%w: not monitoring", shared.ErrMonitoringState)
	}
	c.running = false
	close(c.stopCh)
	c.mu.Unlock()

	c.wg.Wait()
	c.logger.Info("monitoring stopped")
	return nil
}

func (c *Coordinator) monitor(ctx context.Context, stopCh <-chan struct{}, name string, tick func(context.Context) bool) {
	defer c.wg.Done()
	defer func() {
		c.mu.Lock()
		c.live--
		c.mu.Unlock()
	}()

	ticker := c.clock.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			select {
			case <-stopCh:
				return
			default:
			}
			tick(ctx)
		case <-stopCh:
			return
		case <-ctx.Done():
			c.logger.Debug("monitor context done", "field", name)
			return
		}
	}
}

// Snapshot returns a copy of the coordinator's state.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	connected, monitoring := c.connected, c.running && c.live > 0
	c.mu.Unlock()

	return Snapshot{
		Bio:        c.bio.state(),
		Emoji:      c.emoji.state(),
		Connected:  connected,
		Monitoring: monitoring,
	}
}
