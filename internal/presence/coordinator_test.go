package presence

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/nowplaying/internal/models"
	"github.com/desertthunder/nowplaying/internal/shared"
	th "github.com/desertthunder/nowplaying/internal/testing"
	"github.com/jonboulle/clockwork"
)

const overlayEmoji int64 = 5346074681004801565

var trackA = &models.Track{ID: "a", Title: "trackA"}

func newTestCoordinator(t *testing.T, profile *th.FakeProfile, clock clockwork.Clock) *Coordinator {
	t.Helper()
	c := New(profile, Options{
		EmojiID:  overlayEmoji,
		BioLimit: 140,
		Interval: time.Second,
		Clock:    clock,
		Logger:   shared.NewLogger(io.Discard),
	})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	return c
}

func assertProfile(t *testing.T, p *th.FakeProfile, bio string, emoji int64) {
	t.Helper()
	gotBio, gotEmoji := p.Current()
	if gotBio != bio {
		t.Errorf("remote bio = %q, want %q", gotBio, bio)
	}
	if gotEmoji != emoji {
		t.Errorf("remote emoji = %d, want %d", gotEmoji, emoji)
	}
}

func TestCoordinatorScenario(t *testing.T) {
	ctx := context.Background()
	profile := th.NewFakeProfile("hello", 42)
	c := newTestCoordinator(t, profile, clockwork.NewFakeClock())

	c.ShowTrack(ctx, trackA)
	assertProfile(t, profile, "Listening to trackA", overlayEmoji)

	c.HideTrack(ctx)
	assertProfile(t, profile, "hello", 42)
}

func TestCoordinatorShowTrack(t *testing.T) {
	ctx := context.Background()

	t.Run("Idempotent", func(t *testing.T) {
		once := th.NewFakeProfile("hello", 42)
		c1 := newTestCoordinator(t, once, clockwork.NewFakeClock())
		c1.ShowTrack(ctx, trackA)

		twice := th.NewFakeProfile("hello", 42)
		c2 := newTestCoordinator(t, twice, clockwork.NewFakeClock())
		c2.ShowTrack(ctx, trackA)
		c2.ShowTrack(ctx, trackA)

		b1, e1 := once.Current()
		b2, e2 := twice.Current()
		if b1 != b2 || e1 != e2 {
			t.Errorf("showing twice diverged: (%q, %d) vs (%q, %d)", b1, e1, b2, e2)
		}
		if c1.Snapshot() != c2.Snapshot() {
			t.Errorf("state diverged: %+v vs %+v", c1.Snapshot(), c2.Snapshot())
		}
	})

	t.Run("Track Change Replaces Overlay", func(t *testing.T) {
		profile := th.NewFakeProfile("hello", 42)
		c := newTestCoordinator(t, profile, clockwork.NewFakeClock())

		c.ShowTrack(ctx, trackA)
		c.ShowTrack(ctx, &models.Track{ID: "b", Title: "trackB", Artists: []string{"Band"}})
		assertProfile(t, profile, "Listening to Band - trackB", overlayEmoji)

		c.HideTrack(ctx)
		assertProfile(t, profile, "hello", 42)
	})

	t.Run("Nil Track Hides", func(t *testing.T) {
		profile := th.NewFakeProfile("hello", 42)
		c := newTestCoordinator(t, profile, clockwork.NewFakeClock())

		c.ShowTrack(ctx, trackA)
		c.ShowTrack(ctx, nil)
		assertProfile(t, profile, "hello", 42)
	})

	t.Run("Snapshot", func(t *testing.T) {
		profile := th.NewFakeProfile("hello", 42)
		c := newTestCoordinator(t, profile, clockwork.NewFakeClock())
		c.ShowTrack(ctx, trackA)

		s := c.Snapshot()
		if !s.Connected || s.Monitoring {
			t.Errorf("unexpected flags: %+v", s)
		}
		if !s.Bio.Active || s.Bio.Overlay != "Listening to trackA" || s.Bio.Default != "hello" {
			t.Errorf("unexpected bio state: %+v", s.Bio)
		}
		if !s.Emoji.Active || s.Emoji.Overlay != overlayEmoji || s.Emoji.Default != 42 {
			t.Errorf("unexpected emoji state: %+v", s.Emoji)
		}
	})
}

func TestCoordinatorReconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("Whitespace Is Not An Edit", func(t *testing.T) {
		profile := th.NewFakeProfile("hello  there", 42)
		c := newTestCoordinator(t, profile, clockwork.NewFakeClock())

		profile.Edit("  hello there\n", 42)
		if c.bio.reconcile(ctx) {
			t.Error("whitespace change classified as user edit")
		}
		if got := c.Snapshot().Bio.Default; got != "hello  there" {
			t.Errorf("default mutated to %q", got)
		}
	})

	t.Run("Self Write Is Not An Edit", func(t *testing.T) {
		profile := th.NewFakeProfile("hello", 42)
		c := newTestCoordinator(t, profile, clockwork.NewFakeClock())
		c.ShowTrack(ctx, trackA)

		if c.bio.reconcile(ctx) || c.emoji.reconcile(ctx) {
			t.Error("own overlay write classified as user edit")
		}
		s := c.Snapshot()
		if s.Bio.Default != "hello" || s.Emoji.Default != 42 {
			t.Errorf("defaults mutated: %+v", s)
		}
	})

	t.Run("Genuine Edit Without Overlay", func(t *testing.T) {
		profile := th.NewFakeProfile("old", 42)
		c := newTestCoordinator(t, profile, clockwork.NewFakeClock())

		profile.Edit("new", 7)
		if !c.bio.reconcile(ctx) {
			t.Error("bio edit not detected")
		}
		if !c.emoji.reconcile(ctx) {
			t.Error("emoji edit not detected")
		}

		s := c.Snapshot()
		if s.Bio.Default != "new" || s.Emoji.Default != 7 {
			t.Errorf("defaults not updated: %+v", s)
		}

		bioWrites, emojiWrites := profile.Writes()
		if bioWrites != 0 || emojiWrites != 0 {
			t.Errorf("expected no writes without overlay, got %d/%d", bioWrites, emojiWrites)
		}
	})

	t.Run("Edit During Overlay Is Reasserted", func(t *testing.T) {
		profile := th.NewFakeProfile("hello", 42)
		c := newTestCoordinator(t, profile, clockwork.NewFakeClock())
		c.ShowTrack(ctx, trackA)

		profile.Edit("my new bio", 99)
		if !c.emoji.reconcile(ctx) {
			t.Fatal("emoji edit not detected")
		}
		if !c.bio.reconcile(ctx) {
			t.Fatal("bio edit not detected")
		}

		assertProfile(t, profile, "Listening to trackA", overlayEmoji)
		s := c.Snapshot()
		if s.Bio.Default != "my new bio" || s.Emoji.Default != 99 {
			t.Errorf("edit not recorded as default: %+v", s)
		}

		if c.bio.reconcile(ctx) || c.emoji.reconcile(ctx) {
			t.Error("reasserted overlay classified as user edit")
		}

		c.HideTrack(ctx)
		assertProfile(t, profile, "my new bio", 99)
	})

	t.Run("Read Failure Skips Tick", func(t *testing.T) {
		profile := th.NewFakeProfile("hello", 42)
		c := newTestCoordinator(t, profile, clockwork.NewFakeClock())

		profile.Edit("changed", 1)
		profile.FailReads(errors.New("boom"))
		if c.bio.reconcile(ctx) || c.emoji.reconcile(ctx) {
			t.Error("tick with failed read reported an edit")
		}
		if s := c.Snapshot(); s.Bio.Default != "hello" || s.Emoji.Default != 42 {
			t.Errorf("state mutated on failed read: %+v", s)
		}

		profile.FailReads(nil)
		if !c.bio.reconcile(ctx) {
			t.Error("edit not picked up on the next tick")
		}
	})

	t.Run("Failed Restore Is Retried Next Tick", func(t *testing.T) {
		profile := th.NewFakeProfile("hello", 42)
		c := newTestCoordinator(t, profile, clockwork.NewFakeClock())
		c.ShowTrack(ctx, trackA)

		profile.FailWrites(errors.New("flood wait"))
		c.HideTrack(ctx)
		assertProfile(t, profile, "Listening to trackA", overlayEmoji)
		if !c.Snapshot().Bio.Pending {
			t.Error("expected pending write after failure")
		}

		profile.FailWrites(nil)
		if c.bio.reconcile(ctx) || c.emoji.reconcile(ctx) {
			t.Error("stale overlay classified as user edit")
		}
		assertProfile(t, profile, "hello", 42)
		if s := c.Snapshot(); s.Bio.Default != "hello" || s.Bio.Pending {
			t.Errorf("unexpected bio state after retry: %+v", s.Bio)
		}
	})

	t.Run("Failed Overlay Is Retried Next Tick", func(t *testing.T) {
		profile := th.NewFakeProfile("hello", 42)
		c := newTestCoordinator(t, profile, clockwork.NewFakeClock())

		profile.FailWrites(errors.New("timeout"))
		c.ShowTrack(ctx, trackA)
		assertProfile(t, profile, "hello", 42)

		profile.FailWrites(nil)
		c.bio.reconcile(ctx)
		c.emoji.reconcile(ctx)
		assertProfile(t, profile, "Listening to trackA", overlayEmoji)
	})

	t.Run("Edit After Failed Restore Becomes Default", func(t *testing.T) {
		profile := th.NewFakeProfile("hello", 42)
		c := newTestCoordinator(t, profile, clockwork.NewFakeClock())
		c.ShowTrack(ctx, trackA)

		profile.FailWrites(errors.New("flood wait"))
		c.HideTrack(ctx)
		profile.Edit("user edit", 7)
		profile.FailWrites(nil)

		bioEdited := c.bio.reconcile(ctx)
		emojiEdited := c.emoji.reconcile(ctx)
		if !bioEdited || !emojiEdited {
			t.Errorf("expected both edits recorded, got bio=%v emoji=%v", bioEdited, emojiEdited)
		}

		assertProfile(t, profile, "user edit", 7)
		s := c.Snapshot()
		if s.Bio.Default != "user edit" || s.Emoji.Default != 7 {
			t.Errorf("expected edit to become the default, got %+v", s)
		}
		if s.Bio.Pending || s.Emoji.Pending {
			t.Errorf("expected nothing pending once the remote matches, got %+v", s)
		}
	})

	t.Run("Edit After Failed Overlay Survives Hide", func(t *testing.T) {
		profile := th.NewFakeProfile("hello", 42)
		c := newTestCoordinator(t, profile, clockwork.NewFakeClock())

		profile.FailWrites(errors.New("timeout"))
		c.ShowTrack(ctx, trackA)
		profile.Edit("user edit", 7)
		profile.FailWrites(nil)

		bioEdited := c.bio.reconcile(ctx)
		emojiEdited := c.emoji.reconcile(ctx)
		if !bioEdited || !emojiEdited {
			t.Errorf("expected both edits recorded, got bio=%v emoji=%v", bioEdited, emojiEdited)
		}
		assertProfile(t, profile, "Listening to trackA", overlayEmoji)

		c.HideTrack(ctx)
		assertProfile(t, profile, "user edit", 7)
	})

	t.Run("Stale Value Is Retried Until The Write Lands", func(t *testing.T) {
		profile := th.NewFakeProfile("hello", 42)
		c := newTestCoordinator(t, profile, clockwork.NewFakeClock())
		c.ShowTrack(ctx, trackA)

		profile.FailWrites(errors.New("flood wait"))
		c.HideTrack(ctx)
		if c.bio.reconcile(ctx) {
			t.Error("stale overlay classified as user edit while writes fail")
		}
		if !c.Snapshot().Bio.Pending {
			t.Error("expected write to stay pending")
		}

		profile.FailWrites(nil)
		c.bio.reconcile(ctx)
		c.emoji.reconcile(ctx)
		assertProfile(t, profile, "hello", 42)
	})

	t.Run("Reconnect Reseeds Defaults", func(t *testing.T) {
		profile := th.NewFakeProfile("hello", 42)
		c := newTestCoordinator(t, profile, clockwork.NewFakeClock())
		c.ShowTrack(ctx, trackA)

		profile.Edit("reseeded", 5)
		if err := c.Connect(ctx); err != nil {
			t.Fatalf("Connect() error = %v", err)
		}
		s := c.Snapshot()
		if s.Bio.Active || s.Emoji.Active {
			t.Error("connect should clear overlay state")
		}
		if s.Bio.Default != "reseeded" || s.Emoji.Default != 5 {
			t.Errorf("connect did not seed defaults: %+v", s)
		}
	})
}

func TestCoordinatorConnect(t *testing.T) {
	profile := th.NewFakeProfile("hello", 42)
	profile.FailReads(errors.New("offline"))

	c := New(profile, Options{Logger: shared.NewLogger(io.Discard)})
	err := c.Connect(context.Background())
	if !errors.Is(err, shared.ErrRemote) {
		t.Fatalf("expected ErrRemote, got %v", err)
	}

	if err := c.StartMonitoring(context.Background()); !errors.Is(err, shared.ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}

func TestCoordinatorMonitoring(t *testing.T) {
	t.Run("State Conflicts", func(t *testing.T) {
		ctx := context.Background()
		c := newTestCoordinator(t, th.NewFakeProfile("hello", 42), clockwork.NewFakeClock())

		if err := c.StopMonitoring(); !errors.Is(err, shared.ErrMonitoringState) {
			t.Errorf("stop while idle: expected ErrMonitoringState, got %v", err)
		}

		if err := c.StartMonitoring(ctx); err != nil {
			t.Fatalf("StartMonitoring() error = %v", err)
		}
		if err := c.StartMonitoring(ctx); !errors.Is(err, shared.ErrMonitoringState) {
			t.Errorf("start while running: expected ErrMonitoringState, got %v", err)
		}
		if !c.Snapshot().Monitoring {
			t.Error("expected monitoring to still be running")
		}

		if err := c.StopMonitoring(); err != nil {
			t.Fatalf("StopMonitoring() error = %v", err)
		}
		if c.Snapshot().Monitoring {
			t.Error("expected monitoring to be stopped")
		}

		if err := c.StartMonitoring(ctx); err != nil {
			t.Errorf("restart after stop: %v", err)
		}
		if err := c.StopMonitoring(); err != nil {
			t.Errorf("second stop: %v", err)
		}
	})

	t.Run("Loops Pick Up Edits On Tick", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		clock := clockwork.NewFakeClock()
		profile := th.NewFakeProfile("hello", 42)
		c := newTestCoordinator(t, profile, clock)

		if err := c.StartMonitoring(ctx); err != nil {
			t.Fatalf("StartMonitoring() error = %v", err)
		}
		if err := clock.BlockUntilContext(ctx, 2); err != nil {
			t.Fatalf("monitor loops never started: %v", err)
		}

		c.ShowTrack(ctx, trackA)
		profile.Edit("edited", 7)
		clock.Advance(time.Second)

		th.WaitFor(t, "both defaults to update", func() bool {
			s := c.Snapshot()
			return s.Bio.Default == "edited" && s.Emoji.Default == 7
		})

		if err := c.StopMonitoring(); err != nil {
			t.Fatalf("StopMonitoring() error = %v", err)
		}

		assertProfile(t, profile, "Listening to trackA", overlayEmoji)

		reads := profile.ReadCount()
		clock.Advance(time.Second)
		time.Sleep(20 * time.Millisecond)
		if got := profile.ReadCount(); got != reads {
			t.Errorf("loops kept reading after stop: %d -> %d", reads, got)
		}
	})

	t.Run("Context Cancel Ends Loops", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		c := newTestCoordinator(t, th.NewFakeProfile("hello", 42), clockwork.NewFakeClock())

		if err := c.StartMonitoring(ctx); err != nil {
			t.Fatalf("StartMonitoring() error = %v", err)
		}
		cancel()

		th.WaitFor(t, "loops to exit", func() bool { return !c.Snapshot().Monitoring })

		if err := c.StartMonitoring(context.Background()); !errors.Is(err, shared.ErrMonitoringState) {
			t.Errorf("expected ErrMonitoringState until stopped, got %v", err)
		}
		if err := c.StopMonitoring(); err != nil {
			t.Fatalf("StopMonitoring() error = %v", err)
		}
		if err := c.StartMonitoring(context.Background()); err != nil {
			t.Fatalf("restart after stop: %v", err)
		}
		if !c.Snapshot().Monitoring {
			t.Error("expected monitoring after restart")
		}
		if err := c.StopMonitoring(); err != nil {
			t.Errorf("StopMonitoring() error = %v", err)
		}
	})

	t.Run("Show And Hide Serialize With Ticks", func(t *testing.T) {
		ctx := context.Background()
		profile := th.NewFakeProfile("hello", 42)
		c := New(profile, Options{
			EmojiID:  overlayEmoji,
			BioLimit: 140,
			Interval: time.Millisecond,
			Logger:   shared.NewLogger(io.Discard),
		})
		if err := c.Connect(ctx); err != nil {
			t.Fatalf("Connect() error = %v", err)
		}
		if err := c.StartMonitoring(ctx); err != nil {
			t.Fatalf("StartMonitoring() error = %v", err)
		}

		var wg sync.WaitGroup
		for i := range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := range 50 {
					track := &models.Track{ID: fmt.Sprintf("%d-%d", i, j), Title: fmt.Sprintf("track %d-%d", i, j)}
					c.ShowTrack(ctx, track)
					c.HideTrack(ctx)
				}
			}()
		}
		wg.Wait()

		if err := c.StopMonitoring(); err != nil {
			t.Fatalf("StopMonitoring() error = %v", err)
		}

		s := c.Snapshot()
		if s.Bio.Default != "hello" || s.Emoji.Default != 42 {
			t.Errorf("own writes were classified as edits: %+v", s)
		}

		c.HideTrack(ctx)
		assertProfile(t, profile, "hello", 42)
	})
}
