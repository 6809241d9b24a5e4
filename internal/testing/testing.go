// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/nowplaying/internal/models"
)

// FakeProfile is an in-memory profile for [presence.Profile].
//
// Reads and writes can be made to fail with ReadErr / WriteErr.
type FakeProfile struct {
	mu       sync.Mutex
	bio      string
	emoji    int64
	readErr  error
	writeErr error

	BioWrites   []string
	EmojiWrites []int64
	Reads       int
}

// NewFakeProfile returns a [FakeProfile] showing bio and emoji.
func NewFakeProfile(bio string, emoji int64) *FakeProfile {
	return &FakeProfile{bio: bio, emoji: emoji}
}

func (p *FakeProfile) ReadBio(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Reads++
	if p.readErr != nil {
		return "", p.readErr
	}
	return p.bio, nil
}

func (p *FakeProfile) WriteBio(ctx context.Context, bio string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.BioWrites = append(p.BioWrites, bio)
	if p.writeErr != nil {
		return p.writeErr
	}
	p.bio = bio
	return nil
}

func (p *FakeProfile) ReadEmojiStatus(ctx context.Context) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Reads++
	if p.readErr != nil {
		return 0, p.readErr
	}
	return p.emoji, nil
}

func (p *FakeProfile) WriteEmojiStatus(ctx context.Context, id int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.EmojiWrites = append(p.EmojiWrites, id)
	if p.writeErr != nil {
		return p.writeErr
	}
	p.emoji = id
	return nil
}

// Edit changes the profile as the user would from another client.
func (p *FakeProfile) Edit(bio string, emoji int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bio, p.emoji = bio, emoji
}

// Current returns the values the profile is showing.
func (p *FakeProfile) Current() (string, int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bio, p.emoji
}

// Writes returns the number of bio and emoji writes made so far.
func (p *FakeProfile) Writes() (bio, emoji int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.BioWrites), len(p.EmojiWrites)
}

// ReadCount returns the number of reads made so far.
func (p *FakeProfile) ReadCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Reads
}

func (p *FakeProfile) FailReads(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readErr = err
}

func (p *FakeProfile) FailWrites(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeErr = err
}

// ScriptedSource replays playback snapshots for [playback.Source], repeating the last one when the script runs out.
type ScriptedSource struct {
	mu    sync.Mutex
	steps []SourceStep
	calls int
}

// SourceStep is one scripted CurrentPlayback result.
type SourceStep struct {
	Playback *models.Playback
	Err      error
}

func NewScriptedSource(steps ...SourceStep) *ScriptedSource {
	return &ScriptedSource{steps: steps}
}

func (s *ScriptedSource) CurrentPlayback(ctx context.Context) (*models.Playback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.steps) == 0 {
		return nil, nil
	}

	i := min(s.calls, len(s.steps)-1)
	s.calls++
	return s.steps[i].Playback, s.steps[i].Err
}

// Calls returns how many times CurrentPlayback was called.
func (s *ScriptedSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Playing returns a step with track playing.
func Playing(id, title string) SourceStep {
	return SourceStep{Playback: &models.Playback{Track: &models.Track{ID: id, Title: title}, IsPlaying: true}}
}

// Stopped returns a step where nothing is playing.
func Stopped() SourceStep {
	return SourceStep{}
}

// Failing returns a step where the source fails with err.
func Failing(err error) SourceStep {
	return SourceStep{Err: err}
}

// RecordingPresenter records ShowTrack and HideTrack calls for [playback.Presenter].
type RecordingPresenter struct {
	mu    sync.Mutex
	Calls []string
}

func (r *RecordingPresenter) ShowTrack(ctx context.Context, track *models.Track) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, "show:"+track.ID)
}

func (r *RecordingPresenter) HideTrack(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, "hide")
}

// Recorded returns a copy of the recorded calls.
func (r *RecordingPresenter) Recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.Calls...)
}

// WaitFor polls cond until it holds or a second passes.
func WaitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}
