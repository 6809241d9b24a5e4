// package formatter renders tracks and playback snapshots as display strings for the profile bio and CLI output.
package formatter

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/desertthunder/nowplaying/internal/models"
)

const (
	listeningPrefix = "Listening to "
	ellipsis        = "…"
)

// ListeningString returns the bio overlay for track, "Listening to Artist - Title", cut to at most limit runes.
//
// A limit of zero or less disables truncation.
func ListeningString(track *models.Track, limit int) string {
	if track == nil {
		return ""
	}
	return Truncate(listeningPrefix+track.String(), limit)
}

// Truncate shortens s to at most limit runes, ending in "…" when anything was cut.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	if limit == 1 {
		return ellipsis
	}

	runes := []rune(s)
	return strings.TrimRight(string(runes[:limit-1]), " ") + ellipsis
}

// Duration formats milliseconds as m:ss, or h:mm:ss past an hour.
func Duration(ms int) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// Playback describes a snapshot for terminal output.
func Playback(p *models.Playback) string {
	if p == nil || p.Track == nil {
		return "Nothing playing"
	}

	line := p.Track.String()
	if p.Track.Album != "" {
		line += fmt.Sprintf(" (%s)", p.Track.Album)
	}
	if p.Track.DurationMS > 0 {
		line += fmt.Sprintf(" [%s / %s]", Duration(p.ProgressMS), Duration(p.Track.DurationMS))
	}
	if !p.IsPlaying {
		line += " (paused)"
	}
	return line
}
