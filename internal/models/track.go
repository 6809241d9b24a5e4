package models

import "strings"

// Track represents a music track reported by the music service.
type Track struct {
	ID         string   `json:"id"`      // Stable service identifier, used for "same track" checks
	Title      string   `json:"title"`   // Track (or episode) name
	Artists    []string `json:"artists"` // Artist (or show) names in service order
	Album      string   `json:"album,omitempty"`
	DurationMS int      `json:"duration_ms"`
}

// String returns the display form "Artist1, Artist2 - Title", or just the title when there are no artists.
func (t Track) String() string {
	artists := strings.Join(t.Artists, ", ")
	if artists == "" {
		return t.Title
	}
	return artists + " - " + t.Title
}

// Same reports whether t and other identify the same track.
//
// Tracks without an ID (local files) fall back to comparing the display string.
func (t *Track) Same(other *Track) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.ID != "" || other.ID != "" {
		return t.ID == other.ID
	}
	return t.String() == other.String()
}

// Playback is a snapshot of the user's player.
type Playback struct {
	Track      *Track `json:"track"`
	IsPlaying  bool   `json:"is_playing"`
	ProgressMS int    `json:"progress_ms"`
}

// Playing returns the track that is audibly playing, or nil for nothing/paused.
func (p *Playback) Playing() *Track {
	if p == nil || !p.IsPlaying || p.Track == nil {
		return nil
	}
	return p.Track
}
