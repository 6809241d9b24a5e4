package services

import (
	"context"

	"github.com/desertthunder/nowplaying/internal/models"
	"golang.org/x/oauth2"
)

// Service defines the interface for music service providers.
type Service interface {
	// Authenticate performs OAuth or API key authentication with the service.
	// Returns an error if authentication fails.
	Authenticate(ctx context.Context, credentials map[string]string) error

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// PlaybackService is a [Service] that can report what the user is listening to.
type PlaybackService interface {
	Service

	// CurrentPlayback returns the user's player state, or nil when nothing is loaded.
	CurrentPlayback(ctx context.Context) (*models.Playback, error)
}

// OAuthService is a [Service] using the authorization code flow.
type OAuthService interface {
	Service

	// GetAuthURL returns the consent page URL carrying state.
	GetAuthURL(state string) string

	// Exchange trades an authorization code for a token and authenticates the service with it.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}
