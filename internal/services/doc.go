// Package services defines the [Service] interface for music streaming providers and implements it for Spotify.
//
// # Spotify Implementation
//
// [SpotifyService] uses OAuth2 for authentication with automatic token refresh.
//
// The [oauth2.Client] automatically refreshes expired tokens using the refresh token. Refreshed tokens are
// reported through [SpotifyService.SetTokenRefreshCallback] so callers can persist them.
//
// Requests are paced with a [rate.Limiter] and pass through a [gobreaker.CircuitBreaker], so a Spotify
// outage fails fast instead of stacking up slow polls.
//
// # OAuth Service Extension
//
// The [OAuthService] interface extends Service for OAuth providers.
// [SpotifyService] implements this for the callback flow used by the CLI.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : Authenticate() not called
//   - [shared.ErrTokenExpired] : OAuth token rejected, reauthorization needed
//   - [shared.ErrServiceUnavailable] : rate limited, server error or open circuit
//   - [shared.ErrAPIRequest] : any other failed request
//
// # API Mappings
//
// The currently playing item is either a track or a podcast episode. Both map to [models.Track];
// an episode uses its show name as the artist.
package services
