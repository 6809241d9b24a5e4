// Spotify API implementation of [Service]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/desertthunder/nowplaying/internal/models"
	"github.com/desertthunder/nowplaying/internal/shared"
	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	defaultRedirectURI = "http://127.0.0.1:8888/callback"
)

// SpotifyScopes are the permissions requested at login.
var SpotifyScopes = []string{
	"user-read-private",
	"user-read-playback-state",
	"user-read-currently-playing",
}

type followers struct {
	Total int `json:"total"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Followers   followers      `json:"followers"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a simplified Spotify album.
type SpotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []SpotifyImage `json:"images"`
	URI    string         `json:"uri"`
}

// SpotifyShow is the podcast an episode belongs to.
type SpotifyShow struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Publisher string `json:"publisher"`
}

// SpotifyItem is the currently playing item, a track or an episode.
//
// Tracks carry Artists and Album; episodes carry Show.
type SpotifyItem struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Type       string          `json:"type"` // track or episode
	DurationMS int             `json:"duration_ms"`
	URI        string          `json:"uri"`
	IsLocal    bool            `json:"is_local"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      *SpotifyAlbum   `json:"album"`
	Show       *SpotifyShow    `json:"show"`
}

// SpotifyCurrentlyPlaying is the response of GET /me/player/currently-playing.
type SpotifyCurrentlyPlaying struct {
	Timestamp            int64        `json:"timestamp"`
	ProgressMS           int          `json:"progress_ms"`
	IsPlaying            bool         `json:"is_playing"`
	CurrentlyPlayingType string       `json:"currently_playing_type"` // track, episode, ad, unknown
	Item                 *SpotifyItem `json:"item"`
}

// Track converts the item to a [models.Track]. Local files have no ID, so their URI stands in.
func (i *SpotifyItem) Track() *models.Track {
	if i == nil {
		return nil
	}

	track := &models.Track{ID: i.ID, Title: i.Name, DurationMS: i.DurationMS}
	if track.ID == "" {
		track.ID = i.URI
	}

	switch {
	case i.Show != nil:
		track.Artists = []string{i.Show.Name}
	default:
		for _, a := range i.Artists {
			track.Artists = append(track.Artists, a.Name)
		}
	}
	if i.Album != nil {
		track.Album = i.Album.Name
	}
	return track
}

// SpotifyService implements the Service interface for Spotify API interactions.
// Uses [oauth2] for authentication and provides playback and profile lookups.
type SpotifyService struct {
	config      *oauth2.Config
	credentials map[string]string
	baseURL     string
	limiter     *rate.Limiter
	breaker     *gobreaker.CircuitBreaker

	mu             sync.RWMutex
	token          *oauth2.Token
	httpClient     *http.Client
	onTokenRefresh func(*oauth2.Token)
}

// SpotifyOption customizes a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithBaseURL points the service at another API root, e.g. a test server.
func WithBaseURL(u string) SpotifyOption {
	return func(s *SpotifyService) { s.baseURL = u }
}

// WithEndpoint overrides the OAuth endpoints.
func WithEndpoint(authURL, tokenURL string) SpotifyOption {
	return func(s *SpotifyService) {
		s.config.Endpoint = oauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL}
	}
}

// WithRateLimit sets the request pace.
func WithRateLimit(every time.Duration, burst int) SpotifyOption {
	return func(s *SpotifyService) { s.limiter = rate.NewLimiter(rate.Every(every), burst) }
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string, opts ...SpotifyOption) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = defaultRedirectURI
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       SpotifyScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	s := &SpotifyService{
		config:      config,
		credentials: credentials,
		baseURL:     spotifyBaseURL,
		httpClient:  http.DefaultClient,
		limiter:     rate.NewLimiter(rate.Every(500*time.Millisecond), 2),
	}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "spotify",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, shared.ErrServiceUnavailable)
		},
	})

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Authenticate performs OAuth2 authentication with Spotify. Expects either an "access_token" or "auth_code" in credentials.
//
// An "access_token" may be accompanied by a "refresh_token" so the client can refresh it.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if accessToken, ok := credentials["access_token"]; ok && accessToken != "" {
		s.AuthenticateWithToken(ctx, &oauth2.Token{
			AccessToken:  accessToken,
			RefreshToken: credentials["refresh_token"],
			TokenType:    "Bearer",
		})
		return nil
	}

	if authCode, ok := credentials["auth_code"]; ok && authCode != "" {
		_, err := s.Exchange(ctx, authCode)
		return err
	}

	return fmt.Errorf("%w: missing access_token or auth_code in credentials", shared.ErrMissingCredentials)
}

// AuthenticateWithToken uses a stored token, refreshing it through the token endpoint when it expires.
func (s *SpotifyService) AuthenticateWithToken(ctx context.Context, token *oauth2.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()

	source := &refreshableTokenSource{
		source:   s.config.TokenSource(ctx, token),
		callback: s.onTokenRefresh,
		last:     token.AccessToken,
	}
	s.token = token
	s.httpClient = oauth2.NewClient(ctx, source)
}

// Exchange trades an authorization code for a token and authenticates with it.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
	}
	s.AuthenticateWithToken(ctx, token)
	return token, nil
}

// SetTokenRefreshCallback registers fn to receive every new token the client obtains.
//
// It applies to tokens installed after the call.
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTokenRefresh = fn
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// errNoContent marks a 204 response.
var errNoContent = errors.New("no content")

// doRequest performs an authenticated GET against the Spotify API and decodes the JSON body into result.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, result any) error {
	s.mu.RLock()
	token, client := s.token, s.httpClient
	s.mu.RUnlock()

	if token == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrTimeout, err)
	}

	_, err := s.breaker.Execute(func() (any, error) {
		return nil, s.send(ctx, client, endpoint, result)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	return err
}

func (s *SpotifyService) send(ctx context.Context, client *http.Client, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) {
			return fmt.Errorf("%w: token refresh failed: %v", shared.ErrTokenExpired, err)
		}
		return fmt.Errorf("%w: request failed: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return errNoContent
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: spotify returned 401", shared.ErrTokenExpired)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("%w: spotify API status %d", shared.ErrServiceUnavailable, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: spotify API status %d: %s", shared.ErrAPIRequest, resp.StatusCode, body)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
		}
	}

	return nil
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, "/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CurrentlyPlaying returns the raw player state, or nil when nothing is loaded.
func (s *SpotifyService) CurrentlyPlaying(ctx context.Context) (*SpotifyCurrentlyPlaying, error) {
	var playing SpotifyCurrentlyPlaying
	err := s.doRequest(ctx, "/me/player/currently-playing?additional_types=track,episode", &playing)
	if errors.Is(err, errNoContent) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &playing, nil
}

// CurrentPlayback returns what the user is playing, or nil when nothing is loaded.
//
// Ads and items Spotify does not describe come back without a track.
func (s *SpotifyService) CurrentPlayback(ctx context.Context) (*models.Playback, error) {
	playing, err := s.CurrentlyPlaying(ctx)
	if err != nil || playing == nil {
		return nil, err
	}

	return &models.Playback{
		Track:      playing.Item.Track(),
		IsPlaying:  playing.IsPlaying,
		ProgressMS: playing.ProgressMS,
	}, nil
}

// refreshableTokenSource wraps a [oauth2.TokenSource] and reports every token that differs from the last one.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)

	mu   sync.Mutex
	last string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	changed := token.AccessToken != r.last
	r.last = token.AccessToken
	r.mu.Unlock()

	if changed && r.callback != nil {
		r.callback(token)
	}
	return token, nil
}
