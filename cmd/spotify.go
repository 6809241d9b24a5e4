package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/nowplaying/internal/formatter"
	"github.com/desertthunder/nowplaying/internal/repositories"
	"github.com/desertthunder/nowplaying/internal/server"
	"github.com/desertthunder/nowplaying/internal/services"
	"github.com/desertthunder/nowplaying/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const (
	spotifyTokenKey = "spotify"
	authTimeout     = 2 * time.Minute
)

var openBrowser = shared.OpenBrowser

// reauthorizer is a Spotify client that can run the consent flow again and adopt the new token.
type reauthorizer interface {
	services.OAuthService
	AuthenticateWithToken(ctx context.Context, token *oauth2.Token)
}

// SpotifyAuth performs OAuth2 authentication flow for Spotify.
//
// Starts a local HTTP server, opens browser for user authorization, and stores the exchanged token in the database.
func (r *Runner) SpotifyAuth(ctx context.Context, cmd *cli.Command) error {
	spotifyService, err := services.NewSpotifyService(r.config.Credentials.Spotify.Map())
	if err != nil {
		return fmt.Errorf("failed to create Spotify service: %w", err)
	}

	token, err := r.doOAuth(ctx, spotifyService, "authorization", !cmd.Bool("no-browser"))
	if err != nil {
		return err
	}

	store, err := r.tokenStore()
	if err != nil {
		return err
	}
	if err := store.Store(token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Token saved to %s\n\n", r.config.Database.Path)
	r.writePlain("You can now use: nowplaying spotify now\n")
	return nil
}

// SpotifyNow prints the current playback.
func (r *Runner) SpotifyNow(ctx context.Context, cmd *cli.Command) error {
	client, err := r.spotifyClient(ctx)
	if err != nil {
		return err
	}

	playback, err := client.CurrentPlayback(ctx)
	if reauthed, authErr := r.handleSpotifyAuthError(ctx, err); reauthed {
		if authErr != nil {
			return authErr
		}
		playback, err = client.CurrentPlayback(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to fetch playback: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(playback, cmd.Bool("pretty"))
	}

	return r.writePlain("%s\n", formatter.Playback(playback))
}

// SpotifyStatus checks the stored token by fetching the account profile.
func (r *Runner) SpotifyStatus(ctx context.Context, cmd *cli.Command) error {
	client, err := r.spotifyClient(ctx)
	if err != nil {
		return err
	}

	user, err := client.UserProfile(ctx)
	if reauthed, authErr := r.handleSpotifyAuthError(ctx, err); reauthed {
		if authErr != nil {
			return authErr
		}
		user, err = client.UserProfile(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to fetch profile: %w", err)
	}

	r.writePlainHeader("Spotify")
	r.writePlain("User:    %s (%s)\n", user.DisplayName, user.ID)
	r.writePlain("Plan:    %s\n", user.Product)
	r.writePlain("Country: %s\n", user.Country)
	return nil
}

// spotifyClient returns the injected client or builds one from the config and the stored token.
//
// Refreshed tokens are written back to the database.
func (r *Runner) spotifyClient(ctx context.Context) (SpotifyClient, error) {
	if r.spotify != nil {
		return r.spotify, nil
	}

	spotifyService, err := services.NewSpotifyService(r.config.Credentials.Spotify.Map())
	if err != nil {
		return nil, fmt.Errorf("failed to create Spotify service: %w", err)
	}

	store, err := r.tokenStore()
	if err != nil {
		return nil, err
	}

	token, err := store.Load()
	if errors.Is(err, shared.ErrTokenNotFound) {
		return nil, fmt.Errorf("%w: run `nowplaying spotify auth` first", shared.ErrNotAuthenticated)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}

	spotifyService.SetTokenRefreshCallback(func(t *oauth2.Token) {
		if err := store.Store(t); err != nil {
			r.logger.Warn("failed to persist refreshed token", "error", err)
			return
		}
		r.logger.Debug("persisted refreshed spotify token", "expiry", t.Expiry)
	})
	spotifyService.AuthenticateWithToken(ctx, token)

	r.spotify = spotifyService
	return spotifyService, nil
}

func (r *Runner) tokenStore() (*repositories.TokenStore, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	return repositories.NewTokenStore(repositories.NewTokenRepository(db), spotifyTokenKey), nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context, oauthSrv services.OAuthService, prefix string, browser bool) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := oauthSrv.GetAuthURL(state)
	serverAddr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	callback := server.NewCallbackServer(serverAddr, server.NewOAuthHandler(oauthSrv, state), r.logger)

	r.logger.Infof("starting OAuth server for %s at %v", prefix, serverAddr)
	if err := callback.Listen(); err != nil {
		return nil, fmt.Errorf("server error: %w", err)
	}

	opened := false
	if browser {
		r.writePlain("→ Opening browser for Spotify %s...\n", prefix)
		if err := openBrowser(authURL); err != nil {
			r.logger.Warnf("failed to open browser automatically %v", err)
			r.writePlainln("⚠ Could not open browser automatically.")
		} else {
			opened = true
		}
	}
	if !opened {
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", authTimeout)

	token, err := callback.Wait(ctx, authTimeout)
	if err != nil {
		return nil, fmt.Errorf("authorization failed: %w", err)
	}
	if token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}

	return token, nil
}

// handleSpotifyAuthError checks if an error is a token expiration error and triggers reauthorization if needed.
func (r *Runner) handleSpotifyAuthError(ctx context.Context, err error) (bool, error) {
	if err == nil || !errors.Is(err, shared.ErrTokenExpired) {
		return false, err
	}

	spotifyService, ok := r.spotify.(reauthorizer)
	if !ok {
		return true, fmt.Errorf("spotify service does not support reauthorization: %w", err)
	}

	r.writePlainln("⚠ Authentication token expired. Starting reauthorization...\n")

	token, reauthErr := r.doOAuth(ctx, spotifyService, "reauthorization", true)
	if reauthErr != nil {
		return true, fmt.Errorf("reauthorization failed: %w", reauthErr)
	}

	store, storeErr := r.tokenStore()
	if storeErr != nil {
		return true, storeErr
	}
	if err := store.Store(token); err != nil {
		return true, fmt.Errorf("failed to save token: %w", err)
	}
	spotifyService.AuthenticateWithToken(ctx, token)

	r.writePlainln("✓ Reauthorization successful")
	return true, nil
}
