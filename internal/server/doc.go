// Package server provides HTTP routing, middleware, and the OAuth callback used by `spotify auth`.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// OAuthHandler implements the OAuth2 authorization code callback flow.
//
// The handler validates the state parameter (CSRF protection), exchanges the authorization code for tokens,
// and sends the result through a channel.
//
// It only processes one callback to prevent replay attacks.
//
// # Callback Server
//
// [CallbackServer] runs the router on the redirect address (127.0.0.1:8888 by default) for the length of
// one login and shuts down once a result arrives or the wait times out.
package server
