package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/nowplaying/internal/shared"
	"golang.org/x/oauth2"
)

// CallbackServer serves an [OAuthHandler] until it yields a token.
type CallbackServer struct {
	handler *OAuthHandler
	server  *http.Server
	logger  *log.Logger
}

// NewCallbackServer wires handler into a [BasicRouter] with request logging.
func NewCallbackServer(addr string, handler *OAuthHandler, logger *log.Logger) *CallbackServer {
	router := NewBasicRouter()
	router.Use(LoggingMiddleware(logger))
	router.Handler(handler)

	return &CallbackServer{
		handler: handler,
		server:  &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: 10 * time.Second},
		logger:  logger,
	}
}

// Listen binds the address. It returns once the socket is open so the browser can be sent to the consent page.
func (s *CallbackServer) Listen() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("callback server failed", "err", err)
		}
	}()
	return nil
}

// Wait blocks for the callback result, ctx cancellation or timeout, then shuts the server down.
func (s *CallbackServer) Wait(ctx context.Context, timeout time.Duration) (*oauth2.Token, error) {
	defer s.shutdown()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-s.handler.Result():
		if err := result.Error(); err != nil {
			return nil, err
		}
		return result.Token, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: no callback within %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *CallbackServer) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Warn("callback server shutdown", "err", err)
	}
}

// LoggingMiddleware logs each request at debug level with its status and duration.
func LoggingMiddleware(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "took", time.Since(start))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
