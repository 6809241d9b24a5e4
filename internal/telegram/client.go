package telegram

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/nowplaying/internal/shared"
	"github.com/gotd/td/session"
	gotg "github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
)

const sessionFile = "session.json"

// CodePrompt asks the user for the login code Telegram sent.
type CodePrompt func(ctx context.Context) (string, error)

// Config holds what a [Client] needs to connect.
type Config struct {
	APIID       int
	APIHash     string
	Phone       string
	Password    string
	SessionsDir string
	Timeout     time.Duration
}

// Client is a Telegram user session.
type Client struct {
	cfg    Config
	client *gotg.Client
	logger *log.Logger
	prompt CodePrompt

	mu      sync.Mutex
	profile *Profile
}

// New creates a [Client], preparing the private sessions directory.
func New(cfg Config, logger *log.Logger) (*Client, error) {
	if cfg.APIID == 0 || cfg.APIHash == "" {
		return nil, fmt.Errorf("%w: telegram api_id and api_hash", shared.ErrMissingCredentials)
	}

	dir, err := shared.EnsureSecureDir(cfg.SessionsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare sessions directory: %w", err)
	}
	cfg.SessionsDir = dir

	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	client := gotg.NewClient(cfg.APIID, cfg.APIHash, gotg.Options{
		SessionStorage: &session.FileStorage{Path: filepath.Join(dir, sessionFile)},
	})

	return &Client{
		cfg:    cfg,
		client: client,
		logger: shared.WithLogger(logger, "component", "telegram"),
		prompt: TerminalPrompt(os.Stdin, os.Stdout),
	}, nil
}

// SetCodePrompt replaces the terminal prompt used by [Client.Login].
func (c *Client) SetCodePrompt(p CodePrompt) {
	c.prompt = p
}

// SessionPath returns the session file location.
func (c *Client) SessionPath() string {
	return filepath.Join(c.cfg.SessionsDir, sessionFile)
}

// Run connects, checks that the session is authorized and calls fn while the connection is up.
//
// It fails with [shared.ErrNotAuthenticated] when no logged in session exists.
func (c *Client) Run(ctx context.Context, fn func(ctx context.Context, profile *Profile) error) error {
	return c.client.Run(ctx, func(ctx context.Context) error {
		status, err := c.client.Auth().Status(ctx)
		if err != nil {
			return remote("auth status", err)
		}
		if !status.Authorized {
			return fmt.Errorf("%w: run `nowplaying telegram login` first", shared.ErrNotAuthenticated)
		}

		return fn(ctx, c.bind())
	})
}

// Login signs in with the configured phone number, prompting for the code Telegram sends.
//
// An already authorized session is left untouched.
func (c *Client) Login(ctx context.Context) (*tg.User, error) {
	if c.cfg.Phone == "" {
		return nil, fmt.Errorf("%w: telegram phone", shared.ErrMissingCredentials)
	}

	var self *tg.User
	err := c.client.Run(ctx, func(ctx context.Context) error {
		codeAuth := auth.CodeAuthenticatorFunc(func(ctx context.Context, _ *tg.AuthSentCode) (string, error) {
			return c.prompt(ctx)
		})
		flow := auth.NewFlow(auth.Constant(c.cfg.Phone, c.cfg.Password, codeAuth), auth.SendCodeOptions{})

		if err := c.client.Auth().IfNecessary(ctx, flow); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
		}

		user, err := c.client.Self(ctx)
		if err != nil {
			return remote("get self", err)
		}
		self = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("logged in", "user", self.Username, "session", c.SessionPath())
	return self, nil
}

func (c *Client) bind() *Profile {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.profile == nil {
		c.profile = newProfile(c.client.API(), c.cfg.Timeout)
	}
	return c.profile
}

// TerminalPrompt reads the login code as one line from r.
func TerminalPrompt(r io.Reader, w io.Writer) CodePrompt {
	reader := bufio.NewReader(r)
	return func(ctx context.Context) (string, error) {
		fmt.Fprint(w, "Enter the code Telegram sent you: ")
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("%w: failed to read code: %v", shared.ErrMissingArgument, err)
		}
		code := strings.TrimSpace(line)
		if code == "" {
			return "", fmt.Errorf("%w: empty code", shared.ErrMissingArgument)
		}
		return code, nil
	}
}
