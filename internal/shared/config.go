package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Presence    PresenceConfig    `toml:"presence"`
	Telegram    TelegramConfig    `toml:"telegram"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Logging     LoggingConfig     `toml:"logging"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify  SpotifyConfig             `toml:"spotify"`
	Telegram TelegramCredentialsConfig `toml:"telegram"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// TelegramCredentialsConfig contains the MTProto application and account credentials.
type TelegramCredentialsConfig struct {
	APIID    int    `toml:"api_id"`
	APIHash  string `toml:"api_hash"`
	Phone    string `toml:"phone"`
	Password string `toml:"password"`
}

// PresenceConfig controls how playback is mirrored onto the profile.
//
// Periods are whole seconds.
type PresenceConfig struct {
	EmojiStatusID    int64 `toml:"emoji_status_id"`
	CheckTrackPeriod int   `toml:"check_track_period"`
	MonitorInterval  int   `toml:"monitor_interval"`
	BioCharLimit     int   `toml:"bio_char_limit"`
}

// TelegramConfig contains Telegram client settings.
type TelegramConfig struct {
	SessionsPath   string `toml:"sessions_path"`
	RequestTimeout int    `toml:"request_timeout"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains the OAuth callback server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LoggingConfig contains log settings.
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// envConfig mirrors the variables accepted from the environment or a .env file.
type envConfig struct {
	TelegramAPIID       int    `env:"TELEGRAM_API_ID"`
	TelegramAPIHash     string `env:"TELEGRAM_API_HASH"`
	Phone               string `env:"PHONE"`
	Password            string `env:"PASSWORD"`
	SpotifyClientID     string `env:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret string `env:"SPOTIFY_CLIENT_SECRET"`
	EmojiStatusID       int64  `env:"SPOTIFY_EMOJI_STATUS_ID"`
	CheckTrackPeriod    int    `env:"CHECK_TRACK_PERIOD"`
	SessionsPath        string `env:"SESSIONS_PATH"`
	RedirectURL         string `env:"REDIRECT_URL"`
	BioCharLimit        int    `env:"BIO_CHAR_LIMIT"`
}

// Map returns the Spotify credentials in the map form accepted by the Spotify service constructor.
func (s SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
	}
}

// CheckTrackEvery returns the playback polling interval.
func (p PresenceConfig) CheckTrackEvery() time.Duration {
	return seconds(p.CheckTrackPeriod, 3)
}

// MonitorEvery returns the profile monitor interval.
func (p PresenceConfig) MonitorEvery() time.Duration {
	return seconds(p.MonitorInterval, 1)
}

// Timeout returns the per-request timeout for Telegram calls.
func (t TelegramConfig) Timeout() time.Duration {
	return seconds(t.RequestTimeout, 10)
}

func seconds(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Second
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// LoadConfigOrDefault loads path when it exists and falls back to [DefaultConfig] otherwise, then applies the environment.
func LoadConfigOrDefault(path string) (*Config, error) {
	config := DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		if config, err = LoadConfig(path); err != nil {
			return nil, err
		}
	}

	if err := ApplyEnv(config); err != nil {
		return nil, err
	}
	return config, nil
}

// setEnv is an [env.Source] that treats empty variables as unset.
type setEnv struct{}

func (setEnv) LookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	return v, ok && v != ""
}

// ApplyEnv loads a .env file if present and overrides config with every non-empty variable from [envConfig].
func ApplyEnv(config *Config) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("ignoring unreadable .env file", "err", err)
	}

	var e envConfig
	if err := env.Load(&e, &env.Options{Source: setEnv{}}); err != nil {
		return fmt.Errorf("%w: failed to load environment: %v", ErrInvalidConfig, err)
	}

	overrideInt(&config.Credentials.Telegram.APIID, e.TelegramAPIID)
	overrideString(&config.Credentials.Telegram.APIHash, e.TelegramAPIHash)
	overrideString(&config.Credentials.Telegram.Phone, e.Phone)
	overrideString(&config.Credentials.Telegram.Password, e.Password)
	overrideString(&config.Credentials.Spotify.ClientID, e.SpotifyClientID)
	overrideString(&config.Credentials.Spotify.ClientSecret, e.SpotifyClientSecret)
	overrideString(&config.Credentials.Spotify.RedirectURI, e.RedirectURL)
	overrideString(&config.Telegram.SessionsPath, e.SessionsPath)
	overrideInt(&config.Presence.CheckTrackPeriod, e.CheckTrackPeriod)
	overrideInt(&config.Presence.BioCharLimit, e.BioCharLimit)
	if e.EmojiStatusID != 0 {
		config.Presence.EmojiStatusID = e.EmojiStatusID
	}

	return nil
}

func overrideString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

// Validate reports missing credentials and out of range presence settings.
func (c *Config) Validate() error {
	var errs []error

	if c.Credentials.Telegram.APIID == 0 || c.Credentials.Telegram.APIHash == "" {
		errs = append(errs, fmt.Errorf("%w: telegram api_id and api_hash", ErrMissingCredentials))
	}
	if c.Credentials.Telegram.Phone == "" {
		errs = append(errs, fmt.Errorf("%w: telegram phone", ErrMissingCredentials))
	}
	if c.Credentials.Spotify.ClientID == "" || c.Credentials.Spotify.ClientSecret == "" {
		errs = append(errs, fmt.Errorf("%w: spotify client_id and client_secret", ErrMissingCredentials))
	}
	if c.Presence.BioCharLimit < 0 {
		errs = append(errs, fmt.Errorf("%w: bio_char_limit must not be negative", ErrInvalidConfig))
	}
	if c.Presence.CheckTrackPeriod < 0 || c.Presence.MonitorInterval < 0 {
		errs = append(errs, fmt.Errorf("%w: periods must not be negative", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes config to path as TOML, replacing any existing file.
func SaveConfig(path string, config *Config) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}
