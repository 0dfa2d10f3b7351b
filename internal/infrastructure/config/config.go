package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Terminal  TerminalConfig
	WebSocket WebSocketConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// TerminalConfig holds shell session configuration.
type TerminalConfig struct {
	// DefaultCwd is used when a create-terminal request carries no cwd.
	// Empty falls back to $HOME.
	DefaultCwd string `envconfig:"TERMINAL_DEFAULT_CWD" default:""`
	// Shell overrides the platform shell table when set.
	Shell string `envconfig:"TERMINAL_SHELL" default:""`
	// PTY switches the process adapter from plain pipes to a pseudo-terminal.
	PTY bool `envconfig:"TERMINAL_PTY" default:"false"`
	// MaxSessions caps live sessions per connection; 0 disables the cap.
	MaxSessions int `envconfig:"TERMINAL_MAX_SESSIONS" default:"16"`
}

// WebSocketConfig holds transport channel tuning.
type WebSocketConfig struct {
	Path           string        `envconfig:"WS_PATH" default:"/terminal"`
	MaxMessageSize int64         `envconfig:"WS_MAX_MESSAGE_SIZE" default:"1048576"`
	SendQueue      int           `envconfig:"WS_SEND_QUEUE" default:"256"`
	PingInterval   time.Duration `envconfig:"WS_PING_INTERVAL" default:"30s"`
	AllowedOrigins []string      `envconfig:"WS_ALLOWED_ORIGINS" default:"*"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"20"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"40"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("invalid config: port must not be empty")
	}
	if c.Terminal.MaxSessions < 0 {
		return fmt.Errorf("invalid config: TERMINAL_MAX_SESSIONS must be >= 0, got %d", c.Terminal.MaxSessions)
	}
	if c.WebSocket.SendQueue <= 0 {
		return fmt.Errorf("invalid config: WS_SEND_QUEUE must be > 0, got %d", c.WebSocket.SendQueue)
	}
	if c.WebSocket.PingInterval <= 0 {
		return fmt.Errorf("invalid config: WS_PING_INTERVAL must be > 0, got %s", c.WebSocket.PingInterval)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Terminal: TerminalConfig{
			MaxSessions: 16,
		},
		WebSocket: WebSocketConfig{
			Path:           "/terminal",
			MaxMessageSize: 1 << 20,
			SendQueue:      256,
			PingInterval:   30 * time.Second,
			AllowedOrigins: []string{"*"},
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
			Enabled:           true,
		},
	}
}
