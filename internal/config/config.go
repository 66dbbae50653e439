package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/DoyleJ11/entry-lobby/internal/engine"
)

var (
	ErrInvalidPort          = errors.New("invalid server port")
	ErrInvalidTickRate      = errors.New("invalid tick rate")
	ErrInvalidRoundDuration = errors.New("invalid round duration")
	ErrInvalidLogLevel      = errors.New("invalid log level")
	ErrInvalidLogFormat     = errors.New("invalid log format")
	ErrInvalidTransport     = errors.New("invalid transport")
	ErrInvalidLang          = errors.New("invalid language")
	ErrInvalidSession       = errors.New("invalid NATS session name")
)

const (
	TransportWS   = "ws"
	TransportNATS = "nats"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Session SessionConfig `yaml:"session"`
	Log     LogConfig     `yaml:"log"`
	NATS    NATSConfig    `yaml:"nats"`
	Client  ClientConfig  `yaml:"client"`
}

type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type SessionConfig struct {
	TickRate      int           `yaml:"tick_rate"`
	RoundDuration time.Duration `yaml:"round_duration"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File redirects output away from stderr, which the terminal client draws on.
	File string `yaml:"file"`
}

type NATSConfig struct {
	URL           string `yaml:"url"`
	Stream        string `yaml:"stream"`
	SubjectPrefix string `yaml:"subject_prefix"`
	// Session is one subject token shared by everyone taking part in the same session.
	Session string        `yaml:"session"`
	MaxAge  time.Duration `yaml:"max_age"`
}

type ClientConfig struct {
	URL       string `yaml:"url"`
	Transport string `yaml:"transport"`
	Lang      string `yaml:"lang"`
	// ID proposes a participant identity; empty lets the platform assign one.
	ID string `yaml:"id"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			AllowedOrigins: []string{"*"},
		},
		Session: SessionConfig{
			TickRate:      engine.DefaultTickRate,
			RoundDuration: engine.DefaultRoundDuration,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		NATS: NATSConfig{
			URL:           "nats://127.0.0.1:4222",
			Stream:        "ENTRY",
			SubjectPrefix: "entry",
			Session:       "lobby",
			MaxAge:        time.Hour,
		},
		Client: ClientConfig{
			URL:       "ws://127.0.0.1:8080/ws",
			Transport: TransportWS,
			Lang:      "en",
		},
	}
}

// Load builds the configuration from defaults, the optional yaml file at path, a
// .env file in the working directory and the process environment, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from ENTRY_* and NATS_URL variables. Unparseable
// numbers keep the current value.
func (c *Config) ApplyEnv() {
	c.Server.Host = getEnv("ENTRY_HOST", c.Server.Host)
	c.Server.Port = getEnvAsInt("ENTRY_PORT", c.Server.Port)
	if v := os.Getenv("ENTRY_ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = strings.Split(v, ",")
	}
	c.Session.TickRate = getEnvAsInt("ENTRY_TICK_RATE", c.Session.TickRate)
	c.Session.RoundDuration = getEnvAsDuration("ENTRY_ROUND_DURATION", c.Session.RoundDuration)
	c.Log.Level = getEnv("ENTRY_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("ENTRY_LOG_FORMAT", c.Log.Format)
	c.Log.File = getEnv("ENTRY_LOG_FILE", c.Log.File)
	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)
	c.NATS.Session = getEnv("ENTRY_SESSION", c.NATS.Session)
	c.Client.URL = getEnv("ENTRY_RELAY_URL", c.Client.URL)
	c.Client.Transport = getEnv("ENTRY_TRANSPORT", c.Client.Transport)
	c.Client.Lang = getEnv("ENTRY_LANG", c.Client.Lang)
	c.Client.ID = getEnv("ENTRY_ID", c.Client.ID)
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var err error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		err = multierr.Append(err, fmt.Errorf("%w: %d", ErrInvalidPort, c.Server.Port))
	}
	if c.Session.TickRate <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: %d", ErrInvalidTickRate, c.Session.TickRate))
	}
	if c.Session.TickRate > 0 && c.Engine().RoundTicks() < 1 {
		err = multierr.Append(err, fmt.Errorf("%w: %s is shorter than one tick", ErrInvalidRoundDuration, c.Session.RoundDuration))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		err = multierr.Append(err, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Log.Level))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		err = multierr.Append(err, fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Log.Format))
	}
	switch c.Client.Transport {
	case TransportWS, TransportNATS:
	default:
		err = multierr.Append(err, fmt.Errorf("%w: %q", ErrInvalidTransport, c.Client.Transport))
	}
	if c.NATS.Session == "" || strings.ContainsAny(c.NATS.Session, ".*> \t") {
		err = multierr.Append(err, fmt.Errorf("%w: %q", ErrInvalidSession, c.NATS.Session))
	}
	switch c.Client.Lang {
	case "en", "ja":
	default:
		err = multierr.Append(err, fmt.Errorf("%w: %q", ErrInvalidLang, c.Client.Lang))
	}
	return err
}

func (c *Config) Engine() engine.Config {
	return engine.Config{TickRate: c.Session.TickRate, RoundDuration: c.Session.RoundDuration}
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
