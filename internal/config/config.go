package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// Variables are looked up as CHATROOM_<NAME> first, then as plain <NAME>.
const envPrefix = "chatroom"

type ServerConfig struct {
	Port             int     `envconfig:"PORT" default:"3001"`
	DatabaseURL      string  `envconfig:"DATABASE_URL"`
	PostgresHost     string  `envconfig:"POSTGRES_HOST" default:"localhost"`
	PostgresPort     int     `envconfig:"POSTGRES_PORT" default:"5432"`
	PostgresUser     string  `envconfig:"POSTGRES_USER" default:"postgres"`
	PostgresPassword string  `envconfig:"POSTGRES_PASSWORD" default:"postgres"`
	PostgresDB       string  `envconfig:"POSTGRES_DB" default:"chatdb"`
	JWTSecret        string  `envconfig:"JWT_SECRET" default:"secret"`
	LogLevel         string  `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty        bool    `envconfig:"LOG_PRETTY"`
	FrameRate        float64 `envconfig:"WS_FRAME_RATE" default:"20"`
	FrameBurst       int     `envconfig:"WS_FRAME_BURST" default:"40"`
	HistoryLimit     int     `envconfig:"HISTORY_LIMIT" default:"200"`
}

type ClientConfig struct {
	ServerURL      string        `envconfig:"SERVER_URL" default:"http://localhost:3001"`
	Token          string        `envconfig:"TOKEN"`
	UserID         string        `envconfig:"USER_ID"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`
	SendQueue      int           `envconfig:"SEND_QUEUE" default:"64"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty      bool          `envconfig:"LOG_PRETTY" default:"true"`
}

// loadDotEnv ignores a missing .env file; production reads the real environment.
func loadDotEnv() {
	_ = godotenv.Load()
}

func LoadServer() (*ServerConfig, error) {
	loadDotEnv()
	c := &ServerConfig{}
	if err := envconfig.Process(envPrefix, c); err != nil {
		return nil, errors.Wrap(err, "process server env")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return errors.Errorf("invalid port %d", c.Port)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if c.FrameRate <= 0 {
		return errors.Errorf("WS_FRAME_RATE must be > 0, got %v", c.FrameRate)
	}
	if c.FrameBurst <= 0 {
		c.FrameBurst = 1
	}
	if c.HistoryLimit <= 0 {
		return errors.Errorf("HISTORY_LIMIT must be > 0, got %d", c.HistoryLimit)
	}
	return nil
}

// DSN returns DATABASE_URL, or a URL assembled from the individual POSTGRES_* values.
func (c *ServerConfig) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.PostgresUser, c.PostgresPassword),
		Host:     fmt.Sprintf("%s:%d", c.PostgresHost, c.PostgresPort),
		Path:     "/" + c.PostgresDB,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func (c *ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func LoadClient() (*ClientConfig, error) {
	loadDotEnv()
	c := &ClientConfig{}
	if err := envconfig.Process(envPrefix, c); err != nil {
		return nil, errors.Wrap(err, "process client env")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *ClientConfig) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return errors.Wrap(err, "parse SERVER_URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Errorf("SERVER_URL must be http or https, got %q", c.ServerURL)
	}
	if c.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT must be > 0")
	}
	if c.SendQueue <= 0 {
		c.SendQueue = 1
	}
	return nil
}

// WebSocketURL maps the server's http(s) URL onto its ws(s) endpoint.
func (c *ClientConfig) WebSocketURL() string {
	base := strings.TrimRight(c.ServerURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/ws"
}
