// Package config reads DIP_* settings from the environment, after loading
// any .env file found.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Logging struct {
	Level  string `env:"DIP_LOG_LEVEL" envDefault:"info"`
	Format string `env:"DIP_LOG_FORMAT" envDefault:"console"`
}

type Client struct {
	ServerURL string `env:"DIP_SERVER_URL" envDefault:"http://localhost:8080"`
	Token     string `env:"DIP_TOKEN"`
	Code      string `env:"DIP_LOBBY_CODE"`

	PollInterval    time.Duration `env:"DIP_POLL_INTERVAL" envDefault:"3s"`
	PollBackoff     float64       `env:"DIP_POLL_BACKOFF" envDefault:"1"`
	PollMaxInterval time.Duration `env:"DIP_POLL_MAX_INTERVAL" envDefault:"30s"`
	RequestTimeout  time.Duration `env:"DIP_REQUEST_TIMEOUT" envDefault:"10s"`
	NoticeTTL       time.Duration `env:"DIP_NOTICE_TTL" envDefault:"5s"`

	DraftsPath  string `env:"DIP_DRAFTS_PATH" envDefault:"dipclient-drafts.db"`
	MapLayout   string `env:"DIP_MAP_LAYOUT"`
	Feed        bool   `env:"DIP_FEED" envDefault:"true"`
	MetricsAddr string `env:"DIP_METRICS_ADDR"`

	Logging Logging
}

type DevServer struct {
	Addr     string        `env:"DIP_DEV_ADDR" envDefault:":8080"`
	Scenario string        `env:"DIP_DEV_SCENARIO"`
	Secret   string        `env:"DIP_JWT_SECRET" envDefault:"dev-secret"`
	TokenTTL time.Duration `env:"DIP_TOKEN_TTL" envDefault:"24h"`

	Logging Logging
}

// LoadClient reads the client settings. files are .env files to load first;
// none means ".env". Missing files are skipped.
func LoadClient(files ...string) (Client, error) {
	var cfg Client
	if err := load(&cfg, files); err != nil {
		return Client{}, err
	}
	cfg.Code = strings.ToUpper(strings.TrimSpace(cfg.Code))
	if err := cfg.Validate(); err != nil {
		return Client{}, err
	}
	return cfg, nil
}

func (c Client) Validate() error {
	var errs []error
	if strings.TrimSpace(c.ServerURL) == "" {
		errs = append(errs, errors.New("DIP_SERVER_URL is required"))
	}
	if strings.TrimSpace(c.Token) == "" {
		errs = append(errs, errors.New("DIP_TOKEN is required"))
	}
	if c.Code == "" {
		errs = append(errs, errors.New("DIP_LOBBY_CODE is required"))
	}
	if c.PollBackoff < 1 {
		errs = append(errs, fmt.Errorf("DIP_POLL_BACKOFF must be >= 1, got %v", c.PollBackoff))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("DIP_REQUEST_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

func LoadDevServer(files ...string) (DevServer, error) {
	var cfg DevServer
	if err := load(&cfg, files); err != nil {
		return DevServer{}, err
	}
	if strings.TrimSpace(cfg.Secret) == "" {
		return DevServer{}, errors.New("DIP_JWT_SECRET must not be empty")
	}
	return cfg, nil
}

func load(target any, files []string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
