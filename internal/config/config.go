package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/EeroPaukkonen/django-celery-async-view/pkg/asyncview"
)

// Config defines configuration for the asyncview CLI.
type Config struct {
	BaseURL        string             `yaml:"base_url"`
	TaskID         string             `yaml:"task_id"`
	PollInterval   asyncview.Schedule `yaml:"-"`
	MaxPolls       int                `yaml:"max_polls"`
	RequestTimeout time.Duration      `yaml:"request_timeout"`
	Bucket         string             `yaml:"bucket"`
	Object         string             `yaml:"object"`
	Progress       bool               `yaml:"progress"`
	Follow         bool               `yaml:"follow"`
	Retry          RetryConfig        `yaml:"retry"`
}

// RetryConfig defines retry behavior for file downloads. Status polls are
// never retried.
type RetryConfig struct {
	Attempts   int           `yaml:"attempts"`
	Backoff    time.Duration `yaml:"backoff"`
	MaxBackoff time.Duration `yaml:"max_backoff"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		PollInterval:   asyncview.DefaultSchedule(),
		MaxPolls:       asyncview.DefaultMaxPolls,
		RequestTimeout: asyncview.DefaultRequestTimeout,
		Retry: RetryConfig{
			Attempts:   3,
			Backoff:    500 * time.Millisecond,
			MaxBackoff: 10 * time.Second,
		},
	}
}

// yamlConfig is used for YAML unmarshaling with string durations.
type yamlConfig struct {
	BaseURL        string          `yaml:"base_url"`
	TaskID         string          `yaml:"task_id"`
	PollInterval   yamlSchedule    `yaml:"poll_interval"`
	MaxPolls       int             `yaml:"max_polls"`
	RequestTimeout string          `yaml:"request_timeout"`
	Bucket         string          `yaml:"bucket"`
	Object         string          `yaml:"object"`
	Progress       bool            `yaml:"progress"`
	Follow         bool            `yaml:"follow"`
	Retry          yamlRetryConfig `yaml:"retry"`
}

type yamlRetryConfig struct {
	Attempts   int    `yaml:"attempts"`
	Backoff    string `yaml:"backoff"`
	MaxBackoff string `yaml:"max_backoff"`
}

// yamlSchedule accepts a single interval or a sequence of intervals.
type yamlSchedule struct {
	schedule asyncview.Schedule
}

func (y *yamlSchedule) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		s, err := asyncview.ParseSchedule(node.Value)
		if err != nil {
			return err
		}
		y.schedule = s
	case yaml.SequenceNode:
		s := make(asyncview.Schedule, 0, len(node.Content))
		for _, item := range node.Content {
			d, err := asyncview.ParseInterval(item.Value)
			if err != nil {
				return err
			}
			s = append(s, d)
		}
		if err := s.Validate(); err != nil {
			return err
		}
		y.schedule = s
	default:
		return fmt.Errorf("line %d: poll_interval must be a value or a list", node.Line)
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if yc.BaseURL != "" {
		cfg.BaseURL = yc.BaseURL
	}
	if yc.TaskID != "" {
		cfg.TaskID = yc.TaskID
	}
	if yc.PollInterval.schedule != nil {
		cfg.PollInterval = yc.PollInterval.schedule
	}
	if yc.MaxPolls != 0 {
		cfg.MaxPolls = yc.MaxPolls
	}
	if yc.RequestTimeout != "" {
		d, err := time.ParseDuration(yc.RequestTimeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse request_timeout: %w", err)
		}
		cfg.RequestTimeout = d
	}
	if yc.Bucket != "" {
		cfg.Bucket = yc.Bucket
	}
	if yc.Object != "" {
		cfg.Object = yc.Object
	}
	cfg.Progress = yc.Progress
	cfg.Follow = yc.Follow
	if yc.Retry.Attempts != 0 {
		cfg.Retry.Attempts = yc.Retry.Attempts
	}
	if yc.Retry.Backoff != "" {
		d, err := time.ParseDuration(yc.Retry.Backoff)
		if err != nil {
			return Config{}, fmt.Errorf("parse retry.backoff: %w", err)
		}
		cfg.Retry.Backoff = d
	}
	if yc.Retry.MaxBackoff != "" {
		d, err := time.ParseDuration(yc.Retry.MaxBackoff)
		if err != nil {
			return Config{}, fmt.Errorf("parse retry.max_backoff: %w", err)
		}
		cfg.Retry.MaxBackoff = d
	}

	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files (default ".env")
// into the process environment. Variables already set are kept. Missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the ASYNCVIEW_ prefix.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("ASYNCVIEW_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("ASYNCVIEW_TASK_ID"); v != "" {
		c.TaskID = v
	}
	if v := os.Getenv("ASYNCVIEW_POLL_INTERVAL"); v != "" {
		s, err := asyncview.ParseSchedule(v)
		if err != nil {
			return fmt.Errorf("parse ASYNCVIEW_POLL_INTERVAL: %w", err)
		}
		c.PollInterval = s
	}
	if v := os.Getenv("ASYNCVIEW_MAX_POLLS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse ASYNCVIEW_MAX_POLLS: %w", err)
		}
		c.MaxPolls = n
	}
	if v := os.Getenv("ASYNCVIEW_REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse ASYNCVIEW_REQUEST_TIMEOUT: %w", err)
		}
		c.RequestTimeout = d
	}
	if v := os.Getenv("ASYNCVIEW_BUCKET"); v != "" {
		c.Bucket = v
	}
	if v := os.Getenv("ASYNCVIEW_OBJECT"); v != "" {
		c.Object = v
	}
	if v := os.Getenv("ASYNCVIEW_PROGRESS"); v != "" {
		c.Progress = v == "true" || v == "1"
	}
	if v := os.Getenv("ASYNCVIEW_FOLLOW"); v != "" {
		c.Follow = v == "true" || v == "1"
	}
	if v := os.Getenv("ASYNCVIEW_RETRY_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse ASYNCVIEW_RETRY_ATTEMPTS: %w", err)
		}
		c.Retry.Attempts = n
	}
	if v := os.Getenv("ASYNCVIEW_RETRY_BACKOFF"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse ASYNCVIEW_RETRY_BACKOFF: %w", err)
		}
		c.Retry.Backoff = d
	}
	if v := os.Getenv("ASYNCVIEW_RETRY_MAX_BACKOFF"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse ASYNCVIEW_RETRY_MAX_BACKOFF: %w", err)
		}
		c.Retry.MaxBackoff = d
	}

	return nil
}

// Validate validates the settings shared by all commands.
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("config: bucket is required")
	}
	if err := c.PollInterval.Validate(); err != nil {
		return fmt.Errorf("config: poll_interval: %w", err)
	}
	if c.MaxPolls <= 0 {
		return errors.New("config: max_polls must be positive")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("config: request_timeout must be positive")
	}
	if c.Retry.Attempts < 0 {
		return errors.New("config: retry.attempts must not be negative")
	}
	return nil
}

// ValidateView validates the configuration of the view command.
func (c *Config) ValidateView() error {
	if c.TaskID == "" {
		return errors.New("config: task_id is required")
	}
	if c.BaseURL == "" {
		return errors.New("config: base_url is required")
	}
	return c.Validate()
}

// ValidateDownload validates the configuration of the download command.
func (c *Config) ValidateDownload() error {
	if c.BaseURL == "" {
		return errors.New("config: base_url is required")
	}
	return c.Validate()
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if override.BaseURL != "" {
		c.BaseURL = override.BaseURL
	}
	if override.TaskID != "" {
		c.TaskID = override.TaskID
	}
	if override.PollInterval != nil {
		c.PollInterval = override.PollInterval
	}
	if override.MaxPolls != 0 {
		c.MaxPolls = override.MaxPolls
	}
	if override.RequestTimeout != 0 {
		c.RequestTimeout = override.RequestTimeout
	}
	if override.Bucket != "" {
		c.Bucket = override.Bucket
	}
	if override.Object != "" {
		c.Object = override.Object
	}
	if override.Progress {
		c.Progress = override.Progress
	}
	if override.Follow {
		c.Follow = override.Follow
	}
	if override.Retry.Attempts != 0 {
		c.Retry.Attempts = override.Retry.Attempts
	}
	if override.Retry.Backoff != 0 {
		c.Retry.Backoff = override.Retry.Backoff
	}
	if override.Retry.MaxBackoff != 0 {
		c.Retry.MaxBackoff = override.Retry.MaxBackoff
	}
	return c
}
