package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/EeroPaukkonen/django-celery-async-view/pkg/asyncview"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	if cfg.MaxPolls != 20 {
		t.Errorf("expected default max polls 20, got %d", cfg.MaxPolls)
	}
	if cfg.RequestTimeout != 2*time.Second {
		t.Errorf("expected default request timeout 2s, got %v", cfg.RequestTimeout)
	}
	want := asyncview.Schedule{500 * time.Millisecond, 2500 * time.Millisecond, 10 * time.Second}
	if cfg.PollInterval.String() != want.String() {
		t.Errorf("expected default poll interval %v, got %v", want, cfg.PollInterval)
	}
	if cfg.Retry.Attempts != 3 {
		t.Errorf("expected default retry attempts 3, got %d", cfg.Retry.Attempts)
	}
	if cfg.Retry.Backoff != 500*time.Millisecond {
		t.Errorf("expected default retry backoff 500ms, got %v", cfg.Retry.Backoff)
	}
	if cfg.Retry.MaxBackoff != 10*time.Second {
		t.Errorf("expected default retry max backoff 10s, got %v", cfg.Retry.MaxBackoff)
	}
}

func TestLoadFromYAML(t *testing.T) {
	yamlContent := `
base_url: https://example.com/reports/export
poll_interval: [250ms, 1s, 5000]
max_polls: 5
request_timeout: 3s
bucket: mem://
object: exports
progress: true
follow: true
retry:
  attempts: 10
  backoff: 2s
  max_backoff: 60s
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.BaseURL != "https://example.com/reports/export" {
		t.Errorf("unexpected base url %q", cfg.BaseURL)
	}
	if got := cfg.PollInterval.String(); got != "250ms,1s,5s" {
		t.Errorf("expected poll interval 250ms,1s,5s, got %s", got)
	}
	if cfg.MaxPolls != 5 {
		t.Errorf("expected max polls 5, got %d", cfg.MaxPolls)
	}
	if cfg.RequestTimeout != 3*time.Second {
		t.Errorf("expected request timeout 3s, got %v", cfg.RequestTimeout)
	}
	if cfg.Bucket != "mem://" || cfg.Object != "exports" {
		t.Errorf("unexpected bucket/object %q/%q", cfg.Bucket, cfg.Object)
	}
	if !cfg.Progress || !cfg.Follow {
		t.Error("expected progress and follow true")
	}
	if cfg.Retry.Attempts != 10 {
		t.Errorf("expected retry attempts 10, got %d", cfg.Retry.Attempts)
	}
	if cfg.Retry.Backoff != 2*time.Second {
		t.Errorf("expected retry backoff 2s, got %v", cfg.Retry.Backoff)
	}
	if cfg.Retry.MaxBackoff != 60*time.Second {
		t.Errorf("expected retry max backoff 60s, got %v", cfg.Retry.MaxBackoff)
	}
}

func TestLoadFromYAMLScalarInterval(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("poll_interval: 1000\n"), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if len(cfg.PollInterval) != 1 || cfg.PollInterval[0] != time.Second {
		t.Errorf("expected fixed 1s schedule, got %v", cfg.PollInterval)
	}
	if cfg.MaxPolls != 20 {
		t.Errorf("expected default max polls kept, got %d", cfg.MaxPolls)
	}
}

func TestLoadFromYAMLInvalidInterval(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("poll_interval: [1s, -5s]\n"), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	if _, err := LoadFromFile(configPath); err == nil {
		t.Error("expected error for negative interval")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ASYNCVIEW_BASE_URL", "https://example.com/view")
	t.Setenv("ASYNCVIEW_TASK_ID", "abc")
	t.Setenv("ASYNCVIEW_POLL_INTERVAL", "100,200")
	t.Setenv("ASYNCVIEW_MAX_POLLS", "3")
	t.Setenv("ASYNCVIEW_REQUEST_TIMEOUT", "500ms")
	t.Setenv("ASYNCVIEW_PROGRESS", "true")
	t.Setenv("ASYNCVIEW_RETRY_ATTEMPTS", "1")
	t.Setenv("ASYNCVIEW_RETRY_BACKOFF", "100ms")
	t.Setenv("ASYNCVIEW_RETRY_MAX_BACKOFF", "1s")

	cfg := Default()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}

	if cfg.BaseURL != "https://example.com/view" || cfg.TaskID != "abc" {
		t.Errorf("unexpected base url/task id %q/%q", cfg.BaseURL, cfg.TaskID)
	}
	if got := cfg.PollInterval.String(); got != "100ms,200ms" {
		t.Errorf("expected poll interval 100ms,200ms, got %s", got)
	}
	if cfg.MaxPolls != 3 {
		t.Errorf("expected max polls 3, got %d", cfg.MaxPolls)
	}
	if cfg.RequestTimeout != 500*time.Millisecond {
		t.Errorf("expected request timeout 500ms, got %v", cfg.RequestTimeout)
	}
	if !cfg.Progress {
		t.Error("expected progress true")
	}
	if cfg.Retry.Attempts != 1 {
		t.Errorf("expected retry attempts 1, got %d", cfg.Retry.Attempts)
	}
	if cfg.Retry.Backoff != 100*time.Millisecond {
		t.Errorf("expected retry backoff 100ms, got %v", cfg.Retry.Backoff)
	}
	if cfg.Retry.MaxBackoff != time.Second {
		t.Errorf("expected retry max backoff 1s, got %v", cfg.Retry.MaxBackoff)
	}
}

func TestLoadFromEnvInvalid(t *testing.T) {
	t.Setenv("ASYNCVIEW_MAX_POLLS", "many")

	cfg := Default()
	if err := cfg.LoadFromEnv(); err == nil {
		t.Error("expected error for invalid ASYNCVIEW_MAX_POLLS")
	}
}

func TestLoadDotEnv(t *testing.T) {
	tmpDir := t.TempDir()
	envPath := filepath.Join(tmpDir, ".env")
	if err := os.WriteFile(envPath, []byte("ASYNCVIEW_TASK_ID=from-dotenv\nASYNCVIEW_MAX_POLLS=7\n"), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	// Registered with t.Setenv so the values are restored after the test.
	t.Setenv("ASYNCVIEW_TASK_ID", "")
	os.Unsetenv("ASYNCVIEW_TASK_ID")
	t.Setenv("ASYNCVIEW_MAX_POLLS", "2")

	if err := LoadDotEnv(envPath, filepath.Join(tmpDir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}

	cfg := Default()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.TaskID != "from-dotenv" {
		t.Errorf("expected task id from .env, got %q", cfg.TaskID)
	}
	if cfg.MaxPolls != 2 {
		t.Errorf("expected existing env to win over .env, got %d", cfg.MaxPolls)
	}
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.BaseURL = "https://example.com/view"
	valid.TaskID = "abc"
	valid.Bucket = "mem://"

	tests := []struct {
		name     string
		mutate   func(*Config)
		validate func(*Config) error
		wantErr  bool
	}{
		{"valid view", func(*Config) {}, (*Config).ValidateView, false},
		{"valid download", func(c *Config) { c.TaskID = "" }, (*Config).ValidateDownload, false},
		{"view missing task id", func(c *Config) { c.TaskID = "" }, (*Config).ValidateView, true},
		{"view missing base url", func(c *Config) { c.BaseURL = "" }, (*Config).ValidateView, true},
		{"download missing base url", func(c *Config) { c.BaseURL = "" }, (*Config).ValidateDownload, true},
		{"missing bucket", func(c *Config) { c.Bucket = "" }, (*Config).Validate, true},
		{"empty schedule", func(c *Config) { c.PollInterval = nil }, (*Config).Validate, true},
		{"zero max polls", func(c *Config) { c.MaxPolls = 0 }, (*Config).Validate, true},
		{"zero request timeout", func(c *Config) { c.RequestTimeout = 0 }, (*Config).Validate, true},
		{"negative retries", func(c *Config) { c.Retry.Attempts = -1 }, (*Config).Validate, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			cfg.PollInterval = asyncview.Graduated(valid.PollInterval...)
			tt.mutate(&cfg)
			err := tt.validate(&cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validate error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	base := Default()
	base.BaseURL = "https://example.com/view"
	base.Bucket = "mem://"
	base.MaxPolls = 20

	override := Config{
		MaxPolls:     5,
		PollInterval: asyncview.Fixed(time.Second),
	}

	merged := base.Merge(override)

	if merged.BaseURL != "https://example.com/view" {
		t.Errorf("expected BaseURL preserved, got %s", merged.BaseURL)
	}
	if merged.Bucket != "mem://" {
		t.Errorf("expected Bucket preserved, got %s", merged.Bucket)
	}
	if merged.RequestTimeout != 2*time.Second {
		t.Errorf("expected RequestTimeout preserved, got %v", merged.RequestTimeout)
	}
	if merged.MaxPolls != 5 {
		t.Errorf("expected MaxPolls overridden to 5, got %d", merged.MaxPolls)
	}
	if merged.PollInterval.String() != "1s" {
		t.Errorf("expected PollInterval overridden to 1s, got %v", merged.PollInterval)
	}
}

func TestLoadYAMLFileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadYAMLInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	_, err := LoadFromFile(configPath)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}
