// Package config defines configuration structures for the asyncview CLI.
//
// Configuration can be provided via:
//   - Command-line flags
//   - Environment variables (ASYNCVIEW_ prefix), optionally from a .env file
//   - YAML configuration file
//
// Flags override the environment, which overrides the file.
//
// # Structure
//
//	type Config struct {
//	    BaseURL        string
//	    TaskID         string
//	    PollInterval   asyncview.Schedule
//	    MaxPolls       int
//	    RequestTimeout time.Duration
//	    Bucket         string
//	    Object         string
//	    Progress       bool
//	    Follow         bool
//	    Retry          RetryConfig
//	}
//
// # YAML
//
//	base_url: https://example.com/reports/export
//	poll_interval: [500ms, 2500ms, 10s]   # or a single value: 1000
//	max_polls: 20
//	request_timeout: 2s
//	bucket: file:///tmp/exports
//	object: exports
//	retry:
//	  attempts: 3
//	  backoff: 500ms
//	  max_backoff: 10s
package config
