// Package http provides the HTTP transport used by asyncview flows.
//
// This package handles:
//   - JSON GET requests for the creation and status endpoints
//   - A fixed per-request timeout (2s by default)
//   - File downloads with Content-Disposition parsing
//   - Retry with exponential backoff for file downloads only
//
// Status and creation requests are never retried: a failed poll ends the
// flow that issued it.
//
// # Usage
//
//	client := http.NewClient(http.DefaultOptions())
//
//	var status struct{ Ready bool `json:"ready"` }
//	err := client.GetJSON(ctx, "https://example.com/report?task_id=abc", &status)
//
//	// Fetch the finished file
//	file, err := client.Fetch(ctx, "https://example.com/report?task_id=abc&download=true")
//	defer file.Body.Close()
//	// file.Filename, file.ContentType, file.Size
package http
