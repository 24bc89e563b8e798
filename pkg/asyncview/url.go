package asyncview

import (
	"net/url"
	"strings"
)

// TaskURL appends task_id=<taskID> to baseURL, using '&' when baseURL already
// carries a query string and '?' otherwise.
func TaskURL(baseURL, taskID string) string {
	sep := "?"
	if strings.Contains(baseURL, "?") {
		sep = "&"
	}
	return baseURL + sep + "task_id=" + url.QueryEscape(taskID)
}

// DownloadURL is TaskURL followed by the download=true indicator.
func DownloadURL(baseURL, taskID string) string {
	return TaskURL(baseURL, taskID) + "&download=true"
}
