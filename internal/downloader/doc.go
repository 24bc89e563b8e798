// Package downloader saves files produced by asyncview download flows.
//
// A [Saver] is the Navigator handed to a download flow. When the flow
// navigates to the download URL, the Saver fetches the attachment and
// streams it into a gocloud.dev/blob bucket under the filename announced by
// the server's Content-Disposition header.
//
// # Usage
//
//	saver := downloader.NewSaver(bucket, downloader.Options{
//	    Prefix:   "exports",
//	    Progress: reporter,
//	})
//	err := asyncview.RunDownload(ctx, asyncview.DownloadOptions{
//	    BaseURL:   "https://example.com/report",
//	    Navigator: saver,
//	})
//
// # Storage Layout
//
//	{bucket}/{prefix}/{filename}
//
// Each object carries the source URL and task id as metadata. An interrupted
// transfer leaves no object behind.
package downloader
