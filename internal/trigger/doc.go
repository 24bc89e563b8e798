// Package trigger finds download triggers in rendered markup.
//
// A trigger is any element carrying the async-download-button class:
//
//	<a class="btn async-download-button"
//	   data-href="/reports/export"
//	   data-poll-interval="1000">Export</a>
//
// data-href is the creation endpoint of a download flow and
// data-poll-interval its fixed poll interval in milliseconds (or a Go
// duration). [Bind] re-scans the markup after every rewrite published on an
// asyncview.RewriteBus, so triggers in freshly rendered pages are picked up.
package trigger
