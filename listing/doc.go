// Package listing scrapes search result listings: pages are fetched through a
// batcher, listings are extracted from the HTML and persisted as CSV rows.
package listing
