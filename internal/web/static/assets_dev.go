//go:build dev

// Package static serves the studio page from disk so edits show up
// without rebuilding.
package static

import "net/http"

// Handler serves studio assets from the source tree.
func Handler() http.Handler {
	return http.FileServer(http.Dir("./internal/web/static"))
}
