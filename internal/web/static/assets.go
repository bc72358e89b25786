//go:build !dev

// Package static embeds the studio page for production builds.
package static

import (
	"embed"
	"net/http"
)

//go:embed index.html
var assetsFS embed.FS

// Handler serves the embedded studio assets.
func Handler() http.Handler {
	return http.FileServerFS(assetsFS)
}
