// Package web embeds the builder UI bundle produced by the frontend build.
package web

import (
	"embed"
	"io/fs"
)

//go:embed all:dist
var bundle embed.FS

// GetDistFS exposes the bundle with dist/ stripped from paths. It returns
// nil when the frontend has not been built, so callers can skip serving it.
func GetDistFS() fs.FS {
	dist, err := fs.Sub(bundle, "dist")
	if err != nil {
		return nil
	}
	if _, err := fs.Stat(dist, "index.html"); err != nil {
		return nil
	}
	return dist
}
