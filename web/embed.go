// Package web provides embedded static assets.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var staticFS embed.FS

// Static returns the embedded static directory with the prefix stripped.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// TrackerScript returns the raw tracker script template.
func TrackerScript() []byte {
	data, err := staticFS.ReadFile("static/track.js")
	if err != nil {
		return nil
	}
	return data
}
