// Package client embeds the browser script and stylesheet for the intake
// wizard.
package client

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"
)

//go:embed src/*.js src/*.css
var assets embed.FS

// Assets returns the embedded filesystem rooted at the asset directory.
func Assets() fs.FS {
	fsys, err := fs.Sub(assets, "src")
	if err != nil {
		panic(err)
	}
	return fsys
}

// Handler serves the embedded assets. Directory listings are refused.
func Handler() http.Handler {
	files := http.FileServer(http.FS(Assets()))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=3600")
		files.ServeHTTP(w, r)
	})
}

// GetFile returns the contents of an embedded file.
func GetFile(name string) ([]byte, error) {
	return assets.ReadFile("src/" + name)
}

// FileNames returns the names of all embedded files.
func FileNames() []string {
	entries, err := assets.ReadDir("src")
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names
}
