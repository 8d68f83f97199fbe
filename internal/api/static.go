package api

import (
	"net/http"
	"os"
	"path/filepath"
)

// spaHandler serves the client build directory, falling back to index.html
// for any path that doesn't match a file so client-side routes resolve.
func spaHandler(staticDir string) http.Handler {
	fileServer := http.FileServer(http.Dir(staticDir))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(staticDir, filepath.Clean(r.URL.Path))

		info, err := os.Stat(path)
		if os.IsNotExist(err) || (err == nil && info.IsDir() && r.URL.Path != "/") {
			http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
			return
		}

		fileServer.ServeHTTP(w, r)
	})
}
