package route

import (
	"bytes"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"time"

	"evhub/src-server/utils"
)

// SPA serves the prebuilt web client. Unknown paths get index.html so the
// client router can take over.
func SPA(muxer *http.ServeMux, as *utils.AppState) {
	dir := as.Config.GetStaticWebClientDir()
	if dir == "" {
		slog.Info("no static web client dir, not serving the SPA")
		return
	}
	files := os.DirFS(dir)
	index, err := fs.ReadFile(files, "index.html")
	if err != nil {
		slog.Error("Can't read index.html", "dir", dir, "err", err)
		return
	}
	indexModTime := time.Now()
	if stat, err := fs.Stat(files, "index.html"); err == nil {
		indexModTime = stat.ModTime()
	}

	serveIndex := func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "index.html", indexModTime, bytes.NewReader(index))
	}

	muxer.HandleFunc("GET /{filepath...}", func(w http.ResponseWriter, r *http.Request) {
		name := path.Clean(r.PathValue("filepath"))
		switch name {
		case ".", "/":
			serveIndex(w, r)
			return
		case "404":
			name = "404.html"
		}

		file, err := files.Open(name)
		if err != nil {
			serveIndex(w, r)
			return
		}
		defer file.Close()
		stat, err := file.Stat()
		if err != nil {
			serveIndex(w, r)
			return
		}
		if stat.IsDir() {
			nested, err := fs.ReadFile(files, path.Join(name, "index.html"))
			if err != nil {
				serveIndex(w, r)
				return
			}
			http.ServeContent(w, r, "index.html", stat.ModTime(), bytes.NewReader(nested))
			return
		}
		seeker, ok := file.(io.ReadSeeker)
		if !ok {
			serveIndex(w, r)
			return
		}
		http.ServeContent(w, r, stat.Name(), stat.ModTime(), seeker)
	})
}
