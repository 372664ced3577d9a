// Package web serves the monitoring page of an OBI simulation.
package web

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
)

// DevModeEnv names the variable that makes the page load from the source
// tree, so that dist/index.html can be edited while a simulation runs.
const DevModeEnv = "OBI_MONITOR_DEV"

//go:embed dist
var dist embed.FS

// DevMode reports whether DevModeEnv holds a true value.
func DevMode() bool {
	on, err := strconv.ParseBool(os.Getenv(DevModeEnv))
	return err == nil && on
}

// GetAssets returns the page and its assets.
func GetAssets() http.FileSystem {
	if DevMode() {
		dir := sourceDir()
		fmt.Fprintf(os.Stderr, "Serving monitoring page from %s\n", dir)

		return http.Dir(dir)
	}

	sub, err := fs.Sub(dist, "dist")
	if err != nil {
		panic(err)
	}

	return http.FS(sub)
}

// Handler serves the assets. In dev mode the browser is told not to cache
// them.
func Handler() http.Handler {
	files := http.FileServer(GetAssets())
	if !DevMode() {
		return files
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		files.ServeHTTP(w, r)
	})
}

func sourceDir() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		panic("cannot locate the web package source")
	}

	return filepath.Join(filepath.Dir(file), "dist")
}
