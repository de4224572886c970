package middleware

import (
	"os"
	"path"
	"path/filepath"
)

// resolve maps a request path onto a regular file under dir. It never
// escapes dir and falls back to index.html for directories.
func resolve(dir, reqPath string) (string, bool) {
	if dir == "" {
		return "", false
	}
	name := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+reqPath)))

	fi, err := os.Stat(name)
	if err != nil {
		return "", false
	}
	if fi.IsDir() {
		name = filepath.Join(name, "index.html")
		if fi, err = os.Stat(name); err != nil {
			return "", false
		}
	}
	if !fi.Mode().IsRegular() {
		return "", false
	}
	return name, true
}
