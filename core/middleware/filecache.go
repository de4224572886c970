package middleware

import (
	"container/list"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// fileCache keeps the contents of recently served files, least recently
// used first out. An entry is reused only while the file's size and
// modification time are unchanged.
type fileCache struct {
	mu       sync.Mutex
	entries  map[string]*list.Element
	lru      *list.List
	maxFiles int
	maxSize  int64
}

type cachedFile struct {
	path    string
	size    int64
	modTime time.Time
	data    []byte
}

// newFileCache creates a cache of up to maxFiles files, each at most
// maxSize bytes. Larger files are read on every request.
func newFileCache(maxFiles int, maxSize int64) *fileCache {
	return &fileCache{
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
		maxFiles: maxFiles,
		maxSize:  maxSize,
	}
}

// Read returns the contents of the file at path.
func (fc *fileCache) Read(path string) ([]byte, error) {
	if fc == nil {
		return os.ReadFile(path)
	}
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	fc.mu.Lock()
	if el, ok := fc.entries[path]; ok {
		entry := el.Value.(*cachedFile)
		if entry.size == fi.Size() && entry.modTime.Equal(fi.ModTime()) {
			fc.lru.MoveToFront(el)
			fc.mu.Unlock()
			return entry.data, nil
		}
		fc.removeLocked(el)
	}
	fc.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if fc.maxFiles <= 0 || int64(len(data)) > fc.maxSize {
		return data, nil
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()
	if el, ok := fc.entries[path]; ok {
		fc.removeLocked(el)
	}
	fc.entries[path] = fc.lru.PushFront(&cachedFile{
		path:    path,
		size:    fi.Size(),
		modTime: fi.ModTime(),
		data:    data,
	})

	// Evict oldest if over limit
	for fc.lru.Len() > fc.maxFiles {
		fc.removeLocked(fc.lru.Back())
	}
	return data, nil
}

// Len returns the number of cached files.
func (fc *fileCache) Len() int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.lru.Len()
}

func (fc *fileCache) removeLocked(el *list.Element) {
	delete(fc.entries, el.Value.(*cachedFile).path)
	fc.lru.Remove(el)
}

// contentType returns the media type for a file name based on its
// extension. Unknown extensions are served as plain text.
func contentType(name string) string {
	switch filepath.Ext(name) {
	case ".html", ".htm":
		return "text/html; charset=utf-8"
	case ".css":
		return "text/css; charset=utf-8"
	case ".js":
		return "application/javascript; charset=utf-8"
	case ".json":
		return "application/json; charset=utf-8"
	case ".xml":
		return "application/xml; charset=utf-8"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".svg":
		return "image/svg+xml"
	case ".ico":
		return "image/x-icon"
	case ".pdf":
		return "application/pdf"
	case ".zip":
		return "application/zip"
	case ".gz":
		return "application/gzip"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "text/plain"
	}
}
