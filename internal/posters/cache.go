// Package posters manages the on-disk poster image cache populated from
// admin-supplied URLs.
package posters

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	fetchTimeout = 12 * time.Second
	maxImageSize = 20 << 20

	browserUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"
)

// Cache stores one image file per (year, film) under root. Filenames are
// always .jpg regardless of the upstream content type; callers sniff the
// real type when serving.
type Cache struct {
	root   string
	client *http.Client
}

// NewCache builds a cache rooted at dir.
func NewCache(dir string) *Cache {
	return &Cache{
		root:   dir,
		client: &http.Client{Timeout: fetchTimeout},
	}
}

// ValidFilmID reports whether id is safe to use as a cache filename. IDs
// containing path separators or traversal elements never map to a file.
func ValidFilmID(id string) bool {
	return id != "" && id != "." && id != ".." && filepath.Base(id) == id
}

// Path returns the cache file location for a film's poster, or "" when the
// film id cannot name a file inside the cache root.
func (c *Cache) Path(year int, filmID string) string {
	if !ValidFilmID(filmID) {
		return ""
	}
	return filepath.Join(c.root, strconv.Itoa(year), filmID+".jpg")
}

// Exists reports whether a cached poster file is present.
func (c *Cache) Exists(year int, filmID string) bool {
	path := c.Path(year, filmID)
	if path == "" {
		return false
	}
	info, errStat := os.Stat(path)
	return errStat == nil && !info.IsDir()
}

// Fetch downloads the poster at url into the cache. On any failure the
// cache entry is removed instead, so a stale image never outlives a
// changed override.
func (c *Cache) Fetch(year int, filmID, url string) error {
	if !ValidFilmID(filmID) {
		return fmt.Errorf("posters: invalid film id %q", filmID)
	}
	body, errFetch := c.download(url)
	if errFetch != nil {
		c.Remove(year, filmID)
		return errFetch
	}

	path := c.Path(year, filmID)
	if errMkdir := os.MkdirAll(filepath.Dir(path), 0o755); errMkdir != nil {
		return fmt.Errorf("posters: create cache dir: %w", errMkdir)
	}
	if errWrite := os.WriteFile(path, body, 0o644); errWrite != nil {
		c.Remove(year, filmID)
		return fmt.Errorf("posters: write cache file: %w", errWrite)
	}
	return nil
}

// Remove deletes the cached poster if present.
func (c *Cache) Remove(year int, filmID string) {
	path := c.Path(year, filmID)
	if path == "" {
		return
	}
	if errRemove := os.Remove(path); errRemove != nil && !os.IsNotExist(errRemove) {
		log.WithError(errRemove).WithField("path", path).Warn("posters: remove cache file")
	}
}

func (c *Cache) download(url string) ([]byte, error) {
	req, errReq := http.NewRequest(http.MethodGet, url, nil)
	if errReq != nil {
		return nil, errReq
	}
	// Poster hosts reject bare clients; present as a browser with an
	// IMDb referer the way their own pages do.
	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
	req.Header.Set("Referer", "https://www.imdb.com/")

	resp, errDo := c.client.Do(req)
	if errDo != nil {
		return nil, errDo
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("posters: fetch returned %d", resp.StatusCode)
	}
	body, errRead := io.ReadAll(io.LimitReader(resp.Body, maxImageSize))
	if errRead != nil {
		return nil, errRead
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("posters: empty image body")
	}
	return body, nil
}
