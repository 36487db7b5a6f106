package storage

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Extensions accepted from the source URL; anything else falls back to jpg.
var imageExtensions = map[string]struct{}{
	"jpg": {}, "jpeg": {}, "png": {}, "webp": {}, "gif": {}, "heic": {},
}

const thumbnailUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// ThumbnailCache downloads post thumbnails into a directory, keyed by a
// sanitized record ID. Existing files are never re-fetched.
type ThumbnailCache struct {
	dir    string
	client *http.Client
	log    *slog.Logger
}

func NewThumbnailCache(dir string, log *slog.Logger) (*ThumbnailCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating thumbnail directory: %w", err)
	}
	return &ThumbnailCache{
		dir:    dir,
		client: &http.Client{Timeout: 15 * time.Second},
		log:    log,
	}, nil
}

// Download fetches one thumbnail. Failures are returned for logging but the
// caller treats them as non-fatal; a record stands with or without its file.
func (t *ThumbnailCache) Download(imageURL, id string) error {
	dest := filepath.Join(t.dir, SanitizeID(id)+"."+ExtFromURL(imageURL))

	if _, err := os.Stat(dest); err == nil {
		t.log.Debug("thumbnail already cached", "path", dest)
		return nil
	}

	req, err := http.NewRequest(http.MethodGet, imageURL, nil)
	if err != nil {
		return fmt.Errorf("building thumbnail request: %w", err)
	}
	req.Header.Set("User-Agent", thumbnailUA)

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching thumbnail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("thumbnail fetch status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading thumbnail body: %w", err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("writing thumbnail: %w", err)
	}
	t.log.Info("thumbnail saved", "path", dest)
	return nil
}

// SanitizeID reduces a record ID to a safe filename: alphanumerics,
// underscore and hyphen only.
func SanitizeID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return -1
		}
	}, id)
}

// ExtFromURL infers a file extension from the URL's path suffix when it is a
// recognized image type, defaulting to jpg.
func ExtFromURL(imageURL string) string {
	u, err := url.Parse(imageURL)
	if err != nil {
		return "jpg"
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), "."))
	if _, ok := imageExtensions[ext]; ok {
		return ext
	}
	return "jpg"
}
