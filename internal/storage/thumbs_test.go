package storage

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSanitizeID(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"abc_123-XYZ", "abc_123-XYZ"},
		{"we/ird?id#1", "weirdid1"},
		{"héllo wörld", "hllowrld"},
	}
	for _, c := range cases {
		if got := SanitizeID(c.in); got != c.want {
			t.Errorf("SanitizeID(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestExtFromURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"https://cdn.example.com/a/photo.png?sig=abc", "png"},
		{"https://cdn.example.com/a/photo.WEBP", "webp"},
		{"https://cdn.example.com/a/photo.svg", "jpg"},
		{"https://cdn.example.com/a/noext", "jpg"},
		{"://not a url", "jpg"},
	}
	for _, c := range cases {
		if got := ExtFromURL(c.in); got != c.want {
			t.Errorf("ExtFromURL(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestDownloadWritesAndSkipsExisting(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		fmt.Fprint(w, "image-bytes")
	}))
	defer srv.Close()

	dir := t.TempDir()
	cache, err := NewThumbnailCache(dir, testLogger())
	if err != nil {
		t.Fatalf("NewThumbnailCache: %v", err)
	}

	url := srv.URL + "/thumb.png"
	if err := cache.Download(url, "post/1"); err != nil {
		t.Fatalf("Download: %v", err)
	}

	dest := filepath.Join(dir, "post1.png")
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("thumbnail not written: %v", err)
	}
	if string(data) != "image-bytes" {
		t.Errorf("thumbnail content = %q", data)
	}

	// Second download of the same record must not hit the network.
	if err := cache.Download(url, "post/1"); err != nil {
		t.Fatalf("second Download: %v", err)
	}
	if hits != 1 {
		t.Errorf("server hits = %d, want 1 (existing files are never re-fetched)", hits)
	}
}

func TestDownloadNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	cache, err := NewThumbnailCache(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("NewThumbnailCache: %v", err)
	}
	if err := cache.Download(srv.URL+"/x.jpg", "gone1"); err == nil {
		t.Error("expected an error for a 404 response")
	}
}
