package collector

import (
	"context"
	"testing"

	"github.com/slatemate/social-scraper/internal/config"
	"github.com/slatemate/social-scraper/internal/domain"
)

func TestFactoryUnknownPlatform(t *testing.T) {
	if _, err := New("friendster", &config.Config{}, testLogger()); err == nil {
		t.Error("expected an error for an unknown platform")
	}
}

func TestFactoryRejectsMissingCredentials(t *testing.T) {
	cfg := &config.Config{ThumbnailDir: t.TempDir()}

	if _, err := New(domain.PlatformInstagram, cfg, testLogger()); err == nil {
		t.Error("instagram without credentials must fail at startup")
	}
	if _, err := New(domain.PlatformYouTube, cfg, testLogger()); err == nil {
		t.Error("youtube without an api key must fail at startup")
	}
}

func TestFactoryMockScraper(t *testing.T) {
	s, err := New(domain.PlatformMock, &config.Config{}, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	records, err := s.Scrape(context.Background(), "sunny", 5)
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("got %d records, want 5", len(records))
	}
	seen := map[string]bool{}
	for _, r := range records {
		if r.PostID == "" || r.ImageURL == "" {
			t.Errorf("record missing mandatory fields: %+v", r)
		}
		if seen[r.PostID] {
			t.Errorf("duplicate mock post id %q", r.PostID)
		}
		seen[r.PostID] = true
	}
}
