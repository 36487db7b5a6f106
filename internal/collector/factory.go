package collector

import (
	"fmt"
	"log/slog"

	"github.com/slatemate/social-scraper/internal/config"
	"github.com/slatemate/social-scraper/internal/domain"
	"github.com/slatemate/social-scraper/internal/storage"
)

// New selects the scraper implementation for a platform. Credential checks
// happen here, before any network activity, so a misconfigured run dies at
// startup rather than mid-scrape.
func New(platform domain.Platform, cfg *config.Config, log *slog.Logger) (domain.Scraper, error) {
	switch platform {
	case domain.PlatformInstagram:
		if err := cfg.ValidateInstagram(); err != nil {
			return nil, err
		}
		thumbs, err := storage.NewThumbnailCache(cfg.ThumbnailDir, log)
		if err != nil {
			return nil, err
		}
		return NewInstagramScraper(cfg, thumbs, log), nil
	case domain.PlatformYouTube:
		if err := cfg.ValidateYouTube(); err != nil {
			return nil, err
		}
		thumbs, err := storage.NewThumbnailCache(cfg.ThumbnailDir, log)
		if err != nil {
			return nil, err
		}
		return NewYouTubeClient(cfg.YouTubeAPIKey, thumbs, log), nil
	case domain.PlatformMock:
		return NewMockScraper(), nil
	default:
		return nil, fmt.Errorf("unknown platform: %q (use 'instagram', 'youtube', or 'mock')", platform)
	}
}
