package collector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slatemate/social-scraper/internal/config"
	"github.com/slatemate/social-scraper/internal/domain"
	"github.com/slatemate/social-scraper/internal/storage"
)

// InstagramScraper walks a hashtag feed through a driven browser: establish
// an authenticated session, position it on the hashtag grid, then hand the
// page to the feed walker.
type InstagramScraper struct {
	cfg    *config.Config
	thumbs *storage.ThumbnailCache
	log    *slog.Logger
}

func NewInstagramScraper(cfg *config.Config, thumbs *storage.ThumbnailCache, log *slog.Logger) *InstagramScraper {
	return &InstagramScraper{cfg: cfg, thumbs: thumbs, log: log}
}

// Scrape implements domain.Scraper. Session failures (login, navigation)
// degrade to zero records without an error; only browser startup is fatal.
func (s *InstagramScraper) Scrape(ctx context.Context, target string, limit int) ([]domain.PostRecord, error) {
	sess, err := newSession(ctx, s.cfg.Headless, s.log)
	if err != nil {
		return nil, fmt.Errorf("starting browser: %w", err)
	}
	defer sess.Close()

	if !sess.Login(s.cfg.Instagram.Username, s.cfg.Instagram.Password) {
		s.log.Error("login failed, aborting run")
		return nil, nil
	}
	if !sess.OpenHashtag(target) {
		s.log.Error("could not open hashtag feed", "target", target)
		return nil, nil
	}

	w := &walker{
		grid:    &igGrid{log: s.log},
		extract: newIGExtractor(s.log),
		log:     s.log,
		onAccept: func(rec domain.PostRecord) {
			if err := s.thumbs.Download(rec.ImageURL, rec.PostID); err != nil {
				s.log.Warn("thumbnail download failed", "post_id", rec.PostID, "err", err)
			}
		},
	}
	records := w.Walk(sess.ctx, limit)
	s.log.Info("feed walk complete", "target", target, "posts", len(records))
	return records, nil
}
