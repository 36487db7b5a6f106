package domain

import "context"

// Platform identifies the source a record was collected from.
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformYouTube   Platform = "youtube"
	PlatformMock      Platform = "mock"
)

// PostRecord is the unified record shape for every platform. Engagement
// counts stay strings: an empty string means "not found", and keeping the
// source formatting avoids overflow surprises on huge counts.
type PostRecord struct {
	PostID    string   `json:"post_id"`
	Platform  Platform `json:"platform"`
	PostText  string   `json:"post_text"`
	Hashtags  []string `json:"hashtags"`
	Timestamp string   `json:"timestamp"`
	ImageURL  string   `json:"image_url"`
	Likes     string   `json:"likes"`
	Comments  string   `json:"comments"`
	Author    string   `json:"author"`
	ScrapedAt string   `json:"scraped_at"`

	// YouTube-only fields, blank for feed records.
	ViewCount string `json:"view_count,omitempty"`
	Duration  string `json:"duration,omitempty"`
	ChannelID string `json:"channel_id,omitempty"`
	URL       string `json:"url,omitempty"`
}

// Scraper defines the interface for data fetching. The browser-driven feed
// scraper and the API client both implement it; callers dispatch through it
// without knowing which one they hold.
type Scraper interface {
	Scrape(ctx context.Context, target string, limit int) ([]PostRecord, error)
}
