package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// InstagramCredentials holds the login used for the feed scraper.
type InstagramCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Config is the structured settings object. Values come from config.json
// first; environment variables override individual fields.
type Config struct {
	Instagram     InstagramCredentials `json:"instagram"`
	YouTubeAPIKey string               `json:"youtube_api_key"`
	ThumbnailDir  string               `json:"thumbnail_directory"`

	// Headless toggles the browser UI. The feed scraper runs headful by
	// default: the login flow trips fewer automation checks that way.
	Headless bool `json:"headless"`
}

// Load reads the config file if it exists and applies env overrides.
// A missing file is not an error; missing credentials are reported by the
// per-platform Validate methods instead, so the API path does not require
// Instagram credentials and vice versa.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// fall through to env-only config
	default:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if v := os.Getenv("INSTAGRAM_USERNAME"); v != "" {
		cfg.Instagram.Username = v
	}
	if v := os.Getenv("INSTAGRAM_PASSWORD"); v != "" {
		cfg.Instagram.Password = v
	}
	if v := os.Getenv("YOUTUBE_API_KEY"); v != "" {
		cfg.YouTubeAPIKey = v
	}
	if v := os.Getenv("THUMBNAIL_DIR"); v != "" {
		cfg.ThumbnailDir = v
	}
	if v := os.Getenv("HEADLESS"); v == "1" || v == "true" {
		cfg.Headless = true
	}

	if cfg.ThumbnailDir == "" {
		cfg.ThumbnailDir = "thumbnails"
	}
	return cfg, nil
}

// ValidateInstagram reports whether the feed-scraper path can start.
func (c *Config) ValidateInstagram() error {
	if c.Instagram.Username == "" || c.Instagram.Password == "" {
		return errors.New("instagram credentials missing: set instagram.username and instagram.password in config.json or INSTAGRAM_USERNAME/INSTAGRAM_PASSWORD")
	}
	return nil
}

// ValidateYouTube reports whether the API path can start.
func (c *Config) ValidateYouTube() error {
	if c.YouTubeAPIKey == "" {
		return errors.New("youtube API key missing: set youtube_api_key in config.json or YOUTUBE_API_KEY")
	}
	return nil
}
