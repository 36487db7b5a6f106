package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/slatemate/social-scraper/internal/domain"
	"github.com/slatemate/social-scraper/internal/storage"
)

const (
	youtubeAPIBase = "https://www.googleapis.com/youtube/v3"

	// The search endpoint caps a page at 50 results.
	maxPageSize = 50
)

// Highest quality first; the first variant present wins.
var thumbnailQualities = []string{"maxres", "high", "medium", "standard", "default"}

// ErrQuotaExhausted marks quota/auth rejections from the API. The search
// loop stops early on it instead of surfacing it to the caller.
var ErrQuotaExhausted = errors.New("youtube api quota exhausted")

// YouTubeClient is the cursor-paginated API source. Records come out in the
// same shape as the feed scraper's, with the extra video-only fields set.
type YouTubeClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	thumbs     *storage.ThumbnailCache
	log        *slog.Logger
}

func NewYouTubeClient(apiKey string, thumbs *storage.ThumbnailCache, log *slog.Logger) *YouTubeClient {
	return &YouTubeClient{
		apiKey:     apiKey,
		baseURL:    youtubeAPIBase,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		// Courtesy pacing between search pages, not detail calls.
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		thumbs:  thumbs,
		log:     log,
	}
}

type searchResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		ID struct {
			Kind    string `json:"kind"`
			VideoID string `json:"videoId"`
		} `json:"id"`
	} `json:"items"`
	Error *apiError `json:"error"`
}

type videosResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			PublishedAt  string               `json:"publishedAt"`
			ChannelID    string               `json:"channelId"`
			Title        string               `json:"title"`
			Description  string               `json:"description"`
			ChannelTitle string               `json:"channelTitle"`
			Thumbnails   map[string]thumbnail `json:"thumbnails"`
		} `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
		Statistics struct {
			ViewCount    string `json:"viewCount"`
			LikeCount    string `json:"likeCount"`
			CommentCount string `json:"commentCount"`
		} `json:"statistics"`
	} `json:"items"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type thumbnail struct {
	URL string `json:"url"`
}

// Scrape implements domain.Scraper: page through search results, look up
// details per video, stop on limit, empty page, missing cursor, or quota.
// Remote failures degrade to whatever was accumulated; they never surface.
func (c *YouTubeClient) Scrape(ctx context.Context, query string, limit int) ([]domain.PostRecord, error) {
	c.log.Info("searching youtube", "query", query, "limit", limit)

	records := []domain.PostRecord{}
	pageToken := ""

	for len(records) < limit {
		if err := c.limiter.Wait(ctx); err != nil {
			return records, nil
		}

		pageSize := limit - len(records)
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}
		page, err := c.search(ctx, query, pageSize, pageToken)
		if err != nil {
			if errors.Is(err, ErrQuotaExhausted) {
				c.log.Warn("api quota issue, stopping with partial results", "err", err, "posts", len(records))
			} else {
				c.log.Error("search request failed", "err", err)
			}
			return records, nil
		}
		if len(page.Items) == 0 {
			c.log.Info("no more results")
			break
		}

		for _, item := range page.Items {
			if len(records) >= limit {
				break
			}
			if item.ID.Kind != "youtube#video" {
				continue
			}
			rec, err := c.videoDetails(ctx, item.ID.VideoID)
			if err != nil {
				c.log.Warn("dropping video, detail lookup failed", "video_id", item.ID.VideoID, "err", err)
				continue
			}
			records = append(records, rec)
			if c.thumbs != nil {
				if err := c.thumbs.Download(rec.ImageURL, rec.PostID); err != nil {
					c.log.Warn("thumbnail download failed", "post_id", rec.PostID, "err", err)
				}
			}
		}

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	c.log.Info("youtube search complete", "query", query, "posts", len(records))
	return records, nil
}

func (c *YouTubeClient) search(ctx context.Context, query string, pageSize int, pageToken string) (*searchResponse, error) {
	params := url.Values{
		"q":          {query},
		"part":       {"snippet"},
		"maxResults": {strconv.Itoa(pageSize)},
		"type":       {"video"},
		"order":      {"relevance"},
		"key":        {c.apiKey},
	}
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	var sr searchResponse
	if err := c.get(ctx, c.baseURL+"/search?"+params.Encode(), &sr); err != nil {
		return nil, err
	}
	return &sr, nil
}

func (c *YouTubeClient) videoDetails(ctx context.Context, videoID string) (domain.PostRecord, error) {
	params := url.Values{
		"part": {"snippet,contentDetails,statistics"},
		"id":   {videoID},
		"key":  {c.apiKey},
	}

	var vr videosResponse
	if err := c.get(ctx, c.baseURL+"/videos?"+params.Encode(), &vr); err != nil {
		return domain.PostRecord{}, err
	}
	if len(vr.Items) == 0 {
		return domain.PostRecord{}, fmt.Errorf("no details for video %s", videoID)
	}

	v := vr.Items[0]
	title := cleanText(v.Snippet.Title)
	hashtags, description := splitHashtags(cleanText(v.Snippet.Description))

	return domain.PostRecord{
		PostID:    videoID,
		Platform:  domain.PlatformYouTube,
		PostText:  title + "\n\n" + description,
		Hashtags:  hashtags,
		Timestamp: v.Snippet.PublishedAt,
		ImageURL:  bestThumbnail(v.Snippet.Thumbnails),
		Likes:     v.Statistics.LikeCount,
		Comments:  v.Statistics.CommentCount,
		Author:    cleanText(v.Snippet.ChannelTitle),
		ScrapedAt: time.Now().Format(time.RFC3339),
		ViewCount: v.Statistics.ViewCount,
		Duration:  v.ContentDetails.Duration,
		ChannelID: v.Snippet.ChannelID,
		URL:       "https://www.youtube.com/watch?v=" + videoID,
	}, nil
}

// apiResponse lets get inspect the error object every endpoint's body may
// carry.
type apiResponse interface {
	apiErr() *apiError
}

func (sr *searchResponse) apiErr() *apiError { return sr.Error }
func (vr *videosResponse) apiErr() *apiError { return vr.Error }

// get performs one API call and folds HTTP-level and body-level API errors
// into a single error, classifying quota/auth rejections.
func (c *YouTubeClient) get(ctx context.Context, u string, out apiResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding api response (status %d): %w", resp.StatusCode, err)
	}
	if apiErr := out.apiErr(); apiErr != nil {
		if apiErr.Code == http.StatusForbidden || apiErr.Code == http.StatusTooManyRequests {
			return fmt.Errorf("%w: %s", ErrQuotaExhausted, apiErr.Message)
		}
		return fmt.Errorf("api error %d: %s", apiErr.Code, apiErr.Message)
	}
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
		return ErrQuotaExhausted
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("api status: %d", resp.StatusCode)
	}
	return nil
}

// bestThumbnail picks the highest-resolution variant available.
func bestThumbnail(byQuality map[string]thumbnail) string {
	for _, q := range thumbnailQualities {
		if t, ok := byQuality[q]; ok && t.URL != "" {
			return t.URL
		}
	}
	return ""
}
