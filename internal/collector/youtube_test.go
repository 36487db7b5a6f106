package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/time/rate"

	"github.com/slatemate/social-scraper/internal/domain"
)

func newTestYouTubeClient(baseURL string) *YouTubeClient {
	return &YouTubeClient{
		apiKey:     "test-key",
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Inf, 1),
		log:        testLogger(),
	}
}

func videoDetailsJSON(id string) string {
	return fmt.Sprintf(`{
		"items": [{
			"id": %[1]q,
			"snippet": {
				"publishedAt": "2024-03-01T10:00:00Z",
				"channelId": "chan-%[1]s",
				"title": "Video %[1]s",
				"description": "About %[1]s #go #testing",
				"channelTitle": "Channel %[1]s",
				"thumbnails": {
					"default": {"url": "https://i.ytimg.com/%[1]s/default.jpg"},
					"high": {"url": "https://i.ytimg.com/%[1]s/high.jpg"}
				}
			},
			"contentDetails": {"duration": "PT4M13S"},
			"statistics": {"viewCount": "1000", "likeCount": "42", "commentCount": "7"}
		}]
	}`, id)
}

func searchItemJSON(id string) string {
	return fmt.Sprintf(`{"id": {"kind": "youtube#video", "videoId": %q}}`, id)
}

func TestYouTubeScrapePaginates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			if r.URL.Query().Get("pageToken") == "" {
				fmt.Fprintf(w, `{"nextPageToken": "page2", "items": [%s, %s]}`,
					searchItemJSON("v1"), searchItemJSON("v2"))
			} else {
				fmt.Fprintf(w, `{"items": [%s]}`, searchItemJSON("v3"))
			}
		case "/videos":
			fmt.Fprint(w, videoDetailsJSON(r.URL.Query().Get("id")))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	records, err := newTestYouTubeClient(srv.URL).Scrape(context.Background(), "golang", 10)
	if err != nil {
		t.Fatalf("Scrape returned error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3 across two pages", len(records))
	}

	r := records[0]
	if r.PostID != "v1" || r.Platform != domain.PlatformYouTube {
		t.Errorf("unexpected record identity: %+v", r)
	}
	if r.ImageURL != "https://i.ytimg.com/v1/high.jpg" {
		t.Errorf("thumbnail = %q, want the high variant over default", r.ImageURL)
	}
	if r.PostText != "Video v1\n\nAbout v1" {
		t.Errorf("post text = %q", r.PostText)
	}
	if len(r.Hashtags) != 2 || r.Hashtags[0] != "go" || r.Hashtags[1] != "testing" {
		t.Errorf("hashtags = %v, want [go testing]", r.Hashtags)
	}
	if r.Likes != "42" || r.Comments != "7" || r.ViewCount != "1000" {
		t.Errorf("counts = likes %q comments %q views %q", r.Likes, r.Comments, r.ViewCount)
	}
	if r.Duration != "PT4M13S" || r.ChannelID != "chan-v1" || r.URL != "https://www.youtube.com/watch?v=v1" {
		t.Errorf("video fields = %+v", r)
	}
}

func TestYouTubeScrapeHonorsLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			fmt.Fprintf(w, `{"nextPageToken": "more", "items": [%s, %s, %s]}`,
				searchItemJSON("v1"), searchItemJSON("v2"), searchItemJSON("v3"))
		case "/videos":
			fmt.Fprint(w, videoDetailsJSON(r.URL.Query().Get("id")))
		}
	}))
	defer srv.Close()

	records, err := newTestYouTubeClient(srv.URL).Scrape(context.Background(), "golang", 2)
	if err != nil {
		t.Fatalf("Scrape returned error: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("got %d records, want limit of 2", len(records))
	}
}

func TestYouTubeScrapeDropsItemOnDetailFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			fmt.Fprintf(w, `{"items": [%s, %s]}`, searchItemJSON("gone"), searchItemJSON("v2"))
		case "/videos":
			if r.URL.Query().Get("id") == "gone" {
				fmt.Fprint(w, `{"items": []}`)
				return
			}
			fmt.Fprint(w, videoDetailsJSON(r.URL.Query().Get("id")))
		}
	}))
	defer srv.Close()

	records, err := newTestYouTubeClient(srv.URL).Scrape(context.Background(), "golang", 10)
	if err != nil {
		t.Fatalf("Scrape returned error: %v", err)
	}
	if len(records) != 1 || records[0].PostID != "v2" {
		t.Fatalf("records = %v, want only v2", records)
	}
}

func TestYouTubeScrapeStopsEarlyOnQuotaError(t *testing.T) {
	page := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			page++
			if page == 1 {
				fmt.Fprintf(w, `{"nextPageToken": "page2", "items": [%s]}`, searchItemJSON("v1"))
				return
			}
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"error": {"code": 403, "message": "quotaExceeded"}}`)
		case "/videos":
			fmt.Fprint(w, videoDetailsJSON(r.URL.Query().Get("id")))
		}
	}))
	defer srv.Close()

	records, err := newTestYouTubeClient(srv.URL).Scrape(context.Background(), "golang", 10)
	if err != nil {
		t.Fatalf("quota exhaustion must not surface as an error, got: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("got %d records, want the 1 accumulated before the quota error", len(records))
	}
}

func TestYouTubeScrapeSkipsNonVideoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			fmt.Fprintf(w, `{"items": [{"id": {"kind": "youtube#channel"}}, %s]}`, searchItemJSON("v1"))
		case "/videos":
			fmt.Fprint(w, videoDetailsJSON(r.URL.Query().Get("id")))
		}
	}))
	defer srv.Close()

	records, err := newTestYouTubeClient(srv.URL).Scrape(context.Background(), "golang", 10)
	if err != nil {
		t.Fatalf("Scrape returned error: %v", err)
	}
	if len(records) != 1 || records[0].PostID != "v1" {
		t.Fatalf("records = %v, want only the video result", records)
	}
}

func TestBestThumbnailPreference(t *testing.T) {
	byQuality := map[string]thumbnail{
		"default": {URL: "d"},
		"medium":  {URL: "m"},
		"maxres":  {URL: "x"},
	}
	if got := bestThumbnail(byQuality); got != "x" {
		t.Errorf("bestThumbnail = %q, want maxres variant", got)
	}
	delete(byQuality, "maxres")
	if got := bestThumbnail(byQuality); got != "m" {
		t.Errorf("bestThumbnail = %q, want medium variant", got)
	}
	if got := bestThumbnail(nil); got != "" {
		t.Errorf("bestThumbnail(nil) = %q, want empty", got)
	}
}
