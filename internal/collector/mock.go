package collector

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/slatemate/social-scraper/internal/domain"
)

// MockScraper implements domain.Scraper with fake data, for offline runs and
// the sink/dashboard without burning API quota or a login.
type MockScraper struct{}

func NewMockScraper() *MockScraper {
	return &MockScraper{}
}

func (mc *MockScraper) Scrape(ctx context.Context, target string, limit int) ([]domain.PostRecord, error) {
	// Simulated network latency.
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(500 * time.Millisecond):
	}

	now := time.Now().Format(time.RFC3339)
	var records []domain.PostRecord
	for i := 0; i < limit; i++ {
		records = append(records, domain.PostRecord{
			PostID:    fmt.Sprintf("mock_%s_%d", target, i),
			Platform:  domain.PlatformMock,
			PostText:  fmt.Sprintf("Simulated post %d about %s", i, target),
			Hashtags:  []string{target},
			Timestamp: now,
			ImageURL:  fmt.Sprintf("http://localhost/mock/%s_%d.jpg", target, i),
			Likes:     strconv.Itoa(rand.Intn(500)),
			Comments:  strconv.Itoa(rand.Intn(50)),
			Author:    "simulated_user",
			ScrapedAt: now,
		})
	}
	return records, nil
}
