package collector

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/slatemate/social-scraper/internal/domain"
)

// Selector chains for the opened post dialog, tried in order. The first
// acceptable hit wins; an exhausted chain degrades the field to empty.
var (
	captionSelectors = []string{
		`div[role="dialog"] ul div > span`,
		`div[role="dialog"] h1`,
		`div[role="dialog"] div[role="button"] > span`,
		`div[role="dialog"] span[dir="auto"]`,
	}
	likeSelectors = []string{
		`div[role="dialog"] section span span`,
		`div[role="dialog"] section span a span`,
		`div[role="dialog"] a span span`,
		`//div[@role="dialog"]//div[contains(text(), "like")]`,
	}
	commentSelectors = []string{
		`//div[@role="dialog"]//span[contains(text(), "comment")]`,
		`//div[@role="dialog"]//a[contains(text(), "comment")]`,
		`//div[@role="dialog"]//div[contains(text(), "comment")]`,
	}
)

// Numeric-near-keyword patterns, tried in order per candidate text.
var (
	likePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d+(?:,\d+)*)\s*(?:likes|like)`),
	}
	commentPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d+(?:,\d+)*)\s*comments`),
		regexp.MustCompile(`(\d+(?:,\d+)*)\s*comment`),
		regexp.MustCompile(`view all\s*(\d+(?:,\d+)*)\s*comments`),
	}
)

// minCaptionLen rejects empty or placeholder caption matches.
const minCaptionLen = 5

const fieldTimeout = 2 * time.Second

// igExtractor reads fields out of the currently opened post dialog. Every
// field is attempted in isolation; only a missing image voids the record.
type igExtractor struct {
	log *slog.Logger
	now func() time.Time
}

func newIGExtractor(log *slog.Logger) *igExtractor {
	return &igExtractor{log: log, now: time.Now}
}

func (e *igExtractor) Extract(ctx context.Context) (domain.PostRecord, bool) {
	imageURL, ok := e.imageURL(ctx)
	if !ok {
		e.log.Warn("post dialog has no image, skipping")
		return domain.PostRecord{}, false
	}

	rec := domain.PostRecord{
		Platform:  domain.PlatformInstagram,
		ImageURL:  imageURL,
		ScrapedAt: e.now().Format(time.RFC3339),
	}
	rec.PostID = e.postID(ctx, imageURL)
	rec.Author = e.author(ctx)
	rec.Hashtags, rec.PostText = splitHashtags(e.caption(ctx))
	rec.Timestamp = e.timestamp(ctx)
	rec.Likes = e.count(ctx, likeSelectors, likePatterns)
	rec.Comments = e.count(ctx, commentSelectors, commentPatterns)
	return rec, true
}

func (e *igExtractor) imageURL(ctx context.Context) (string, bool) {
	short, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var src string
	var ok bool
	err := chromedp.Run(short,
		chromedp.AttributeValue(`div[role="dialog"] article img`, "src", &src, &ok, chromedp.ByQuery))
	if err != nil || !ok || src == "" {
		return "", false
	}
	return src, true
}

func (e *igExtractor) postID(ctx context.Context, imageURL string) string {
	var pageURL string
	short, cancel := context.WithTimeout(ctx, fieldTimeout)
	if err := chromedp.Run(short, chromedp.Location(&pageURL)); err != nil {
		e.log.Debug("could not read page location", "err", err)
	}
	cancel()
	return resolvePostID(pageURL, imageURL)
}

func (e *igExtractor) author(ctx context.Context) string {
	txt, ok := e.textOf(ctx, `div[role="dialog"] header a`)
	if !ok {
		e.log.Debug("could not extract author")
		return ""
	}
	return cleanText(txt)
}

func (e *igExtractor) caption(ctx context.Context) string {
	for _, sel := range captionSelectors {
		txt, ok := e.textOf(ctx, sel)
		if !ok {
			continue
		}
		if cleaned := cleanText(txt); len(cleaned) > minCaptionLen {
			return cleaned
		}
	}
	e.log.Debug("could not extract caption")
	return ""
}

func (e *igExtractor) timestamp(ctx context.Context) string {
	short, cancel := context.WithTimeout(ctx, fieldTimeout)
	defer cancel()
	var dt string
	var ok bool
	if err := chromedp.Run(short,
		chromedp.AttributeValue(`div[role="dialog"] time`, "datetime", &dt, &ok, chromedp.ByQuery)); err == nil && ok && dt != "" {
		return dt
	}
	if txt, ok := e.textOf(ctx, `div[role="dialog"] time`); ok && strings.TrimSpace(txt) != "" {
		return cleanText(txt)
	}
	return e.now().Format(time.RFC3339)
}

// count resolves one numeric field: first matching locator, then first
// matching pattern within that locator's text.
func (e *igExtractor) count(ctx context.Context, selectors []string, patterns []*regexp.Regexp) string {
	for _, sel := range selectors {
		txt, ok := e.textOf(ctx, sel)
		if !ok {
			continue
		}
		if n := matchCount(txt, patterns); n != "" {
			return n
		}
	}
	return ""
}

// textOf fetches the text content of the first match for sel, bounded by a
// short timeout so an absent element degrades instead of hanging the walk.
func (e *igExtractor) textOf(ctx context.Context, sel string) (string, bool) {
	short, cancel := context.WithTimeout(ctx, fieldTimeout)
	defer cancel()
	var txt string
	if err := chromedp.Run(short, chromedp.Text(sel, &txt, chromedp.BySearch)); err != nil {
		return "", false
	}
	return txt, true
}

// ---- pure helpers ----

var (
	hashtagPattern = regexp.MustCompile(`#(\w+)`)
	hashtagStrip   = regexp.MustCompile(`#\w+\s*`)
)

// splitHashtags pulls #word tokens out of text, returning them in order and
// the cleaned body with the tokens removed and whitespace re-collapsed.
func splitHashtags(text string) ([]string, string) {
	if text == "" {
		return nil, ""
	}
	var tags []string
	for _, m := range hashtagPattern.FindAllStringSubmatch(text, -1) {
		tags = append(tags, m[1])
	}
	cleaned := hashtagStrip.ReplaceAllString(text, "")
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	return tags, cleaned
}

// matchCount extracts a numeric count near a keyword, stripping thousands
// separators. The value stays a string; nothing here coerces to a number.
func matchCount(text string, patterns []*regexp.Regexp) string {
	lower := strings.ToLower(text)
	for _, p := range patterns {
		if m := p.FindStringSubmatch(lower); m != nil {
			return strings.ReplaceAll(m[1], ",", "")
		}
	}
	return ""
}

// typographicReplacer maps curly quotes and dashes to plain equivalents and
// strips zero-width/BOM characters that corrupt CSV output.
var typographicReplacer = strings.NewReplacer(
	"‘", "'",
	"’", "'",
	"“", `"`,
	"”", `"`,
	"–", "-",
	"—", "--",
	"\u200b", "",
	"\ufeff", "",
)

// cleanText normalizes an extracted text field: typographic replacements,
// then collapse all whitespace runs to single spaces and trim.
func cleanText(text string) string {
	if text == "" {
		return ""
	}
	text = typographicReplacer.Replace(text)
	return strings.Join(strings.Fields(text), " ")
}

// resolvePostID produces a usable identifier for every post: the /p/ segment
// of the navigated URL when present, else the image filename stem, else a
// stable short hash of the image reference.
func resolvePostID(pageURL, imageURL string) string {
	if i := strings.Index(pageURL, "/p/"); i >= 0 {
		rest := pageURL[i+len("/p/"):]
		if j := strings.IndexAny(rest, "/?#"); j >= 0 {
			rest = rest[:j]
		}
		if rest != "" {
			return rest
		}
	}

	if u, err := url.Parse(imageURL); err == nil {
		base := path.Base(u.Path)
		stem := strings.TrimSuffix(base, path.Ext(base))
		// Feed image filenames carry the post ID before an underscore
		// suffix; anything without one is too generic to trust.
		if strings.Contains(stem, "_") {
			return stem
		}
	}

	return hashID(imageURL)
}

// hashID is the last-resort synthetic identifier: deterministic for the same
// image reference.
func hashID(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:16]
}
