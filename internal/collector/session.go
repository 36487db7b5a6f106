package collector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

const (
	feedOrigin = "https://www.instagram.com"

	desktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Edge/120.0.0.0"

	loginSettle = 5 * time.Second
	navSettle   = 5 * time.Second

	loginVerifyTimeout   = 10 * time.Second
	gridPrimaryTimeout   = 10 * time.Second
	gridSecondaryTimeout = 5 * time.Second
)

// Headless Chrome advertises itself through navigator.webdriver; masking it
// before any page script runs keeps the login flow alive.
const stealthScript = `Object.defineProperty(navigator, 'webdriver', { get: () => undefined });`

// session owns one authenticated browser and its navigation state.
type session struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    *slog.Logger
}

// newSession launches a browser configured to minimize automation-detection
// signals: fixed viewport, realistic user agent, en-US locale, unrelated
// features disabled.
func newSession(parent context.Context, headless bool, log *slog.Logger) (*session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("lang", "en-US"),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(desktopUA),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, opts...)
	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	cancel := func() {
		cancelTask()
		cancelAlloc()
	}

	err := chromedp.Run(taskCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
			return err
		}),
		chromedp.EmulateViewport(1920, 1080),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("browser setup: %w", err)
	}

	log.Info("browser session ready", "headless", headless)
	return &session{ctx: taskCtx, cancel: cancel, log: log}, nil
}

// Login submits credentials into the login form and verifies success by
// probing for the post-login Home glyph. Failures come back as false, not
// errors: the caller decides whether to abort.
func (s *session) Login(username, password string) bool {
	s.log.Info("attempting login", "username", username)

	form, cancelForm := context.WithTimeout(s.ctx, time.Minute)
	defer cancelForm()
	err := chromedp.Run(form,
		chromedp.Navigate(feedOrigin+"/"),
		chromedp.Sleep(2*time.Second),
		chromedp.SendKeys(`input[name="username"]`, username, chromedp.ByQuery),
		chromedp.Sleep(time.Second),
		chromedp.SendKeys(`input[name="password"]`, password, chromedp.ByQuery),
		chromedp.Sleep(time.Second),
		chromedp.Click(`button[type="submit"]`, chromedp.ByQuery),
		chromedp.Sleep(loginSettle),
	)
	if err != nil {
		s.log.Error("login form submission failed", "err", err)
		return false
	}

	// The Home glyph only renders for an authenticated session.
	verify, cancel := context.WithTimeout(s.ctx, loginVerifyTimeout)
	defer cancel()
	if err := chromedp.Run(verify, chromedp.WaitVisible(`svg[aria-label="Home"]`, chromedp.ByQuery)); err != nil {
		s.log.Error("login verification failed, home icon not found", "err", err)
		return false
	}
	s.log.Info("logged in")
	return true
}

// OpenHashtag positions the session on the hashtag feed: UI-driven search
// first, direct URL as fallback, then verifies the post grid is present.
func (s *session) OpenHashtag(tag string) bool {
	s.log.Info("opening hashtag feed", "tag", tag)

	if !s.searchForTag(tag) {
		s.log.Warn("search UI navigation failed, trying direct URL", "tag", tag)
		nav, cancel := context.WithTimeout(s.ctx, 30*time.Second)
		err := chromedp.Run(nav,
			chromedp.Navigate(fmt.Sprintf("%s/explore/tags/%s/", feedOrigin, tag)),
			chromedp.Sleep(navSettle),
		)
		cancel()
		if err != nil {
			s.log.Error("direct navigation failed", "err", err)
			return false
		}
	}

	return s.waitForGrid(tag)
}

// searchForTag drives the search affordance: click the glyph, type the tag,
// click the top matching result. Enter is pressed as a fallback when the
// result list never shows the tag.
func (s *session) searchForTag(tag string) bool {
	ui, cancel := context.WithTimeout(s.ctx, 30*time.Second)
	defer cancel()

	searchInput := `input[placeholder="Search"]`
	err := chromedp.Run(ui,
		chromedp.Click(`svg[aria-label="Search"]`, chromedp.ByQuery),
		chromedp.Sleep(2*time.Second),
		chromedp.WaitVisible(searchInput, chromedp.ByQuery),
		chromedp.SendKeys(searchInput, "#"+tag, chromedp.ByQuery),
		chromedp.Sleep(3*time.Second),
	)
	if err != nil {
		s.log.Debug("search affordance failed", "err", err)
		return false
	}

	result, cancelResult := context.WithTimeout(s.ctx, 5*time.Second)
	err = chromedp.Run(result, chromedp.Click(fmt.Sprintf(`//span[text()=%q]`, "#"+tag)))
	cancelResult()
	if err == nil {
		s.log.Info("clicked hashtag in search results", "tag", tag)
		s.settle(navSettle)
		return true
	}

	// No visible result entry; submit the query instead.
	submit, cancelSubmit := context.WithTimeout(s.ctx, 30*time.Second)
	defer cancelSubmit()
	err = chromedp.Run(submit,
		chromedp.SendKeys(searchInput, kb.Enter, chromedp.ByQuery),
		chromedp.Sleep(2*time.Second),
		chromedp.SendKeys(searchInput, kb.Enter, chromedp.ByQuery),
		chromedp.Sleep(navSettle),
	)
	if err != nil {
		s.log.Debug("search submit failed", "err", err)
		return false
	}
	return true
}

// waitForGrid verifies the post grid rendered, primary selector first.
func (s *session) waitForGrid(tag string) bool {
	primary, cancel := context.WithTimeout(s.ctx, gridPrimaryTimeout)
	err := chromedp.Run(primary, chromedp.WaitVisible(`div._aabd._aa8k._al3l`, chromedp.ByQuery))
	cancel()
	if err == nil {
		s.log.Info("post grid loaded", "tag", tag)
		return true
	}

	secondary, cancel := context.WithTimeout(s.ctx, gridSecondaryTimeout)
	err = chromedp.Run(secondary, chromedp.WaitVisible(`div._aagv`, chromedp.ByQuery))
	cancel()
	if err == nil {
		s.log.Info("post grid loaded via alternate selector", "tag", tag)
		return true
	}

	s.log.Error("no post grid detected for hashtag", "tag", tag)
	return false
}

func (s *session) settle(d time.Duration) {
	select {
	case <-s.ctx.Done():
	case <-time.After(d):
	}
}

// Close shuts the browser down. Best effort; chromedp tears down the
// allocator with the context.
func (s *session) Close() {
	s.cancel()
	s.log.Info("browser closed")
}
