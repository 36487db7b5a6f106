package collector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

// Container locator chain for the hashtag grid: primary, secondary, then a
// generic last resort. An empty primary result is never fatal.
var containerSelectors = []string{
	`div._aagv`,
	`div._aabd._aa8k._al3l`,
	`article div[role="button"] img`,
}

const (
	enumerateTimeout = 3 * time.Second
	openSettle       = 3 * time.Second
	closeSettle      = time.Second
)

// igGrid is the chromedp-backed grid implementation the walker drives.
type igGrid struct {
	log *slog.Logger
}

func (g *igGrid) Extent(ctx context.Context) (float64, error) {
	var h float64
	err := chromedp.Run(ctx, chromedp.Evaluate(`document.body.scrollHeight`, &h))
	return h, err
}

func (g *igGrid) Items(ctx context.Context) ([]gridItem, error) {
	for _, sel := range containerSelectors {
		short, cancel := context.WithTimeout(ctx, enumerateTimeout)
		var nodes []*cdp.Node
		err := chromedp.Run(short, chromedp.Nodes(sel, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
		cancel()
		if err != nil {
			g.log.Debug("container selector failed", "selector", sel, "err", err)
			continue
		}
		if len(nodes) == 0 {
			continue
		}
		items := make([]gridItem, len(nodes))
		for i, n := range nodes {
			items[i] = &igItem{node: n, log: g.log}
		}
		return items, nil
	}
	return nil, nil
}

func (g *igGrid) ScrollToEnd(ctx context.Context) error {
	return chromedp.Run(ctx, chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil))
}

func (g *igGrid) Overshoot(ctx context.Context, past float64) error {
	return chromedp.Run(ctx, chromedp.Evaluate(fmt.Sprintf(`window.scrollTo(0, %f)`, past), nil))
}

func (g *igGrid) ClickLoadMore(ctx context.Context) bool {
	short, cancel := context.WithTimeout(ctx, enumerateTimeout)
	defer cancel()
	err := chromedp.Run(short, chromedp.Click(`//*[text()="Load more"]`))
	return err == nil
}

func (g *igGrid) Settle(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// igItem is one visible post container in the grid.
type igItem struct {
	node *cdp.Node
	log  *slog.Logger
}

// Open clicks the container and waits for the post dialog to render.
func (it *igItem) Open(ctx context.Context) error {
	return chromedp.Run(ctx,
		chromedp.MouseClickNode(it.node),
		chromedp.Sleep(openSettle),
	)
}

// Close dismisses the dialog with Escape. Errors are swallowed: a stuck
// dialog is the next item's problem, not a reason to stop the walk.
func (it *igItem) Close(ctx context.Context) {
	if err := chromedp.Run(ctx,
		chromedp.KeyEvent(kb.Escape),
		chromedp.Sleep(closeSettle),
	); err != nil {
		it.log.Debug("closing post dialog failed", "err", err)
	}
}
