package collector

import (
	"context"
	"log/slog"
	"time"

	"github.com/slatemate/social-scraper/internal/domain"
)

// grid abstracts the scrollable post grid so the walk logic runs the same
// against a live browser or a test double.
type grid interface {
	// Extent measures the current scrollable height of the feed.
	Extent(ctx context.Context) (float64, error)
	// Items enumerates the currently visible post containers.
	Items(ctx context.Context) ([]gridItem, error)
	// ScrollToEnd scrolls to the bottom of the rendered content.
	ScrollToEnd(ctx context.Context) error
	// Overshoot scrolls past the given offset to force further loading.
	Overshoot(ctx context.Context, past float64) error
	// ClickLoadMore activates an explicit "Load more" control when present.
	ClickLoadMore(ctx context.Context) bool
	// Settle waits out asynchronous rendering before the next action.
	Settle(ctx context.Context, d time.Duration)
}

// gridItem is one visible post container.
type gridItem interface {
	Open(ctx context.Context) error
	// Close dismisses the opened post. Best effort; a failed close must not
	// take down the walk.
	Close(ctx context.Context)
}

// extractor reads the currently opened post. ok is false only when the
// mandatory image reference could not be located.
type extractor interface {
	Extract(ctx context.Context) (domain.PostRecord, bool)
}

const (
	scrollSettle     = 2 * time.Second
	renderSettle     = 1 * time.Second
	aggressiveSettle = 3 * time.Second

	// Incremental overshoot retries before the walk concludes the feed is
	// exhausted. Growth under retry is the only signal separating "done"
	// from "still loading".
	stallRetries        = 3
	overshootStep       = 1000
	aggressiveOvershoot = 2000
)

// walker drives the incremental reveal of a growing feed: enumerate the
// visible posts, open/extract/close each one, dedup, scroll, and decide
// between load-lag and genuine end of content.
type walker struct {
	grid    grid
	extract extractor
	log     *slog.Logger

	// onAccept runs synchronously for each accepted record (thumbnail
	// download). May be nil.
	onAccept func(domain.PostRecord)
}

// Walk collects up to limit records in discovery order. It never returns an
// error: any terminal condition (limit reached, feed exhausted, context
// cancelled) yields whatever was accumulated.
func (w *walker) Walk(ctx context.Context, limit int) []domain.PostRecord {
	seen := make(seenSet)
	records := []domain.PostRecord{}

	lastExtent, err := w.grid.Extent(ctx)
	if err != nil {
		w.log.Error("could not measure feed extent", "err", err)
		return records
	}

	for len(records) < limit && ctx.Err() == nil {
		items, err := w.grid.Items(ctx)
		if err != nil {
			w.log.Warn("enumerating posts failed", "err", err)
		}
		w.log.Info("visible posts", "count", len(items))

		accepted := 0
		for _, it := range items {
			if len(records) >= limit || ctx.Err() != nil {
				break
			}
			rec, ok := w.processItem(ctx, it)
			if !ok {
				continue
			}
			if seen.contains(rec.PostID) {
				// Virtualized grids re-surface already-seen posts.
				continue
			}
			seen.add(rec.PostID)
			records = append(records, rec)
			accepted++
			if w.onAccept != nil {
				w.onAccept(rec)
			}
			w.log.Info("scraped post", "post_id", rec.PostID, "count", len(records), "limit", limit)
		}
		if len(records) >= limit {
			w.log.Info("reached post limit", "limit", limit)
			break
		}

		if accepted == 0 {
			w.log.Warn("no new posts in this pass, revealing more aggressively")
			if err := w.grid.Overshoot(ctx, lastExtent+aggressiveOvershoot); err != nil {
				w.log.Debug("aggressive scroll failed", "err", err)
			}
			w.grid.Settle(ctx, aggressiveSettle)
			if w.grid.ClickLoadMore(ctx) {
				w.log.Info("clicked load-more control")
				w.grid.Settle(ctx, aggressiveSettle)
			}
		}

		if err := w.grid.ScrollToEnd(ctx); err != nil {
			w.log.Debug("scroll to end failed", "err", err)
		}
		w.grid.Settle(ctx, scrollSettle)

		extent, stalled := w.remeasure(ctx, lastExtent)
		if stalled {
			w.log.Info("feed stopped growing, treating as end of content", "posts", len(records))
			break
		}
		lastExtent = extent
		w.grid.Settle(ctx, renderSettle)
	}

	return records
}

// processItem opens one post, extracts it, and always attempts a close,
// extraction failure or not. Per-item failures are isolated here.
func (w *walker) processItem(ctx context.Context, it gridItem) (domain.PostRecord, bool) {
	if err := it.Open(ctx); err != nil {
		w.log.Warn("opening post failed", "err", err)
		it.Close(ctx)
		return domain.PostRecord{}, false
	}
	rec, ok := w.extract.Extract(ctx)
	it.Close(ctx)
	return rec, ok
}

// remeasure checks whether the feed grew past the last measurement. When it
// has not, a bounded budget of incremental overshoots runs before the feed
// is declared exhausted.
func (w *walker) remeasure(ctx context.Context, last float64) (float64, bool) {
	extent, err := w.grid.Extent(ctx)
	if err != nil {
		w.log.Warn("measuring feed extent failed", "err", err)
		return last, true
	}
	if extent != last {
		return extent, false
	}

	for i := 0; i < stallRetries; i++ {
		if err := w.grid.Overshoot(ctx, last+overshootStep); err != nil {
			w.log.Debug("overshoot failed", "err", err)
		}
		w.grid.Settle(ctx, renderSettle)
	}
	extent, err = w.grid.Extent(ctx)
	if err != nil || extent == last {
		return last, true
	}
	return extent, false
}
