package source

import (
	"context"
	"log/slog"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/durellwilson/courseforge/internal/models"
)

// BlogAdapter harvests posts from one or more RSS/Atom feeds, such as the
// Swift.org blog.
type BlogAdapter struct {
	parser   *gofeed.Parser
	feeds    []string
	maxItems int
	window   time.Duration
	now      func() time.Time
}

func NewBlogAdapter(feeds []string, maxItems int, window time.Duration) *BlogAdapter {
	return &BlogAdapter{
		parser:   gofeed.NewParser(),
		feeds:    feeds,
		maxItems: maxItems,
		window:   window,
		now:      time.Now,
	}
}

func (a *BlogAdapter) Tag() models.SourceTag { return models.TagBlogPost }
func (a *BlogAdapter) Name() string          { return "blog" }

func (a *BlogAdapter) Fetch(ctx context.Context) ([]models.SourceRecord, error) {
	now := a.now()

	var records []models.SourceRecord
	for _, feedURL := range a.feeds {
		feed, err := a.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			slog.Warn("Blog feed fetch failed", "url", feedURL, "error", err)
			continue
		}

		items := feed.Items
		if a.maxItems > 0 && len(items) > a.maxItems {
			items = items[:a.maxItems]
		}

		for _, item := range items {
			published := item.PublishedParsed
			if published == nil {
				published = item.UpdatedParsed
			}
			if !KeepIfRecent(published, a.window, now) {
				continue
			}

			summary := item.Description
			if summary == "" {
				summary = item.Content
			}
			records = append(records, models.SourceRecord{
				Title:       item.Title,
				URL:         item.Link,
				PublishedAt: published,
				Summary:     truncate(stripHTML(summary), 300),
				Tag:         models.TagBlogPost,
			})
		}
	}
	return records, nil
}
