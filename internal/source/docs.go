package source

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/durellwilson/courseforge/internal/models"
)

// DocsAdapter scrapes the Apple Developer documentation updates page.
type DocsAdapter struct {
	pageURL  string
	maxItems int
	window   time.Duration
	timeout  time.Duration
	now      func() time.Time
}

func NewDocsAdapter(pageURL string, maxItems int, window time.Duration) *DocsAdapter {
	return &DocsAdapter{
		pageURL:  pageURL,
		maxItems: maxItems,
		window:   window,
		timeout:  30 * time.Second,
		now:      time.Now,
	}
}

func (a *DocsAdapter) Tag() models.SourceTag { return models.TagDocUpdate }
func (a *DocsAdapter) Name() string          { return "apple-docs" }

func (a *DocsAdapter) Fetch(ctx context.Context) ([]models.SourceRecord, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.MaxDepth(1),
	)
	c.SetRequestTimeout(a.timeout)

	now := a.now()
	var records []models.SourceRecord

	c.OnHTML("div.update-item", func(e *colly.HTMLElement) {
		if a.maxItems > 0 && len(records) >= a.maxItems {
			return
		}
		title := cleanText(e.ChildText("h3"))
		if title == "" {
			return
		}

		published := parseDocDate(e.ChildAttr("time", "datetime"))
		if !KeepIfRecent(published, a.window, now) {
			return
		}

		records = append(records, models.SourceRecord{
			Title:       title,
			URL:         e.Request.AbsoluteURL(e.ChildAttr("a", "href")),
			PublishedAt: published,
			Summary:     truncate(cleanText(e.ChildText("p")), 300),
			Tag:         models.TagDocUpdate,
		})
	})

	var scrapeErr error
	c.OnError(func(r *colly.Response, err error) {
		scrapeErr = fmt.Errorf("scrape error for %s: %w (status: %d)", a.pageURL, err, r.StatusCode)
	})

	if err := c.Visit(a.pageURL); err != nil {
		return nil, fmt.Errorf("failed to visit %s: %w", a.pageURL, err)
	}
	c.Wait()

	if scrapeErr != nil {
		return nil, scrapeErr
	}
	return records, nil
}

// parseDocDate handles the datetime attribute formats the updates page uses.
func parseDocDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
