package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/durellwilson/courseforge/internal/models"
)

// TrendingAdapter scrapes GitHub's trending page for Swift repositories.
// Trending entries carry no publish date, so only the star threshold and
// item cap apply.
type TrendingAdapter struct {
	pageURL  string
	maxItems int
	minStars int
	timeout  time.Duration
}

func NewTrendingAdapter(pageURL string, maxItems, minStars int) *TrendingAdapter {
	return &TrendingAdapter{
		pageURL:  pageURL,
		maxItems: maxItems,
		minStars: minStars,
		timeout:  30 * time.Second,
	}
}

func (a *TrendingAdapter) Tag() models.SourceTag { return models.TagRepo }
func (a *TrendingAdapter) Name() string          { return "github-trending" }

func (a *TrendingAdapter) Fetch(ctx context.Context) ([]models.SourceRecord, error) {
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

	var records []models.SourceRecord

	c.OnHTML("article.Box-row", func(e *colly.HTMLElement) {
		if a.maxItems > 0 && len(records) >= a.maxItems {
			return
		}
		name := repoName(e.ChildText("h2"))
		if name == "" {
			return
		}

		stars := parseStars(e.ChildText(`a[href$="/stargazers"]`))
		if a.minStars > 0 && stars < a.minStars {
			return
		}

		records = append(records, models.SourceRecord{
			Title:   name,
			URL:     "https://github.com/" + name,
			Summary: truncate(cleanText(e.ChildText("p")), 300),
			Tag:     models.TagRepo,
			Stars:   stars,
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

// repoName collapses the "owner / repo" heading into "owner/repo".
func repoName(heading string) string {
	return strings.ReplaceAll(strings.Join(strings.Fields(heading), ""), "\n", "")
}

// parseStars handles star counts like "1,234".
func parseStars(s string) int {
	s = strings.ReplaceAll(cleanText(s), ",", "")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
