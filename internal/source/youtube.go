package source

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/durellwilson/courseforge/internal/models"
)

const defaultYouTubeFeedURL = "https://www.youtube.com/feeds/videos.xml?channel_id=%s"

// YouTubeAdapter harvests recent uploads from a set of channels via their
// public RSS feeds. No API key is required.
type YouTubeAdapter struct {
	parser        *gofeed.Parser
	channels      []string
	feedURL       string // format string taking a channel ID
	maxPerChannel int
	minViews      int
	window        time.Duration
	now           func() time.Time
}

func NewYouTubeAdapter(channels []string, maxPerChannel, minViews int, window time.Duration) *YouTubeAdapter {
	return &YouTubeAdapter{
		parser:        gofeed.NewParser(),
		channels:      channels,
		feedURL:       defaultYouTubeFeedURL,
		maxPerChannel: maxPerChannel,
		minViews:      minViews,
		window:        window,
		now:           time.Now,
	}
}

func (a *YouTubeAdapter) Tag() models.SourceTag { return models.TagVideo }
func (a *YouTubeAdapter) Name() string          { return "youtube" }

func (a *YouTubeAdapter) Fetch(ctx context.Context) ([]models.SourceRecord, error) {
	now := a.now()

	var records []models.SourceRecord
	for _, channel := range a.channels {
		feed, err := a.parser.ParseURLWithContext(fmt.Sprintf(a.feedURL, channel), ctx)
		if err != nil {
			// One unreachable channel must not cost the others.
			slog.Warn("YouTube channel fetch failed", "channel", channel, "error", err)
			continue
		}

		items := feed.Items
		if a.maxPerChannel > 0 && len(items) > a.maxPerChannel {
			items = items[:a.maxPerChannel]
		}

		for _, item := range items {
			if !KeepIfRecent(item.PublishedParsed, a.window, now) {
				continue
			}
			views := mediaViews(item)
			if a.minViews > 0 && views > 0 && views < a.minViews {
				continue
			}
			records = append(records, models.SourceRecord{
				Title:       item.Title,
				URL:         item.Link,
				PublishedAt: item.PublishedParsed,
				Summary:     truncate(stripHTML(item.Description), 300),
				Tag:         models.TagVideo,
				Views:       views,
			})
		}
	}
	return records, nil
}

// mediaViews digs the view count out of the feed's media:group extension.
// Returns 0 when the feed does not report statistics.
func mediaViews(item *gofeed.Item) int {
	groups, ok := item.Extensions["media"]
	if !ok {
		return 0
	}
	for _, group := range groups["group"] {
		for _, community := range group.Children["community"] {
			for _, stats := range community.Children["statistics"] {
				if v, err := strconv.Atoi(stats.Attrs["views"]); err == nil {
					return v
				}
			}
		}
	}
	return 0
}
