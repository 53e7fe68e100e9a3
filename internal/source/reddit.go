package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/durellwilson/courseforge/internal/models"
)

const defaultRedditBaseURL = "https://www.reddit.com"

// RedditAdapter harvests hot posts from iOS/Swift subreddits via the public
// JSON listing API. Posts must match at least one configured keyword and
// clear the minimum score to enter the snapshot.
type RedditAdapter struct {
	httpClient *http.Client
	baseURL    string
	subreddits []string
	keywords   []string
	minScore   int
	maxPosts   int
	window     time.Duration
	now        func() time.Time
}

func NewRedditAdapter(subreddits, keywords []string, minScore, maxPosts int, window time.Duration) *RedditAdapter {
	return &RedditAdapter{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultRedditBaseURL,
		subreddits: subreddits,
		keywords:   keywords,
		minScore:   minScore,
		maxPosts:   maxPosts,
		window:     window,
		now:        time.Now,
	}
}

func (a *RedditAdapter) Tag() models.SourceTag { return models.TagDiscussion }
func (a *RedditAdapter) Name() string          { return "reddit" }

func (a *RedditAdapter) Fetch(ctx context.Context) ([]models.SourceRecord, error) {
	now := a.now()

	var records []models.SourceRecord
	for _, subreddit := range a.subreddits {
		posts, err := a.fetchSubreddit(ctx, subreddit)
		if err != nil {
			slog.Warn("Subreddit fetch failed", "subreddit", subreddit, "error", err)
			continue
		}

		for _, post := range posts {
			if !matchesKeywords(post.Title, a.keywords) {
				continue
			}
			if a.minScore > 0 && post.Score < a.minScore {
				continue
			}
			created := time.Unix(int64(post.CreatedUTC), 0).UTC()
			if !KeepIfRecent(&created, a.window, now) {
				continue
			}
			records = append(records, models.SourceRecord{
				Title:        post.Title,
				URL:          "https://reddit.com" + post.Permalink,
				PublishedAt:  &created,
				Summary:      truncate(cleanText(post.Selftext), 300),
				Tag:          models.TagDiscussion,
				Score:        post.Score,
				CommentCount: post.NumComments,
			})
		}
	}
	return records, nil
}

func (a *RedditAdapter) fetchSubreddit(ctx context.Context, subreddit string) ([]redditPost, error) {
	limit := a.maxPosts
	if limit <= 0 {
		limit = 10
	}
	apiURL := fmt.Sprintf("%s/r/%s/hot.json?limit=%d", a.baseURL, subreddit, limit)

	req, err := http.NewRequestWithContext(ctx, "GET", apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch subreddit %s: %w", subreddit, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		switch resp.StatusCode {
		case http.StatusNotFound:
			return nil, fmt.Errorf("subreddit r/%s not found", subreddit)
		case http.StatusForbidden:
			return nil, fmt.Errorf("subreddit r/%s is private or quarantined", subreddit)
		case http.StatusTooManyRequests:
			return nil, fmt.Errorf("Reddit rate limit exceeded")
		default:
			return nil, fmt.Errorf("Reddit API returned status %d", resp.StatusCode)
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var listing redditListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("parse Reddit JSON: %w", err)
	}

	posts := make([]redditPost, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		posts = append(posts, child.Data)
	}
	return posts, nil
}

// Reddit JSON API types

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Permalink   string  `json:"permalink"`
	Subreddit   string  `json:"subreddit"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
}
