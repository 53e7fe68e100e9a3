package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/durellwilson/courseforge/internal/models"
)

const trendingHTML = `<!DOCTYPE html>
<html><body>
<article class="Box-row">
  <h2><a href="/pointfreeco/swift-composable-architecture">pointfreeco /
        swift-composable-architecture</a></h2>
  <p>A library for building applications in a consistent and understandable way.</p>
  <a href="/pointfreeco/swift-composable-architecture/stargazers">12,345</a>
</article>
<article class="Box-row">
  <h2><a href="/tiny/new-repo">tiny /
        new-repo</a></h2>
  <p>Brand new experiment.</p>
  <a href="/tiny/new-repo/stargazers">12</a>
</article>
<article class="Box-row">
  <h2><a href="/apple/swift-async-algorithms">apple /
        swift-async-algorithms</a></h2>
  <p>Async sequence algorithms.</p>
  <a href="/apple/swift-async-algorithms/stargazers">3,100</a>
</article>
</body></html>`

func TestTrendingAdapterFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, trendingHTML)
	}))
	defer server.Close()

	a := NewTrendingAdapter(server.URL, 10, 50)
	got, err := a.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2 (star threshold filters one): %+v", len(got), got)
	}

	first := got[0]
	if first.Title != "pointfreeco/swift-composable-architecture" {
		t.Errorf("Title = %q, want collapsed owner/repo", first.Title)
	}
	if first.URL != "https://github.com/pointfreeco/swift-composable-architecture" {
		t.Errorf("URL = %q", first.URL)
	}
	if first.Stars != 12345 {
		t.Errorf("Stars = %d, want 12345", first.Stars)
	}
	if first.Tag != models.TagRepo {
		t.Errorf("Tag = %q", first.Tag)
	}
	if first.PublishedAt != nil {
		t.Error("trending entries carry no publish date")
	}
}

func TestTrendingAdapterCapsItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, trendingHTML)
	}))
	defer server.Close()

	a := NewTrendingAdapter(server.URL, 1, 0)
	got, err := a.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records, want cap of 1", len(got))
	}
}

func TestTrendingAdapterServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	a := NewTrendingAdapter(server.URL, 10, 0)
	if _, err := a.Fetch(context.Background()); err == nil {
		t.Fatal("a failed page load must surface as an error")
	}
}

func TestTrendingAdapterCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := NewTrendingAdapter("https://github.com/trending/swift", 10, 0)
	if _, err := a.Fetch(ctx); err == nil {
		t.Fatal("a cancelled context must abort before any request")
	}
}

func TestRepoName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"owner /\n        repo", "owner/repo"},
		{"apple / swift", "apple/swift"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := repoName(tt.in); got != tt.want {
			t.Errorf("repoName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseStars(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"1,234", 1234},
		{" 56 ", 56},
		{"12,345,678", 12345678},
		{"", 0},
		{"n/a", 0},
	}
	for _, tt := range tests {
		if got := parseStars(tt.in); got != tt.want {
			t.Errorf("parseStars(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
