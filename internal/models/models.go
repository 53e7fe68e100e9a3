package models

import "time"

// SourceTag identifies the category of content a record came from.
type SourceTag string

const (
	TagVideo      SourceTag = "video"
	TagDocUpdate  SourceTag = "doc_update"
	TagRepo       SourceTag = "repo"
	TagBlogPost   SourceTag = "blog_post"
	TagDiscussion SourceTag = "discussion"
)

// AllTags lists every source tag in display order.
var AllTags = []SourceTag{TagVideo, TagDocUpdate, TagRepo, TagBlogPost, TagDiscussion}

// SourceRecord is one harvested item, normalized from whatever shape the
// origin returns. Records are immutable once an adapter has produced them.
type SourceRecord struct {
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Summary     string     `json:"summary,omitempty"`
	Tag         SourceTag  `json:"tag"`

	// Source-specific metadata. Zero values mean the origin does not
	// report the figure.
	Stars        int `json:"stars,omitempty"`
	Score        int `json:"score,omitempty"`
	CommentCount int `json:"comment_count,omitempty"`
	Views        int `json:"views,omitempty"`
}

// ContentSnapshot is everything harvested in one cycle, keyed by source tag.
// A missing or empty slice means that source failed or had nothing recent;
// it never aborts the cycle.
type ContentSnapshot map[SourceTag][]SourceRecord

// Total returns the number of records across all tags.
func (s ContentSnapshot) Total() int {
	n := 0
	for _, records := range s {
		n += len(records)
	}
	return n
}

// InsightSet is the structured output of the analysis step. The category
// keys are fixed; anything else in the model response is discarded.
type InsightSet struct {
	NewAPIs                []string `json:"new_apis"`
	PerformanceTechniques  []string `json:"performance_techniques"`
	MonetizationStrategies []string `json:"monetization_strategies"`
	TrendingTools          []string `json:"trending_tools"`
	PainPoints             []string `json:"pain_points"`
	BestPractices          []string `json:"best_practices"`
}

// Empty reports whether no category holds any insight. An empty set is the
// "nothing to generate" signal downstream.
func (is InsightSet) Empty() bool {
	return is.Count() == 0
}

// Count returns the total number of insights across categories.
func (is InsightSet) Count() int {
	return len(is.NewAPIs) + len(is.PerformanceTechniques) +
		len(is.MonetizationStrategies) + len(is.TrendingTools) +
		len(is.PainPoints) + len(is.BestPractices)
}

// GeneratedContent is the structured output of the content generation step.
// NewChapter is the only field that drives a publish; without it the cycle
// produces no write.
type GeneratedContent struct {
	NewChapter          string `json:"new_chapter"`
	CodeUpdates         string `json:"code_updates,omitempty"`
	PerformanceTips     string `json:"performance_tips,omitempty"`
	MonetizationUpdates string `json:"monetization_updates,omitempty"`
}

// Empty reports whether there is no chapter to publish.
func (gc GeneratedContent) Empty() bool {
	return gc.NewChapter == ""
}

// CycleLog is one row of the local cycle-history log.
type CycleLog struct {
	ID             int64     `json:"id"`
	CycleID        string    `json:"cycle_id"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	Status         string    `json:"status"` // "completed" or "failed"
	RecordsFetched int       `json:"records_fetched"`
	InsightCount   int       `json:"insight_count"`
	TokensUsed     int       `json:"tokens_used"`
	ChapterPath    string    `json:"chapter_path,omitempty"`
	ErrorMessage   string    `json:"error_message,omitempty"`
}
