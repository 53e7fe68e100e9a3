package ai

import (
	"fmt"
	"strings"

	"github.com/durellwilson/courseforge/internal/models"
)

var tagHeadings = map[models.SourceTag]string{
	models.TagVideo:      "YouTube Videos",
	models.TagDocUpdate:  "Apple Documentation Updates",
	models.TagRepo:       "Trending GitHub Repositories",
	models.TagBlogPost:   "Swift Blog Posts",
	models.TagDiscussion: "Reddit Discussions",
}

// BuildAnalysisPrompt constructs the analysis request from a capped prefix of
// each snapshot category. The cap bounds request size and cost regardless of
// how much a source returned.
func BuildAnalysisPrompt(snapshot models.ContentSnapshot, perCategory int) string {
	var sb strings.Builder

	sb.WriteString("Analyze this Swift/iOS development content and extract key insights for course updates.\n\n")

	for _, tag := range models.AllTags {
		sb.WriteString(fmt.Sprintf("=== %s ===\n", tagHeadings[tag]))
		records := snapshot[tag]
		if perCategory > 0 && len(records) > perCategory {
			records = records[:perCategory]
		}
		if len(records) == 0 {
			sb.WriteString("(nothing recent from this source)\n\n")
			continue
		}
		for _, rec := range records {
			sb.WriteString("- ")
			sb.WriteString(rec.Title)
			sb.WriteString("\n  ")
			sb.WriteString(rec.URL)
			sb.WriteString("\n")
			if rec.Summary != "" {
				sb.WriteString("  ")
				sb.WriteString(rec.Summary)
				sb.WriteString("\n")
			}
			if meta := recordMeta(rec); meta != "" {
				sb.WriteString("  ")
				sb.WriteString(meta)
				sb.WriteString("\n")
			}
		}
		sb.WriteString("\n")
	}

	sb.WriteString(`Extract:
1. New Swift/iOS features or APIs to cover
2. Performance optimization techniques mentioned
3. Monetization strategies discussed
4. Popular libraries or tools trending
5. Common developer pain points
6. Emerging best practices

IMPORTANT: Return ONLY a valid JSON object with no additional text, markdown, or explanation.

Format:
{
  "new_apis": ["..."],
  "performance_techniques": ["..."],
  "monetization_strategies": ["..."],
  "trending_tools": ["..."],
  "pain_points": ["..."],
  "best_practices": ["..."]
}
Each value is an array of specific, actionable insight strings. Use an empty array for categories the content does not support.`)

	return sb.String()
}

func recordMeta(rec models.SourceRecord) string {
	var parts []string
	if rec.Stars > 0 {
		parts = append(parts, fmt.Sprintf("stars: %d", rec.Stars))
	}
	if rec.Score > 0 {
		parts = append(parts, fmt.Sprintf("score: %d", rec.Score))
	}
	if rec.CommentCount > 0 {
		parts = append(parts, fmt.Sprintf("comments: %d", rec.CommentCount))
	}
	if rec.Views > 0 {
		parts = append(parts, fmt.Sprintf("views: %d", rec.Views))
	}
	return strings.Join(parts, " | ")
}

// BuildGenerationPrompt constructs the course content request from an
// insight set.
func BuildGenerationPrompt(insights models.InsightSet) string {
	var sb strings.Builder

	sb.WriteString("Based on these insights from the Swift/iOS community, generate new course content:\n\n")

	writeCategory := func(name string, items []string) {
		if len(items) == 0 {
			return
		}
		sb.WriteString(name)
		sb.WriteString(":\n")
		for _, item := range items {
			sb.WriteString("- ")
			sb.WriteString(item)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	writeCategory("New APIs", insights.NewAPIs)
	writeCategory("Performance techniques", insights.PerformanceTechniques)
	writeCategory("Monetization strategies", insights.MonetizationStrategies)
	writeCategory("Trending tools", insights.TrendingTools)
	writeCategory("Developer pain points", insights.PainPoints)
	writeCategory("Best practices", insights.BestPractices)

	sb.WriteString(`Create production-ready, business-focused content that gives developers a competitive edge.
Include real code examples and measurable outcomes.

IMPORTANT: Return ONLY a valid JSON object with no additional text, markdown, or explanation.

Format:
{
  "new_chapter": "markdown content for a new chapter with practical examples",
  "code_updates": "updated code patterns using latest APIs",
  "performance_tips": "new optimization techniques with benchmarks",
  "monetization_updates": "new revenue strategies with conversion data"
}
"new_chapter" is required; the other keys are optional.`)

	return sb.String()
}

// CleanJSONResponse strips markdown code fences from JSON responses.
func CleanJSONResponse(response string) string {
	response = strings.TrimSpace(response)
	if strings.HasPrefix(response, "```json") {
		response = strings.TrimPrefix(response, "```json")
	} else if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
	}
	if strings.HasSuffix(response, "```") {
		response = strings.TrimSuffix(response, "```")
	}
	return strings.TrimSpace(response)
}

// ExtractJSON attempts to extract valid JSON from a potentially messy model
// response. It tries direct parsing first, then strips markdown fences, then
// falls back to the outermost object delimiters.
func ExtractJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if looksLikeJSON(raw) {
		return raw
	}

	cleaned := CleanJSONResponse(raw)
	if looksLikeJSON(cleaned) {
		return cleaned
	}

	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			candidate := raw[start : end+1]
			if looksLikeJSON(candidate) {
				return candidate
			}
		}
	}

	return cleaned
}

func looksLikeJSON(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}")
}
