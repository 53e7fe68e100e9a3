package ai

import (
	"strings"
	"testing"

	"github.com/durellwilson/courseforge/internal/models"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "clean JSON",
			input: `{"new_apis": ["SwiftData"]}`,
			want:  `{"new_apis": ["SwiftData"]}`,
		},
		{
			name:  "json code fence",
			input: "```json\n{\"new_apis\": []}\n```",
			want:  `{"new_apis": []}`,
		},
		{
			name:  "bare code fence",
			input: "```\n{\"pain_points\": [\"previews\"]}\n```",
			want:  `{"pain_points": ["previews"]}`,
		},
		{
			name:  "surrounding prose",
			input: "Here are the insights you asked for:\n{\"trending_tools\": [\"Tuist\"]}\nLet me know if you need more.",
			want:  `{"trending_tools": ["Tuist"]}`,
		},
		{
			name:  "whitespace padding",
			input: "   \n{\"best_practices\": []}\n  ",
			want:  `{"best_practices": []}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.input); got != tt.want {
				t.Errorf("ExtractJSON(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseInsightSet(t *testing.T) {
	raw := "```json\n" + `{
  "new_apis": ["SwiftData migrations", "Observation framework"],
  "performance_techniques": ["lazy stacks"],
  "monetization_strategies": [],
  "trending_tools": ["Tuist"],
  "pain_points": [],
  "best_practices": ["structured concurrency"],
  "unknown_extra_key": ["ignored"]
}` + "\n```"

	insights, err := ParseInsightSet(raw)
	if err != nil {
		t.Fatalf("ParseInsightSet: %v", err)
	}
	if len(insights.NewAPIs) != 2 || insights.NewAPIs[0] != "SwiftData migrations" {
		t.Errorf("NewAPIs = %v", insights.NewAPIs)
	}
	if insights.Count() != 5 {
		t.Errorf("Count() = %d, want 5", insights.Count())
	}
	if insights.Empty() {
		t.Error("Empty() = true for a populated set")
	}
}

func TestParseInsightSetFailsClosed(t *testing.T) {
	for _, raw := range []string{
		"I could not find any insights today.",
		`{"new_apis": "should be an array not a string"}`,
		"",
	} {
		insights, err := ParseInsightSet(raw)
		if err == nil {
			t.Errorf("ParseInsightSet(%q) should fail", raw)
		}
		if !insights.Empty() {
			t.Errorf("failed parse of %q must yield an empty set, got %+v", raw, insights)
		}
	}
}

func TestParseGeneratedContentMissingChapter(t *testing.T) {
	// A response without new_chapter parses fine; emptiness is the caller's
	// signal that there is nothing to publish.
	content, err := ParseGeneratedContent(`{"code_updates": ""}`)
	if err != nil {
		t.Fatalf("ParseGeneratedContent: %v", err)
	}
	if !content.Empty() {
		t.Error("content without new_chapter should report Empty()")
	}
}

func TestBuildAnalysisPromptCapsRecords(t *testing.T) {
	snapshot := models.ContentSnapshot{}
	for i := 0; i < 12; i++ {
		snapshot[models.TagBlogPost] = append(snapshot[models.TagBlogPost], models.SourceRecord{
			Title: "Post " + string(rune('A'+i)),
			URL:   "https://example.com",
			Tag:   models.TagBlogPost,
		})
	}

	prompt := BuildAnalysisPrompt(snapshot, 3)

	if !strings.Contains(prompt, "Post A") || !strings.Contains(prompt, "Post C") {
		t.Error("prompt should include the first records of the category")
	}
	if strings.Contains(prompt, "Post D") {
		t.Error("prompt must cap each category at the configured limit")
	}
}

func TestBuildAnalysisPromptEmptyCategories(t *testing.T) {
	prompt := BuildAnalysisPrompt(models.ContentSnapshot{}, 5)

	// Every source section appears even when empty, so the model sees the
	// full shape of a cycle.
	for _, heading := range tagHeadings {
		if !strings.Contains(prompt, heading) {
			t.Errorf("prompt missing section %q", heading)
		}
	}
	if !strings.Contains(prompt, "(nothing recent from this source)") {
		t.Error("empty categories should be marked explicitly")
	}
	if !strings.Contains(prompt, `"new_apis"`) {
		t.Error("prompt should spell out the expected JSON schema")
	}
}

func TestBuildGenerationPromptSkipsEmptyCategories(t *testing.T) {
	insights := models.InsightSet{
		NewAPIs:    []string{"SwiftData"},
		PainPoints: []string{"Xcode previews are flaky"},
	}

	prompt := BuildGenerationPrompt(insights)

	if !strings.Contains(prompt, "SwiftData") {
		t.Error("prompt should list the insight items")
	}
	if strings.Contains(prompt, "Monetization strategies:") {
		t.Error("empty insight categories should be omitted from the prompt")
	}
	if !strings.Contains(prompt, `"new_chapter"`) {
		t.Error("prompt should spell out the expected JSON schema")
	}
}
