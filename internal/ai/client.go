package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/durellwilson/courseforge/internal/models"
)

// Client drives the two generator calls of a cycle: snapshot analysis and
// course content synthesis. It owns prompt building and response validation;
// the caller decides what a failure means for the cycle.
type Client struct {
	provider      Provider
	maxInputItems int
}

func NewClient(provider Provider, maxInputItems int) *Client {
	if maxInputItems <= 0 {
		maxInputItems = 5
	}
	return &Client{provider: provider, maxInputItems: maxInputItems}
}

// AnalyzeSnapshot asks the model to distill a content snapshot into an
// InsightSet. Returns the parsed set, tokens used, and an error when the
// call fails or the response does not validate — in which case the returned
// set is empty (fail closed, never partially-typed data).
func (c *Client) AnalyzeSnapshot(ctx context.Context, snapshot models.ContentSnapshot) (models.InsightSet, int, error) {
	prompt := BuildAnalysisPrompt(snapshot, c.maxInputItems)

	resp, err := c.provider.Chat(ctx, ChatRequest{
		Messages:    []Message{{Role: "user", Content: prompt}},
		Temperature: 0.3,
		MaxTokens:   2048,
		JSONMode:    true,
	})
	if err != nil {
		return models.InsightSet{}, 0, fmt.Errorf("analysis call: %w", err)
	}

	insights, err := ParseInsightSet(resp.Content)
	if err != nil {
		return models.InsightSet{}, resp.TokensUsed, fmt.Errorf("parse analysis response from %s: %w", c.provider.Name(), err)
	}
	return insights, resp.TokensUsed, nil
}

// GenerateCourseContent asks the model to synthesize course material from an
// insight set. A response that parses but lacks new_chapter is a valid
// "nothing worth publishing" answer and yields empty content without error.
func (c *Client) GenerateCourseContent(ctx context.Context, insights models.InsightSet) (models.GeneratedContent, int, error) {
	prompt := BuildGenerationPrompt(insights)

	resp, err := c.provider.Chat(ctx, ChatRequest{
		Messages:    []Message{{Role: "user", Content: prompt}},
		Temperature: 0.4,
		MaxTokens:   4096,
		JSONMode:    true,
	})
	if err != nil {
		return models.GeneratedContent{}, 0, fmt.Errorf("generation call: %w", err)
	}

	content, err := ParseGeneratedContent(resp.Content)
	if err != nil {
		return models.GeneratedContent{}, resp.TokensUsed, fmt.Errorf("parse generation response from %s: %w", c.provider.Name(), err)
	}
	return content, resp.TokensUsed, nil
}

// ParseInsightSet validates a model response against the fixed insight
// categories. Unknown keys are ignored; a malformed response fails closed.
func ParseInsightSet(raw string) (models.InsightSet, error) {
	text := ExtractJSON(raw)
	if text == "" {
		return models.InsightSet{}, fmt.Errorf("no JSON object in response")
	}

	var insights models.InsightSet
	if err := json.Unmarshal([]byte(text), &insights); err != nil {
		return models.InsightSet{}, fmt.Errorf("unmarshal insights: %w", err)
	}
	return insights, nil
}

// ParseGeneratedContent validates a model response against the generated
// content schema. Absence of new_chapter is not an error — the caller treats
// the result as empty.
func ParseGeneratedContent(raw string) (models.GeneratedContent, error) {
	text := ExtractJSON(raw)
	if text == "" {
		return models.GeneratedContent{}, fmt.Errorf("no JSON object in response")
	}

	var content models.GeneratedContent
	if err := json.Unmarshal([]byte(text), &content); err != nil {
		return models.GeneratedContent{}, fmt.Errorf("unmarshal generated content: %w", err)
	}
	return content, nil
}
