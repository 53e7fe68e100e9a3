package source

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/durellwilson/courseforge/internal/models"
)

const userAgent = "CourseForge/1.0 (Swift course content agent)"

// Adapter normalizes one external content origin into SourceRecords.
//
// Fetch may return an error, but the fan-out collector contains it: a failed
// adapter contributes an empty record list to the snapshot and never aborts
// the cycle.
type Adapter interface {
	Tag() models.SourceTag
	Name() string
	Fetch(ctx context.Context) ([]models.SourceRecord, error)
}

// Result is the contained outcome of one adapter's fetch.
type Result struct {
	Tag     models.SourceTag
	Name    string
	Records []models.SourceRecord
	Err     error
}

// FetchAll runs every adapter concurrently, each under its own timeout, and
// returns one Result per adapter in adapter order. Errors and panics are
// captured in the Result, so completion order never changes the output and a
// hung adapter cannot stall the cycle beyond the timeout.
func FetchAll(ctx context.Context, adapters []Adapter, timeout time.Duration) []Result {
	results := make([]Result, len(adapters))

	var wg sync.WaitGroup
	for i, a := range adapters {
		wg.Add(1)
		go func(i int, a Adapter) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[i] = Result{
						Tag:  a.Tag(),
						Name: a.Name(),
						Err:  fmt.Errorf("panic in adapter %s: %v", a.Name(), r),
					}
				}
			}()

			fetchCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			records, err := a.Fetch(fetchCtx)
			results[i] = Result{Tag: a.Tag(), Name: a.Name(), Records: records, Err: err}
		}(i, a)
	}
	wg.Wait()

	for _, res := range results {
		if res.Err != nil {
			slog.Warn("Source fetch failed", "source", res.Name, "tag", res.Tag, "error", res.Err)
		} else {
			slog.Debug("Source fetched", "source", res.Name, "tag", res.Tag, "records", len(res.Records))
		}
	}
	return results
}

// Aggregate merges fan-out results into a snapshot. Within a tag, records
// keep each adapter's return order; failed adapters contribute nothing. Zero
// successes yields an empty snapshot, which is still a valid cycle input.
func Aggregate(results []Result) models.ContentSnapshot {
	snapshot := make(models.ContentSnapshot)
	for _, res := range results {
		if res.Err != nil || len(res.Records) == 0 {
			continue
		}
		snapshot[res.Tag] = append(snapshot[res.Tag], res.Records...)
	}
	return snapshot
}

// matchesKeywords reports whether the title mentions any configured keyword.
// An empty keyword list matches everything.
func matchesKeywords(title string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	lower := strings.ToLower(title)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func cleanText(s string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

func stripHTML(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return cleanText(b.String())
}
