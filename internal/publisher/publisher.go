package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/durellwilson/courseforge/internal/models"
	"github.com/durellwilson/courseforge/internal/repo"
)

const (
	chapterDir         = "book/src/auto-generated"
	indexPath          = "book/src/SUMMARY.md"
	indexSectionHeader = "# Auto-Generated Content"
)

// ContentStore is the slice of the content tree the publisher needs.
// *repo.Client satisfies it; tests substitute a fake.
type ContentStore interface {
	ReadArtifact(ctx context.Context, path string) (content, sha string, err error)
	CreateArtifact(ctx context.Context, path, content, message string) error
	UpdateArtifact(ctx context.Context, path, content, message, sha string) error
}

// Publisher performs the create-or-update of generated artifacts. It holds
// no state across cycles: the current tree state is read fresh on every
// publish, since the repository may change externally between cycles.
type Publisher struct {
	store ContentStore
}

func New(store ContentStore) *Publisher {
	return &Publisher{store: store}
}

// Result reports what a publish changed in the content tree.
type Result struct {
	ChapterPath    string
	ChapterCreated bool
	ChapterUpdated bool
	IndexChanged   bool
}

// Changed reports whether any artifact was written.
func (r Result) Changed() bool {
	return r.ChapterCreated || r.ChapterUpdated || r.IndexChanged
}

// ChapterPath returns the artifact path for a cycle date. One chapter per
// calendar day: a second cycle on the same day overwrites the first. That
// collision is policy, not an accident — the path is date-derived on
// purpose.
func ChapterPath(date time.Time) string {
	return fmt.Sprintf("%s/chapter_%s.md", chapterDir, date.Format("20060102"))
}

// Publish writes the chapter artifact and inserts its reference line into
// the index artifact. Both writes are idempotent with respect to re-running
// the same cycle: the chapter becomes an update instead of a second create,
// and the index line is never duplicated. Transient failures surface to the
// caller; the publisher itself never retries.
func (p *Publisher) Publish(ctx context.Context, content models.GeneratedContent, now time.Time) (Result, error) {
	if content.Empty() {
		return Result{}, nil
	}

	stamp := now.Format("20060102")
	result := Result{ChapterPath: ChapterPath(now)}
	body := renderChapter(content)

	_, sha, err := p.store.ReadArtifact(ctx, result.ChapterPath)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		msg := fmt.Sprintf("Auto-generate: new chapter %s", stamp)
		if err := p.store.CreateArtifact(ctx, result.ChapterPath, body, msg); err != nil {
			return result, fmt.Errorf("create chapter: %w", err)
		}
		result.ChapterCreated = true
	case err != nil:
		return result, fmt.Errorf("read chapter: %w", err)
	default:
		msg := fmt.Sprintf("Auto-update: chapter %s", stamp)
		if err := p.store.UpdateArtifact(ctx, result.ChapterPath, body, msg, sha); err != nil {
			return result, fmt.Errorf("update chapter: %w", err)
		}
		result.ChapterUpdated = true
	}

	changed, err := p.updateIndex(ctx, stamp)
	if err != nil {
		return result, err
	}
	result.IndexChanged = changed

	slog.Info("Published course content", "chapter", result.ChapterPath,
		"created", result.ChapterCreated, "updated", result.ChapterUpdated,
		"index_changed", result.IndexChanged)
	return result, nil
}

// updateIndex appends the chapter's reference line to SUMMARY.md unless it
// is already present. The key-based check makes re-publishing the same
// chapter path a no-op for the index.
func (p *Publisher) updateIndex(ctx context.Context, stamp string) (bool, error) {
	ref := fmt.Sprintf("./auto-generated/chapter_%s.md", stamp)
	line := fmt.Sprintf("- [Auto-Generated %s](%s)\n", stamp, ref)

	current, sha, err := p.store.ReadArtifact(ctx, indexPath)
	if errors.Is(err, repo.ErrNotFound) {
		content := indexSectionHeader + "\n\n" + line
		msg := fmt.Sprintf("Auto-update: add chapter %s to summary", stamp)
		if err := p.store.CreateArtifact(ctx, indexPath, content, msg); err != nil {
			return false, fmt.Errorf("create index: %w", err)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("read index: %w", err)
	}

	if strings.Contains(current, ref) {
		return false, nil
	}

	if !strings.HasSuffix(current, "\n") {
		current += "\n"
	}
	if !strings.Contains(current, indexSectionHeader) {
		current += "\n" + indexSectionHeader + "\n\n"
	}
	current += line

	msg := fmt.Sprintf("Auto-update: add chapter %s to summary", stamp)
	if err := p.store.UpdateArtifact(ctx, indexPath, current, msg, sha); err != nil {
		return false, fmt.Errorf("update index: %w", err)
	}
	return true, nil
}

// renderChapter assembles the chapter document from the generated fields.
// The chapter text leads; the optional sections follow under their own
// headings when present.
func renderChapter(content models.GeneratedContent) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(content.NewChapter))
	sb.WriteString("\n")

	writeSection := func(heading, text string) {
		if text == "" {
			return
		}
		sb.WriteString("\n## ")
		sb.WriteString(heading)
		sb.WriteString("\n\n")
		sb.WriteString(strings.TrimSpace(text))
		sb.WriteString("\n")
	}
	writeSection("Code Updates", content.CodeUpdates)
	writeSection("Performance Tips", content.PerformanceTips)
	writeSection("Monetization Updates", content.MonetizationUpdates)

	return sb.String()
}
