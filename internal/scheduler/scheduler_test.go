package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/durellwilson/courseforge/internal/config"
	"github.com/durellwilson/courseforge/internal/models"
	"github.com/durellwilson/courseforge/internal/publisher"
	"github.com/durellwilson/courseforge/internal/source"
)

// Test doubles.

type stubAdapter struct {
	tag     models.SourceTag
	records []models.SourceRecord
	err     error
}

func (a *stubAdapter) Tag() models.SourceTag { return a.tag }
func (a *stubAdapter) Name() string          { return string(a.tag) }
func (a *stubAdapter) Fetch(ctx context.Context) ([]models.SourceRecord, error) {
	return a.records, a.err
}

type stubGenerator struct {
	insights     models.InsightSet
	analyzeErr   error
	content      models.GeneratedContent
	generateErr  error
	analyzeCalls int
	genCalls     int
	lastSnapshot models.ContentSnapshot
}

func (g *stubGenerator) AnalyzeSnapshot(ctx context.Context, snapshot models.ContentSnapshot) (models.InsightSet, int, error) {
	g.analyzeCalls++
	g.lastSnapshot = snapshot
	if g.analyzeErr != nil {
		return models.InsightSet{}, 100, g.analyzeErr
	}
	return g.insights, 100, nil
}

func (g *stubGenerator) GenerateCourseContent(ctx context.Context, insights models.InsightSet) (models.GeneratedContent, int, error) {
	g.genCalls++
	if g.generateErr != nil {
		return models.GeneratedContent{}, 200, g.generateErr
	}
	return g.content, 200, nil
}

type stubPublisher struct {
	result publisher.Result
	err    error
	calls  int
}

func (p *stubPublisher) Publish(ctx context.Context, content models.GeneratedContent, now time.Time) (publisher.Result, error) {
	p.calls++
	return p.result, p.err
}

type panickyPublisher struct{}

func (panickyPublisher) Publish(ctx context.Context, content models.GeneratedContent, now time.Time) (publisher.Result, error) {
	panic("publisher exploded")
}

type stubDeploy struct {
	err   error
	calls int
}

func (d *stubDeploy) TriggerDeployment(ctx context.Context, workflow, ref string) error {
	d.calls++
	return d.err
}

type stubHistory struct {
	entries []models.CycleLog
}

func (h *stubHistory) LogCycle(entry models.CycleLog) error {
	h.entries = append(h.entries, entry)
	return nil
}

// fakeClock records every requested sleep and cancels the loop's context
// instead of actually waiting, so Run tests are deterministic.
type fakeClock struct {
	mu     sync.Mutex
	sleeps []time.Duration
	cancel context.CancelFunc
}

func (c *fakeClock) Now() time.Time { return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC) }

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()
	c.cancel()
	return make(chan time.Time)
}

func testConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.Cycle = config.CycleConfig{Interval: "6h", RetryInterval: "30m", AdapterTimeoutSeconds: 5}
	return cfg
}

func newTestScheduler(gen *stubGenerator, pub Publisher, deploy *stubDeploy, history *stubHistory) *Scheduler {
	adapters := []source.Adapter{
		&stubAdapter{tag: models.TagVideo, records: []models.SourceRecord{
			{Title: "v1", Tag: models.TagVideo}, {Title: "v2", Tag: models.TagVideo},
		}},
		&stubAdapter{tag: models.TagRepo, err: errors.New("github down")},
		&stubAdapter{tag: models.TagBlogPost, records: []models.SourceRecord{
			{Title: "b1", Tag: models.TagBlogPost},
		}},
	}
	s := New(testConfig(), adapters, gen, pub, deploy, history)
	s.clock = &fakeClock{cancel: func() {}}
	return s
}

func TestRunCycleEndToEnd(t *testing.T) {
	gen := &stubGenerator{
		insights: models.InsightSet{NewAPIs: []string{"SwiftData"}},
		content:  models.GeneratedContent{NewChapter: "# Chapter"},
	}
	pub := &stubPublisher{result: publisher.Result{
		ChapterPath: "book/src/auto-generated/chapter_20260828.md", ChapterCreated: true, IndexChanged: true,
	}}
	deploy := &stubDeploy{}
	history := &stubHistory{}

	s := newTestScheduler(gen, pub, deploy, history)
	if err := s.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	if gen.analyzeCalls != 1 || gen.genCalls != 1 {
		t.Errorf("analyze=%d generate=%d, want 1 each", gen.analyzeCalls, gen.genCalls)
	}
	if got := gen.lastSnapshot.Total(); got != 3 {
		t.Errorf("snapshot total = %d, want 3 (failed adapter contributes none)", got)
	}
	if pub.calls != 1 {
		t.Errorf("publish calls = %d, want 1", pub.calls)
	}
	if deploy.calls != 1 {
		t.Errorf("deploy calls = %d, want 1", deploy.calls)
	}

	if len(history.entries) != 1 {
		t.Fatalf("history entries = %d, want 1", len(history.entries))
	}
	entry := history.entries[0]
	if entry.Status != "completed" {
		t.Errorf("status = %q", entry.Status)
	}
	if entry.RecordsFetched != 3 || entry.InsightCount != 1 {
		t.Errorf("records=%d insights=%d", entry.RecordsFetched, entry.InsightCount)
	}
	if entry.TokensUsed != 300 {
		t.Errorf("tokens = %d, want 300 (both calls counted)", entry.TokensUsed)
	}
	if entry.ChapterPath != pub.result.ChapterPath {
		t.Errorf("chapter path = %q", entry.ChapterPath)
	}
	if entry.CycleID == "" {
		t.Error("cycle id should be set")
	}
}

func TestRunCycleNoInsightsSkipsGeneration(t *testing.T) {
	gen := &stubGenerator{} // empty insight set
	pub := &stubPublisher{}
	deploy := &stubDeploy{}

	s := newTestScheduler(gen, pub, deploy, &stubHistory{})
	if err := s.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	if gen.genCalls != 0 {
		t.Error("empty insights must skip the generation call")
	}
	if pub.calls != 0 || deploy.calls != 0 {
		t.Errorf("publish=%d deploy=%d, want 0 each", pub.calls, deploy.calls)
	}
}

func TestRunCycleAnalysisFailureContained(t *testing.T) {
	gen := &stubGenerator{analyzeErr: errors.New("model overloaded")}
	pub := &stubPublisher{}
	history := &stubHistory{}

	s := newTestScheduler(gen, pub, &stubDeploy{}, history)
	if err := s.RunCycle(context.Background()); err != nil {
		t.Fatalf("an analysis failure ends the cycle cleanly, got %v", err)
	}

	if gen.genCalls != 0 {
		t.Error("generation must not run on a failed analysis")
	}
	if pub.calls != 0 {
		t.Error("nothing must be published on a failed analysis")
	}
	if history.entries[0].Status != "completed" {
		t.Errorf("contained failure logs a completed cycle, got %q", history.entries[0].Status)
	}
}

func TestRunCycleGenerationFailureContained(t *testing.T) {
	gen := &stubGenerator{
		insights:    models.InsightSet{NewAPIs: []string{"x"}},
		generateErr: errors.New("model overloaded"),
	}
	pub := &stubPublisher{}

	s := newTestScheduler(gen, pub, &stubDeploy{}, &stubHistory{})
	if err := s.RunCycle(context.Background()); err != nil {
		t.Fatalf("a generation failure ends the cycle cleanly, got %v", err)
	}
	if pub.calls != 0 {
		t.Error("nothing must be published on a failed generation")
	}
}

func TestRunCyclePublishFailureEscapes(t *testing.T) {
	gen := &stubGenerator{
		insights: models.InsightSet{NewAPIs: []string{"x"}},
		content:  models.GeneratedContent{NewChapter: "# C"},
	}
	pub := &stubPublisher{err: errors.New("409 conflict")}
	deploy := &stubDeploy{}
	history := &stubHistory{}

	s := newTestScheduler(gen, pub, deploy, history)
	err := s.RunCycle(context.Background())
	if err == nil {
		t.Fatal("publish failures must escape the cycle")
	}
	if deploy.calls != 0 {
		t.Error("deploy must not fire after a failed publish")
	}
	if history.entries[0].Status != "failed" {
		t.Errorf("status = %q, want failed", history.entries[0].Status)
	}
	if history.entries[0].ErrorMessage == "" {
		t.Error("failed entry should carry the error message")
	}
}

func TestRunCycleDeployOnlyWhenChanged(t *testing.T) {
	gen := &stubGenerator{
		insights: models.InsightSet{NewAPIs: []string{"x"}},
		content:  models.GeneratedContent{NewChapter: "# C"},
	}
	pub := &stubPublisher{result: publisher.Result{ChapterPath: "p"}} // nothing changed
	deploy := &stubDeploy{}

	s := newTestScheduler(gen, pub, deploy, &stubHistory{})
	if err := s.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if deploy.calls != 0 {
		t.Error("an unchanged tree must not trigger a deployment")
	}
}

func TestRunCycleDeployFailureIsNotFatal(t *testing.T) {
	gen := &stubGenerator{
		insights: models.InsightSet{NewAPIs: []string{"x"}},
		content:  models.GeneratedContent{NewChapter: "# C"},
	}
	pub := &stubPublisher{result: publisher.Result{ChapterPath: "p", ChapterCreated: true}}
	deploy := &stubDeploy{err: errors.New("dispatch rejected")}

	s := newTestScheduler(gen, pub, deploy, &stubHistory{})
	if err := s.RunCycle(context.Background()); err != nil {
		t.Fatalf("a failed deploy trigger must not fail the cycle, got %v", err)
	}
	if deploy.calls != 1 {
		t.Errorf("deploy calls = %d, want 1", deploy.calls)
	}
}

func TestRunCyclePanicRecovered(t *testing.T) {
	gen := &stubGenerator{
		insights: models.InsightSet{NewAPIs: []string{"x"}},
		content:  models.GeneratedContent{NewChapter: "# C"},
	}
	history := &stubHistory{}

	s := newTestScheduler(gen, panickyPublisher{}, &stubDeploy{}, history)
	err := s.RunCycle(context.Background())
	if err == nil {
		t.Fatal("a panic must surface as a cycle error, not crash the process")
	}
	if !strings.Contains(err.Error(), "panic") {
		t.Errorf("err = %v, want a panic error", err)
	}
	if history.entries[0].Status != "failed" {
		t.Errorf("status = %q, want failed", history.entries[0].Status)
	}
}

func TestRunSelectsSleepInterval(t *testing.T) {
	tests := []struct {
		name string
		pub  Publisher
		want time.Duration
	}{
		{
			name: "clean cycle sleeps the long interval",
			pub:  &stubPublisher{result: publisher.Result{ChapterCreated: true}},
			want: 6 * time.Hour,
		},
		{
			name: "failed cycle sleeps the retry interval",
			pub:  &stubPublisher{err: errors.New("conflict")},
			want: 30 * time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &stubGenerator{
				insights: models.InsightSet{NewAPIs: []string{"x"}},
				content:  models.GeneratedContent{NewChapter: "# C"},
			}
			s := newTestScheduler(gen, tt.pub, &stubDeploy{}, &stubHistory{})

			ctx, cancel := context.WithCancel(context.Background())
			clock := &fakeClock{cancel: cancel}
			s.clock = clock

			done := make(chan struct{})
			go func() {
				s.Run(ctx)
				close(done)
			}()

			select {
			case <-done:
			case <-time.After(5 * time.Second):
				t.Fatal("Run did not stop after context cancellation")
			}

			clock.mu.Lock()
			defer clock.mu.Unlock()
			if len(clock.sleeps) != 1 {
				t.Fatalf("got %d sleeps, want 1", len(clock.sleeps))
			}
			if clock.sleeps[0] != tt.want {
				t.Errorf("sleep = %v, want %v", clock.sleeps[0], tt.want)
			}
			if s.Status() != StateIdle {
				t.Errorf("final state = %q, want idle", s.Status())
			}
		})
	}
}

func TestRunStopsImmediatelyOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := &stubGenerator{}
	s := newTestScheduler(gen, &stubPublisher{}, &stubDeploy{}, &stubHistory{})

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return on a cancelled context")
	}
	if gen.analyzeCalls != 0 {
		t.Error("no cycle should start on a cancelled context")
	}
}
