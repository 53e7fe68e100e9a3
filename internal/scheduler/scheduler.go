package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/durellwilson/courseforge/internal/config"
	"github.com/durellwilson/courseforge/internal/models"
	"github.com/durellwilson/courseforge/internal/publisher"
	"github.com/durellwilson/courseforge/internal/source"
)

// State describes what the scheduler is currently doing.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateSleeping State = "sleeping"
)

// Clock abstracts time so interval and backoff behavior can be tested
// deterministically.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Generator is the LLM boundary the scheduler drives. *ai.Client satisfies it.
type Generator interface {
	AnalyzeSnapshot(ctx context.Context, snapshot models.ContentSnapshot) (models.InsightSet, int, error)
	GenerateCourseContent(ctx context.Context, insights models.InsightSet) (models.GeneratedContent, int, error)
}

// Publisher is the content-tree write boundary. *publisher.Publisher
// satisfies it.
type Publisher interface {
	Publish(ctx context.Context, content models.GeneratedContent, now time.Time) (publisher.Result, error)
}

// DeployHook is the external deployment trigger. *repo.Client satisfies it.
type DeployHook interface {
	TriggerDeployment(ctx context.Context, workflow, ref string) error
}

// CycleLogger records cycle outcomes. *database.DB satisfies it; a nil
// logger disables history.
type CycleLogger interface {
	LogCycle(entry models.CycleLog) error
}

// Scheduler runs the pipeline as an infinite loop of single cycles. It is
// the only component that decides what a failure means: contained faults
// (sources, generator) were already downgraded to empty data by the time
// they reach it, and anything that still escapes a cycle — publish faults,
// panics — puts the loop on the short retry interval instead of the long
// one. The process never exits on a cycle failure.
type Scheduler struct {
	cfg       config.Config
	adapters  []source.Adapter
	generator Generator
	publisher Publisher
	deploy    DeployHook
	history   CycleLogger
	clock     Clock

	mu    sync.Mutex
	state State
}

func New(cfg config.Config, adapters []source.Adapter, gen Generator, pub Publisher, deploy DeployHook, history CycleLogger) *Scheduler {
	return &Scheduler{
		cfg:       cfg,
		adapters:  adapters,
		generator: gen,
		publisher: pub,
		deploy:    deploy,
		history:   history,
		clock:     systemClock{},
		state:     StateIdle,
	}
}

// Status returns the scheduler's current state.
func (s *Scheduler) Status() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Run executes cycles until the context is cancelled. One cycle at a time:
// a clean cycle sleeps the long interval, a failed one the short retry
// interval.
func (s *Scheduler) Run(ctx context.Context) {
	interval := s.cfg.Cycle.IntervalDuration()
	retryInterval := s.cfg.Cycle.RetryIntervalDuration()
	slog.Info("Scheduler started", "interval", interval, "retry_interval", retryInterval)

	for {
		if ctx.Err() != nil {
			s.setState(StateIdle)
			slog.Info("Scheduler stopped")
			return
		}

		s.setState(StateRunning)
		err := s.RunCycle(ctx)

		sleep := interval
		switch {
		case err == nil:
			slog.Info("Cycle completed", "next_cycle_in", sleep)
		case errors.Is(err, context.Canceled):
			// Shutdown in progress; the loop exits on the next check.
		default:
			sleep = retryInterval
			slog.Error("Cycle failed", "error", err, "retry_in", sleep)
		}

		s.setState(StateSleeping)
		select {
		case <-ctx.Done():
			s.setState(StateIdle)
			slog.Info("Scheduler stopped")
			return
		case <-s.clock.After(sleep):
		}
	}
}

// RunCycle executes one full pipeline cycle: fan-out fetch, aggregate,
// analyze, generate, publish, deploy. No partial-cycle state survives a
// failure; the next attempt starts from the adapters again.
func (s *Scheduler) RunCycle(ctx context.Context) (err error) {
	cycleID := uuid.NewString()
	entry := models.CycleLog{
		CycleID:   cycleID,
		StartedAt: s.clock.Now(),
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic in cycle", "cycle", cycleID, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
		entry.FinishedAt = s.clock.Now()
		if err != nil {
			entry.Status = "failed"
			entry.ErrorMessage = err.Error()
		} else {
			entry.Status = "completed"
		}
		if s.history != nil {
			if logErr := s.history.LogCycle(entry); logErr != nil {
				slog.Error("Failed to record cycle", "cycle", cycleID, "error", logErr)
			}
		}
	}()

	slog.Info("Starting content cycle", "cycle", cycleID)

	results := source.FetchAll(ctx, s.adapters, s.cfg.Cycle.AdapterTimeout())
	snapshot := source.Aggregate(results)
	entry.RecordsFetched = snapshot.Total()
	slog.Info("Sources aggregated", "cycle", cycleID, "records", entry.RecordsFetched)

	// An empty snapshot still goes to analysis: absence of news is valid
	// input to the generator.
	insights, tokens, analyzeErr := s.generator.AnalyzeSnapshot(ctx, snapshot)
	entry.TokensUsed += tokens
	if analyzeErr != nil {
		slog.Warn("Analysis failed, continuing with empty insight set", "cycle", cycleID, "error", analyzeErr)
		insights = models.InsightSet{}
	}
	entry.InsightCount = insights.Count()

	var content models.GeneratedContent
	if insights.Empty() {
		slog.Info("No insights, skipping content generation", "cycle", cycleID)
	} else {
		var genErr error
		content, tokens, genErr = s.generator.GenerateCourseContent(ctx, insights)
		entry.TokensUsed += tokens
		if genErr != nil {
			slog.Warn("Content generation failed, nothing to publish", "cycle", cycleID, "error", genErr)
			content = models.GeneratedContent{}
		}
	}

	if content.Empty() {
		slog.Info("No chapter generated, nothing to publish", "cycle", cycleID)
		return nil
	}

	pubResult, pubErr := s.publisher.Publish(ctx, content, s.clock.Now())
	if pubErr != nil {
		return fmt.Errorf("publish: %w", pubErr)
	}
	entry.ChapterPath = pubResult.ChapterPath

	if pubResult.Changed() {
		if deployErr := s.deploy.TriggerDeployment(ctx, s.cfg.Repo.Workflow, s.cfg.Repo.Branch); deployErr != nil {
			slog.Warn("Deployment trigger failed", "cycle", cycleID, "error", deployErr)
		} else {
			slog.Info("Deployment triggered", "cycle", cycleID, "workflow", s.cfg.Repo.Workflow)
		}
	}
	return nil
}
