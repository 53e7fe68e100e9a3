package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Repo      RepoConfig      `yaml:"repo"`
	AI        AIConfig        `yaml:"ai"`
	Sources   SourcesConfig   `yaml:"sources"`
	Freshness FreshnessConfig `yaml:"freshness"`
	Quality   QualityConfig   `yaml:"quality"`
	Cycle     CycleConfig     `yaml:"cycle"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// RepoConfig identifies the course repository the publisher writes to.
type RepoConfig struct {
	Owner    string `yaml:"owner"`
	Name     string `yaml:"name"`
	Branch   string `yaml:"branch"`
	Workflow string `yaml:"workflow"` // deployment workflow file name
}

type AIConfig struct {
	Model          string `yaml:"model"`
	MaxInputItems  int    `yaml:"max_input_items"` // records per category in the analysis prompt
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type SourcesConfig struct {
	YouTubeChannels []string `yaml:"youtube_channels"`
	BlogFeeds       []string `yaml:"blog_feeds"`
	DocsURL         string   `yaml:"docs_url"`
	TrendingURL     string   `yaml:"trending_url"`
	Subreddits      []string `yaml:"subreddits"`
	Keywords        []string `yaml:"keywords"`
	MaxPerOrigin    int      `yaml:"max_per_origin"`
}

// FreshnessConfig holds the per-category recency windows, in days. They are
// configuration rather than adapter constants so the policy stays in one
// place.
type FreshnessConfig struct {
	VideoDays      int `yaml:"video_days"`
	BlogDays       int `yaml:"blog_days"`
	DocUpdateDays  int `yaml:"doc_update_days"`
	DiscussionDays int `yaml:"discussion_days"`
}

// QualityConfig holds minimum-signal thresholds applied before a record
// enters a snapshot.
type QualityConfig struct {
	MinVideoViews      int `yaml:"min_video_views"`
	MinRepoStars       int `yaml:"min_repo_stars"`
	MinDiscussionScore int `yaml:"min_discussion_score"`
}

type CycleConfig struct {
	Interval              string `yaml:"interval"`
	RetryInterval         string `yaml:"retry_interval"`
	AdapterTimeoutSeconds int    `yaml:"adapter_timeout_seconds"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Credentials are resolved from the environment exactly once, in the CLI
// layer, and passed down explicitly. Pipeline components never read the
// environment themselves.
type Credentials struct {
	OpenAIKey   string
	GitHubToken string
}

// CredentialsFromEnv reads API credentials from the process environment.
func CredentialsFromEnv() Credentials {
	return Credentials{
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		GitHubToken: os.Getenv("GITHUB_TOKEN"),
	}
}

// Validate checks that both credentials are present.
func (c Credentials) Validate() error {
	if c.OpenAIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is not set")
	}
	if c.GitHubToken == "" {
		return fmt.Errorf("GITHUB_TOKEN is not set")
	}
	return nil
}

func DefaultConfig() Config {
	return Config{
		Repo: RepoConfig{
			Owner:    "durellwilson",
			Name:     "swift-2026-course",
			Branch:   "main",
			Workflow: "deploy.yml",
		},
		AI: AIConfig{
			Model:          "gpt-4",
			MaxInputItems:  5,
			TimeoutSeconds: 120,
		},
		Sources: SourcesConfig{
			YouTubeChannels: []string{
				"UC2D6eRvCeMtcF5OGHf1-trw", // Apple Developer
				"UCuP2vJ6kRutQBfRmdcI92mA", // Sean Allen
				"UC_7ZKZSqtXAcbmhEzVyg8Pw", // Stewart Lynch
			},
			BlogFeeds:   []string{"https://swift.org/blog/feed.xml"},
			DocsURL:     "https://developer.apple.com/documentation/updates/",
			TrendingURL: "https://github.com/trending/swift",
			Subreddits:  []string{"iOSProgramming", "swift"},
			Keywords: []string{
				"swift", "ios", "xcode", "swiftui", "performance",
				"monetization", "app store", "optimization", "concurrency",
			},
			MaxPerOrigin: 10,
		},
		Freshness: FreshnessConfig{
			VideoDays:      7,
			BlogDays:       30,
			DocUpdateDays:  30,
			DiscussionDays: 7,
		},
		Quality: QualityConfig{
			MinVideoViews:      1000,
			MinRepoStars:       50,
			MinDiscussionScore: 10,
		},
		Cycle: CycleConfig{
			Interval:              "6h",
			RetryInterval:         "30m",
			AdapterTimeoutSeconds: 120,
		},
		Database: DatabaseConfig{
			Path: "./courseforge.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML config file and merges it over defaults.
// If the file does not exist, defaults are returned without error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("No config file found, using defaults", "path", path)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Interval returns the sleep between clean cycles.
func (c CycleConfig) IntervalDuration() time.Duration {
	return parseDuration(c.Interval, 6*time.Hour)
}

// RetryIntervalDuration returns the shorter backoff used after a failed cycle.
func (c CycleConfig) RetryIntervalDuration() time.Duration {
	return parseDuration(c.RetryInterval, 30*time.Minute)
}

func (c CycleConfig) AdapterTimeout() time.Duration {
	if c.AdapterTimeoutSeconds <= 0 {
		return 2 * time.Minute
	}
	return time.Duration(c.AdapterTimeoutSeconds) * time.Second
}

func (c AIConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 2 * time.Minute
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Window converts a day count into a freshness window.
func Window(days int) time.Duration {
	return time.Duration(days) * 24 * time.Hour
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
