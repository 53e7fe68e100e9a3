package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/durellwilson/courseforge/internal/ai"
	"github.com/durellwilson/courseforge/internal/config"
	"github.com/durellwilson/courseforge/internal/database"
	"github.com/durellwilson/courseforge/internal/publisher"
	"github.com/durellwilson/courseforge/internal/repo"
	"github.com/durellwilson/courseforge/internal/scheduler"
	"github.com/durellwilson/courseforge/internal/source"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var flagConfig string

var rootCmd = &cobra.Command{
	Use:   "courseforge",
	Short: "Autonomous Swift course content agent",
	Long: "courseforge harvests Swift/iOS developer content from public sources, distills it\n" +
		"into insights with an LLM, and publishes generated course chapters to a GitHub\n" +
		"documentation repository.",
	RunE:          runDaemon,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single content cycle and exit",
	RunE:  runOnce,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("courseforge %s (built %s)\n", version, buildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "config.yaml", "path to configuration file")
	rootCmd.AddCommand(onceCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	sched, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("Shutting down...")
		cancel()
	}()

	sched.Run(ctx)
	return nil
}

func runOnce(cmd *cobra.Command, args []string) error {
	sched, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return sched.RunCycle(ctx)
}

// setup wires the pipeline from configuration. Credentials come from the
// environment here and nowhere else.
func setup() (*scheduler.Scheduler, *database.DB, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	initLogger(cfg.Logging.Level)
	slog.Info("Starting courseforge", "version", version)

	creds := config.CredentialsFromEnv()
	if err := creds.Validate(); err != nil {
		return nil, nil, err
	}

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize database: %w", err)
	}
	slog.Info("Database initialized", "path", cfg.Database.Path)

	provider := ai.NewOpenAIProvider(creds.OpenAIKey, cfg.AI.Model, cfg.AI.Timeout())
	aiClient := ai.NewClient(provider, cfg.AI.MaxInputItems)

	ghClient := repo.NewClient(cfg.Repo.Owner, cfg.Repo.Name, cfg.Repo.Branch, creds.GitHubToken)
	pub := publisher.New(ghClient)

	sched := scheduler.New(cfg, buildAdapters(cfg), aiClient, pub, ghClient, db)
	return sched, db, nil
}

func buildAdapters(cfg config.Config) []source.Adapter {
	src := cfg.Sources
	return []source.Adapter{
		source.NewYouTubeAdapter(src.YouTubeChannels, src.MaxPerOrigin,
			cfg.Quality.MinVideoViews, config.Window(cfg.Freshness.VideoDays)),
		source.NewDocsAdapter(src.DocsURL, src.MaxPerOrigin,
			config.Window(cfg.Freshness.DocUpdateDays)),
		source.NewTrendingAdapter(src.TrendingURL, src.MaxPerOrigin,
			cfg.Quality.MinRepoStars),
		source.NewBlogAdapter(src.BlogFeeds, src.MaxPerOrigin,
			config.Window(cfg.Freshness.BlogDays)),
		source.NewRedditAdapter(src.Subreddits, src.Keywords,
			cfg.Quality.MinDiscussionScore, src.MaxPerOrigin,
			config.Window(cfg.Freshness.DiscussionDays)),
	}
}

func initLogger(level string) {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}
