package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pfrederiksen/seminar-watch/internal/enrich"
	"github.com/pfrederiksen/seminar-watch/internal/logger"
	"github.com/pfrederiksen/seminar-watch/internal/monitor"
	"github.com/pfrederiksen/seminar-watch/internal/scheduler"
	"github.com/pfrederiksen/seminar-watch/internal/scraper"
	"github.com/pfrederiksen/seminar-watch/internal/store"
	"github.com/spf13/cobra"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

var (
	flagDBPath  string
	flagFormat  string
	flagVerbose bool
)

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seminar-watch",
		Short: "Track academic meetings across monitored web pages",
		Long: `seminar-watch monitors academic-meeting web pages, extracts structured
meeting records, and preserves a history of changes when a tracked
meeting's details mutate.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Optional .env for Twitter credentials and overrides.
			_ = godotenv.Load()
			if flagVerbose {
				logger.SetDefault(logger.New(logger.LevelDebug, os.Stderr))
			}
		},
	}

	cmd.PersistentFlags().StringVar(&flagDBPath, "db", "~/.local/share/seminar-watch/seminar-watch.db", "Path to the SQLite database")
	cmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose logging")

	cmd.AddCommand(newAddCmd())
	cmd.AddCommand(newPagesCmd())
	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newMeetingsCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newExportICSCmd())
	cmd.AddCommand(newDaemonCmd())

	return cmd
}

// openStore opens the database at the configured path.
func openStore() (*store.Store, error) {
	st, err := store.Open(flagDBPath)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return st, nil
}

// outputFormat validates the --format flag.
func outputFormat() (OutputFormat, error) {
	format := OutputFormat(flagFormat)
	if format != FormatText && format != FormatJSON {
		return "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flagFormat)
	}
	return format, nil
}

func newAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <url>",
		Short: "Register a page to monitor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			page, err := st.CreatePage(cmd.Context(), args[0], time.Now())
			if errors.Is(err, store.ErrPageExists) {
				fmt.Printf("Already monitored (page %d): %s\n", page.ID, page.URL)
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("Monitoring page %d: %s\n", page.ID, page.URL)
			return nil
		},
	}
}

func newPagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pages",
		Short: "List monitored pages",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat()
			if err != nil {
				return err
			}

			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			pages, err := st.ListPages(cmd.Context())
			if err != nil {
				return err
			}
			return WritePages(os.Stdout, pages, format)
		},
	}
}

func newCrawlCmd() *cobra.Command {
	var (
		flagPageID  int64
		flagTimeout time.Duration
		flagWorkers int
		flagEnrich  bool
	)

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl all monitored pages (or one with --page)",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat()
			if err != nil {
				return err
			}

			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			runner := newRunner(st, flagTimeout, flagWorkers, flagEnrich)

			if flagPageID > 0 {
				page, err := st.PageByID(cmd.Context(), flagPageID)
				if err != nil {
					return err
				}
				result := runner.CrawlPage(cmd.Context(), page)
				summary := &monitor.Summary{
					CrawledAt: time.Now().UTC(),
					Pages:     1,
					New:       result.New,
					Updated:   result.Updated,
					Unchanged: result.Unchanged,
					Failed:    result.Failed,
					Results:   []*monitor.PageResult{result},
				}
				return WriteSummary(os.Stdout, summary, format)
			}

			summary, err := runner.CrawlAll(cmd.Context())
			if err != nil {
				return err
			}
			return WriteSummary(os.Stdout, summary, format)
		},
	}

	cmd.Flags().Int64Var(&flagPageID, "page", 0, "Crawl only this page id")
	cmd.Flags().DurationVar(&flagTimeout, "timeout", scraper.DefaultTimeout, "Per-request fetch timeout")
	cmd.Flags().IntVar(&flagWorkers, "workers", 4, "Concurrent page crawls")
	cmd.Flags().BoolVar(&flagEnrich, "enrich", true, "Resolve speaker introductions via web search")

	return cmd
}

func newDaemonCmd() *cobra.Command {
	var (
		flagSpec    string
		flagWorkers int
		flagEnrich  bool
		flagAtStart bool
	)

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the daily crawl scheduler in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			runner := newRunner(st, scraper.DefaultTimeout, flagWorkers, flagEnrich)
			sched := scheduler.New(runner, flagSpec)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := sched.Start(ctx); err != nil {
				return err
			}
			if flagAtStart {
				sched.RunNow(ctx)
			}

			<-ctx.Done()
			sched.Stop()
			return nil
		},
	}

	cmd.Flags().StringVar(&flagSpec, "schedule", scheduler.DefaultSpec, "Cron schedule for the daily crawl")
	cmd.Flags().IntVar(&flagWorkers, "workers", 4, "Concurrent page crawls")
	cmd.Flags().BoolVar(&flagEnrich, "enrich", true, "Resolve speaker introductions via web search")
	cmd.Flags().BoolVar(&flagAtStart, "crawl-on-start", false, "Run one crawl cycle immediately on startup")

	return cmd
}

func newRunner(st *store.Store, timeout time.Duration, workers int, enrichEnabled bool) *monitor.Runner {
	var resolver monitor.Resolver
	if enrichEnabled {
		resolver = enrich.NewClient()
	}
	return monitor.New(scraper.NewFetcher(timeout), st, resolver, nil, workers)
}

// Execute runs the CLI.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}
