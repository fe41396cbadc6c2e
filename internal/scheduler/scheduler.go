package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/onionboard/internal/database"
	"github.com/nao1215/onionboard/internal/model"
	"github.com/nao1215/onionboard/internal/scraper"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultSpec runs the watchlist check once a minute.
	DefaultSpec = "@every 1m"

	// DefaultConcurrency is the number of entries scanned at once.
	DefaultConcurrency = 4

	// sourceWatchlist tags watchlist events in the system log.
	sourceWatchlist = "WATCHLIST"
)

// Summary counts the outcomes of one run.
type Summary struct {
	Due      int
	Saved    int
	NotForum int
	Failed   int
}

// Scheduler runs watchlist scans on a cron schedule.
type Scheduler struct {
	store       *database.Store
	scanners    scraper.Factory
	concurrency int
	spec        string
	logger      *slog.Logger
	now         func() time.Time

	cron *cron.Cron
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithConcurrency sets the maximum number of concurrent scans.
func WithConcurrency(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithSpec replaces the cron schedule.
func WithSpec(spec string) Option {
	return func(s *Scheduler) {
		s.spec = spec
	}
}

// WithLogger sets the process logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithClock replaces the clock.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// New creates a Scheduler. It does nothing until Start is called.
func New(store *database.Store, scanners scraper.Factory, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:       store,
		scanners:    scanners,
		concurrency: DefaultConcurrency,
		spec:        DefaultSpec,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Start registers the job and starts the cron loop. A run still in
// progress when the next tick fires makes that tick a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	logger := cronLogger{s.logger}
	s.cron = cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := s.cron.AddFunc(s.spec, func() {
		if _, err := s.RunDue(ctx); err != nil {
			s.logger.Warn("watchlist run failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.logger.Info("watchlist scheduler started", "schedule", s.spec, "concurrency", s.concurrency)
	return nil
}

// Stop stops the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// RunDue scans every entry that is due now.
func (s *Scheduler) RunDue(ctx context.Context) (Summary, error) {
	due, err := s.store.DueWatchlist(ctx, s.now())
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{Due: len(due)}
	if len(due) == 0 {
		return summary, nil
	}
	s.logger.Info("watchlist run", "due", len(due))

	// Entries stay due when Tor is down, so the next tick retries them.
	scanner, err := s.scanners(ctx)
	if err != nil {
		s.record(ctx, model.LogLevelError, "Watchlist run skipped, Tor proxy unavailable: "+err.Error())
		return summary, err
	}

	keywords, err := s.store.ListKeywords(ctx)
	if err != nil {
		return summary, err
	}
	uas, err := s.store.ListUserAgents(ctx)
	if err != nil {
		return summary, err
	}
	agents := make([]string, 0, len(uas))
	for _, ua := range uas {
		agents = append(agents, ua.UserAgent)
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, entry := range due {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			outcome := s.process(ctx, scanner, entry, keywords, agents)

			mu.Lock()
			switch outcome {
			case outcomeSaved:
				summary.Saved++
			case outcomeNotForum:
				summary.NotForum++
			default:
				summary.Failed++
			}
			mu.Unlock()
			return nil
		})
	}

	err = g.Wait()
	s.logger.Info("watchlist run complete",
		"due", summary.Due, "saved", summary.Saved,
		"not_forum", summary.NotForum, "failed", summary.Failed)
	return summary, err
}

type outcome int

const (
	outcomeFailed outcome = iota
	outcomeSaved
	outcomeNotForum
)

func (s *Scheduler) process(ctx context.Context, scanner *scraper.Scanner, entry model.WatchlistEntry, keywords []model.Keyword, agents []string) outcome {
	target := scraper.NormalizeURL(entry.URL)
	result, err := scanner.Scan(ctx, target, keywords, agents)
	checked := s.now()
	defer s.reschedule(ctx, entry, checked)

	if err != nil {
		s.record(ctx, model.LogLevelError, fmt.Sprintf("Watchlist scan failed: %s - %v", entry.URL, err))
		return outcomeFailed
	}
	if !result.IsForum {
		s.record(ctx, model.LogLevelWarn, "Watchlist site is not a forum: "+entry.URL)
		return outcomeNotForum
	}
	if _, err := s.store.SaveScan(ctx, result, model.SourceWatchlist, checked); err != nil {
		s.record(ctx, model.LogLevelError, fmt.Sprintf("Watchlist save failed: %s - %v", entry.URL, err))
		return outcomeFailed
	}
	s.record(ctx, model.LogLevelSuccess, fmt.Sprintf("Watchlist scan completed: %s (%d threads, %d posts)",
		entry.URL, result.ThreadCount, result.PostCount))
	return outcomeSaved
}

// reschedule advances the entry one interval past checked.
func (s *Scheduler) reschedule(ctx context.Context, entry model.WatchlistEntry, checked time.Time) {
	err := s.store.MarkWatchlistChecked(context.WithoutCancel(ctx), entry.ID, checked, checked.Add(entry.Interval()))
	if err != nil {
		// The entry may have been deleted while it was being scanned.
		s.logger.Warn("failed to reschedule watchlist entry", "id", entry.ID, "error", err)
	}
}

func (s *Scheduler) record(ctx context.Context, level model.LogLevel, message string) {
	if err := s.store.AddLog(context.WithoutCancel(ctx), level, sourceWatchlist, message); err != nil {
		s.logger.Warn("failed to record system log", "error", err)
	}
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
