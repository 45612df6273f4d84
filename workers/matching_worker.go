package workers

import (
	"context"
	"fmt"
	"time"

	"battle-seoul/models"
	"battle-seoul/services"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// Matcher is the slice of the matching service the worker drives.
type Matcher interface {
	RunSmartMatching(ctx context.Context, maxMatches int, force bool) (*services.MatchingResult, error)
	ExpireBattles(ctx context.Context) (int64, error)
}

// MatchingWorker runs scheduled matching passes and the battle expiry sweep.
type MatchingWorker struct {
	Matcher     Matcher
	MaxMatches  int
	Interval    time.Duration
	ExpirySweep time.Duration
	Timeout     time.Duration
	Logger      *zap.Logger

	sched gocron.Scheduler
}

func NewMatchingWorker(m Matcher, maxMatches int, interval, expirySweep time.Duration, logger *zap.Logger) *MatchingWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if expirySweep <= 0 {
		expirySweep = time.Minute
	}
	return &MatchingWorker{
		Matcher:     m,
		MaxMatches:  maxMatches,
		Interval:    interval,
		ExpirySweep: expirySweep,
		Timeout:     time.Minute,
		Logger:      logger.Named("matching_worker"),
	}
}

// Start registers both jobs and starts the scheduler. Jobs never overlap themselves.
func (w *MatchingWorker) Start(opts ...gocron.SchedulerOption) error {
	sched, err := gocron.NewScheduler(opts...)
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	if w.Interval > 0 {
		if _, err := sched.NewJob(
			gocron.DurationJob(w.Interval),
			gocron.NewTask(w.RunMatching),
			gocron.WithName("smart-matching"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			return fmt.Errorf("schedule matching: %w", err)
		}
	}

	if _, err := sched.NewJob(
		gocron.DurationJob(w.ExpirySweep),
		gocron.NewTask(w.RunExpiry),
		gocron.WithName("battle-expiry"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return fmt.Errorf("schedule expiry: %w", err)
	}

	w.sched = sched
	sched.Start()
	w.Logger.Info("scheduler started",
		zap.Duration("matching_interval", w.Interval),
		zap.Duration("expiry_sweep", w.ExpirySweep))
	return nil
}

// Jobs lists the registered jobs, or nil before Start.
func (w *MatchingWorker) Jobs() []gocron.Job {
	if w.sched == nil {
		return nil
	}
	return w.sched.Jobs()
}

func (w *MatchingWorker) Stop() error {
	if w.sched == nil {
		return nil
	}
	return w.sched.Shutdown()
}

// RunMatching performs one cooldown-respecting matching pass.
func (w *MatchingWorker) RunMatching() {
	ctx, cancel := context.WithTimeout(context.Background(), w.Timeout)
	defer cancel()

	res, err := w.Matcher.RunSmartMatching(ctx, w.MaxMatches, false)
	if err != nil {
		w.Logger.Error("scheduled matching failed", zap.Error(err))
		return
	}
	if !res.Success {
		if res.Reason != models.ReasonCooldown {
			w.Logger.Info("scheduled matching created nothing", zap.String("reason", string(res.Reason)))
		}
		return
	}
	w.Logger.Info("scheduled matching created battles", zap.Int("matches_created", res.MatchesCreated))
}

// RunExpiry persists the ended status of finished battles.
func (w *MatchingWorker) RunExpiry() {
	ctx, cancel := context.WithTimeout(context.Background(), w.Timeout)
	defer cancel()

	if _, err := w.Matcher.ExpireBattles(ctx); err != nil {
		w.Logger.Error("battle expiry sweep failed", zap.Error(err))
	}
}
