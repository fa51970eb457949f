// workers/scheduler.go
package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clash-bot/config"
	"clash-bot/services"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

const (
	JobLifecycle      = "lifecycle"
	JobDailyStandings = "daily-standings"
	JobPinned         = "pinned-standings"
	JobPinnedStartup  = "pinned-standings-startup"
	JobChannelBoard   = "channel-standings"
	JobPrices         = "prices"

	lifecycleCron      = "*/15 * * * *"
	dailyStandingsCron = "30 0 * * *"
)

// Jobs holds what the scheduled jobs act on. A nil entry disables its jobs.
type Jobs struct {
	Lifecycle *services.LifecycleService
	Pinned    *services.PinnedStandings
	Reporter  *services.StandingsReporter
	Bots      *services.BotRegistry
	Prices    *services.PriceService
}

// Scheduler runs the bot's periodic work on gocron.
type Scheduler struct {
	sched    gocron.Scheduler
	cfg      config.ScheduleConfig
	channels config.ChannelConfig
	jobs     Jobs
	clock    clockwork.Clock
	logger   *logrus.Logger
	metrics  *services.Metrics
}

func NewScheduler(cfg config.ScheduleConfig, channels config.ChannelConfig, jobs Jobs,
	clock clockwork.Clock, logger *logrus.Logger, metrics *services.Metrics) (*Scheduler, error) {
	sched, err := gocron.NewScheduler(
		gocron.WithClock(clock),
		gocron.WithLocation(time.UTC),
	)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Scheduler{
		sched:    sched,
		cfg:      cfg,
		channels: channels,
		jobs:     jobs,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// Start registers every enabled job and starts the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.register(ctx); err != nil {
		return err
	}
	s.sched.Start()
	s.logger.WithFields(logrus.Fields{
		"pinned_every":      s.cfg.PinnedEvery,
		"leaderboard_every": s.cfg.LeaderboardEvery,
		"price_every":       s.cfg.PriceEvery,
	}).Info("[Scheduler] started: lifecycle every 15 min, daily standings 00:30 UTC")
	return nil
}

func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}

// Jobs lists the names of the registered jobs.
func (s *Scheduler) Jobs() []string {
	var names []string
	for _, j := range s.sched.Jobs() {
		names = append(names, j.Name())
	}
	return names
}

func (s *Scheduler) add(ctx context.Context, name string, def gocron.JobDefinition, fn func(context.Context) error, opts ...gocron.JobOption) error {
	opts = append([]gocron.JobOption{
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}, opts...)
	_, err := s.sched.NewJob(def, gocron.NewTask(func() { s.runJob(ctx, name, fn) }), opts...)
	if err != nil {
		return fmt.Errorf("register %s job: %w", name, err)
	}
	return nil
}

func (s *Scheduler) register(ctx context.Context) error {
	var errs []error

	if s.jobs.Lifecycle != nil {
		errs = append(errs, s.add(ctx, JobLifecycle, gocron.CronJob(lifecycleCron, false), s.lifecycleTick))
	}

	if s.jobs.Reporter != nil && s.channels.Standings != "" {
		errs = append(errs, s.add(ctx, JobDailyStandings, gocron.CronJob(dailyStandingsCron, false), s.dailyStandings))
	}

	if s.jobs.Pinned != nil && s.channels.Standings != "" {
		refresh := func(ctx context.Context) error {
			action, err := s.jobs.Pinned.Refresh(ctx)
			if err == nil && action != services.PinnedSkipped {
				s.logger.WithField("action", action).Info("[Scheduler] pinned standings refreshed")
			}
			return err
		}
		errs = append(errs,
			s.add(ctx, JobPinned, gocron.DurationJob(s.cfg.PinnedEvery), refresh),
			s.add(ctx, JobPinnedStartup,
				gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(s.clock.Now().Add(s.cfg.PinnedStartDelay))), refresh),
		)
	}

	if s.jobs.Reporter != nil && s.channels.Leaderboard != "" {
		errs = append(errs, s.add(ctx, JobChannelBoard, gocron.DurationJob(s.cfg.LeaderboardEvery), func(ctx context.Context) error {
			return s.ignoreNoTournament(s.jobs.Reporter.Post(ctx, s.channels.Leaderboard))
		}))
	}

	if s.jobs.Bots != nil && s.jobs.Prices != nil {
		errs = append(errs, s.add(ctx, JobPrices, gocron.DurationJob(s.cfg.PriceEvery), func(ctx context.Context) error {
			return s.jobs.Bots.RefreshPrices(ctx, s.jobs.Prices)
		}, gocron.WithStartAt(gocron.WithStartImmediately())))
	}

	return errors.Join(errs...)
}

// lifecycleTick skips quietly when a manual tick is already running.
func (s *Scheduler) lifecycleTick(ctx context.Context) error {
	err := s.jobs.Lifecycle.Tick(ctx)
	if errors.Is(err, services.ErrTickInProgress) {
		s.logger.Debug("[Scheduler] lifecycle tick already running, skipping")
		return nil
	}
	return err
}

func (s *Scheduler) dailyStandings(ctx context.Context) error {
	return s.ignoreNoTournament(s.jobs.Reporter.Post(ctx, s.channels.Standings))
}

func (s *Scheduler) ignoreNoTournament(err error) error {
	if errors.Is(err, services.ErrNoActiveTournament) {
		s.logger.Debug("[Scheduler] no active tournament, skipping standings post")
		return nil
	}
	return err
}

// runJob is the boundary for every job body: errors and panics are logged and
// counted, never propagated.
func (s *Scheduler) runJob(ctx context.Context, name string, fn func(context.Context) error) {
	start := s.clock.Now()
	log := s.logger.WithField("job", name)

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		err = fn(ctx)
	}()

	s.metrics.JobRun(name, err)
	if err != nil {
		log.WithError(err).Error("[Scheduler] job failed")
		return
	}
	log.WithField("took", s.clock.Since(start)).Debug("[Scheduler] job done")
}
