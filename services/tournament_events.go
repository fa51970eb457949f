package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// ResultsLimit is how many final placements are loaded for a results announcement.
const ResultsLimit = 50

// ErrTickInProgress is returned by Tick while another tick is still running.
var ErrTickInProgress = errors.New("lifecycle tick already in progress")

// LifecycleService runs one lifecycle check tick: detect, announce, then record.
type LifecycleService struct {
	detector  *Detector
	store     Store
	announcer *Announcer
	logger    *logrus.Logger

	running sync.Mutex
}

func NewLifecycleService(detector *Detector, store Store, announcer *Announcer, logger *logrus.Logger) *LifecycleService {
	return &LifecycleService{detector: detector, store: store, announcer: announcer, logger: logger}
}

// Tick runs the created, locked and finalized checks in that order.
// Each check runs even if an earlier one failed. Scheduled and manual ticks share
// one guard; a tick that starts while another runs does nothing.
func (s *LifecycleService) Tick(ctx context.Context) error {
	if !s.running.TryLock() {
		return ErrTickInProgress
	}
	defer s.running.Unlock()

	_, errCreated := s.CheckCreated(ctx)
	_, errLocked := s.CheckLocked(ctx)
	_, errResults := s.CheckFinalized(ctx)
	return errors.Join(errCreated, errLocked, errResults)
}

// CheckCreated announces every upcoming tournament not yet announced.
// The flag is written after dispatch whatever the sink outcomes were, so a crash in
// between repeats the announcement on the next tick.
func (s *LifecycleService) CheckCreated(ctx context.Context) (int, error) {
	if !s.announcer.HasEnabledSink() {
		return 0, nil
	}
	pending, err := s.detector.PendingCreated(ctx)
	if err != nil {
		return 0, fmt.Errorf("check created: %w", err)
	}

	var errs []error
	for _, t := range pending {
		ann := Announcement{
			Kind:             EventCreated,
			Tournament:       t,
			ParticipantCount: s.participantCount(ctx, t.ID),
		}
		s.announcer.Dispatch(ctx, ann)

		if err := s.detector.MarkAnnounced(ctx, t.ID, EventCreated); err != nil {
			s.logger.WithError(err).WithField("tournament_id", t.ID).
				Error("[Lifecycle] announced creation but failed to persist flag; it will repeat")
			errs = append(errs, err)
			continue
		}
		s.logger.WithField("tournament_id", t.ID).Infof("[Lifecycle] announced new tournament: %s", t.Name)
	}
	return len(pending), errors.Join(errs...)
}

// CheckLocked announces the lock of the active tournament once.
func (s *LifecycleService) CheckLocked(ctx context.Context) (bool, error) {
	if !s.announcer.HasEnabledSink() {
		return false, nil
	}
	t, err := s.detector.PendingLocked(ctx)
	if err != nil {
		return false, fmt.Errorf("check locked: %w", err)
	}
	if t == nil {
		return false, nil
	}

	s.announcer.Dispatch(ctx, Announcement{
		Kind:             EventLocked,
		Tournament:       *t,
		ParticipantCount: s.participantCount(ctx, t.ID),
	})

	if err := s.detector.MarkAnnounced(ctx, t.ID, EventLocked); err != nil {
		s.logger.WithError(err).WithField("tournament_id", t.ID).
			Error("[Lifecycle] announced lock but failed to persist flag; it will repeat")
		return true, err
	}
	s.logger.WithField("tournament_id", t.ID).Infof("[Lifecycle] announced lock for: %s", t.Name)
	return true, nil
}

// CheckFinalized announces results of tournaments finalized in the last 24h,
// once per process.
func (s *LifecycleService) CheckFinalized(ctx context.Context) (int, error) {
	if !s.announcer.HasEnabledSink() {
		return 0, nil
	}
	pending, err := s.detector.PendingResults(ctx)
	if err != nil {
		return 0, fmt.Errorf("check finalized: %w", err)
	}

	var errs []error
	posted := 0
	for _, t := range pending {
		results, err := s.store.Results(ctx, t.ID, ResultsLimit)
		if err != nil {
			s.logger.WithError(err).WithField("tournament_id", t.ID).Warn("[Lifecycle] failed to load results")
			errs = append(errs, err)
			continue
		}
		s.announcer.Dispatch(ctx, Announcement{
			Kind:             EventResults,
			Tournament:       t,
			ParticipantCount: s.participantCount(ctx, t.ID),
			Results:          results,
			Podium:           PodiumFromResults(results),
		})
		s.detector.MarkResultsPosted(t.ID)
		posted++
		s.logger.WithField("tournament_id", t.ID).Infof("[Lifecycle] posted results for %s", t.Name)
	}
	return posted, errors.Join(errs...)
}

func (s *LifecycleService) participantCount(ctx context.Context, tournamentID string) int64 {
	n, err := s.store.CountParticipants(ctx, tournamentID)
	if err != nil {
		s.logger.WithError(err).WithField("tournament_id", tournamentID).Warn("[Lifecycle] participant count unavailable")
		return 0
	}
	return n
}
