package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"clash-bot/models"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// FinalizedWindow bounds how long after its end date a tournament's results are announced.
const FinalizedWindow = 24 * time.Hour

// Phase is the inferred lifecycle position of a tournament.
type Phase string

const (
	PhaseUpcomingUnannounced     Phase = "upcoming-unannounced"
	PhaseUpcomingAnnounced       Phase = "upcoming-announced"
	PhaseActiveUnlocked          Phase = "active-unlocked"
	PhaseActiveLockedUnannounced Phase = "active-locked-unannounced"
	PhaseActiveLockedAnnounced   Phase = "active-locked-announced"
	PhaseEndedUnfinalized        Phase = "ended-unfinalized"
	PhaseEndedFinalized          Phase = "ended-finalized"
)

// LifecycleState is computed from stored fields and the current time; it is never persisted.
// The concrete types are Upcoming, Active and Ended.
type LifecycleState interface {
	Phase() Phase
	lifecycleState()
}

type Upcoming struct {
	Announced bool
}

type Active struct {
	Locked    bool
	Announced bool
}

type Ended struct {
	Finalized bool
}

func (Upcoming) lifecycleState() {}
func (Active) lifecycleState()   {}
func (Ended) lifecycleState()    {}

func (s Upcoming) Phase() Phase {
	if s.Announced {
		return PhaseUpcomingAnnounced
	}
	return PhaseUpcomingUnannounced
}

func (s Active) Phase() Phase {
	switch {
	case !s.Locked:
		return PhaseActiveUnlocked
	case s.Announced:
		return PhaseActiveLockedAnnounced
	default:
		return PhaseActiveLockedUnannounced
	}
}

func (s Ended) Phase() Phase {
	if s.Finalized {
		return PhaseEndedFinalized
	}
	return PhaseEndedUnfinalized
}

// Classify derives the lifecycle state. finalized is only consulted for ended tournaments.
func Classify(t models.Tournament, now time.Time, finalized bool) LifecycleState {
	switch t.Status {
	case models.TournamentStatusActive:
		return Active{Locked: !now.Before(t.LockDate), Announced: t.AnnouncedLock}
	case models.TournamentStatusEnded:
		return Ended{Finalized: finalized}
	default:
		return Upcoming{Announced: t.AnnouncedCreation}
	}
}

// Detector decides which lifecycle events are due. It holds the process-local
// record of results already posted; created/locked dedup lives on the tournament row.
type Detector struct {
	store  Store
	clock  clockwork.Clock
	logger *logrus.Logger

	mu            sync.Mutex
	postedResults map[string]struct{}
}

func NewDetector(store Store, clock clockwork.Clock, logger *logrus.Logger) *Detector {
	return &Detector{
		store:         store,
		clock:         clock,
		logger:        logger,
		postedResults: make(map[string]struct{}),
	}
}

func (d *Detector) Now() time.Time {
	return d.clock.Now()
}

// PendingCreated lists upcoming tournaments whose creation was never announced.
func (d *Detector) PendingCreated(ctx context.Context) ([]models.Tournament, error) {
	upcoming, err := d.store.UpcomingTournaments(ctx)
	if err != nil {
		return nil, err
	}
	now := d.clock.Now()
	var pending []models.Tournament
	for _, t := range upcoming {
		if Classify(t, now, false).Phase() == PhaseUpcomingUnannounced {
			pending = append(pending, t)
		}
	}
	return pending, nil
}

// PendingLocked returns the active tournament once its lock date has passed and
// the lock was not yet announced. Two active tournaments is reported as an error
// and nothing is announced.
func (d *Detector) PendingLocked(ctx context.Context) (*models.Tournament, error) {
	t, err := d.store.ActiveTournament(ctx)
	if errors.Is(err, ErrMultipleActive) {
		return nil, fmt.Errorf("data integrity: %w", err)
	}
	if err != nil || t == nil {
		return nil, err
	}
	if Classify(*t, d.clock.Now(), false).Phase() != PhaseActiveLockedUnannounced {
		return nil, nil
	}
	return t, nil
}

// RecentlyFinalized lists ended tournaments whose end date is within the last 24h
// and that have at least one result row.
func (d *Detector) RecentlyFinalized(ctx context.Context) ([]models.Tournament, error) {
	ended, err := d.store.EndedSince(ctx, d.clock.Now().Add(-FinalizedWindow))
	if err != nil {
		return nil, err
	}
	var finalized []models.Tournament
	for _, t := range ended {
		n, err := d.store.CountResults(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("count results for %s: %w", t.ID, err)
		}
		if n == 0 {
			d.logger.WithField("tournament_id", t.ID).Debug("[Lifecycle] ended but not finalized yet")
			continue
		}
		finalized = append(finalized, t)
	}
	return finalized, nil
}

// PendingResults is RecentlyFinalized minus what this process already posted.
func (d *Detector) PendingResults(ctx context.Context) ([]models.Tournament, error) {
	finalized, err := d.RecentlyFinalized(ctx)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	var pending []models.Tournament
	for _, t := range finalized {
		if _, done := d.postedResults[t.ID]; !done {
			pending = append(pending, t)
		}
	}
	return pending, nil
}

func (d *Detector) MarkResultsPosted(tournamentID string) {
	d.mu.Lock()
	d.postedResults[tournamentID] = struct{}{}
	d.mu.Unlock()
}

// MarkAnnounced persists the created/locked flag.
func (d *Detector) MarkAnnounced(ctx context.Context, tournamentID string, kind EventKind) error {
	return d.store.MarkAnnounced(ctx, tournamentID, kind)
}
