package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"clash-bot/models"

	"github.com/sirupsen/logrus"
)

// PlayerStatsLimit is large enough to cover every participant.
const PlayerStatsLimit = 999

// LeaderboardService turns hourly score snapshots into ranked standings.
type LeaderboardService struct {
	store   Store
	logger  *logrus.Logger
	metrics *Metrics
}

func NewLeaderboardService(store Store, logger *logrus.Logger, metrics *Metrics) *LeaderboardService {
	return &LeaderboardService{store: store, logger: logger, metrics: metrics}
}

type dayKey struct {
	user string
	day  string
}

// AggregateScores keeps the last snapshot of each (participant, UTC day) and sums
// those per participant. Keys of the result are lower-cased participant ids.
func AggregateScores(samples []models.TournamentHourlyScore) map[string]float64 {
	last := make(map[dayKey]models.TournamentHourlyScore, len(samples))
	for _, s := range samples {
		k := dayKey{user: strings.ToLower(s.UserID), day: s.Hour.UTC().Format(time.DateOnly)}
		if prev, ok := last[k]; ok && s.Hour.Before(prev.Hour) {
			continue
		}
		last[k] = s
	}

	totals := make(map[string]float64)
	for k, s := range last {
		totals[k.user] += s.Score
	}
	return totals
}

// GetLeaderboard ranks every registered participant of a tournament.
// limit <= 0 returns everyone.
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, tournamentID string, limit int) ([]models.LeaderboardEntry, error) {
	start := time.Now()
	defer s.metrics.ObserveLeaderboard(start)

	samples, err := s.store.HourlyScores(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("load hourly scores: %w", err)
	}
	totals := AggregateScores(samples)

	participants, err := s.store.Participants(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}

	lowerIDs := make([]string, 0, len(participants))
	for _, p := range participants {
		lowerIDs = append(lowerIDs, strings.ToLower(p.UserID))
	}
	names, err := s.store.PlayerNames(ctx, lowerIDs)
	if err != nil {
		return nil, fmt.Errorf("load player names: %w", err)
	}

	entries := make([]models.LeaderboardEntry, 0, len(participants))
	for i, p := range participants {
		entries = append(entries, models.LeaderboardEntry{
			UserID:         p.UserID,
			PlayerName:     names[lowerIDs[i]],
			TotalScore:     totals[lowerIDs[i]],
			SelectedCrypto: p.SelectedCrypto,
			Direction:      p.Direction,
		})
	}

	// Stable: equal scores keep registration order.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TotalScore > entries[j].TotalScore
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// GetPlayerStats finds one wallet in the full leaderboard. A wallet that is not
// registered yields nil and no error.
func (s *LeaderboardService) GetPlayerStats(ctx context.Context, tournamentID, wallet string) (*models.LeaderboardEntry, error) {
	board, err := s.GetLeaderboard(ctx, tournamentID, PlayerStatsLimit)
	if err != nil {
		return nil, err
	}
	for i := range board {
		if strings.EqualFold(board[i].UserID, wallet) {
			return &board[i], nil
		}
	}
	return nil, nil
}

// ActiveTournament returns the active tournament, logging (not failing on) a
// second active record.
func (s *LeaderboardService) ActiveTournament(ctx context.Context) (*models.Tournament, error) {
	t, err := s.store.ActiveTournament(ctx)
	if errors.Is(err, ErrMultipleActive) {
		s.logger.WithError(err).Error("[Leaderboard] data integrity: using earliest active tournament")
		return t, nil
	}
	return t, err
}

// Standings is one rendered-ready snapshot of the active tournament.
type Standings struct {
	Tournament       models.Tournament
	Day              int
	TimeRemaining    string
	Entries          []models.LeaderboardEntry
	ParticipantCount int64
}

// Snapshot collects everything the standings card shows. nil means no active tournament.
func (s *LeaderboardService) Snapshot(ctx context.Context, now time.Time, limit int) (*Standings, error) {
	t, err := s.ActiveTournament(ctx)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, nil
	}
	entries, err := s.GetLeaderboard(ctx, t.ID, limit)
	if err != nil {
		return nil, err
	}
	count, err := s.store.CountParticipants(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("count participants: %w", err)
	}
	return &Standings{
		Tournament:       *t,
		Day:              t.Day(now),
		TimeRemaining:    t.TimeRemaining(now),
		Entries:          entries,
		ParticipantCount: count,
	}, nil
}
