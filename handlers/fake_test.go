package handlers

import (
	"context"
	"io"
	"strings"
	"time"

	"clash-bot/models"
	"clash-bot/services"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

var weekStart = time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// memStore is a read-mostly services.Store over fixed rows.
type memStore struct {
	Active       *models.Tournament
	Upcoming     []models.Tournament
	Ended        []models.Tournament
	Entrants     []models.TournamentParticipant
	Scores       []models.TournamentHourlyScore
	Names        map[string]string
	ResultRows   map[string][]models.TournamentResult
	Err          error
}

func (m *memStore) ActiveTournament(context.Context) (*models.Tournament, error) {
	return m.Active, m.Err
}

func (m *memStore) UpcomingTournaments(context.Context) ([]models.Tournament, error) {
	return m.Upcoming, m.Err
}

func (m *memStore) Tournament(_ context.Context, id string) (*models.Tournament, error) {
	if m.Active != nil && m.Active.ID == id {
		return m.Active, nil
	}
	return nil, services.ErrTournamentNotFound
}

func (m *memStore) EndedSince(_ context.Context, cutoff time.Time) ([]models.Tournament, error) {
	var out []models.Tournament
	for _, t := range m.Ended {
		if !t.EndDate.Before(cutoff) {
			out = append(out, t)
		}
	}
	return out, m.Err
}

func (m *memStore) CountResults(_ context.Context, id string) (int64, error) {
	return int64(len(m.ResultRows[id])), m.Err
}

func (m *memStore) CountParticipants(context.Context, string) (int64, error) {
	return int64(len(m.Entrants)), m.Err
}

func (m *memStore) HourlyScores(context.Context, string) ([]models.TournamentHourlyScore, error) {
	return m.Scores, m.Err
}

func (m *memStore) Participants(context.Context, string) ([]models.TournamentParticipant, error) {
	return m.Entrants, m.Err
}

func (m *memStore) PlayerNames(_ context.Context, lowerIDs []string) (map[string]string, error) {
	out := make(map[string]string)
	for _, id := range lowerIDs {
		if n, ok := m.Names[strings.ToLower(id)]; ok {
			out[id] = n
		}
	}
	return out, m.Err
}

func (m *memStore) Results(_ context.Context, id string, limit int) ([]models.TournamentResult, error) {
	rows := m.ResultRows[id]
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, m.Err
}

func (m *memStore) MarkAnnounced(context.Context, string, services.EventKind) error {
	return m.Err
}

func activeWeek() *memStore {
	return &memStore{
		Active: &models.Tournament{
			ID: "t10", Name: "Weekly Tournament #10", Status: models.TournamentStatusActive, WeekNumber: 10,
			StartDate: weekStart, LockDate: weekStart.Add(24 * time.Hour), EndDate: weekStart.Add(7 * 24 * time.Hour),
		},
		Entrants: []models.TournamentParticipant{
			{UserID: "0xAAA0000000000000000000000000000000000001", SelectedCrypto: "BTC", Direction: models.DirectionUp},
			{UserID: "0xbbb0000000000000000000000000000000000002", SelectedCrypto: "ETH", Direction: models.DirectionDown},
		},
		Scores: []models.TournamentHourlyScore{
			{UserID: "0xaaa0000000000000000000000000000000000001", Hour: weekStart.Add(3 * time.Hour), Score: 12},
			{UserID: "0xbbb0000000000000000000000000000000000002", Hour: weekStart.Add(3 * time.Hour), Score: 30},
		},
		Names: map[string]string{"0xbbb0000000000000000000000000000000000002": "Bob"},
	}
}

func newHandlerDeps(store *memStore) (*services.LeaderboardService, *services.Detector, *services.EmbedRenderer, clockwork.Clock) {
	clock := clockwork.NewFakeClockAt(weekStart.Add(50 * time.Hour))
	logger := quietLogger()
	return services.NewLeaderboardService(store, logger, nil),
		services.NewDetector(store, clock, logger),
		services.NewEmbedRenderer("https://www.cryptoclash.ink", clock),
		clock
}
