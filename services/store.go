package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"clash-bot/config"
	"clash-bot/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	// ErrMultipleActive means more than one tournament has status active.
	// The first one by start date is still returned alongside it.
	ErrMultipleActive     = errors.New("more than one active tournament")
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrNoDatabase         = errors.New("DATABASE_URL is not set")
)

// Store is the read/write surface over the tournament collections.
type Store interface {
	ActiveTournament(ctx context.Context) (*models.Tournament, error)
	UpcomingTournaments(ctx context.Context) ([]models.Tournament, error)
	Tournament(ctx context.Context, id string) (*models.Tournament, error)
	EndedSince(ctx context.Context, cutoff time.Time) ([]models.Tournament, error)
	CountResults(ctx context.Context, tournamentID string) (int64, error)
	CountParticipants(ctx context.Context, tournamentID string) (int64, error)
	HourlyScores(ctx context.Context, tournamentID string) ([]models.TournamentHourlyScore, error)
	Participants(ctx context.Context, tournamentID string) ([]models.TournamentParticipant, error)
	PlayerNames(ctx context.Context, lowerIDs []string) (map[string]string, error)
	Results(ctx context.Context, tournamentID string, limit int) ([]models.TournamentResult, error)
	MarkAnnounced(ctx context.Context, tournamentID string, kind EventKind) error
}

// DBProvider hands out one shared, pooled connection, opened on first use.
type DBProvider struct {
	cfg    config.DatabaseConfig
	logger *logrus.Logger

	mu sync.Mutex
	db *gorm.DB
}

func NewDBProvider(cfg config.DatabaseConfig, logger *logrus.Logger) *DBProvider {
	return &DBProvider{cfg: cfg, logger: logger}
}

// NewDBProviderFromDB wraps an already opened connection.
func NewDBProviderFromDB(db *gorm.DB) *DBProvider {
	return &DBProvider{db: db}
}

// DB returns the shared handle bound to ctx. A failed open is retried on the next call.
func (p *DBProvider) DB(ctx context.Context) (*gorm.DB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.db != nil {
		return p.db.WithContext(ctx), nil
	}
	if p.cfg.URL == "" {
		return nil, ErrNoDatabase
	}

	db, err := gorm.Open(postgres.Open(p.cfg.URL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(p.cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(p.cfg.MaxIdleConns)
	sqlDB.SetConnMaxIdleTime(p.cfg.MaxIdleTime)

	if p.logger != nil {
		p.logger.WithField("max_open", p.cfg.MaxOpenConns).Info("✅ Database pool ready")
	}
	p.db = db
	return db.WithContext(ctx), nil
}

// Migrate creates or updates the tournament tables.
func (p *DBProvider) Migrate(ctx context.Context) error {
	db, err := p.DB(ctx)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(
		&models.Tournament{},
		&models.TournamentParticipant{},
		&models.TournamentHourlyScore{},
		&models.TournamentResult{},
		&models.Player{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (p *DBProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return nil
	}
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	p.db = nil
	return sqlDB.Close()
}

// GormStore is the Postgres-backed Store.
type GormStore struct {
	provider *DBProvider
}

func NewGormStore(provider *DBProvider) *GormStore {
	return &GormStore{provider: provider}
}

func (s *GormStore) ActiveTournament(ctx context.Context) (*models.Tournament, error) {
	db, err := s.provider.DB(ctx)
	if err != nil {
		return nil, err
	}
	var found []models.Tournament
	if err := db.Where("status = ?", models.TournamentStatusActive).
		Order("start_date ASC").Limit(2).Find(&found).Error; err != nil {
		return nil, fmt.Errorf("query active tournament: %w", err)
	}
	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		return &found[0], nil
	default:
		return &found[0], fmt.Errorf("%w: %s and %s", ErrMultipleActive, found[0].ID, found[1].ID)
	}
}

func (s *GormStore) UpcomingTournaments(ctx context.Context) ([]models.Tournament, error) {
	db, err := s.provider.DB(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.Tournament
	if err := db.Where("status = ?", models.TournamentStatusUpcoming).
		Order("start_date ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("query upcoming tournaments: %w", err)
	}
	return out, nil
}

func (s *GormStore) Tournament(ctx context.Context, id string) (*models.Tournament, error) {
	db, err := s.provider.DB(ctx)
	if err != nil {
		return nil, err
	}
	var t models.Tournament
	if err := db.First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("query tournament %s: %w", id, err)
	}
	return &t, nil
}

func (s *GormStore) EndedSince(ctx context.Context, cutoff time.Time) ([]models.Tournament, error) {
	db, err := s.provider.DB(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.Tournament
	if err := db.Where("status = ? AND end_date >= ?", models.TournamentStatusEnded, cutoff).
		Order("end_date DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("query ended tournaments: %w", err)
	}
	return out, nil
}

func (s *GormStore) CountResults(ctx context.Context, tournamentID string) (int64, error) {
	return s.count(ctx, &models.TournamentResult{}, tournamentID)
}

func (s *GormStore) CountParticipants(ctx context.Context, tournamentID string) (int64, error) {
	return s.count(ctx, &models.TournamentParticipant{}, tournamentID)
}

func (s *GormStore) count(ctx context.Context, model any, tournamentID string) (int64, error) {
	db, err := s.provider.DB(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := db.Model(model).Where("tournament_id = ?", tournamentID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count for tournament %s: %w", tournamentID, err)
	}
	return n, nil
}

func (s *GormStore) HourlyScores(ctx context.Context, tournamentID string) ([]models.TournamentHourlyScore, error) {
	db, err := s.provider.DB(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.TournamentHourlyScore
	if err := db.Where("tournament_id = ?", tournamentID).
		Order("hour ASC, id ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("query hourly scores: %w", err)
	}
	return out, nil
}

func (s *GormStore) Participants(ctx context.Context, tournamentID string) ([]models.TournamentParticipant, error) {
	db, err := s.provider.DB(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.TournamentParticipant
	if err := db.Where("tournament_id = ?", tournamentID).
		Order("id ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	return out, nil
}

func (s *GormStore) PlayerNames(ctx context.Context, lowerIDs []string) (map[string]string, error) {
	names := make(map[string]string, len(lowerIDs))
	if len(lowerIDs) == 0 {
		return names, nil
	}
	db, err := s.provider.DB(ctx)
	if err != nil {
		return nil, err
	}
	var players []models.Player
	if err := db.Where("LOWER(user_id) IN ?", lowerIDs).Find(&players).Error; err != nil {
		return nil, fmt.Errorf("query player names: %w", err)
	}
	for _, p := range players {
		if p.PlayerName != "" {
			names[strings.ToLower(p.UserID)] = p.PlayerName
		}
	}
	return names, nil
}

func (s *GormStore) Results(ctx context.Context, tournamentID string, limit int) ([]models.TournamentResult, error) {
	db, err := s.provider.DB(ctx)
	if err != nil {
		return nil, err
	}
	q := db.Where("tournament_id = ?", tournamentID).Order("final_rank ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []models.TournamentResult
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	return out, nil
}

func (s *GormStore) MarkAnnounced(ctx context.Context, tournamentID string, kind EventKind) error {
	var column string
	switch kind {
	case EventCreated:
		column = "announced_creation"
	case EventLocked:
		column = "announced_lock"
	default:
		return fmt.Errorf("no durable flag for %q events", kind)
	}
	db, err := s.provider.DB(ctx)
	if err != nil {
		return err
	}
	res := db.Model(&models.Tournament{}).Where("id = ?", tournamentID).Update(column, true)
	if res.Error != nil {
		return fmt.Errorf("set %s on %s: %w", column, tournamentID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrTournamentNotFound
	}
	return nil
}
