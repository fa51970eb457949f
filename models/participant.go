package models

import "time"

// Direction is the participant's market call for the tournament.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// TournamentParticipant is one registered entrant.
// UserID is a wallet address and compares case-insensitively.
type TournamentParticipant struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TournamentID   string    `gorm:"index;not null" json:"tournament_id"`
	UserID         string    `gorm:"index;not null" json:"user_id"`
	SelectedCrypto string    `gorm:"type:varchar(16)" json:"selected_crypto,omitempty"`
	Direction      Direction `gorm:"type:varchar(8)" json:"direction,omitempty"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TournamentHourlyScore is an append-only running-total snapshot taken at an hour boundary.
type TournamentHourlyScore struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TournamentID string    `gorm:"not null;uniqueIndex:idx_hourly_score_key,priority:1" json:"tournament_id"`
	UserID       string    `gorm:"not null;uniqueIndex:idx_hourly_score_key,priority:2" json:"user_id"`
	Hour         time.Time `gorm:"not null;uniqueIndex:idx_hourly_score_key,priority:3" json:"hour"`
	Score        float64   `json:"score"`
}

// Player holds the display name chosen in game for a wallet.
type Player struct {
	UserID     string    `gorm:"primaryKey;type:varchar(128)" json:"user_id"`
	PlayerName string    `json:"player_name"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
