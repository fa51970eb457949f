package models

import "time"

// TournamentResult is the immutable final placement of one participant.
// At least one row for a tournament means finalization has completed.
type TournamentResult struct {
	ID                uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TournamentID      string    `gorm:"index;not null" json:"tournament_id"`
	UserID            string    `gorm:"not null" json:"user_id"`
	PlayerName        string    `json:"player_name,omitempty"`
	FinalRank         int       `gorm:"index" json:"final_rank"`
	TotalParticipants int       `json:"total_participants"`
	FinalScore        float64   `json:"final_score"`
	SelectedCrypto    string    `json:"selected_crypto,omitempty"`
	Direction         Direction `gorm:"type:varchar(8)" json:"direction,omitempty"`
	PrizeNFTs         int       `json:"prize_nfts"`
	PrizeClash        int64     `json:"prize_clash"`
	CompletedAt       time.Time `json:"completed_at"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// HasPrize reports whether anything was awarded for this placement.
func (r TournamentResult) HasPrize() bool {
	return r.PrizeNFTs > 0 || r.PrizeClash > 0
}

// LeaderboardEntry is a derived, never stored, standings row.
type LeaderboardEntry struct {
	Rank           int       `json:"rank"`
	UserID         string    `json:"user_id"`
	PlayerName     string    `json:"player_name,omitempty"`
	TotalScore     float64   `json:"total_score"`
	SelectedCrypto string    `json:"selected_crypto,omitempty"`
	Direction      Direction `json:"direction,omitempty"`
}
