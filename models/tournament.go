package models

import (
	"encoding/json"
	"strconv"
	"time"

	"gorm.io/datatypes"
)

// TournamentStatus only ever moves upcoming → active → ended.
type TournamentStatus string

const (
	TournamentStatusUpcoming TournamentStatus = "upcoming"
	TournamentStatusActive   TournamentStatus = "active"
	TournamentStatusEnded    TournamentStatus = "ended"
)

// Tournament is one weekly Crypto Clash tournament.
// Status is owned by the game backend; this service only writes the two announced flags.
type Tournament struct {
	ID             string           `json:"id" gorm:"primaryKey;type:varchar(64)"`
	SeasonID       string           `json:"season_id" gorm:"index"`
	Name           string           `json:"name" gorm:"not null"`
	Description    string           `json:"description,omitempty"`
	StartDate      time.Time        `json:"start_date" gorm:"not null"`
	LockDate       time.Time        `json:"lock_date" gorm:"not null"`
	EndDate        time.Time        `json:"end_date" gorm:"not null;index"`
	Status         TournamentStatus `json:"status" gorm:"type:varchar(16);index;default:'upcoming'"`
	WeekNumber     int              `json:"week_number"`
	LeagueCategory string           `json:"league_category"`
	Prizes         datatypes.JSON   `json:"prizes,omitempty" gorm:"type:jsonb"`

	// Persisted so a restart does not re-announce.
	AnnouncedCreation bool `json:"announced_creation" gorm:"default:false"`
	AnnouncedLock     bool `json:"announced_lock" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// PrizeTable decodes the stored prize table, falling back to DefaultPrizes when
// the column is empty or unreadable.
func (t Tournament) PrizeTable() []Prize {
	if len(t.Prizes) == 0 {
		return DefaultPrizes()
	}
	var prizes []Prize
	if err := json.Unmarshal(t.Prizes, &prizes); err != nil || len(prizes) == 0 {
		return DefaultPrizes()
	}
	return prizes
}

// SetPrizeTable encodes prizes into the jsonb column.
func (t *Tournament) SetPrizeTable(prizes []Prize) error {
	raw, err := json.Marshal(prizes)
	if err != nil {
		return err
	}
	t.Prizes = datatypes.JSON(raw)
	return nil
}

// Day is the 1-based tournament day at now, clamped to 1..7.
func (t Tournament) Day(now time.Time) int {
	day := int(now.Sub(t.StartDate)/(24*time.Hour)) + 1
	return max(1, min(day, 7))
}

// TimeRemaining renders the time left until EndDate as "3d 4h", "5h" or "Ended".
func (t Tournament) TimeRemaining(now time.Time) string {
	left := t.EndDate.Sub(now)
	if left <= 0 {
		return "Ended"
	}
	days := int(left / (24 * time.Hour))
	hours := int((left % (24 * time.Hour)) / time.Hour)
	if days > 0 {
		return strconv.Itoa(days) + "d " + strconv.Itoa(hours) + "h"
	}
	return strconv.Itoa(hours) + "h"
}

// DurationDays is the rounded number of days between start and end.
func (t Tournament) DurationDays() int {
	d := t.EndDate.Sub(t.StartDate).Hours() / 24
	return int(d + 0.5)
}
