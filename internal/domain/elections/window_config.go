package elections

import (
	"time"

	"github.com/google/uuid"
)

// WindowConfig schedules voting and results release. All instants are UTC; Timezone
// only records the zone operators entered them in.
type WindowConfig struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string    `gorm:"column:name;not null;uniqueIndex" json:"name"`
	VotingStart   time.Time `gorm:"column:voting_start;not null" json:"voting_start"`
	VotingEnd     time.Time `gorm:"column:voting_end;not null" json:"voting_end"`
	ResultsStart  time.Time `gorm:"column:results_start;not null" json:"results_start"`
	AllowOverride bool      `gorm:"column:allow_override;not null;default:false" json:"allow_override"`
	Timezone      string    `gorm:"column:timezone;not null" json:"timezone"`
	IsActive      bool      `gorm:"column:is_active;not null;default:false;index" json:"is_active"`
	CreatedAt     time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}

func (WindowConfig) TableName() string { return "election_windows" }
