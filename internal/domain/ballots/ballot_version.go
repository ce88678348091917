package ballots

import (
	"time"

	"github.com/google/uuid"
)

// BallotVersion is one digitization of a polling-table report. Many versions may
// compete for the same table code; at most one per table counts toward totals.
type BallotVersion struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TableCode          string    `gorm:"column:table_code;not null;index;uniqueIndex:idx_ballot_version_table_version,priority:1" json:"table_code"`
	Version            int       `gorm:"column:version;not null;uniqueIndex:idx_ballot_version_table_version,priority:2" json:"version"`
	CountsTowardTotals bool      `gorm:"column:counts_toward_totals;not null;default:false;index" json:"counts_toward_totals"`
	SourceURI          string    `gorm:"column:source_uri" json:"source_uri,omitempty"`
	CreatedAt          time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt          time.Time `gorm:"not null" json:"updated_at"`
}

func (BallotVersion) TableName() string { return "ballot_versions" }
