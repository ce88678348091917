package geo

import (
	"time"

	"github.com/google/uuid"
)

// ElectoralTable is the reference-registry record for a polling table. The registry
// owns it; the resolver only writes Observed.
type ElectoralTable struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TableCode    string    `gorm:"column:table_code;not null;uniqueIndex" json:"table_code"`
	TableNumber  string    `gorm:"column:table_number;not null" json:"table_number"`
	Department   string    `gorm:"column:department;index" json:"department"`
	Province     string    `gorm:"column:province;index" json:"province"`
	Municipality string    `gorm:"column:municipality;index" json:"municipality"`
	Observed     bool      `gorm:"column:observed;not null;default:false" json:"observed"`
	Active       bool      `gorm:"column:active;not null;default:true" json:"active"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}

func (ElectoralTable) TableName() string { return "electoral_tables" }
