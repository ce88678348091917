package attestation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type CaseStatus string

const (
	CaseUnresolved CaseStatus = "UNRESOLVED"
	CasePending    CaseStatus = "PENDING"
	CaseDisputed   CaseStatus = "DISPUTED"
	CaseAgreed     CaseStatus = "AGREED"
	CaseFinal      CaseStatus = "FINAL"
)

var AllCaseStatuses = []CaseStatus{CaseUnresolved, CasePending, CaseDisputed, CaseAgreed, CaseFinal}

func (s CaseStatus) Valid() bool {
	for _, v := range AllCaseStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Terminal reports whether the resolver must leave the case untouched.
func (s CaseStatus) Terminal() bool { return s == CaseFinal }

// Case is the durable resolution record for one table code.
type Case struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TableCode        string         `gorm:"column:table_code;not null;uniqueIndex" json:"table_code"`
	Status           CaseStatus     `gorm:"column:status;type:varchar(16);not null;index" json:"status"`
	WinningVersionID *uuid.UUID     `gorm:"type:uuid;column:winning_version_id" json:"winning_version_id,omitempty"`
	Rationale        string         `gorm:"column:rationale;not null;default:''" json:"rationale"`
	Summary          datatypes.JSON `gorm:"column:summary" json:"summary,omitempty"`
	ResolvedAt       time.Time      `gorm:"column:resolved_at;not null;index" json:"resolved_at"`
	CreatedAt        time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null" json:"updated_at"`
}

func (Case) TableName() string { return "attestation_cases" }
