package attestation

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleJury     Role = "jury"
	RoleObserver Role = "observer"
)

func (r Role) Valid() bool { return r == RoleJury || r == RoleObserver }

type Stance string

const (
	StanceSupport Stance = "support"
	StanceReject  Stance = "reject"
)

func (s Stance) Valid() bool { return s == StanceSupport || s == StanceReject }

func ParseRole(raw string) Role     { return Role(strings.ToLower(strings.TrimSpace(raw))) }
func ParseStance(raw string) Stance { return Stance(strings.ToLower(strings.TrimSpace(raw))) }

// Attestation is an endorsement or rejection of one version by one submitter.
// (submitter_id, version_id) is unique; rows are never updated.
type Attestation struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	VersionID   uuid.UUID `gorm:"type:uuid;column:version_id;not null;index;uniqueIndex:idx_attestation_submitter_version,priority:2" json:"version_id"`
	SubmitterID uuid.UUID `gorm:"type:uuid;column:submitter_id;not null;index;uniqueIndex:idx_attestation_submitter_version,priority:1" json:"submitter_id"`
	Role        Role      `gorm:"column:role;type:varchar(16);not null;index" json:"role"`
	Stance      Stance    `gorm:"column:stance;type:varchar(16);not null;index" json:"stance"`
	CreatedAt   time.Time `gorm:"not null;index" json:"created_at"`
}

func (Attestation) TableName() string { return "attestations" }
