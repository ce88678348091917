package attestation

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/ballot-consensus-backend/internal/domain"
	"github.com/yungbote/ballot-consensus-backend/internal/pkg/dbctx"
	"github.com/yungbote/ballot-consensus-backend/internal/pkg/logger"
)

type ListFilter struct {
	VersionID   *uuid.UUID
	SubmitterID *uuid.UUID
	Role      types.AttestationRole
	Stance    types.AttestationStance
	Limit     int
	Offset    int
}

// VersionSupport is one row of the per-table support ranking.
type VersionSupport struct {
	VersionID uuid.UUID `json:"version_id"`
	Version   int       `json:"version"`
	Support   int64     `json:"support"`
	Total     int64     `json:"total"`
}

type AttestationRepo interface {
	InsertIfAbsent(dbc dbctx.Context, att *types.Attestation) (bool, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Attestation, error)
	List(dbc dbctx.Context, f ListFilter) ([]*types.Attestation, int64, error)
	ListByVersion(dbc dbctx.Context, versionID uuid.UUID) ([]*types.Attestation, error)
	ListByVersionIDs(dbc dbctx.Context, versionIDs []uuid.UUID) ([]*types.Attestation, error)
	ListResolvableTableCodes(dbc dbctx.Context) ([]string, error)
	MostSupported(dbc dbctx.Context, tableCode string) (*VersionSupport, error)
	Delete(dbc dbctx.Context, id uuid.UUID) (bool, error)
}

type attestationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAttestationRepo(db *gorm.DB, baseLog *logger.Logger) AttestationRepo {
	return &attestationRepo{
		db:  db,
		log: baseLog.With("repo", "AttestationRepo"),
	}
}

// InsertIfAbsent inserts att unless (submitter_id, version_id) already exists.
// The boolean is false when the row was a duplicate.
func (r *attestationRepo) InsertIfAbsent(dbc dbctx.Context, att *types.Attestation) (bool, error) {
	if att == nil {
		return false, nil
	}
	if att.ID == uuid.Nil {
		att.ID = uuid.New()
	}
	if att.CreatedAt.IsZero() {
		att.CreatedAt = time.Now().UTC()
	}
	res := dbc.Conn(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "submitter_id"}, {Name: "version_id"}},
			DoNothing: true,
		}).
		Create(att)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *attestationRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Attestation, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.Attestation
	if err := dbc.Conn(r.db).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *attestationRepo) List(dbc dbctx.Context, f ListFilter) ([]*types.Attestation, int64, error) {
	filter := func(q *gorm.DB) *gorm.DB {
		if f.VersionID != nil && *f.VersionID != uuid.Nil {
			q = q.Where("version_id = ?", *f.VersionID)
		}
		if f.SubmitterID != nil && *f.SubmitterID != uuid.Nil {
			q = q.Where("submitter_id = ?", *f.SubmitterID)
		}
		if role := strings.TrimSpace(string(f.Role)); role != "" {
			q = q.Where("role = ?", role)
		}
		if stance := strings.TrimSpace(string(f.Stance)); stance != "" {
			q = q.Where("stance = ?", stance)
		}
		return q
	}

	var total int64
	if err := dbc.Conn(r.db).Model(&types.Attestation{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	var out []*types.Attestation
	if err := dbc.Conn(r.db).Scopes(filter).
		Order("created_at DESC").Order("id ASC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *attestationRepo) ListByVersion(dbc dbctx.Context, versionID uuid.UUID) ([]*types.Attestation, error) {
	var out []*types.Attestation
	if versionID == uuid.Nil {
		return out, nil
	}
	if err := dbc.Conn(r.db).
		Where("version_id = ?", versionID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *attestationRepo) ListByVersionIDs(dbc dbctx.Context, versionIDs []uuid.UUID) ([]*types.Attestation, error) {
	var out []*types.Attestation
	if len(versionIDs) == 0 {
		return out, nil
	}
	if err := dbc.Conn(r.db).
		Where("version_id IN ?", versionIDs).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListResolvableTableCodes returns every table code with at least one attestation,
// of either stance, whose case is missing or not FINAL.
func (r *attestationRepo) ListResolvableTableCodes(dbc dbctx.Context) ([]string, error) {
	var out []string
	err := dbc.Conn(r.db).
		Table("attestations AS a").
		Select("DISTINCT bv.table_code").
		Joins("JOIN ballot_versions bv ON bv.id = a.version_id").
		Joins("LEFT JOIN attestation_cases c ON c.table_code = bv.table_code").
		Where("c.id IS NULL OR c.status <> ?", string(types.CaseFinal)).
		Order("bv.table_code ASC").
		Pluck("bv.table_code", &out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MostSupported ranks a table's versions by support count, breaking ties toward the
// higher version number. Total counts attestations of every stance. Nil when no version
// of the table has support.
func (r *attestationRepo) MostSupported(dbc dbctx.Context, tableCode string) (*VersionSupport, error) {
	tableCode = strings.TrimSpace(tableCode)
	if tableCode == "" {
		return nil, nil
	}
	support := string(types.StanceSupport)
	var rows []VersionSupport
	err := dbc.Conn(r.db).
		Table("attestations AS a").
		Select("bv.id AS version_id, bv.version AS version, "+
			"SUM(CASE WHEN a.stance = ? THEN 1 ELSE 0 END) AS support, "+
			"COUNT(a.id) AS total", support).
		Joins("JOIN ballot_versions bv ON bv.id = a.version_id").
		Where("bv.table_code = ?", tableCode).
		Group("bv.id, bv.version").
		Having("SUM(CASE WHEN a.stance = ? THEN 1 ELSE 0 END) > 0", support).
		Order("support DESC").
		Order("bv.version DESC").
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *attestationRepo) Delete(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	res := dbc.Conn(r.db).Where("id = ?", id).Delete(&types.Attestation{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
