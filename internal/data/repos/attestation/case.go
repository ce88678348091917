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

type CaseFilter struct {
	Statuses     []types.CaseStatus
	Department   string
	Province     string
	Municipality string
	Limit        int
	Offset       int
}

func (f CaseFilter) hasLocation() bool {
	return strings.TrimSpace(f.Department) != "" ||
		strings.TrimSpace(f.Province) != "" ||
		strings.TrimSpace(f.Municipality) != ""
}

type CaseRepo interface {
	GetByTableCode(dbc dbctx.Context, tableCode string) (*types.Case, error)
	Upsert(dbc dbctx.Context, c *types.Case) error
	List(dbc dbctx.Context, f CaseFilter) ([]*types.Case, int64, error)
	CountByStatus(dbc dbctx.Context) (map[types.CaseStatus]int64, error)
}

type caseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCaseRepo(db *gorm.DB, baseLog *logger.Logger) CaseRepo {
	return &caseRepo{
		db:  db,
		log: baseLog.With("repo", "CaseRepo"),
	}
}

func (r *caseRepo) GetByTableCode(dbc dbctx.Context, tableCode string) (*types.Case, error) {
	tableCode = strings.TrimSpace(tableCode)
	if tableCode == "" {
		return nil, nil
	}
	var out types.Case
	if err := dbc.Conn(r.db).Where("table_code = ?", tableCode).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

// Upsert writes the case keyed by table_code. The id and created_at of an existing row
// are preserved.
func (r *caseRepo) Upsert(dbc dbctx.Context, c *types.Case) error {
	if c == nil {
		return nil
	}
	now := time.Now().UTC()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if c.ResolvedAt.IsZero() {
		c.ResolvedAt = now
	}
	return dbc.Conn(r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "table_code"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status",
				"winning_version_id",
				"rationale",
				"summary",
				"resolved_at",
				"updated_at",
			}),
		}).
		Create(c).Error
}

func (r *caseRepo) List(dbc dbctx.Context, f CaseFilter) ([]*types.Case, int64, error) {
	filter := func(q *gorm.DB) *gorm.DB {
		if len(f.Statuses) > 0 {
			statuses := make([]string, 0, len(f.Statuses))
			for _, s := range f.Statuses {
				statuses = append(statuses, string(s))
			}
			q = q.Where("attestation_cases.status IN ?", statuses)
		}
		if !f.hasLocation() {
			return q
		}
		q = q.Joins("JOIN electoral_tables et ON et.table_code = attestation_cases.table_code")
		if v := strings.TrimSpace(f.Department); v != "" {
			q = q.Where("et.department = ?", v)
		}
		if v := strings.TrimSpace(f.Province); v != "" {
			q = q.Where("et.province = ?", v)
		}
		if v := strings.TrimSpace(f.Municipality); v != "" {
			q = q.Where("et.municipality = ?", v)
		}
		return q
	}

	var total int64
	if err := dbc.Conn(r.db).Model(&types.Case{}).Scopes(filter).Count(&total).Error; err != nil {
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
	var out []*types.Case
	if err := dbc.Conn(r.db).Model(&types.Case{}).Scopes(filter).
		Select("attestation_cases.*").
		Order("attestation_cases.table_code ASC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *caseRepo) CountByStatus(dbc dbctx.Context) (map[types.CaseStatus]int64, error) {
	var rows []struct {
		Status string
		N      int64
	}
	if err := dbc.Conn(r.db).
		Model(&types.Case{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[types.CaseStatus]int64, len(rows))
	for _, row := range rows {
		out[types.CaseStatus(row.Status)] = row.N
	}
	return out, nil
}
