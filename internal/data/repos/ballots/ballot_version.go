package ballots

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/ballot-consensus-backend/internal/domain"
	"github.com/yungbote/ballot-consensus-backend/internal/pkg/dbctx"
	"github.com/yungbote/ballot-consensus-backend/internal/pkg/logger"
)

type BallotVersionRepo interface {
	Create(dbc dbctx.Context, versions []*types.BallotVersion) ([]*types.BallotVersion, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.BallotVersion, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.BallotVersion, error)
	ListByTableCode(dbc dbctx.Context, tableCode string) ([]*types.BallotVersion, error)
	GetCounted(dbc dbctx.Context, tableCode string) (*types.BallotVersion, error)
	ClearCountsForTable(dbc dbctx.Context, tableCode string) (int64, error)
	SetCounts(dbc dbctx.Context, id uuid.UUID) error
}

type ballotVersionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBallotVersionRepo(db *gorm.DB, baseLog *logger.Logger) BallotVersionRepo {
	return &ballotVersionRepo{
		db:  db,
		log: baseLog.With("repo", "BallotVersionRepo"),
	}
}

func (r *ballotVersionRepo) Create(dbc dbctx.Context, versions []*types.BallotVersion) ([]*types.BallotVersion, error) {
	if len(versions) == 0 {
		return []*types.BallotVersion{}, nil
	}
	for _, v := range versions {
		if v == nil {
			continue
		}
		if v.ID == uuid.Nil {
			v.ID = uuid.New()
		}
		v.TableCode = strings.TrimSpace(v.TableCode)
	}
	if err := dbc.Conn(r.db).Create(&versions).Error; err != nil {
		return nil, err
	}
	return versions, nil
}

func (r *ballotVersionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.BallotVersion, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.BallotVersion
	if err := dbc.Conn(r.db).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *ballotVersionRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.BallotVersion, error) {
	var out []*types.BallotVersion
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.Conn(r.db).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ballotVersionRepo) ListByTableCode(dbc dbctx.Context, tableCode string) ([]*types.BallotVersion, error) {
	var out []*types.BallotVersion
	tableCode = strings.TrimSpace(tableCode)
	if tableCode == "" {
		return out, nil
	}
	if err := dbc.Conn(r.db).
		Where("table_code = ?", tableCode).
		Order("version ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ballotVersionRepo) GetCounted(dbc dbctx.Context, tableCode string) (*types.BallotVersion, error) {
	tableCode = strings.TrimSpace(tableCode)
	if tableCode == "" {
		return nil, nil
	}
	var out types.BallotVersion
	if err := dbc.Conn(r.db).
		Where("table_code = ? AND counts_toward_totals = ?", tableCode, true).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *ballotVersionRepo) ClearCountsForTable(dbc dbctx.Context, tableCode string) (int64, error) {
	res := dbc.Conn(r.db).
		Model(&types.BallotVersion{}).
		Where("table_code = ? AND counts_toward_totals = ?", strings.TrimSpace(tableCode), true).
		Updates(map[string]interface{}{
			"counts_toward_totals": false,
			"updated_at":           time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *ballotVersionRepo) SetCounts(dbc dbctx.Context, id uuid.UUID) error {
	res := dbc.Conn(r.db).
		Model(&types.BallotVersion{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"counts_toward_totals": true,
			"updated_at":           time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
