package geo

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/ballot-consensus-backend/internal/domain"
	"github.com/yungbote/ballot-consensus-backend/internal/pkg/dbctx"
	"github.com/yungbote/ballot-consensus-backend/internal/pkg/logger"
)

type ElectoralTableRepo interface {
	Create(dbc dbctx.Context, tables []*types.ElectoralTable) ([]*types.ElectoralTable, error)
	GetByTableCode(dbc dbctx.Context, tableCode string) (*types.ElectoralTable, error)
	SetObserved(dbc dbctx.Context, tableCode string, observed bool) (bool, error)
}

type electoralTableRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewElectoralTableRepo(db *gorm.DB, baseLog *logger.Logger) ElectoralTableRepo {
	return &electoralTableRepo{
		db:  db,
		log: baseLog.With("repo", "ElectoralTableRepo"),
	}
}

func (r *electoralTableRepo) Create(dbc dbctx.Context, tables []*types.ElectoralTable) ([]*types.ElectoralTable, error) {
	if len(tables) == 0 {
		return []*types.ElectoralTable{}, nil
	}
	for _, t := range tables {
		if t != nil && t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
	}
	if err := dbc.Conn(r.db).Create(&tables).Error; err != nil {
		return nil, err
	}
	return tables, nil
}

func (r *electoralTableRepo) GetByTableCode(dbc dbctx.Context, tableCode string) (*types.ElectoralTable, error) {
	tableCode = strings.TrimSpace(tableCode)
	if tableCode == "" {
		return nil, nil
	}
	var out types.ElectoralTable
	if err := dbc.Conn(r.db).Where("table_code = ?", tableCode).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

// SetObserved updates the observed flag. The boolean is false when the registry has no
// row for tableCode, which callers treat as a no-op.
func (r *electoralTableRepo) SetObserved(dbc dbctx.Context, tableCode string, observed bool) (bool, error) {
	res := dbc.Conn(r.db).
		Model(&types.ElectoralTable{}).
		Where("table_code = ?", strings.TrimSpace(tableCode)).
		Updates(map[string]interface{}{
			"observed":   observed,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
