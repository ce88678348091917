package elections

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/ballot-consensus-backend/internal/domain"
	"github.com/yungbote/ballot-consensus-backend/internal/pkg/dbctx"
	"github.com/yungbote/ballot-consensus-backend/internal/pkg/logger"
)

type WindowConfigRepo interface {
	Create(dbc dbctx.Context, cfg *types.WindowConfig) (*types.WindowConfig, error)
	GetActive(dbc dbctx.Context) (*types.WindowConfig, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.WindowConfig, error)
	List(dbc dbctx.Context) ([]*types.WindowConfig, error)
	SetOverride(dbc dbctx.Context, id uuid.UUID, allow bool) error
	Update(dbc dbctx.Context, cfg *types.WindowConfig) error
}

type windowConfigRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWindowConfigRepo(db *gorm.DB, baseLog *logger.Logger) WindowConfigRepo {
	return &windowConfigRepo{
		db:  db,
		log: baseLog.With("repo", "WindowConfigRepo"),
	}
}

// Create stores cfg. When cfg is active every other config is deactivated in the same
// transaction, so at most one stays active.
func (r *windowConfigRepo) Create(dbc dbctx.Context, cfg *types.WindowConfig) (*types.WindowConfig, error) {
	if cfg == nil {
		return nil, nil
	}
	if cfg.ID == uuid.Nil {
		cfg.ID = uuid.New()
	}
	now := time.Now().UTC()
	err := dbc.Conn(r.db).Transaction(func(txx *gorm.DB) error {
		if cfg.IsActive {
			if err := txx.Model(&types.WindowConfig{}).
				Where("is_active = ?", true).
				Updates(map[string]interface{}{
					"is_active":  false,
					"updated_at": now,
				}).Error; err != nil {
				return err
			}
		}
		return txx.Create(cfg).Error
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (r *windowConfigRepo) GetActive(dbc dbctx.Context) (*types.WindowConfig, error) {
	var out types.WindowConfig
	if err := dbc.Conn(r.db).
		Where("is_active = ?", true).
		Order("created_at DESC").
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *windowConfigRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.WindowConfig, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.WindowConfig
	if err := dbc.Conn(r.db).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *windowConfigRepo) List(dbc dbctx.Context) ([]*types.WindowConfig, error) {
	var out []*types.WindowConfig
	if err := dbc.Conn(r.db).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *windowConfigRepo) SetOverride(dbc dbctx.Context, id uuid.UUID, allow bool) error {
	res := dbc.Conn(r.db).
		Model(&types.WindowConfig{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"allow_override": allow,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Update writes cfg's editable columns. Activation is not touched.
func (r *windowConfigRepo) Update(dbc dbctx.Context, cfg *types.WindowConfig) error {
	if cfg == nil || cfg.ID == uuid.Nil {
		return gorm.ErrRecordNotFound
	}
	cfg.UpdatedAt = time.Now().UTC()
	res := dbc.Conn(r.db).
		Model(&types.WindowConfig{}).
		Where("id = ?", cfg.ID).
		Updates(map[string]interface{}{
			"name":           cfg.Name,
			"voting_start":   cfg.VotingStart,
			"voting_end":     cfg.VotingEnd,
			"results_start":  cfg.ResultsStart,
			"allow_override": cfg.AllowOverride,
			"timezone":       cfg.Timezone,
			"updated_at":     cfg.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
