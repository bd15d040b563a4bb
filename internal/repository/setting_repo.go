package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dumeirei/marketplace-pricing/internal/models"
)

// SettingRepository 配置项仓储
type SettingRepository struct {
	db *gorm.DB
}

// NewSettingRepository 创建配置项仓储
func NewSettingRepository(db *gorm.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// ListByGroup 获取分组下全部配置
func (r *SettingRepository) ListByGroup(ctx context.Context, group string) ([]*models.Setting, error) {
	var settings []*models.Setting
	err := r.db.WithContext(ctx).Where(&models.Setting{Group: group}).Find(&settings).Error
	return settings, err
}

// Get 获取单个配置
func (r *SettingRepository) Get(ctx context.Context, group, key string) (*models.Setting, error) {
	var setting models.Setting
	err := r.db.WithContext(ctx).Where(&models.Setting{Group: group, Key: key}).First(&setting).Error
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// Set 写入配置，已存在则覆盖
func (r *SettingRepository) Set(ctx context.Context, setting *models.Setting) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "group"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "type", "updated_at"}),
	}).Create(setting).Error
}
