package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/dumeirei/marketplace-pricing/internal/models"
)

// MarkupTemplateRepository 加价模板仓储
type MarkupTemplateRepository struct {
	db *gorm.DB
}

// NewMarkupTemplateRepository 创建加价模板仓储
func NewMarkupTemplateRepository(db *gorm.DB) *MarkupTemplateRepository {
	return &MarkupTemplateRepository{db: db}
}

func orderedRanges(db *gorm.DB) *gorm.DB {
	return db.Order("min_price ASC")
}

// Create 创建模板；模板以非默认状态创建，默认模板只能通过 SetDefault 设置
func (r *MarkupTemplateRepository) Create(ctx context.Context, tpl *models.MarkupTemplate) error {
	tpl.IsDefault = false
	return r.db.WithContext(ctx).Create(tpl).Error
}

// GetByID 获取模板及其区间
func (r *MarkupTemplateRepository) GetByID(ctx context.Context, id int64) (*models.MarkupTemplate, error) {
	var tpl models.MarkupTemplate
	err := r.db.WithContext(ctx).Preload("Ranges", orderedRanges).First(&tpl, id).Error
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

// GetDefault 获取启用的默认模板
func (r *MarkupTemplateRepository) GetDefault(ctx context.Context) (*models.MarkupTemplate, error) {
	var tpl models.MarkupTemplate
	err := r.db.WithContext(ctx).
		Preload("Ranges", orderedRanges).
		Where("is_default = ? AND is_active = ?", true, true).
		First(&tpl).Error
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

// ListActive 获取启用的模板及其区间
func (r *MarkupTemplateRepository) ListActive(ctx context.Context) ([]*models.MarkupTemplate, error) {
	var templates []*models.MarkupTemplate
	err := r.db.WithContext(ctx).
		Preload("Ranges", orderedRanges).
		Where("is_active = ?", true).
		Order("id ASC").
		Find(&templates).Error
	return templates, err
}

// SetActive 启用或停用模板
func (r *MarkupTemplateRepository) SetActive(ctx context.Context, id int64, active bool) error {
	result := r.db.WithContext(ctx).Model(&models.MarkupTemplate{}).Where("id = ?", id).Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetDefault 设为默认模板，同一事务内清除其他模板的默认标记
func (r *MarkupTemplateRepository) SetDefault(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.MarkupTemplate{}).
			Where("is_default = ? AND id <> ?", true, id).
			Update("is_default", false).Error; err != nil {
			return err
		}
		result := tx.Model(&models.MarkupTemplate{}).Where("id = ?", id).Update("is_default", true)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// ReplaceRanges 在一个事务内整体替换模板区间
func (r *MarkupTemplateRepository) ReplaceRanges(ctx context.Context, templateID int64, ranges []*models.MarkupTemplateRange) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.MarkupTemplate{}).Where("id = ?", templateID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Where("template_id = ?", templateID).Delete(&models.MarkupTemplateRange{}).Error; err != nil {
			return err
		}
		if len(ranges) == 0 {
			return nil
		}
		for _, rg := range ranges {
			rg.ID = 0
			rg.TemplateID = templateID
		}
		return tx.Create(&ranges).Error
	})
}
