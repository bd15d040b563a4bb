// Package markup 提供卖家加价区间与加价模板的管理服务
package markup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	appErrors "github.com/dumeirei/marketplace-pricing/internal/common/errors"
	"github.com/dumeirei/marketplace-pricing/internal/common/logger"
	"github.com/dumeirei/marketplace-pricing/internal/common/metrics"
	"github.com/dumeirei/marketplace-pricing/internal/models"
	"github.com/dumeirei/marketplace-pricing/internal/pricing"
	"github.com/dumeirei/marketplace-pricing/internal/repository"
)

// 覆盖缺口的所有者类型
const (
	OwnerTemplate       = "template"
	OwnerSellerOverride = "seller_override"
)

// MarkupService 加价配置服务
type MarkupService struct {
	sellerRepo   *repository.SellerRepository
	markupRepo   *repository.SellerPriceMarkupRepository
	templateRepo *repository.MarkupTemplateRepository
	currencyRepo *repository.CurrencyRepository
	metrics      *metrics.Metrics
}

// NewMarkupService 创建加价配置服务
func NewMarkupService(db *gorm.DB, m *metrics.Metrics) *MarkupService {
	return &MarkupService{
		sellerRepo:   repository.NewSellerRepository(db),
		markupRepo:   repository.NewSellerPriceMarkupRepository(db),
		templateRepo: repository.NewMarkupTemplateRepository(db),
		currencyRepo: repository.NewCurrencyRepository(db),
		metrics:      m,
	}
}

// RangeInput 区间输入
type RangeInput struct {
	MinPrice     decimal.Decimal `json:"min_price"`
	MaxPrice     decimal.Decimal `json:"max_price"`
	MarkupAmount decimal.Decimal `json:"markup_amount"`
}

// ReplaceSellerMarkupsRequest 整体替换卖家加价区间
type ReplaceSellerMarkupsRequest struct {
	Ranges   []RangeInput `json:"ranges"`
	IsActive *bool        `json:"is_active"`
}

// ReplaceTemplateRangesRequest 整体替换模板区间
type ReplaceTemplateRangesRequest struct {
	Ranges []RangeInput `json:"ranges"`
}

// CoverageReport 加价表覆盖情况
type CoverageReport struct {
	OwnerType  string           `json:"owner_type"`
	OwnerID    int64            `json:"owner_id"`
	Currency   string           `json:"currency"`
	RangeCount int              `json:"range_count"`
	UpperBound *decimal.Decimal `json:"upper_bound,omitempty"`
	Gaps       []GapItem        `json:"gaps"`
}

// GapItem 未覆盖的价格段（开区间）
type GapItem struct {
	From decimal.Decimal `json:"from"`
	To   decimal.Decimal `json:"to"`
}

// ReplaceSellerMarkups 校验后整体替换卖家的加价区间，币种取卖家币种
func (s *MarkupService) ReplaceSellerMarkups(ctx context.Context, sellerID int64, req *ReplaceSellerMarkupsRequest) (*CoverageReport, error) {
	seller, err := s.sellerRepo.GetByID(ctx, sellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErrors.ErrSellerNotFound
		}
		return nil, appErrors.ErrDatabaseError.WithError(err)
	}
	if seller.DeletedAt.Valid {
		return nil, appErrors.ErrSellerNotFound
	}

	schedule, err := buildSchedule(seller.Currency, req.Ranges)
	if err != nil {
		return nil, err
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	rows := make([]*models.SellerPriceMarkup, 0, len(req.Ranges))
	for _, r := range schedule.Ranges() {
		rows = append(rows, &models.SellerPriceMarkup{
			Currency:     seller.Currency,
			MinPrice:     r.MinPrice,
			MaxPrice:     r.MaxPrice,
			MarkupAmount: r.MarkupAmount,
			IsActive:     active,
		})
	}
	if err := s.markupRepo.ReplaceForSeller(ctx, sellerID, rows); err != nil {
		return nil, appErrors.ErrDatabaseError.WithError(err)
	}

	logger.Info("seller markups replaced", logger.SellerID(sellerID), logger.Int("ranges", len(rows)))
	return s.report(ctx, OwnerSellerOverride, sellerID, schedule), nil
}

// ReplaceTemplateRanges 校验后整体替换模板区间
func (s *MarkupService) ReplaceTemplateRanges(ctx context.Context, templateID int64, req *ReplaceTemplateRangesRequest) (*CoverageReport, error) {
	tpl, err := s.templateRepo.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErrors.ErrTemplateNotFound
		}
		return nil, appErrors.ErrDatabaseError.WithError(err)
	}

	schedule, err := buildSchedule(tpl.Currency, req.Ranges)
	if err != nil {
		return nil, err
	}

	rows := make([]*models.MarkupTemplateRange, 0, len(req.Ranges))
	for _, r := range schedule.Ranges() {
		rows = append(rows, &models.MarkupTemplateRange{
			MinPrice:     r.MinPrice,
			MaxPrice:     r.MaxPrice,
			MarkupAmount: r.MarkupAmount,
		})
	}
	if err := s.templateRepo.ReplaceRanges(ctx, templateID, rows); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErrors.ErrTemplateNotFound
		}
		return nil, appErrors.ErrDatabaseError.WithError(err)
	}

	logger.Info("template ranges replaced", logger.TemplateID(templateID), logger.Int("ranges", len(rows)))
	return s.report(ctx, OwnerTemplate, templateID, schedule), nil
}

// SetDefaultTemplate 设置平台默认模板，同时取消其他模板的默认标记
func (s *MarkupService) SetDefaultTemplate(ctx context.Context, templateID int64) error {
	tpl, err := s.templateRepo.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return appErrors.ErrTemplateNotFound
		}
		return appErrors.ErrDatabaseError.WithError(err)
	}
	if !tpl.IsActive {
		return appErrors.ErrTemplateInactive
	}
	if err := s.templateRepo.SetDefault(ctx, templateID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return appErrors.ErrTemplateNotFound
		}
		return appErrors.ErrDatabaseError.WithError(err)
	}
	logger.Info("default markup template changed", logger.TemplateID(templateID))
	return nil
}

// TemplateCoverage 查看模板的覆盖情况
func (s *MarkupService) TemplateCoverage(ctx context.Context, templateID int64) (*CoverageReport, error) {
	tpl, err := s.templateRepo.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErrors.ErrTemplateNotFound
		}
		return nil, appErrors.ErrDatabaseError.WithError(err)
	}
	pt, err := tpl.ToPricing()
	if err != nil {
		return nil, mapScheduleError(err)
	}
	return s.report(ctx, OwnerTemplate, templateID, pt.Schedule), nil
}

// AuditCoverage 巡检所有启用模板与卖家覆盖区间的缺口，结果写入指标
func (s *MarkupService) AuditCoverage(ctx context.Context) ([]*CoverageReport, error) {
	var reports []*CoverageReport

	templates, err := s.templateRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	for _, tpl := range templates {
		pt, err := tpl.ToPricing()
		if err != nil {
			logger.Error("stored template ranges invalid", logger.TemplateID(tpl.ID), logger.Err(err))
			continue
		}
		reports = append(reports, s.report(ctx, OwnerTemplate, tpl.ID, pt.Schedule))
	}

	sellerIDs, err := s.markupRepo.ListSellerIDsWithActive(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range sellerIDs {
		rows, err := s.markupRepo.ListBySeller(ctx, id)
		if err != nil {
			return nil, err
		}
		var (
			currency string
			ranges   []pricing.MarkupRange
		)
		for _, r := range rows {
			if !r.IsActive {
				continue
			}
			currency = r.Currency
			ranges = append(ranges, r.ToPricing().MarkupRange)
		}
		schedule, err := pricing.NewMarkupSchedule(currency, ranges)
		if err != nil {
			logger.Error("stored seller markups invalid", logger.SellerID(id), logger.Err(err))
			continue
		}
		reports = append(reports, s.report(ctx, OwnerSellerOverride, id, schedule))
	}

	for _, r := range reports {
		s.metrics.SetCoverageGaps(fmt.Sprintf("%s:%d", r.OwnerType, r.OwnerID), len(r.Gaps))
		if len(r.Gaps) > 0 {
			logger.Warn("markup schedule has coverage gaps",
				logger.String("owner_type", r.OwnerType),
				logger.Int64("owner_id", r.OwnerID),
				logger.Int("gaps", len(r.Gaps)),
			)
		}
	}
	return reports, nil
}

func (s *MarkupService) report(ctx context.Context, ownerType string, ownerID int64, schedule *pricing.MarkupSchedule) *CoverageReport {
	unit := s.minorUnit(ctx, schedule.Currency())
	r := &CoverageReport{
		OwnerType:  ownerType,
		OwnerID:    ownerID,
		Currency:   schedule.Currency(),
		RangeCount: schedule.Len(),
		Gaps:       []GapItem{},
	}
	if ub, ok := schedule.UpperBound(); ok {
		r.UpperBound = &ub
	}
	for _, g := range schedule.Gaps(unit) {
		r.Gaps = append(r.Gaps, GapItem{From: g.From, To: g.To})
	}
	return r
}

// minorUnit 币种最小货币单位，币种未登记时按两位小数
func (s *MarkupService) minorUnit(ctx context.Context, code string) decimal.Decimal {
	places := pricing.DefaultDecimalPlaces
	if c, err := s.currencyRepo.GetByCode(ctx, code); err == nil {
		places = c.DecimalPlaces
	}
	return decimal.New(1, -places)
}

func buildSchedule(currency string, inputs []RangeInput) (*pricing.MarkupSchedule, error) {
	ranges := make([]pricing.MarkupRange, 0, len(inputs))
	for _, in := range inputs {
		ranges = append(ranges, pricing.MarkupRange{
			MinPrice:     in.MinPrice,
			MaxPrice:     in.MaxPrice,
			MarkupAmount: in.MarkupAmount,
		})
	}
	schedule, err := pricing.NewMarkupSchedule(strings.ToUpper(currency), ranges)
	if err != nil {
		return nil, mapScheduleError(err)
	}
	return schedule, nil
}

func mapScheduleError(err error) error {
	switch {
	case errors.Is(err, pricing.ErrOverlappingRanges):
		return appErrors.ErrOverlappingRanges.WithError(err)
	case errors.Is(err, pricing.ErrInvalidRange):
		return appErrors.ErrInvalidMarkupRange.WithError(err)
	default:
		return appErrors.ErrInternalError.WithError(err)
	}
}
