// Package settings 提供定价配置快照
package settings

import (
	"context"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dumeirei/marketplace-pricing/internal/common/config"
	"github.com/dumeirei/marketplace-pricing/internal/common/logger"
	"github.com/dumeirei/marketplace-pricing/internal/models"
	"github.com/dumeirei/marketplace-pricing/internal/pricing"
	"github.com/dumeirei/marketplace-pricing/internal/repository"
)

// Snapshot 不可变的定价配置快照
type Snapshot struct {
	DefaultCurrency string
	TieBreak        pricing.TieBreakPolicy
	RateStaleAfter  time.Duration
	LoadedAt        time.Time
}

// Provider 持有当前快照，Refresh 整体替换，读取无需加锁
type Provider struct {
	repo     *repository.SettingRepository
	defaults Snapshot
	current  atomic.Pointer[Snapshot]
}

// NewProvider 创建配置提供者，初始快照取自配置文件
func NewProvider(repo *repository.SettingRepository, cfg *config.PricingConfig) *Provider {
	p := &Provider{
		repo: repo,
		defaults: Snapshot{
			DefaultCurrency: strings.ToUpper(cfg.DefaultCurrency),
			TieBreak:        pricing.ParseTieBreakPolicy(cfg.PromotionTieBreak),
			RateStaleAfter:  cfg.RateStaleAfter,
		},
	}
	initial := p.defaults
	initial.LoadedAt = time.Now()
	p.current.Store(&initial)
	return p
}

// Current 获取当前快照
func (p *Provider) Current() *Snapshot {
	return p.current.Load()
}

// Refresh 从 settings 表重建快照，表中缺失或非法的值回退到配置文件默认值
func (p *Provider) Refresh(ctx context.Context) error {
	rows, err := p.repo.ListByGroup(ctx, models.SettingGroupPricing)
	if err != nil {
		return err
	}

	next := p.defaults
	for _, row := range rows {
		switch row.Key {
		case models.SettingKeyDefaultCurrency:
			code := strings.ToUpper(strings.TrimSpace(row.Value))
			if len(code) != 3 {
				logger.Warn("invalid setting ignored", logger.String("key", row.Key), logger.String("value", row.Value))
				continue
			}
			next.DefaultCurrency = code
		case models.SettingKeyPromotionTieBreak:
			next.TieBreak = pricing.ParseTieBreakPolicy(row.Value)
		case models.SettingKeyRateStaleAfter:
			secs, err := strconv.Atoi(strings.TrimSpace(row.Value))
			if err != nil || secs <= 0 {
				logger.Warn("invalid setting ignored", logger.String("key", row.Key), logger.String("value", row.Value))
				continue
			}
			next.RateStaleAfter = time.Duration(secs) * time.Second
		}
	}
	next.LoadedAt = time.Now()

	prev := p.current.Swap(&next)
	if prev == nil || prev.DefaultCurrency != next.DefaultCurrency || prev.TieBreak != next.TieBreak || prev.RateStaleAfter != next.RateStaleAfter {
		logger.Info("pricing settings reloaded",
			logger.Currency(next.DefaultCurrency),
			logger.String("tie_break", string(next.TieBreak)),
			logger.Duration("rate_stale_after", next.RateStaleAfter),
		)
	}
	return nil
}
