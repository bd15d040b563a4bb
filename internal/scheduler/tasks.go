package scheduler

import (
	"context"

	"github.com/dumeirei/marketplace-pricing/internal/common/config"
	"github.com/dumeirei/marketplace-pricing/internal/service/exchange"
	"github.com/dumeirei/marketplace-pricing/internal/service/markup"
	"github.com/dumeirei/marketplace-pricing/internal/service/settings"
)

// 任务名称
const (
	TaskRefreshSettings     = "refresh_settings"
	TaskCheckRateStaleness  = "check_rate_staleness"
	TaskAuditMarkupCoverage = "audit_markup_coverage"
)

// TaskHandler 任务处理器
type TaskHandler struct {
	settings      *settings.Provider
	rateService   *exchange.RateService
	markupService *markup.MarkupService
}

// NewTaskHandler 创建任务处理器
func NewTaskHandler(provider *settings.Provider, rateSvc *exchange.RateService, markupSvc *markup.MarkupService) *TaskHandler {
	return &TaskHandler{
		settings:      provider,
		rateService:   rateSvc,
		markupService: markupSvc,
	}
}

// RefreshSettings 重新加载定价配置快照
func (h *TaskHandler) RefreshSettings(ctx context.Context) error {
	return h.settings.Refresh(ctx)
}

// CheckRateStaleness 检查过期汇率
func (h *TaskHandler) CheckRateStaleness(ctx context.Context) error {
	_, err := h.rateService.CheckStaleness(ctx)
	return err
}

// AuditMarkupCoverage 巡检加价表覆盖缺口
func (h *TaskHandler) AuditMarkupCoverage(ctx context.Context) error {
	_, err := h.markupService.AuditCoverage(ctx)
	return err
}

// RegisterTasks 按配置间隔注册所有任务
func RegisterTasks(s *Scheduler, h *TaskHandler, cfg *config.PricingConfig) {
	s.AddTask(TaskRefreshSettings, cfg.SettingsRefreshInterval, h.RefreshSettings)
	s.AddTask(TaskCheckRateStaleness, cfg.RateCheckInterval, h.CheckRateStaleness)
	s.AddTask(TaskAuditMarkupCoverage, cfg.CoverageAuditInterval, h.AuditMarkupCoverage)
}
