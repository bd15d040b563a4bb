// Package scheduler 按固定间隔运行后台任务：刷新配置快照、检查汇率时效、巡检加价覆盖
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/dumeirei/marketplace-pricing/internal/common/logger"
	"github.com/dumeirei/marketplace-pricing/internal/common/metrics"
)

const defaultRunTimeout = 5 * time.Minute

// Task 定时任务
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler 每个任务一个 goroutine，同一任务不会并发执行
type Scheduler struct {
	tasks      []Task
	runTimeout time.Duration
	metrics    *metrics.Metrics

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler 创建调度器，m 可为 nil
func NewScheduler(m *metrics.Metrics) *Scheduler {
	return &Scheduler{runTimeout: defaultRunTimeout, metrics: m}
}

// AddTask 注册任务，interval 不大于 0 视为关闭
func (s *Scheduler) AddTask(name string, interval time.Duration, run func(ctx context.Context) error) {
	if interval <= 0 {
		logger.Info("scheduled task disabled", logger.String("task", name))
		return
	}
	s.tasks = append(s.tasks, Task{Name: name, Interval: interval, Run: run})
}

// Tasks 已注册的任务
func (s *Scheduler) Tasks() []Task {
	return s.tasks
}

// Start 启动全部任务，每个任务先立即执行一次；ctx 取消或 Stop 时退出
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	for _, task := range s.tasks {
		s.wg.Add(1)
		go s.loop(ctx, task)
	}
	logger.Info("scheduler started", logger.Int("tasks", len(s.tasks)))
}

// Stop 取消任务并等待正在执行的一轮结束
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	logger.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, task Task) {
	defer s.wg.Done()

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	for {
		s.runOnce(ctx, task)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, task Task) {
	ctx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	start := time.Now()
	err := task.Run(ctx)
	elapsed := time.Since(start)
	s.metrics.RecordTaskRun(task.Name, err, elapsed)

	if err != nil {
		logger.Error("scheduled task failed", logger.String("task", task.Name), logger.Err(err), logger.Latency(elapsed))
		return
	}
	logger.Debug("scheduled task done", logger.String("task", task.Name), logger.Latency(elapsed))
}
