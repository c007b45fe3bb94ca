package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"retiree-match/internal/matching"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Config 用于调度配置。
// 周期只由匹配间隔决定，保留窗口按同一间隔计算。
type Config struct {
	Timeout time.Duration `mapstructure:"timeout"`
	// SkipStartupRun 关闭启动时的立即执行。
	SkipStartupRun bool `mapstructure:"skip_startup_run"`
}

// Runner 执行一次匹配批次。
type Runner interface {
	RunMatching(ctx context.Context, req matching.Request) (matching.Result, error)
}

// Scheduler 周期性触发全量匹配，不做互斥，批次之间相互独立。
type Scheduler struct {
	runner  Runner
	spec    string
	timeout time.Duration
	startup bool
	logger  *zap.Logger
	cron    *cron.Cron
}

// NewScheduler 创建 Scheduler，every 为匹配间隔，非正值按 10 分钟。
func NewScheduler(r Runner, cfg Config, every time.Duration, logger *zap.Logger) *Scheduler {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		runner:  r,
		spec:    everySpec(every),
		timeout: timeout,
		startup: !cfg.SkipStartupRun,
		logger:  logger.Named("scheduler"),
		cron:    cron.New(),
	}
}

// Spec 返回生效的 cron 描述。
func (s *Scheduler) Spec() string {
	return s.spec
}

// Start 注册定时任务并在启动时立即执行一次，阻塞到上下文取消且在途任务结束。
func (s *Scheduler) Start(ctx context.Context) error {
	if s.runner == nil {
		return fmt.Errorf("scheduler missing runner")
	}
	if _, err := s.cron.AddFunc(s.spec, func() { s.tick(ctx) }); err != nil {
		return fmt.Errorf("add cron job %q: %w", s.spec, err)
	}

	s.cron.Start()
	s.logger.Info("cron started", zap.String("spec", s.spec))
	var startup sync.WaitGroup
	if s.startup {
		startup.Add(1)
		go func() {
			defer startup.Done()
			s.tick(ctx)
		}()
	}

	<-ctx.Done()
	stopped := s.cron.Stop()
	<-stopped.Done()
	startup.Wait()
	s.logger.Info("cron stopped")
	return ctx.Err()
}

// RunOnce 对外暴露单次匹配接口，便于手动触发。
func (s *Scheduler) RunOnce(ctx context.Context, req matching.Request) (matching.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.runner.RunMatching(ctx, req)
}

// tick 的错误只记录，等待下一次触发。
func (s *Scheduler) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	res, err := s.RunOnce(ctx, matching.Request{})
	if err != nil {
		s.logger.Error("scheduled matching run failed", zap.Error(err))
		return
	}
	s.logger.Debug("scheduled matching run done",
		zap.String("run_id", res.Run.ID),
		zap.Int("matches", res.Matches))
}

func everySpec(every time.Duration) string {
	if every <= 0 {
		every = 10 * time.Minute
	}
	return "@every " + every.String()
}
