package notifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"retiree-match/internal/model"

	"go.uber.org/zap"
)

// Inbox 持久化通知并查询收件人。
type Inbox interface {
	AppendNotification(ctx context.Context, userID string, payload model.NotificationPayload) (model.Notification, error)
	FindUser(ctx context.Context, id string) (model.User, error)
}

// Mailer 邮件兜底通道。
type Mailer interface {
	Send(ctx context.Context, to string, payload model.NotificationPayload) error
}

// DeliveryRecorder 投递结果指标。
type DeliveryRecorder interface {
	Delivery(channel string, ok bool)
}

// DispatcherConfig 投递参数。
type DispatcherConfig struct {
	LiveTimeout  time.Duration `mapstructure:"live_timeout"`
	EmailTimeout time.Duration `mapstructure:"email_timeout"`
}

// Dispatcher 先写收件箱，再尝试实时推送，未确认时异步发送邮件。
type Dispatcher struct {
	inbox   Inbox
	live    LivePublisher
	mailer  Mailer
	metrics DeliveryRecorder
	cfg     DispatcherConfig
	logger  *zap.Logger

	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// NewDispatcher 创建投递器；live 或 mailer 为空时跳过对应通道。
func NewDispatcher(inbox Inbox, live LivePublisher, mailer Mailer, metrics DeliveryRecorder, cfg DispatcherConfig, logger *zap.Logger) *Dispatcher {
	if cfg.LiveTimeout <= 0 {
		cfg.LiveTimeout = time.Second
	}
	if cfg.EmailTimeout <= 0 {
		cfg.EmailTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		inbox:   inbox,
		live:    live,
		mailer:  mailer,
		metrics: metrics,
		cfg:     cfg,
		logger:  logger.Named("notifier"),
	}
}

// Notify 投递一条通知，只有收件箱写入失败会返回错误。
func (d *Dispatcher) Notify(ctx context.Context, userID string, payload model.NotificationPayload) error {
	stored, err := d.inbox.AppendNotification(ctx, userID, payload)
	if err != nil {
		return fmt.Errorf("append notification for %s: %w", userID, err)
	}
	d.record("inbox", true)

	if d.deliverLive(ctx, userID, stored) {
		return nil
	}
	d.fallback(userID, payload)
	return nil
}

func (d *Dispatcher) deliverLive(ctx context.Context, userID string, n model.Notification) bool {
	if d.live == nil {
		return false
	}
	liveCtx, cancel := context.WithTimeout(ctx, d.cfg.LiveTimeout)
	defer cancel()

	ok, err := d.live.Deliver(liveCtx, userID, n)
	if err != nil {
		d.logger.Warn("live delivery failed", zap.String("user", userID), zap.Error(err))
	}
	d.record("live", ok && err == nil)
	return ok && err == nil
}

// fallback 在后台发送邮件，不阻塞调用方。
func (d *Dispatcher) fallback(userID string, payload model.NotificationPayload) {
	if d.mailer == nil {
		return
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Warn("dispatcher closed, email skipped", zap.String("user", userID))
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.EmailTimeout)
		defer cancel()

		if err := d.sendEmail(ctx, userID, payload); err != nil {
			d.record("email", false)
			d.logger.Error("email fallback failed", zap.String("user", userID), zap.Error(err))
			return
		}
		d.record("email", true)
	}()
}

func (d *Dispatcher) sendEmail(ctx context.Context, userID string, payload model.NotificationPayload) error {
	user, err := d.inbox.FindUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	return d.mailer.Send(ctx, user.Email, payload)
}

func (d *Dispatcher) record(channel string, ok bool) {
	if d.metrics != nil {
		d.metrics.Delivery(channel, ok)
	}
}

// Wait 等待已排队的邮件发送完成。
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close 拒绝新的邮件任务并等待在途任务。
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}
