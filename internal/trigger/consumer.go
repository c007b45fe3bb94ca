package trigger

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Config RabbitMQ 消费配置。
type Config struct {
	URL      string        `mapstructure:"url"`
	Queue    string        `mapstructure:"queue"`
	Prefetch int           `mapstructure:"prefetch"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Consumer 从队列读取变更事件。
type Consumer struct {
	cfg     Config
	handler *Handler
	logger  *zap.Logger
}

func NewConsumer(cfg Config, h *Handler, logger *zap.Logger) *Consumer {
	if cfg.Queue == "" {
		cfg.Queue = "matching.triggers"
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{cfg: cfg, handler: h, logger: logger.Named("trigger")}
}

// Run 连接队列并持续消费，直到上下文取消或连接断开。
func (c *Consumer) Run(ctx context.Context) error {
	conn, err := amqp.Dial(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	q, err := ch.QueueDeclare(
		c.cfg.Queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	msgs, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}
	c.logger.Info("consuming", zap.String("queue", q.Name))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			c.deliver(ctx, d)
		}
	}
}

func (c *Consumer) deliver(ctx context.Context, d amqp.Delivery) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	ack, requeue := c.process(ctx, d.Body, d.Redelivered)
	var err error
	if ack {
		err = d.Ack(false)
	} else {
		err = d.Nack(false, requeue)
	}
	if err != nil {
		c.logger.Warn("acknowledge delivery failed", zap.Error(err))
	}
}

// process 返回是否确认消息，以及未确认时是否重新入队；失败的批次只重试一次。
func (c *Consumer) process(ctx context.Context, body []byte, redelivered bool) (ack, requeue bool) {
	_, err := c.handler.Handle(ctx, body)
	switch {
	case err == nil:
		return true, false
	case errors.Is(err, ErrInvalidMessage), errors.Is(err, ErrUnknownCandidate):
		c.logger.Warn("dropping trigger message", zap.ByteString("body", body), zap.Error(err))
		return false, false
	default:
		c.logger.Error("trigger matching run failed", zap.Bool("redelivered", redelivered), zap.Error(err))
		return false, !redelivered
	}
}
