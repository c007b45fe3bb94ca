package notifier

import (
	"context"

	"go.uber.org/zap"
)

// LogSender 仅打印邮件，适合开发阶段使用。
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender 创建日志发送器，未提供 logger 时不输出。
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger.Named("mail")}
}

// Send 打印收件人、主题与纯文本正文。
func (s *LogSender) Send(ctx context.Context, msg EmailMessage) error {
	s.logger.Info("email",
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Text))
	return nil
}
