package mail

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// LogSender writes mail to the log instead of delivering it. It keeps the
// messages it saw so development tools can show them.
type LogSender struct {
	logger *zap.Logger

	mu       sync.Mutex
	messages []Message
}

// NewLogSender returns a LogSender writing to logger
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send implements Sender
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()

	s.logger.Info("mail",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("html", msg.HTML),
	)
	return nil
}

// Messages returns a copy of the logged messages
func (s *LogSender) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}
