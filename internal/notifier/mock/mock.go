package mock

import (
	"context"
	"log/slog"

	"github.com/Jasmin-Patel-2110/Authantication-fullstack/internal/notifier"
)

// MockNotifier is a notifier implementation that logs messages and always
// succeeds. It is used in development mode and in tests.
type MockNotifier struct {
	logger *slog.Logger
}

// NewMockNotifier creates a new mock notifier.
func NewMockNotifier(logger *slog.Logger) *MockNotifier {
	return &MockNotifier{logger: logger}
}

// Name returns the name of this notifier.
func (n *MockNotifier) Name() string {
	return "mock"
}

// Send logs the message details instead of delivering it.
func (n *MockNotifier) Send(ctx context.Context, msg notifier.Message) error {
	n.logger.InfoContext(ctx, "mock notifier: message sent",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
	)
	return nil
}
