package bus

import (
	"context"
	"log"
)

// NullBus is a no-op implementation of the bus interface for when Redis is
// disabled. The pollers alone keep the state fresh in that mode.
type NullBus struct {
	logger *log.Logger
}

// NewNullBus creates a new null bus instance.
func NewNullBus(logger *log.Logger) *NullBus {
	if logger == nil {
		logger = log.New(log.Writer(), "[NullBus] ", log.LstdFlags)
	}

	return &NullBus{
		logger: logger,
	}
}

// Close is a no-op for null bus.
func (nb *NullBus) Close() error {
	return nil
}

// PublishTaskUpdate logs the update but doesn't actually publish it.
func (nb *NullBus) PublishTaskUpdate(ctx context.Context, msg TaskUpdateMessage) error {
	nb.logger.Printf("Would publish update for task %s (Redis disabled)", msg.TaskID)
	return nil
}

// ReadTaskUpdates blocks until ctx is cancelled.
func (nb *NullBus) ReadTaskUpdates(ctx context.Context, group, consumer string, handler func(ctx context.Context, update TaskUpdateMessage) error) error {
	nb.logger.Printf("Would read task updates %s:%s (Redis disabled)", group, consumer)
	<-ctx.Done()
	return ctx.Err()
}

// GetStats returns empty stats for null bus.
func (nb *NullBus) GetStats(ctx context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{
		"type":   "null",
		"status": "disabled",
	}, nil
}

// HealthCheck always returns nil for null bus.
func (nb *NullBus) HealthCheck(ctx context.Context) error {
	return nil
}

// CleanupOldMessages is a no-op for null bus.
func (nb *NullBus) CleanupOldMessages(ctx context.Context, maxLen int64) error {
	return nil
}
