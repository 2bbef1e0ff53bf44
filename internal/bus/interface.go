package bus

import (
	"context"
	"io"
	"log"
)

// Bus defines the interface for task-update bus implementations.
type Bus interface {
	// PublishTaskUpdate announces a task lifecycle change
	PublishTaskUpdate(ctx context.Context, msg TaskUpdateMessage) error

	// ReadTaskUpdates consumes the task-updates stream until ctx is done
	ReadTaskUpdates(ctx context.Context, group, consumer string, handler func(ctx context.Context, update TaskUpdateMessage) error) error

	// GetStats returns basic statistics about the bus
	GetStats(ctx context.Context) (map[string]interface{}, error)

	// HealthCheck performs a health check on the bus connection
	HealthCheck(ctx context.Context) error

	// CleanupOldMessages trims the task stream to maxLen entries
	CleanupOldMessages(ctx context.Context, maxLen int64) error

	// Close closes the bus connection
	Close() error
}

// NewBus creates a bus based on the Redis URL.
// If redisURL is empty or unreachable, returns a NullBus.
func NewBus(redisURL string, logger *log.Logger) Bus {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	if redisURL == "" {
		return NewNullBus(logger)
	}

	if redisBus, err := NewRedisBus(redisURL, logger); err == nil {
		return redisBus
	}

	// Fall back to polling-only operation if Redis fails.
	return NewNullBus(logger)
}
