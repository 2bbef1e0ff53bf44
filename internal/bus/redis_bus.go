package bus

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// taskStream is the Redis Stream the backend writes task lifecycle changes
// to. The console consumes it to cut polling latency; the pollers remain the
// source of truth when Redis is absent.
const taskStream = "task-updates"

// RedisBus consumes task updates from Redis Streams.
type RedisBus struct {
	client *redis.Client
	logger *log.Logger
}

// StreamMessage is one raw entry read from a stream.
type StreamMessage struct {
	ID     string            `json:"id"`
	Fields map[string]string `json:"fields"`
}

// TaskUpdateMessage is a task lifecycle change announced on the task stream.
type TaskUpdateMessage struct {
	TaskID    string `json:"task_id"`
	CaseID    string `json:"case_id"`
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

// StreamHandler processes raw stream messages.
type StreamHandler func(ctx context.Context, message StreamMessage) error

// NewRedisBus connects to Redis and verifies the connection.
func NewRedisBus(redisURL string, logger *log.Logger) (*RedisBus, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if logger == nil {
		logger = log.New(log.Writer(), "[RedisBus] ", log.LstdFlags)
	}

	return &RedisBus{
		client: client,
		logger: logger,
	}, nil
}

// Close closes the Redis connection.
func (rb *RedisBus) Close() error {
	return rb.client.Close()
}

// PublishTaskUpdate announces a task change. The console publishes its own
// trigger events (upload, process) so other consoles watching the same case
// refresh promptly.
func (rb *RedisBus) PublishTaskUpdate(ctx context.Context, msg TaskUpdateMessage) error {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().Unix()
	}
	fields := map[string]interface{}{
		"task_id":   msg.TaskID,
		"case_id":   msg.CaseID,
		"status":    msg.Status,
		"timestamp": msg.Timestamp,
	}

	result := rb.client.XAdd(ctx, &redis.XAddArgs{
		Stream: taskStream,
		Values: fields,
	})
	if err := result.Err(); err != nil {
		return fmt.Errorf("failed to publish task update: %w", err)
	}

	rb.logger.Printf("Published update for task %s (%s)", msg.TaskID, msg.Status)
	return nil
}

// CreateConsumerGroup creates a consumer group for a stream if it doesn't exist.
func (rb *RedisBus) CreateConsumerGroup(ctx context.Context, stream, group string) error {
	result := rb.client.XGroupCreateMkStream(ctx, stream, group, "0")
	if err := result.Err(); err != nil {
		if err.Error() != "BUSYGROUP Consumer Group name already exists" {
			return fmt.Errorf("failed to create consumer group %s for stream %s: %w", group, stream, err)
		}
	}

	rb.logger.Printf("Consumer group %s ready for stream %s", group, stream)
	return nil
}

// ReadStream reads messages from a stream using consumer groups and blocks
// until ctx is cancelled.
func (rb *RedisBus) ReadStream(ctx context.Context, stream, group, consumer string, handler StreamHandler) error {
	if err := rb.CreateConsumerGroup(ctx, stream, group); err != nil {
		return err
	}

	rb.logger.Printf("Starting stream reader for %s (group: %s, consumer: %s)", stream, group, consumer)

	for {
		select {
		case <-ctx.Done():
			rb.logger.Printf("Stream reader for %s stopping due to context cancellation", stream)
			return ctx.Err()
		default:
			result := rb.client.XReadGroup(ctx, &redis.XReadGroupArgs{
				Group:    group,
				Consumer: consumer,
				Streams:  []string{stream, ">"},
				Count:    10,
				Block:    1 * time.Second,
			})

			if err := result.Err(); err != nil {
				if err == redis.Nil {
					continue
				}
				rb.logger.Printf("Error reading from stream %s: %v", stream, err)
				time.Sleep(5 * time.Second)
				continue
			}

			for _, stream := range result.Val() {
				for _, message := range stream.Messages {
					streamMsg := StreamMessage{
						ID:     message.ID,
						Fields: make(map[string]string),
					}
					for key, value := range message.Values {
						if strValue, ok := value.(string); ok {
							streamMsg.Fields[key] = strValue
						}
					}

					if err := handler(ctx, streamMsg); err != nil {
						rb.logger.Printf("Error processing message %s: %v", message.ID, err)
						continue
					}

					if err := rb.client.XAck(ctx, stream.Stream, group, message.ID).Err(); err != nil {
						rb.logger.Printf("Error acknowledging message %s: %v", message.ID, err)
					}
				}
			}
		}
	}
}

// ReadTaskUpdates reads from the task-updates stream.
func (rb *RedisBus) ReadTaskUpdates(ctx context.Context, group, consumer string, handler func(ctx context.Context, update TaskUpdateMessage) error) error {
	streamHandler := func(ctx context.Context, message StreamMessage) error {
		update := TaskUpdateMessage{
			TaskID: message.Fields["task_id"],
			CaseID: message.Fields["case_id"],
			Status: message.Fields["status"],
		}

		if timestamp := message.Fields["timestamp"]; timestamp != "" {
			if ts, err := parseTimestamp(timestamp); err == nil {
				update.Timestamp = ts
			}
		}

		return handler(ctx, update)
	}

	return rb.ReadStream(ctx, taskStream, group, consumer, streamHandler)
}

// GetStreamInfo returns information about a stream.
func (rb *RedisBus) GetStreamInfo(ctx context.Context, stream string) (*redis.XInfoStream, error) {
	result := rb.client.XInfoStream(ctx, stream)
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to get stream info for %s: %w", stream, err)
	}
	return result.Val(), nil
}

// CleanupOldMessages trims the task stream to keep memory bounded.
func (rb *RedisBus) CleanupOldMessages(ctx context.Context, maxLen int64) error {
	result := rb.client.XTrimMaxLen(ctx, taskStream, maxLen)
	if err := result.Err(); err != nil {
		return fmt.Errorf("failed to trim stream %s: %w", taskStream, err)
	}

	rb.logger.Printf("Trimmed stream %s to max length %d", taskStream, maxLen)
	return nil
}

// parseTimestamp parses a timestamp string to int64 epoch seconds.
func parseTimestamp(timestamp string) (int64, error) {
	if timestamp == "" {
		return time.Now().Unix(), nil
	}

	// Numeric epoch (seconds or milliseconds).
	if n, err := strconv.ParseInt(timestamp, 10, 64); err == nil {
		if n > 1_000_000_000_000 {
			return n / 1000, nil
		}
		return n, nil
	}

	if ts, err := time.Parse(time.RFC3339, timestamp); err == nil {
		return ts.Unix(), nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, timestamp); err == nil {
		return ts.Unix(), nil
	}

	return time.Now().Unix(), fmt.Errorf("unable to parse timestamp: %s", timestamp)
}

// HealthCheck performs a health check on the Redis connection.
func (rb *RedisBus) HealthCheck(ctx context.Context) error {
	return rb.client.Ping(ctx).Err()
}

// GetStats returns basic statistics about the task stream.
func (rb *RedisBus) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	if info, err := rb.GetStreamInfo(ctx, taskStream); err == nil {
		stats["task_stream"] = map[string]interface{}{
			"length":         info.Length,
			"first_entry_id": info.FirstEntry.ID,
			"last_entry_id":  info.LastEntry.ID,
		}
	}

	return stats, nil
}
