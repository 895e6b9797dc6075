// Package queue consumes CRM events from a Redis list and feeds them to the
// trigger processor as event triggers.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mbarbosa/flowgate/pkg/config"
	redis "github.com/redis/go-redis/v9"
)

// Callback handles one decoded queue message.
type Callback func(ctx context.Context, triggerData map[string]any) error

// Receiver pops messages from a Redis list and invokes the callback for each.
type Receiver struct {
	cfg      config.QueueConfig
	client   redis.UniversalClient
	callback Callback
	logger   *slog.Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewReceiver(cfg config.QueueConfig, logger *slog.Logger) (*Receiver, error) {
	if cfg.Queue == "" {
		return nil, config.ErrQueueNameRequired
	}

	return &Receiver{
		cfg:    cfg,
		stopCh: make(chan struct{}),
		logger: logger.With("module", "queue_receiver", "queue", cfg.Queue),
	}, nil
}

// Start connects to Redis and begins consuming in the background.
func (r *Receiver) Start(ctx context.Context, callback Callback) error {
	r.callback = callback

	r.client = redis.NewClient(&redis.Options{
		Addr:     r.cfg.Addr,
		Password: r.cfg.Password,
		DB:       r.cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := r.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	r.logger.InfoContext(ctx, "Connected to Redis", "addr", r.cfg.Addr, "db", r.cfg.DB)

	r.wg.Add(1)

	go r.consume(ctx)

	return nil
}

func (r *Receiver) consume(ctx context.Context) {
	defer r.wg.Done()

	r.logger.InfoContext(ctx, "Starting queue consumer")

	for {
		select {
		case <-r.stopCh:
			r.logger.InfoContext(ctx, "Queue consumer stopped")

			return
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "Context cancelled, stopping queue consumer")

			return
		default:
			err := r.processMessage(ctx)
			if err != nil {
				r.logger.ErrorContext(ctx, "Error processing message", "error", err)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

func (r *Receiver) processMessage(ctx context.Context) error {
	result, err := r.client.BLPop(ctx, 1*time.Second, r.cfg.Queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}

		return fmt.Errorf("failed to pop message from queue: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	triggerData := decodeTriggerData(result[1])

	go func() {
		if err := r.callback(ctx, triggerData); err != nil {
			r.logger.ErrorContext(ctx, "Error dispatching trigger for message", "error", err)
		}
	}()

	return nil
}

// decodeTriggerData turns a raw queue message into trigger data. Messages
// that are not JSON objects (including the JSON literal null) are wrapped
// under a "message" key so the consumer never works on a nil map.
func decodeTriggerData(message string) map[string]any {
	var triggerData map[string]any
	if err := json.Unmarshal([]byte(message), &triggerData); err != nil || triggerData == nil {
		triggerData = map[string]any{"message": message}
	}

	if triggerData["timestamp"] == nil {
		triggerData["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	}

	return triggerData
}

// Stop halts consumption and closes the Redis connection.
func (r *Receiver) Stop(ctx context.Context) error {
	r.logger.InfoContext(ctx, "Stopping queue receiver")

	close(r.stopCh)
	r.wg.Wait()

	if r.client != nil {
		if err := r.client.Close(); err != nil {
			r.logger.ErrorContext(ctx, "Error closing Redis client", "error", err)
		}
	}

	return nil
}
