// Package redisscheduler holds night-time deferred pushes in a Redis sorted
// set scored by send time.
package redisscheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/booking/notify"
	goredis "github.com/redis/go-redis/v9"
)

const defaultKey = "booking:push:deferred"

var _ notify.Scheduler = (*Scheduler)(nil)

// Scheduler stores payloads in a hash and their send times in a sorted set
type Scheduler struct {
	client goredis.Cmdable
	key    string
	logger *slog.Logger
}

// New creates a Scheduler using key as the sorted-set name
func New(client goredis.Cmdable, key string, logger *slog.Logger) *Scheduler {
	if key == "" {
		key = defaultKey
	}
	return &Scheduler{
		client: client,
		key:    key,
		logger: logger,
	}
}

func (s *Scheduler) payloadKey() string {
	return s.key + ":payload"
}

// Schedule stores msg until at
func (s *Scheduler) Schedule(ctx context.Context, msg notify.PushMessage, at time.Time) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal push: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.payloadKey(), msg.ID, payload)
	pipe.ZAdd(ctx, s.key, goredis.Z{Score: float64(at.UnixMilli()), Member: msg.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to schedule push: %w", err)
	}

	s.logger.Debug("Push deferred",
		slog.String("id", msg.ID),
		slog.Int64("job_id", msg.JobID),
		slog.Time("send_at", at),
	)
	return nil
}

// Due removes and returns up to limit pushes whose send time is not after now.
// A member removed by a concurrent poller is skipped.
func (s *Scheduler) Due(ctx context.Context, now time.Time, limit int64) ([]notify.PushMessage, error) {
	ids, err := s.client.ZRangeByScore(ctx, s.key, &goredis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: limit,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read due pushes: %w", err)
	}

	out := make([]notify.PushMessage, 0, len(ids))
	for _, id := range ids {
		removed, err := s.client.ZRem(ctx, s.key, id).Result()
		if err != nil {
			return out, fmt.Errorf("failed to claim push %s: %w", id, err)
		}
		if removed == 0 {
			continue
		}

		raw, err := s.client.HGet(ctx, s.payloadKey(), id).Result()
		if err != nil {
			if errors.Is(err, goredis.Nil) {
				s.logger.Warn("Deferred push payload missing", slog.String("id", id))
				continue
			}
			return out, fmt.Errorf("failed to load push %s: %w", id, err)
		}
		if err := s.client.HDel(ctx, s.payloadKey(), id).Err(); err != nil {
			s.logger.Warn("Failed to delete deferred push payload",
				slog.String("id", id),
				slog.String("error", err.Error()),
			)
		}

		var msg notify.PushMessage
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			s.logger.Error("Dropping malformed deferred push",
				slog.String("id", id),
				slog.String("error", err.Error()),
			)
			continue
		}
		out = append(out, msg)
	}

	return out, nil
}

// Pending returns how many pushes are waiting
func (s *Scheduler) Pending(ctx context.Context) (int64, error) {
	n, err := s.client.ZCard(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count deferred pushes: %w", err)
	}
	return n, nil
}
