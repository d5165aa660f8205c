// Package cache keeps professionals' weekly schedules in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/redis/go-redis/v9"
)

type ScheduleSource interface {
	ProfessionalSchedule(ctx context.Context, businessID, professionalID string) (model.WeeklySchedule, error)
}

// Schedules is a read-through cache in front of a ScheduleSource. Redis
// failures are logged and fall through to the source.
type Schedules struct {
	rdb     redis.Cmdable
	src     ScheduleSource
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewSchedules(rdb redis.Cmdable, src ScheduleSource, ttl time.Duration, logger *slog.Logger, m *metrics.Metrics) *Schedules {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Schedules{rdb: rdb, src: src, ttl: ttl, logger: logger, metrics: m}
}

func Key(businessID, professionalID string) string {
	return "schedule:" + businessID + ":" + professionalID
}

func (c *Schedules) ProfessionalSchedule(ctx context.Context, businessID, professionalID string) (model.WeeklySchedule, error) {
	if c.rdb == nil {
		return c.src.ProfessionalSchedule(ctx, businessID, professionalID)
	}
	key := Key(businessID, professionalID)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var weekly model.WeeklySchedule
		if jsonErr := json.Unmarshal(raw, &weekly); jsonErr == nil {
			c.metrics.ObserveScheduleCache("hit")
			return weekly, nil
		}
		c.logger.Warn("discarding undecodable cached schedule", "key", key)
	case errors.Is(err, redis.Nil):
	default:
		c.metrics.ObserveScheduleCache("error")
		c.logger.Warn("schedule cache read failed", "err", err, "key", key)
	}

	c.metrics.ObserveScheduleCache("miss")
	weekly, err := c.src.ProfessionalSchedule(ctx, businessID, professionalID)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(weekly); err == nil {
		if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
			c.logger.Warn("schedule cache write failed", "err", err, "key", key)
		}
	}
	return weekly, nil
}

func (c *Schedules) Invalidate(ctx context.Context, businessID, professionalID string) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, Key(businessID, professionalID)).Err()
}
