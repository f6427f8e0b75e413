package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/notify"
	"github.com/redis/go-redis/v9"
)

const preferenceKeyPrefix = "push_pref:"

// CachedPreferences is a read-through Redis cache in front of a
// notify.PreferenceSource
type CachedPreferences struct {
	client redis.UniversalClient
	source notify.PreferenceSource
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedPreferences creates a CachedPreferences
func NewCachedPreferences(client redis.UniversalClient, source notify.PreferenceSource, ttl time.Duration, logger *slog.Logger) *CachedPreferences {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedPreferences{
		client: client,
		source: source,
		ttl:    ttl,
		logger: logger,
	}
}

// PushPreference returns the cached preference or loads and caches it. A
// cache failure falls back to the source.
func (c *CachedPreferences) PushPreference(ctx context.Context, userID string) (notify.PushPreference, error) {
	key := preferenceKeyPrefix + userID

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var pref notify.PushPreference
		if jsonErr := json.Unmarshal(raw, &pref); jsonErr == nil {
			return pref, nil
		}
		c.logger.Warn("Discarding malformed cached push preference",
			slog.String("user_id", userID),
		)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("Failed to read push preference cache",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	pref, err := c.source.PushPreference(ctx, userID)
	if err != nil {
		return notify.PushPreference{}, err
	}

	data, err := json.Marshal(pref)
	if err != nil {
		return pref, nil
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to cache push preference",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	return pref, nil
}

// Invalidate drops a cached preference after the user changes it
func (c *CachedPreferences) Invalidate(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, preferenceKeyPrefix+userID).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
