package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/roorq/storefront/internal/domain"
	"github.com/roorq/storefront/internal/repository"
)

const (
	roleKeyPrefix    = "roorq:role:"
	roleGenKeyPrefix = "roorq:role:gen:"
	roleGenTTL       = 24 * time.Hour
)

// fillRoleScript stores ARGV[2] under KEYS[1] only while the generation in
// KEYS[2] still equals ARGV[1]. A missing generation reads as "0".
var fillRoleScript = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or '0'
if gen ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// RoleCache implements repository.RoleRepository by caching the privileged
// role lookup in Redis. Redis failures fall through to the source.
type RoleCache struct {
	client redis.Cmdable
	source repository.RoleRepository
	ttl    time.Duration
	logger *slog.Logger
}

// NewRoleCache creates a Redis-backed cache in front of source.
func NewRoleCache(client redis.Cmdable, source repository.RoleRepository, ttl time.Duration, logger *slog.Logger) *RoleCache {
	return &RoleCache{
		client: client,
		source: source,
		ttl:    ttl,
		logger: logger,
	}
}

// LookupRole returns the cached role record of userID, loading it from the
// source on a miss. The loaded record is only cached when no Invalidate ran
// since the lookup started.
func (c *RoleCache) LookupRole(ctx context.Context, userID string) (*domain.RoleRecord, error) {
	key := roleKeyPrefix + userID
	genKey := roleGenKeyPrefix + userID

	gen, genErr := c.client.Get(ctx, genKey).Result()
	if errors.Is(genErr, redis.Nil) {
		gen, genErr = "0", nil
	}

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var rec domain.RoleRecord
		if err := json.Unmarshal(data, &rec); err == nil {
			return &rec, nil
		}
		c.logger.WarnContext(ctx, "discarding malformed cached role", slog.String("user_id", userID))
	case !errors.Is(err, redis.Nil):
		c.logger.WarnContext(ctx, "role cache read failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	rec, err := c.source.LookupRole(ctx, userID)
	if err != nil {
		return nil, err
	}

	if genErr != nil {
		return rec, nil
	}
	if data, err := json.Marshal(rec); err == nil {
		stored, err := fillRoleScript.Run(ctx, c.client, []string{key, genKey},
			gen, data, c.ttl.Milliseconds()).Int()
		switch {
		case err != nil:
			c.logger.WarnContext(ctx, "role cache write failed",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		case stored == 0:
			c.logger.DebugContext(ctx, "role changed during lookup, not caching", slog.String("user_id", userID))
		}
	}
	return rec, nil
}

// Invalidate drops the cached role of userID and bumps its generation so a
// lookup already in flight does not write its record back. Call it after any
// change to the user's role or vendor status.
func (c *RoleCache) Invalidate(ctx context.Context, userID string) error {
	genKey := roleGenKeyPrefix + userID
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, roleGenTTL)
		pipe.Del(ctx, roleKeyPrefix+userID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis invalidate role: %w", err)
	}
	return nil
}
