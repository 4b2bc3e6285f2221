package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	"cortex-server/internal/model"
	"github.com/redis/go-redis/v9"
)

const (
	roleKeyPrefix = "role:"
	// missing identifiers are remembered briefly so a bad client cannot
	// hammer the backing store.
	roleMissTTL = time.Minute
	roleMissing = "null"
)

// RoleCache is a cache-aside layer over Store.FindRoleByIdentifier. Every
// other method passes straight through to the wrapped store.
type RoleCache struct {
	Store
	client redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

func NewRoleCache(backend Store, client redis.Cmdable, ttl time.Duration, logger *slog.Logger) *RoleCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &RoleCache{Store: backend, client: client, ttl: ttl, logger: logger}
}

func (c *RoleCache) FindRoleByIdentifier(ctx context.Context, identifier string) (model.Role, error) {
	key := roleKeyPrefix + identifier

	data, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		if data == roleMissing {
			return model.Role{}, ErrRoleNotFound
		}
		var r model.Role
		if err := json.Unmarshal([]byte(data), &r); err == nil {
			return r, nil
		}
		c.logger.Warn("role cache: corrupt entry", "key", key)
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("role cache: get failed", "key", key, "error", err)
	}

	r, err := c.Store.FindRoleByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrRoleNotFound) {
			c.set(ctx, key, roleMissing, roleMissTTL)
		}
		return model.Role{}, err
	}

	if data, err := json.Marshal(r); err == nil {
		c.set(ctx, key, string(data), c.ttl)
	}
	return r, nil
}

func (c *RoleCache) CreateRole(ctx context.Context, role model.Role) (model.Role, error) {
	out, err := c.Store.CreateRole(ctx, role)
	if err != nil {
		return model.Role{}, err
	}
	if err := c.client.Del(ctx, roleKeyPrefix+out.Identifier).Err(); err != nil {
		c.logger.Warn("role cache: invalidate failed", "identifier", out.Identifier, "error", err)
	}
	return out, nil
}

func (c *RoleCache) set(ctx context.Context, key, value string, ttl time.Duration) {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.Warn("role cache: set failed", "key", key, "error", err)
	}
}
