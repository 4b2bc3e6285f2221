package store

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"cortex-server/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStore struct {
	Store
	lookups atomic.Int32
}

func (c *countingStore) FindRoleByIdentifier(ctx context.Context, identifier string) (model.Role, error) {
	c.lookups.Add(1)
	return c.Store.FindRoleByIdentifier(ctx, identifier)
}

func TestRoleCache_CachesHitsAndMisses(t *testing.T) {
	ctx := context.Background()
	backend := &countingStore{Store: NewMemory()}
	c := NewRoleCache(backend, startRedis(t), time.Minute, nil)

	for i := 0; i < 3; i++ {
		role, err := c.FindRoleByIdentifier(ctx, "member")
		require.NoError(t, err)
		assert.Equal(t, "general", role.SectorID)
	}
	assert.Equal(t, int32(1), backend.lookups.Load())

	for i := 0; i < 2; i++ {
		_, err := c.FindRoleByIdentifier(ctx, "ghost")
		assert.ErrorIs(t, err, ErrRoleNotFound)
	}
	assert.Equal(t, int32(2), backend.lookups.Load())
}

func TestRoleCache_CreateRoleInvalidates(t *testing.T) {
	ctx := context.Background()
	backend := &countingStore{Store: NewMemory()}
	c := NewRoleCache(backend, startRedis(t), time.Minute, nil)

	_, err := c.FindRoleByIdentifier(ctx, "admin")
	require.ErrorIs(t, err, ErrRoleNotFound)

	_, err = c.CreateRole(ctx, model.Role{Identifier: "admin", Name: "Admin", SectorID: "general"})
	require.NoError(t, err)

	role, err := c.FindRoleByIdentifier(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, "Admin", role.Name)
}

func TestRoleCache_PassesThroughUsers(t *testing.T) {
	ctx := context.Background()
	c := NewRoleCache(NewMemory(), startRedis(t), time.Minute, nil)

	u, created, err := c.UpsertUser(ctx, newUser("ada@example.com"))
	require.NoError(t, err)
	assert.True(t, created)

	got, err := c.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)
}
