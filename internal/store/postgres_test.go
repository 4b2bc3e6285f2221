package store

import (
	"context"
	"testing"

	"cortex-server/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgres_SeededSchema(t *testing.T) {
	ctx := context.Background()
	s := NewPostgres(startPostgres(t), nil)

	role, err := s.FindRoleByIdentifier(ctx, "member")
	require.NoError(t, err)
	assert.Equal(t, "general", role.SectorID)

	_, err = s.FindRoleByIdentifier(ctx, "nope")
	assert.ErrorIs(t, err, ErrRoleNotFound)

	mods, err := s.ListActiveModules(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Module{{Name: "users", Endpoint: "/users", Active: true}}, mods)
}

func TestPostgres_UpsertUser(t *testing.T) {
	ctx := context.Background()
	s := NewPostgres(startPostgres(t), nil)

	desc := "first"
	u := newUser("Ada@Example.com")
	u.Description = &desc

	first, created, err := s.UpsertUser(ctx, u)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "ada@example.com", first.Email)
	require.NotNil(t, first.Description)
	assert.Equal(t, "first", *first.Description)
	assert.Nil(t, first.PhoneNumber)

	u.Description = nil
	u.Name = "Ada L."
	second, created, err := s.UpsertUser(ctx, u)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Nil(t, second.Description)

	got, err := s.GetUser(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", got.Name)
	assert.Equal(t, "hash", got.PasswordHash)

	_, err = s.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	byEmail, err := s.FindUserByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, first.ID, byEmail.ID)
}

func TestPostgres_ForeignKeyViolation(t *testing.T) {
	s := NewPostgres(startPostgres(t), nil)
	u := newUser("x@example.com")
	u.RoleID = "ghost"

	_, _, err := s.UpsertUser(context.Background(), u)
	assert.ErrorIs(t, err, ErrInvalidRelation)
}

func TestPostgres_CreateRole(t *testing.T) {
	ctx := context.Background()
	s := NewPostgres(startPostgres(t), nil)

	sector, err := s.CreateSector(ctx, model.Sector{Name: "Ops"})
	require.NoError(t, err)

	created, err := s.CreateRole(ctx, model.Role{Identifier: "admin", Name: "Admin", SectorID: sector.ID})
	require.NoError(t, err)

	got, err := s.FindRoleByIdentifier(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, sector.ID, got.SectorID)
}
