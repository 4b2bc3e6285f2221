// Package store is the identity store behind user creation and socket
// authentication: roles, users and the bootstrap module table.
package store

import (
	"context"
	"errors"

	"cortex-server/internal/model"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrRoleNotFound    = errors.New("role not found")
	ErrInvalidRelation = errors.New("invalid sector or role relation")
)

type Store interface {
	FindRoleByIdentifier(ctx context.Context, identifier string) (model.Role, error)
	CreateRole(ctx context.Context, role model.Role) (model.Role, error)
	// UpsertUser inserts or replaces the user with the same email and
	// reports whether a new row was created.
	UpsertUser(ctx context.Context, user model.User) (model.User, bool, error)
	GetUser(ctx context.Context, id string) (model.User, error)
	FindUserByEmail(ctx context.Context, email string) (model.User, error)
	ListActiveModules(ctx context.Context) ([]model.Module, error)
}

// DefaultModules is what a fresh store mounts.
func DefaultModules() []model.Module {
	return []model.Module{{Name: "users", Endpoint: "/users", Active: true}}
}

// DefaultRoles mirrors the seed migration so a memory store behaves like a
// freshly migrated database.
func DefaultRoles() []model.Role {
	return []model.Role{{ID: "member", Identifier: "member", Name: "Member", SectorID: "general"}}
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*Postgres)(nil)
	_ Store = (*RoleCache)(nil)
)
