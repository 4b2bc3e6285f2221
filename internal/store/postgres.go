package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"cortex-server/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQL error codes the store maps onto its own errors.
const (
	pgForeignKeyViolation = "23503"
)

type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres wraps a pool; the caller owns its lifetime.
func NewPostgres(pool *pgxpool.Pool, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Postgres{pool: pool, logger: logger}
}

// Connect opens and pings a pool for databaseURL.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func (p *Postgres) FindRoleByIdentifier(ctx context.Context, identifier string) (model.Role, error) {
	const query = `
		SELECT id, identifier, name, sector_id
		FROM roles
		WHERE identifier = $1`

	var r model.Role
	err := p.pool.QueryRow(ctx, query, identifier).Scan(&r.ID, &r.Identifier, &r.Name, &r.SectorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Role{}, ErrRoleNotFound
		}
		return model.Role{}, fmt.Errorf("find role: %w", err)
	}
	return r, nil
}

func (p *Postgres) CreateRole(ctx context.Context, role model.Role) (model.Role, error) {
	if role.Identifier == "" {
		return model.Role{}, errors.New("missing role identifier")
	}
	if role.ID == "" {
		role.ID = uuid.NewString()
	}

	const query = `
		INSERT INTO roles (id, identifier, name, sector_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (identifier) DO UPDATE
		SET name = EXCLUDED.name, sector_id = EXCLUDED.sector_id
		RETURNING id`

	err := p.pool.QueryRow(ctx, query, role.ID, role.Identifier, role.Name, role.SectorID).Scan(&role.ID)
	if err != nil {
		return model.Role{}, mapWriteError("create role", err)
	}
	return role, nil
}

// CreateSector exists for seeding and tests; sectors have no HTTP surface.
func (p *Postgres) CreateSector(ctx context.Context, sector model.Sector) (model.Sector, error) {
	if sector.ID == "" {
		sector.ID = uuid.NewString()
	}
	const query = `
		INSERT INTO sectors (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`
	if _, err := p.pool.Exec(ctx, query, sector.ID, sector.Name); err != nil {
		return model.Sector{}, fmt.Errorf("create sector: %w", err)
	}
	return sector, nil
}

func (p *Postgres) UpsertUser(ctx context.Context, user model.User) (model.User, bool, error) {
	email := strings.ToLower(strings.TrimSpace(user.Email))
	if email == "" {
		return model.User{}, false, errors.New("missing email")
	}

	// xmax is zero only for a freshly inserted row.
	const query = `
		INSERT INTO users (id, email, name, description, password, profile_image,
		                   phone_number, sector_id, role_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		ON CONFLICT (email) DO UPDATE
		SET name = EXCLUDED.name,
		    description = EXCLUDED.description,
		    password = EXCLUDED.password,
		    profile_image = EXCLUDED.profile_image,
		    phone_number = EXCLUDED.phone_number,
		    sector_id = EXCLUDED.sector_id,
		    role_id = EXCLUDED.role_id,
		    updated_at = now()
		RETURNING id, email, name, description, password, profile_image,
		          phone_number, sector_id, role_id, created_at, updated_at,
		          (xmax = 0) AS inserted`

	var (
		out     model.User
		created bool
	)
	err := p.pool.QueryRow(ctx, query,
		uuid.NewString(), email, user.Name, user.Description, user.PasswordHash,
		user.ProfileImage, user.PhoneNumber, user.SectorID, user.RoleID,
	).Scan(
		&out.ID, &out.Email, &out.Name, &out.Description, &out.PasswordHash, &out.ProfileImage,
		&out.PhoneNumber, &out.SectorID, &out.RoleID, &out.CreatedAt, &out.UpdatedAt,
		&created,
	)
	if err != nil {
		return model.User{}, false, mapWriteError("upsert user", err)
	}
	return out, created, nil
}

const selectUser = `
	SELECT id, email, name, description, password, profile_image,
	       phone_number, sector_id, role_id, created_at, updated_at
	FROM users`

func (p *Postgres) GetUser(ctx context.Context, id string) (model.User, error) {
	return p.queryUser(ctx, selectUser+" WHERE id = $1", id)
}

func (p *Postgres) FindUserByEmail(ctx context.Context, email string) (model.User, error) {
	return p.queryUser(ctx, selectUser+" WHERE email = $1", strings.ToLower(strings.TrimSpace(email)))
}

func (p *Postgres) queryUser(ctx context.Context, query string, arg string) (model.User, error) {
	var u model.User
	err := p.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.Name, &u.Description, &u.PasswordHash, &u.ProfileImage,
		&u.PhoneNumber, &u.SectorID, &u.RoleID, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (p *Postgres) ListActiveModules(ctx context.Context) ([]model.Module, error) {
	const query = `
		SELECT name, endpoint, active
		FROM app_modules
		WHERE active
		ORDER BY name`

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	defer rows.Close()

	var out []model.Module
	for rows.Next() {
		var m model.Module
		if err := rows.Scan(&m.Name, &m.Endpoint, &m.Active); err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	return out, nil
}

func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return ErrInvalidRelation
	}
	return fmt.Errorf("%s: %w", op, err)
}
