package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"cortex-server/internal/model"
	"github.com/google/uuid"
)

type Memory struct {
	mu sync.RWMutex

	stateFile string
	persistMu sync.Mutex
	logger    *slog.Logger
	now       func() time.Time

	rolesByIdentifier map[string]model.Role
	usersByID         map[string]model.User
	userIDByEmail     map[string]string
	modules           []model.Module
}

type Options struct {
	StateFile string
	Roles     []model.Role
	Modules   []model.Module
	Logger    *slog.Logger
	Now       func() time.Time
}

func NewMemory() *Memory {
	return NewMemoryWithOptions(Options{})
}

func NewMemoryWithOptions(opts Options) *Memory {
	m := &Memory{
		stateFile:         opts.StateFile,
		logger:            opts.Logger,
		now:               opts.Now,
		rolesByIdentifier: make(map[string]model.Role),
		usersByID:         make(map[string]model.User),
		userIDByEmail:     make(map[string]string),
		modules:           opts.Modules,
	}
	if m.logger == nil {
		m.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.modules == nil {
		m.modules = DefaultModules()
	}
	roles := opts.Roles
	if roles == nil {
		roles = DefaultRoles()
	}
	for _, r := range roles {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		m.rolesByIdentifier[r.Identifier] = r
	}

	if m.stateFile != "" {
		if err := m.loadFromFile(m.stateFile); err != nil {
			m.logger.Error("state load failed", "file", m.stateFile, "error", err)
		}
	}
	return m
}

func (m *Memory) FindRoleByIdentifier(_ context.Context, identifier string) (model.Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rolesByIdentifier[identifier]
	if !ok {
		return model.Role{}, ErrRoleNotFound
	}
	return r, nil
}

func (m *Memory) CreateRole(_ context.Context, role model.Role) (model.Role, error) {
	if role.Identifier == "" {
		return model.Role{}, errors.New("missing role identifier")
	}
	if role.ID == "" {
		role.ID = uuid.NewString()
	}

	m.mu.Lock()
	m.rolesByIdentifier[role.Identifier] = role
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.persist(snapshot)
	return role, nil
}

func (m *Memory) UpsertUser(_ context.Context, user model.User) (model.User, bool, error) {
	email := strings.ToLower(strings.TrimSpace(user.Email))
	if email == "" {
		return model.User{}, false, errors.New("missing email")
	}
	now := m.now()

	m.mu.Lock()
	if !m.roleExistsLocked(user.RoleID, user.SectorID) {
		m.mu.Unlock()
		return model.User{}, false, ErrInvalidRelation
	}

	created := false
	if id, ok := m.userIDByEmail[email]; ok {
		existing := m.usersByID[id]
		user.ID = existing.ID
		user.CreatedAt = existing.CreatedAt
	} else {
		created = true
		user.ID = uuid.NewString()
		user.CreatedAt = now
	}
	user.Email = email
	user.UpdatedAt = now
	m.usersByID[user.ID] = user
	m.userIDByEmail[email] = user.ID
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.persist(snapshot)
	return user, created, nil
}

func (m *Memory) roleExistsLocked(roleID, sectorID string) bool {
	for _, r := range m.rolesByIdentifier {
		if r.ID == roleID && r.SectorID == sectorID {
			return true
		}
	}
	return false
}

func (m *Memory) GetUser(_ context.Context, id string) (model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.usersByID[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return u, nil
}

func (m *Memory) FindUserByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.userIDByEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return m.usersByID[id], nil
}

func (m *Memory) ListActiveModules(_ context.Context) ([]model.Module, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Module, 0, len(m.modules))
	for _, mod := range m.modules {
		if mod.Active {
			out = append(out, mod)
		}
	}
	return out, nil
}

type persistedState struct {
	Version int          `json:"version"`
	Roles   []model.Role `json:"roles"`
	Users   []storedUser `json:"users"`
	SavedAt int64        `json:"savedAt"`
}

// storedUser keeps the password hash, which model.User hides from JSON.
type storedUser struct {
	model.User
	Password string `json:"password"`
}

func (m *Memory) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}

	var file persistedState
	if err := json.Unmarshal(data, &file); err != nil {
		return err
	}
	if file.Version != 1 {
		return errors.New("unsupported state version")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range file.Roles {
		if r.Identifier == "" {
			continue
		}
		m.rolesByIdentifier[r.Identifier] = r
	}
	for _, su := range file.Users {
		if su.ID == "" || su.Email == "" {
			continue
		}
		u := su.User
		u.PasswordHash = su.Password
		m.usersByID[u.ID] = u
		m.userIDByEmail[u.Email] = u.ID
	}
	return nil
}

func (m *Memory) snapshotLocked() *persistedState {
	if m.stateFile == "" {
		return nil
	}
	state := &persistedState{Version: 1}
	for _, r := range m.rolesByIdentifier {
		state.Roles = append(state.Roles, r)
	}
	for _, u := range m.usersByID {
		state.Users = append(state.Users, storedUser{User: u, Password: u.PasswordHash})
	}
	sort.Slice(state.Roles, func(i, j int) bool { return state.Roles[i].Identifier < state.Roles[j].Identifier })
	sort.Slice(state.Users, func(i, j int) bool { return state.Users[i].Email < state.Users[j].Email })
	return state
}

func (m *Memory) persist(state *persistedState) {
	path := m.stateFile
	if path == "" || state == nil {
		return
	}

	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		m.logger.Error("state persistence: mkdir failed", "dir", dir, "error", err)
		return
	}

	state.SavedAt = m.now().UnixMilli()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		m.logger.Error("state persistence: marshal failed", "error", err)
		return
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		m.logger.Error("state persistence: create temp failed", "error", err)
		return
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		m.logger.Error("state persistence: chmod temp failed", "error", err)
		return
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		m.logger.Error("state persistence: write temp failed", "error", err)
		return
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		m.logger.Error("state persistence: sync temp failed", "error", err)
		return
	}
	if err := tmp.Close(); err != nil {
		m.logger.Error("state persistence: close temp failed", "error", err)
		return
	}
	if err := os.Rename(tmpName, path); err != nil {
		m.logger.Error("state persistence: rename failed", "error", err)
	}
}
