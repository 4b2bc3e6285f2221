// Package user creates and reads accounts in the identity store and tells
// connected clients about the change.
package user

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"strings"

	"cortex-server/internal/auth"
	"cortex-server/internal/hub"
	"cortex-server/internal/model"
	"cortex-server/internal/store"
)

const (
	EventUserUpdated = "user_updated"
	EventUserCreated = "user_created"
	AdminRoom        = "admins"

	profileSavedMessage = "profile saved"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Notifier is the part of the hub the service pushes through.
type Notifier interface {
	Notify(userID, message, event string) (hub.DeliveryResult, error)
	BroadcastJSON(v any, room string) (hub.DeliveryResult, error)
}

type CreateInput struct {
	Email          string  `json:"email"`
	Name           string  `json:"name"`
	Password       string  `json:"password"`
	Description    *string `json:"description"`
	ProfileImage   *string `json:"profileImage"`
	PhoneNumber    *string `json:"phoneNumber"`
	RoleIdentifier string  `json:"role_identifier"`
}

func (in CreateInput) validate() error {
	var missing []string
	if strings.TrimSpace(in.Name) == "" {
		missing = append(missing, "name")
	}
	if in.Password == "" {
		missing = append(missing, "password")
	}
	if strings.TrimSpace(in.RoleIdentifier) == "" {
		missing = append(missing, "role_identifier")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidInput, strings.Join(missing, ", "))
	}

	// bcrypt only reads the first 72 bytes.
	if len(in.Password) > 72 {
		return fmt.Errorf("%w: password too long", ErrInvalidInput)
	}

	addr, err := mail.ParseAddress(in.Email)
	if err != nil || addr.Address != strings.TrimSpace(in.Email) {
		return fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	return nil
}

type Service struct {
	store    store.Store
	notifier Notifier
	logger   *slog.Logger
}

func NewService(s store.Store, n Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{store: s, notifier: n, logger: logger}
}

// Create upserts the account keyed by email. The role decides both the
// role and sector the user lands in.
func (s *Service) Create(ctx context.Context, in CreateInput) (model.User, bool, error) {
	if err := in.validate(); err != nil {
		return model.User{}, false, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return model.User{}, false, fmt.Errorf("hash password: %w", err)
	}

	role, err := s.store.FindRoleByIdentifier(ctx, strings.TrimSpace(in.RoleIdentifier))
	if err != nil {
		return model.User{}, false, err
	}

	u, created, err := s.store.UpsertUser(ctx, model.User{
		Email:        strings.TrimSpace(in.Email),
		Name:         strings.TrimSpace(in.Name),
		Description:  in.Description,
		PasswordHash: hash,
		ProfileImage: in.ProfileImage,
		PhoneNumber:  in.PhoneNumber,
		SectorID:     role.SectorID,
		RoleID:       role.ID,
	})
	if err != nil {
		return model.User{}, false, err
	}

	s.logger.Info("user saved", "user", u.ID, "role", role.Identifier, "created", created)
	s.announce(u, created)
	return u, created, nil
}

func (s *Service) Get(ctx context.Context, id string) (model.User, error) {
	return s.store.GetUser(ctx, id)
}

// Authenticate checks email and password. Unknown accounts and wrong
// passwords both report ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (model.User, error) {
	u, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.User{}, ErrInvalidCredentials
		}
		return model.User{}, err
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		return model.User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) announce(u model.User, created bool) {
	if s.notifier == nil {
		return
	}
	if res, err := s.notifier.Notify(u.ID, profileSavedMessage, EventUserUpdated); err != nil {
		s.logger.Warn("user notify failed", "user", u.ID, "error", err)
	} else if res.Failed > 0 {
		s.logger.Warn("user notify partially failed", "user", u.ID, "failed", res.Failed)
	}

	if !created {
		return
	}
	msg := hub.Message{Event: EventUserCreated, Message: u.Email}
	if _, err := s.notifier.BroadcastJSON(msg, AdminRoom); err != nil {
		s.logger.Warn("admin broadcast failed", "user", u.ID, "error", err)
	}
}
