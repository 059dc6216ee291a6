package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	players "github.com/AdamBeresnev/charter-pool/internal/player"
	"github.com/AdamBeresnev/charter-pool/internal/store"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

type AdminService struct {
	store *store.AdminStore
}

func NewAdminService(store *store.AdminStore) *AdminService {
	return &AdminService{store: store}
}

// EnsureDefaultAdmin creates the bootstrap admin when no admin exists yet.
func (s *AdminService) EnsureDefaultAdmin(ctx context.Context, username, password string) error {
	count, err := s.store.CountAdmins(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if username == "" || password == "" {
		slog.Warn("No admin accounts exist and DEFAULT_ADMIN_USERNAME/DEFAULT_ADMIN_PASSWORD are not set")
		return nil
	}

	if _, err := s.CreateAdmin(ctx, username, password); err != nil {
		return fmt.Errorf("failed to create default admin: %w", err)
	}
	slog.Info("Default admin created", "username", username)
	return nil
}

func (s *AdminService) CreateAdmin(ctx context.Context, username, password string) (*players.Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, invalid("username", "must not be empty")
	}
	if len(password) < minPasswordLength {
		return nil, invalid("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}

	_, err := s.store.GetAdminByUsername(ctx, username)
	if err == nil {
		return nil, ErrAdminExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &players.Admin{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateAdmin(ctx, admin); err != nil {
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}
	return admin, nil
}

func (s *AdminService) Authenticate(ctx context.Context, username, password string) (*players.Admin, error) {
	admin, err := s.store.GetAdminByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return admin, nil
}

func (s *AdminService) GetAdmin(ctx context.Context, id uuid.UUID) (*players.Admin, error) {
	admin, err := s.store.GetAdmin(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("admin %s: %w", id, ErrNotFound)
	}
	return admin, err
}

func (s *AdminService) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	admin, err := s.GetAdmin(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(current)); err != nil {
		return ErrInvalidCredentials
	}
	if len(next) < minPasswordLength {
		return invalid("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.store.UpdatePassword(ctx, id, string(hash))
}
