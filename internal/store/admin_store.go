package store

import (
	"context"

	players "github.com/AdamBeresnev/charter-pool/internal/player"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type AdminStore struct {
	db *sqlx.DB
}

const createAdminQuery = `
	INSERT INTO admins (id, username, password_hash, created_at)
	VALUES (:id, :username, :password_hash, :created_at)
`

func NewAdminStore(db *sqlx.DB) *AdminStore {
	return &AdminStore{db: db}
}

func (s *AdminStore) CreateAdmin(ctx context.Context, admin *players.Admin) error {
	_, err := s.db.NamedExecContext(ctx, createAdminQuery, admin)
	return err
}

func (s *AdminStore) GetAdmin(ctx context.Context, id uuid.UUID) (*players.Admin, error) {
	var admin players.Admin
	err := s.db.GetContext(ctx, &admin, s.db.Rebind("SELECT * FROM admins WHERE id = ?"), id)
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

func (s *AdminStore) GetAdminByUsername(ctx context.Context, username string) (*players.Admin, error) {
	var admin players.Admin
	err := s.db.GetContext(ctx, &admin, s.db.Rebind("SELECT * FROM admins WHERE username = ?"), username)
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

func (s *AdminStore) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind("UPDATE admins SET password_hash = ? WHERE id = ?"), hash, id)
	return err
}

func (s *AdminStore) CountAdmins(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM admins")
	return count, err
}
