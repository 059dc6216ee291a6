package players

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ContextKey string

const (
	PlayerKey ContextKey = "player"
	AdminKey  ContextKey = "admin"
)

var ErrInvalidNetid = errors.New("netid must be 1-32 lowercase letters, digits, '.', '-' or '_'")

type Player struct {
	Netid     string    `db:"netid" json:"netid"`
	FirstName *string   `db:"first_name" json:"first_name,omitempty"`
	LastName  *string   `db:"last_name" json:"last_name,omitempty"`
	EloRating int       `db:"elo_rating" json:"elo_rating"`
	Archived  bool      `db:"archived" json:"archived"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// HasProfile is false until the player has set both names.
func (p *Player) HasProfile() bool {
	return p.FirstName != nil && p.LastName != nil
}

func (p *Player) DisplayName() string {
	if !p.HasProfile() {
		return p.Netid
	}
	return *p.FirstName + " " + *p.LastName
}

type Admin struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// NormalizeNetid lowercases and trims a netid, then checks its charset.
func NormalizeNetid(raw string) (string, error) {
	netid := strings.ToLower(strings.TrimSpace(raw))
	if netid == "" || len(netid) > 32 {
		return "", ErrInvalidNetid
	}
	for _, r := range netid {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
		default:
			return "", ErrInvalidNetid
		}
	}
	return netid, nil
}

// NetidFromEmail takes the local part of an e-mail address as the netid.
func NetidFromEmail(email string) (string, error) {
	local, _, _ := strings.Cut(email, "@")
	return NormalizeNetid(local)
}
