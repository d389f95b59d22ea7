package model

import (
	"strings"
	"time"

	"couple-pairing-service/internal/domain"

	"github.com/google/uuid"
)

// Account is a domain entity representing a registered user. CoupleID is the
// membership pointer: nil while single, otherwise the id of the couple this
// account belongs to. It is mutated only by the pairing use case.
type Account struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	CoupleID     *string
	RegisteredAt time.Time
	LastActiveAt time.Time
}

func NewAccount(id, email, displayName, passwordHash string) (*Account, error) {
	if id == "" {
		id = uuid.NewString()
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.ErrInvalidArgument
	}
	if displayName == "" || passwordHash == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Account{
		ID:           id,
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		RegisteredAt: now,
		LastActiveAt: now,
	}, nil
}

func (a *Account) IsZero() bool { return a == nil || a.ID == "" }
func (a *Account) Touch()       { a.LastActiveAt = time.Now() }

// IsPaired reports whether the account currently points at a couple.
func (a *Account) IsPaired() bool { return a.CoupleID != nil && *a.CoupleID != "" }
