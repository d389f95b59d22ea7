package model

import (
	"time"

	"couple-pairing-service/internal/domain"

	"github.com/google/uuid"
)

type CoupleStatus string

const (
	// CoupleStatusPending is a one-member couple waiting for a partner to
	// join by pairing code.
	CoupleStatusPending CoupleStatus = "pending"
	// CoupleStatusActive is a complete two-member couple.
	CoupleStatusActive CoupleStatus = "active"
	// CoupleStatusInactive and CoupleStatusBlocked are moderation states set
	// through the admin API. Member mutations are rejected while blocked.
	CoupleStatusInactive CoupleStatus = "inactive"
	CoupleStatusBlocked  CoupleStatus = "blocked"
)

func (s CoupleStatus) Valid() bool {
	switch s {
	case CoupleStatusPending, CoupleStatusActive, CoupleStatusInactive, CoupleStatusBlocked:
		return true
	}
	return false
}

// Couple is the shared aggregate two accounts pair into. Members holds one or
// two account ids; a couple whose member count would drop to zero is deleted,
// never persisted empty.
type Couple struct {
	ID              string
	Members         []string
	PairingCode     string
	AnniversaryDate time.Time
	Status          CoupleStatus
	Settings        map[string]string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewCouple creates a couple from one or two founding members. A single
// member yields a pending "waiting for partner" couple; two members yield an
// active one. The pairing code is assigned by the store at save time.
func NewCouple(id string, members []string, pairingCode string, anniversary time.Time) (*Couple, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if len(members) < 1 || len(members) > 2 {
		return nil, domain.ErrInvalidArgument
	}
	if len(members) == 2 && members[0] == members[1] {
		return nil, domain.ErrInvalidArgument
	}
	for _, m := range members {
		if m == "" {
			return nil, domain.ErrInvalidArgument
		}
	}
	status := CoupleStatusPending
	if len(members) == 2 {
		status = CoupleStatusActive
	}
	now := time.Now()
	return &Couple{
		ID:              id,
		Members:         append([]string(nil), members...),
		PairingCode:     pairingCode,
		AnniversaryDate: anniversary,
		Status:          status,
		Settings:        map[string]string{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func (c *Couple) HasMember(accountID string) bool {
	for _, m := range c.Members {
		if m == accountID {
			return true
		}
	}
	return false
}

func (c *Couple) IsComplete() bool { return len(c.Members) == 2 }

// AddMember appends a second member and promotes the couple to active.
func (c *Couple) AddMember(accountID string) error {
	if accountID == "" {
		return domain.ErrInvalidArgument
	}
	if c.IsComplete() {
		return domain.ErrCoupleComplete
	}
	if c.HasMember(accountID) {
		return domain.ErrAlreadyPaired
	}
	c.Members = append(c.Members, accountID)
	if c.Status == CoupleStatusPending {
		c.Status = CoupleStatusActive
	}
	c.UpdatedAt = time.Now()
	return nil
}

// RemoveMember drops a member. The caller deletes the couple when the
// remaining member count is zero; with one member left the couple reverts to
// pending and becomes joinable by code again.
func (c *Couple) RemoveMember(accountID string) error {
	for i, m := range c.Members {
		if m == accountID {
			c.Members = append(c.Members[:i], c.Members[i+1:]...)
			if len(c.Members) == 1 && c.Status == CoupleStatusActive {
				c.Status = CoupleStatusPending
			}
			c.UpdatedAt = time.Now()
			return nil
		}
	}
	return domain.ErrNotFound
}

// Partner returns the other member's id, or "" for a solo couple.
func (c *Couple) Partner(accountID string) string {
	for _, m := range c.Members {
		if m != accountID {
			return m
		}
	}
	return ""
}
