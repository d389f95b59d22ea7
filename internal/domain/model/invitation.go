package model

import (
	"crypto/rand"
	"time"

	"couple-pairing-service/internal/domain"

	"github.com/oklog/ulid/v2"
)

type InvitationStatus string

const (
	InvitationStatusPending  InvitationStatus = "pending"
	InvitationStatusAccepted InvitationStatus = "accepted"
	InvitationStatusRejected InvitationStatus = "rejected"
	InvitationStatusExpired  InvitationStatus = "expired"
)

func (s InvitationStatus) Terminal() bool { return s != InvitationStatusPending }

// DefaultInvitationTTL is how long an invitation stays actionable.
const DefaultInvitationTTL = 7 * 24 * time.Hour

// MaxInvitationMessageLen bounds the optional free-text message.
const MaxInvitationMessageLen = 500

// Invitation is a pairing proposal from one account to another. It is created
// pending and moves to exactly one terminal status; it never reverts.
type Invitation struct {
	ID              string
	SenderID        string
	ReceiverID      string
	AnniversaryDate time.Time
	Message         string
	Status          InvitationStatus
	ExpiresAt       time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewInvitation validates and builds a pending invitation. The proposed
// anniversary must not be in the future and an account cannot invite itself.
func NewInvitation(senderID, receiverID string, anniversary time.Time, message string, ttl time.Duration) (*Invitation, error) {
	if senderID == "" || receiverID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if senderID == receiverID {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	if anniversary.After(now) {
		return nil, domain.ErrInvalidArgument
	}
	if len(message) > MaxInvitationMessageLen {
		return nil, domain.ErrInvalidArgument
	}
	if ttl <= 0 {
		ttl = DefaultInvitationTTL
	}
	return &Invitation{
		ID:              ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		SenderID:        senderID,
		ReceiverID:      receiverID,
		AnniversaryDate: anniversary,
		Message:         message,
		Status:          InvitationStatusPending,
		ExpiresAt:       now.Add(ttl),
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Actionable reports whether the invitation can still be accepted, rejected
// or cancelled at the given instant.
func (i *Invitation) Actionable(now time.Time) bool {
	return i.Status == InvitationStatusPending && i.ExpiresAt.After(now)
}

// Involves reports whether the account is sender or receiver.
func (i *Invitation) Involves(accountID string) bool {
	return i.SenderID == accountID || i.ReceiverID == accountID
}
