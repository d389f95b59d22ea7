package repository

import (
	"context"
	"time"

	"couple-pairing-service/internal/domain/model"
)

// -----------------------------
// Invitations
// -----------------------------

type InvitationRepository interface {
	Save(ctx context.Context, tx Tx, inv *model.Invitation) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Invitation, error)
	// FindPendingBetween looks up a pending invitation between two accounts
	// in either direction.
	FindPendingBetween(ctx context.Context, tx Tx, accountA, accountB string) (*model.Invitation, error)
	ListPendingByReceiver(ctx context.Context, tx Tx, accountID string) ([]*model.Invitation, error)
	ListPendingBySender(ctx context.Context, tx Tx, accountID string) ([]*model.Invitation, error)
	// ExpireOverdue flips every pending invitation whose deadline has passed.
	// It is idempotent and run opportunistically before ledger reads.
	ExpireOverdue(ctx context.Context, tx Tx, now time.Time) (int64, error)
	// ExpirePendingInvolving retires every pending invitation that has any of
	// the given accounts as sender or receiver. Used once a pairing commits:
	// both parties stop being available targets.
	ExpirePendingInvolving(ctx context.Context, tx Tx, accountIDs ...string) (int64, error)
	CountByStatus(ctx context.Context, tx Tx) (map[model.InvitationStatus]int, error)
}
