package repository

import (
	"context"

	"couple-pairing-service/internal/domain/model"
)

// -----------------------------
// Accounts
// -----------------------------

type AccountRepository interface {
	Save(ctx context.Context, tx Tx, a *model.Account) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Account, error)
	FindByEmail(ctx context.Context, tx Tx, email string) (*model.Account, error)
	// SetCoupleID updates only the membership pointer. A nil coupleID clears it.
	SetCoupleID(ctx context.Context, tx Tx, accountID string, coupleID *string) error
	Delete(ctx context.Context, tx Tx, id string) error
	List(ctx context.Context, tx Tx, offset, limit int) ([]*model.Account, error)
	Count(ctx context.Context, tx Tx) (int, error)
	// AcquirePairLock serializes pairing protocols touching the given
	// accounts. It must be called inside a transaction; the lock is released
	// at commit/rollback.
	AcquirePairLock(ctx context.Context, tx Tx, accountIDs ...string) error
}
