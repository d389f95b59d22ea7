package repository

import (
	"context"

	"couple-pairing-service/internal/domain/model"
)

// -----------------------------
// Couples
// -----------------------------

type CoupleRepository interface {
	// Save upserts the couple row and its member list in one statement batch.
	Save(ctx context.Context, tx Tx, c *model.Couple) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Couple, error)
	FindByMember(ctx context.Context, tx Tx, accountID string) (*model.Couple, error)
	FindByPairingCode(ctx context.Context, tx Tx, code string) (*model.Couple, error)
	CodeExists(ctx context.Context, tx Tx, code string) (bool, error)
	Delete(ctx context.Context, tx Tx, id string) error
	CountByStatus(ctx context.Context, tx Tx) (map[model.CoupleStatus]int, error)
}
