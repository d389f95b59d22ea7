package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"couple-pairing-service/internal/domain"
	"couple-pairing-service/internal/domain/model"
	"couple-pairing-service/internal/domain/ports/repository"
)

var _ repository.InvitationRepository = (*PostgresInvitationRepo)(nil)

type PostgresInvitationRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresInvitationRepo(pool *pgxpool.Pool) *PostgresInvitationRepo {
	return &PostgresInvitationRepo{pool: pool}
}

// Save upserts the invitation. A partial unique index on the unordered
// (sender, receiver) pair scoped to status='pending' backs the one-pending-
// invitation rule; a violation maps to ErrDuplicateInvitation.
func (r *PostgresInvitationRepo) Save(ctx context.Context, qx repository.Tx, inv *model.Invitation) error {
	const q = `
INSERT INTO invitations (
  id, sender_id, receiver_id, anniversary_date, message, status, expires_at, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9
) ON CONFLICT (id) DO UPDATE SET
  status=$6, expires_at=$7, updated_at=$9;
`
	ex, err := pickExecutor(r.pool, qx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q, inv.ID, inv.SenderID, inv.ReceiverID, inv.AnniversaryDate, inv.Message, string(inv.Status), inv.ExpiresAt, inv.CreatedAt, inv.UpdatedAt)
	if isUniqueViolation(err, "invitations_pending_pair") {
		return domain.ErrDuplicateInvitation
	}
	return err
}

const invitationColumns = `id, sender_id, receiver_id, anniversary_date, message, status, expires_at, created_at, updated_at`

func scanInvitation(row pgx.Row) (*model.Invitation, error) {
	var (
		inv    model.Invitation
		status string
	)
	if err := row.Scan(&inv.ID, &inv.SenderID, &inv.ReceiverID, &inv.AnniversaryDate, &inv.Message, &status, &inv.ExpiresAt, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	inv.Status = model.InvitationStatus(status)
	return &inv, nil
}

func (r *PostgresInvitationRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Invitation, error) {
	row := pickRow(ctx, r.pool, qx, `SELECT `+invitationColumns+` FROM invitations WHERE id=$1;`, id)
	return scanInvitation(row)
}

func (r *PostgresInvitationRepo) FindPendingBetween(ctx context.Context, qx repository.Tx, accountA, accountB string) (*model.Invitation, error) {
	const q = `
SELECT ` + invitationColumns + `
  FROM invitations
 WHERE status='pending'
   AND ((sender_id=$1 AND receiver_id=$2) OR (sender_id=$2 AND receiver_id=$1));
`
	row := pickRow(ctx, r.pool, qx, q, accountA, accountB)
	return scanInvitation(row)
}

func (r *PostgresInvitationRepo) listPending(ctx context.Context, qx repository.Tx, column, accountID string) ([]*model.Invitation, error) {
	ex, err := pickExecutor(r.pool, qx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE status='pending' AND `+column+`=$1 ORDER BY created_at DESC;`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Invitation
	for rows.Next() {
		var (
			inv    model.Invitation
			status string
		)
		if err := rows.Scan(&inv.ID, &inv.SenderID, &inv.ReceiverID, &inv.AnniversaryDate, &inv.Message, &status, &inv.ExpiresAt, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, err
		}
		inv.Status = model.InvitationStatus(status)
		out = append(out, &inv)
	}
	return out, rows.Err()
}

func (r *PostgresInvitationRepo) ListPendingByReceiver(ctx context.Context, qx repository.Tx, accountID string) ([]*model.Invitation, error) {
	return r.listPending(ctx, qx, "receiver_id", accountID)
}

func (r *PostgresInvitationRepo) ListPendingBySender(ctx context.Context, qx repository.Tx, accountID string) ([]*model.Invitation, error) {
	return r.listPending(ctx, qx, "sender_id", accountID)
}

func (r *PostgresInvitationRepo) ExpireOverdue(ctx context.Context, qx repository.Tx, now time.Time) (int64, error) {
	ex, err := pickExecutor(r.pool, qx)
	if err != nil {
		return 0, err
	}
	tag, err := ex.Exec(ctx, `UPDATE invitations SET status='expired', updated_at=$1 WHERE status='pending' AND expires_at < $1;`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresInvitationRepo) ExpirePendingInvolving(ctx context.Context, qx repository.Tx, accountIDs ...string) (int64, error) {
	if len(accountIDs) == 0 {
		return 0, nil
	}
	ex, err := pickExecutor(r.pool, qx)
	if err != nil {
		return 0, err
	}
	tag, err := ex.Exec(ctx, `
UPDATE invitations SET status='expired', updated_at=now()
 WHERE status='pending' AND (sender_id = ANY($1) OR receiver_id = ANY($1));`, accountIDs)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresInvitationRepo) CountByStatus(ctx context.Context, qx repository.Tx) (map[model.InvitationStatus]int, error) {
	ex, err := pickExecutor(r.pool, qx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, `SELECT status, COUNT(*) FROM invitations GROUP BY status;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[model.InvitationStatus]int{}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[model.InvitationStatus(status)] = n
	}
	return out, rows.Err()
}
