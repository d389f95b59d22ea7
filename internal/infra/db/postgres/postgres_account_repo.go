package postgres

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"couple-pairing-service/internal/domain"
	"couple-pairing-service/internal/domain/model"
	"couple-pairing-service/internal/domain/ports/repository"
)

var _ repository.AccountRepository = (*PostgresAccountRepo)(nil)

type PostgresAccountRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresAccountRepo(pool *pgxpool.Pool) *PostgresAccountRepo {
	return &PostgresAccountRepo{pool: pool}
}

func (r *PostgresAccountRepo) Save(ctx context.Context, qx repository.Tx, a *model.Account) error {
	const q = `
INSERT INTO accounts (
  id, email, display_name, password_hash, couple_id, registered_at, last_active_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7
) ON CONFLICT (id) DO UPDATE SET
  email=$2, display_name=$3, password_hash=$4, couple_id=$5, last_active_at=$7;
`
	ex, err := pickExecutor(r.pool, qx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q, a.ID, a.Email, a.DisplayName, a.PasswordHash, a.CoupleID, a.RegisteredAt, a.LastActiveAt)
	if isUniqueViolation(err, "accounts_email_key") {
		return domain.ErrEmailAlreadyRegistered
	}
	return err
}

const accountColumns = `id, email, display_name, password_hash, couple_id, registered_at, last_active_at`

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	if err := row.Scan(&a.ID, &a.Email, &a.DisplayName, &a.PasswordHash, &a.CoupleID, &a.RegisteredAt, &a.LastActiveAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *PostgresAccountRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Account, error) {
	row := pickRow(ctx, r.pool, qx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1;`, id)
	return scanAccount(row)
}

func (r *PostgresAccountRepo) FindByEmail(ctx context.Context, qx repository.Tx, email string) (*model.Account, error) {
	row := pickRow(ctx, r.pool, qx, `SELECT `+accountColumns+` FROM accounts WHERE email=$1;`, email)
	return scanAccount(row)
}

func (r *PostgresAccountRepo) SetCoupleID(ctx context.Context, qx repository.Tx, accountID string, coupleID *string) error {
	ex, err := pickExecutor(r.pool, qx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, `UPDATE accounts SET couple_id=$2 WHERE id=$1;`, accountID, coupleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresAccountRepo) Delete(ctx context.Context, qx repository.Tx, id string) error {
	ex, err := pickExecutor(r.pool, qx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, `DELETE FROM accounts WHERE id=$1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresAccountRepo) List(ctx context.Context, qx repository.Tx, offset, limit int) ([]*model.Account, error) {
	ex, err := pickExecutor(r.pool, qx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY registered_at DESC OFFSET $1 LIMIT $2;`, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Account
	for rows.Next() {
		var a model.Account
		if err := rows.Scan(&a.ID, &a.Email, &a.DisplayName, &a.PasswordHash, &a.CoupleID, &a.RegisteredAt, &a.LastActiveAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (r *PostgresAccountRepo) Count(ctx context.Context, qx repository.Tx) (int, error) {
	row := pickRow(ctx, r.pool, qx, `SELECT COUNT(*) FROM accounts;`)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

// AcquirePairLock takes advisory xact locks on the given account ids, in
// sorted order so two protocols touching the same pair cannot deadlock. The
// locks are released when the surrounding transaction ends.
func (r *PostgresAccountRepo) AcquirePairLock(ctx context.Context, qx repository.Tx, accountIDs ...string) error {
	tx, ok := qx.(pgx.Tx)
	if !ok {
		return domain.ErrInvalidExecContext
	}
	ids := append([]string(nil), accountIDs...)
	sort.Strings(ids)
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1);`, hashToInt64(id)); err != nil {
			return err
		}
	}
	return nil
}

func hashToInt64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64() & ((1 << 63) - 1))
}
