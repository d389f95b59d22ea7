package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"couple-pairing-service/internal/domain"
	"couple-pairing-service/internal/domain/model"
	"couple-pairing-service/internal/domain/ports/repository"
)

var _ repository.CoupleRepository = (*PostgresCoupleRepo)(nil)

// PostgresCoupleRepo persists couples as a single row: member_a is always
// set, member_b is NULL for a one-member "waiting for partner" couple.
// ErrPairingCodeTaken surfaces a pairing-code unique violation so the caller
// can regenerate and retry.
type PostgresCoupleRepo struct {
	pool *pgxpool.Pool
}

var ErrPairingCodeTaken = errors.New("pairing code already taken")

func NewPostgresCoupleRepo(pool *pgxpool.Pool) *PostgresCoupleRepo {
	return &PostgresCoupleRepo{pool: pool}
}

func (r *PostgresCoupleRepo) Save(ctx context.Context, qx repository.Tx, c *model.Couple) error {
	if len(c.Members) < 1 || len(c.Members) > 2 {
		return domain.ErrInvalidArgument
	}
	var memberB *string
	if len(c.Members) == 2 {
		memberB = &c.Members[1]
	}
	settings, err := json.Marshal(c.Settings)
	if err != nil {
		return err
	}

	const q = `
INSERT INTO couples (
  id, member_a, member_b, pairing_code, anniversary_date, status, settings, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9
) ON CONFLICT (id) DO UPDATE SET
  member_a=$2, member_b=$3, pairing_code=$4, anniversary_date=$5, status=$6, settings=$7, updated_at=$9;
`
	ex, err := pickExecutor(r.pool, qx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q, c.ID, c.Members[0], memberB, c.PairingCode, c.AnniversaryDate, string(c.Status), settings, c.CreatedAt, c.UpdatedAt)
	if isUniqueViolation(err, "couples_pairing_code_key") {
		return ErrPairingCodeTaken
	}
	return err
}

const coupleColumns = `id, member_a, member_b, pairing_code, anniversary_date, status, settings, created_at, updated_at`

func scanCouple(row pgx.Row) (*model.Couple, error) {
	var (
		c        model.Couple
		memberA  string
		memberB  *string
		status   string
		settings []byte
	)
	if err := row.Scan(&c.ID, &memberA, &memberB, &c.PairingCode, &c.AnniversaryDate, &status, &settings, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	c.Members = []string{memberA}
	if memberB != nil {
		c.Members = append(c.Members, *memberB)
	}
	c.Status = model.CoupleStatus(status)
	c.Settings = map[string]string{}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &c.Settings); err != nil {
			return nil, fmt.Errorf("decode couple settings: %w", err)
		}
	}
	return &c, nil
}

func (r *PostgresCoupleRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Couple, error) {
	row := pickRow(ctx, r.pool, qx, `SELECT `+coupleColumns+` FROM couples WHERE id=$1;`, id)
	return scanCouple(row)
}

func (r *PostgresCoupleRepo) FindByMember(ctx context.Context, qx repository.Tx, accountID string) (*model.Couple, error) {
	row := pickRow(ctx, r.pool, qx, `SELECT `+coupleColumns+` FROM couples WHERE member_a=$1 OR member_b=$1;`, accountID)
	return scanCouple(row)
}

func (r *PostgresCoupleRepo) FindByPairingCode(ctx context.Context, qx repository.Tx, code string) (*model.Couple, error) {
	row := pickRow(ctx, r.pool, qx, `SELECT `+coupleColumns+` FROM couples WHERE pairing_code=$1;`, code)
	return scanCouple(row)
}

func (r *PostgresCoupleRepo) CodeExists(ctx context.Context, qx repository.Tx, code string) (bool, error) {
	row := pickRow(ctx, r.pool, qx, `SELECT EXISTS(SELECT 1 FROM couples WHERE pairing_code=$1);`, code)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PostgresCoupleRepo) Delete(ctx context.Context, qx repository.Tx, id string) error {
	ex, err := pickExecutor(r.pool, qx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, `DELETE FROM couples WHERE id=$1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresCoupleRepo) CountByStatus(ctx context.Context, qx repository.Tx) (map[model.CoupleStatus]int, error) {
	ex, err := pickExecutor(r.pool, qx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, `SELECT status, COUNT(*) FROM couples GROUP BY status;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[model.CoupleStatus]int{}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[model.CoupleStatus(status)] = n
	}
	return out, rows.Err()
}
