package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"couple-pairing-service/internal/domain"
	"couple-pairing-service/internal/domain/model"
	"couple-pairing-service/internal/domain/ports/repository"
	"couple-pairing-service/internal/infra/logging"
	"couple-pairing-service/internal/infra/metrics"
)

// Locker is a distributed try-lock in front of the pairing protocols.
// Satisfied by the redis locker; nil disables it (unit tests, single node).
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	Unlock(ctx context.Context, key, token string) error
}

// Compile-time check
var _ PairingUseCase = (*pairingUC)(nil)

// PairingUseCase orchestrates the pairing and unpairing protocols. Every
// mutating method runs inside one transaction and leaves the membership
// biconditional intact: an account points at a couple exactly when that
// couple lists it as a member.
type PairingUseCase interface {
	// AcceptInvitation pairs sender and receiver of a pending invitation.
	AcceptInvitation(ctx context.Context, invitationID, accountID string) (*model.Couple, error)
	// CreateCouple starts a one-member couple waiting for a partner to join
	// by pairing code.
	CreateCouple(ctx context.Context, accountID string, anniversary time.Time) (*model.Couple, error)
	// JoinByCode attaches the account to a waiting one-member couple.
	JoinByCode(ctx context.Context, accountID, code string) (*model.Couple, error)
	// Leave detaches the account from its couple; the couple survives with
	// one member, or is deleted when the leaver was the last one.
	Leave(ctx context.Context, accountID string) error
	// DeleteCouple removes the couple entirely, clearing both members' pointers.
	DeleteCouple(ctx context.Context, coupleID, accountID string) error
	// CleanupAccount runs the leave protocol on behalf of an account that is
	// being deleted. It participates in the caller's transaction and is a
	// no-op for unpaired accounts.
	CleanupAccount(ctx context.Context, tx repository.Tx, accountID string) error
}

type pairingUC struct {
	accounts     repository.AccountRepository
	couples      repository.CoupleRepository
	invitations  repository.InvitationRepository
	tm           repository.TransactionManager
	locker       Locker
	codeAttempts int
	log          *zerolog.Logger
}

func NewPairingUseCase(
	accounts repository.AccountRepository,
	couples repository.CoupleRepository,
	invitations repository.InvitationRepository,
	tm repository.TransactionManager,
	locker Locker,
	codeAttempts int,
	logger *zerolog.Logger,
) *pairingUC {
	if codeAttempts <= 0 {
		codeAttempts = 10
	}
	return &pairingUC{
		accounts:     accounts,
		couples:      couples,
		invitations:  invitations,
		tm:           tm,
		locker:       locker,
		codeAttempts: codeAttempts,
		log:          logger,
	}
}

var txOpts = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}

const pairingLockTTL = 5 * time.Second

// withAccountLock shortens the race window between two requests pairing the
// same account. Correctness does not depend on it; the advisory locks inside
// the transaction do the real serialization.
func (p *pairingUC) withAccountLock(ctx context.Context, accountID string, fn func() error) error {
	if p.locker == nil {
		return fn()
	}
	key := "pairing:" + accountID
	token, err := p.locker.TryLock(ctx, key, pairingLockTTL)
	if err != nil {
		return err
	}
	defer func() {
		if uerr := p.locker.Unlock(ctx, key, token); uerr != nil {
			p.log.Warn().Err(uerr).Str("key", key).Msg("pairing lock release failed")
		}
	}()
	return fn()
}

// newUniquePairingCode generates codes until one is free, bounded by
// codeAttempts. Exhaustion means the code space is badly saturated and is
// reported as fatal, not as a user error.
func (p *pairingUC) newUniquePairingCode(ctx context.Context, tx repository.Tx) (string, error) {
	for i := 0; i < p.codeAttempts; i++ {
		code, err := generatePairingCode()
		if err != nil {
			return "", err
		}
		exists, err := p.couples.CodeExists(ctx, tx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
		metrics.IncPairingCodeCollision()
	}
	p.log.Error().Int("attempts", p.codeAttempts).Msg("pairing code generation exhausted retries")
	metrics.IncInvariantAlert()
	return "", domain.ErrCodeGenExhausted
}

// AcceptInvitation executes the invitation-acceptance protocol: re-checks the
// preconditions under lock, creates the couple, points both accounts at it,
// marks the invitation accepted and retires every other pending invitation
// touching either party. All of it commits or none of it does, so retrying
// with the same invitation id is safe: the retry either finds the invitation
// no longer pending or one of the parties already paired.
func (p *pairingUC) AcceptInvitation(ctx context.Context, invitationID, accountID string) (*model.Couple, error) {
	defer logging.TraceDuration(p.log, "PairingUC.AcceptInvitation")()

	var couple *model.Couple
	err := p.withAccountLock(ctx, accountID, func() error {
		return p.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
			inv, err := p.invitations.FindByID(ctx, tx, invitationID)
			if err != nil {
				return err
			}
			if inv.ReceiverID != accountID {
				return domain.ErrForbidden
			}

			if err := p.accounts.AcquirePairLock(ctx, tx, inv.SenderID, inv.ReceiverID); err != nil {
				return err
			}
			// Re-read now that the pair is locked; a concurrent accept or
			// cancel may have resolved the invitation first.
			inv, err = p.invitations.FindByID(ctx, tx, invitationID)
			if err != nil {
				return err
			}
			switch inv.Status {
			case model.InvitationStatusPending:
			case model.InvitationStatusExpired:
				return domain.ErrInvitationExpired
			default:
				return domain.ErrInvitationClosed
			}
			now := time.Now()
			if !inv.ExpiresAt.After(now) {
				inv.Status = model.InvitationStatusExpired
				inv.UpdatedAt = now
				if err := p.invitations.Save(ctx, tx, inv); err != nil {
					return err
				}
				return domain.ErrInvitationExpired
			}

			sender, err := p.accounts.FindByID(ctx, tx, inv.SenderID)
			if err != nil {
				return err
			}
			receiver, err := p.accounts.FindByID(ctx, tx, inv.ReceiverID)
			if err != nil {
				return err
			}
			// Time has passed since send: either party may have paired
			// elsewhere in the meantime.
			if sender.IsPaired() || receiver.IsPaired() {
				return domain.ErrAlreadyPaired
			}

			code, err := p.newUniquePairingCode(ctx, tx)
			if err != nil {
				return err
			}
			c, err := model.NewCouple("", []string{sender.ID, receiver.ID}, code, inv.AnniversaryDate)
			if err != nil {
				return err
			}
			if err := p.couples.Save(ctx, tx, c); err != nil {
				return err
			}
			if err := p.accounts.SetCoupleID(ctx, tx, sender.ID, &c.ID); err != nil {
				return err
			}
			if err := p.accounts.SetCoupleID(ctx, tx, receiver.ID, &c.ID); err != nil {
				return err
			}

			inv.Status = model.InvitationStatusAccepted
			inv.UpdatedAt = now
			if err := p.invitations.Save(ctx, tx, inv); err != nil {
				return err
			}
			// Both parties are off the market now.
			if _, err := p.invitations.ExpirePendingInvolving(ctx, tx, sender.ID, receiver.ID); err != nil {
				return err
			}

			couple = c
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	metrics.IncPairing("invitation")
	p.log.Info().Str("couple_id", couple.ID).Str("invitation_id", invitationID).Msg("couple paired via invitation")
	return couple, nil
}

func (p *pairingUC) CreateCouple(ctx context.Context, accountID string, anniversary time.Time) (*model.Couple, error) {
	defer logging.TraceDuration(p.log, "PairingUC.CreateCouple")()

	if anniversary.After(time.Now()) {
		return nil, domain.ErrInvalidArgument
	}

	var couple *model.Couple
	err := p.withAccountLock(ctx, accountID, func() error {
		return p.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
			if err := p.accounts.AcquirePairLock(ctx, tx, accountID); err != nil {
				return err
			}
			acct, err := p.accounts.FindByID(ctx, tx, accountID)
			if err != nil {
				return err
			}
			if acct.IsPaired() {
				return domain.ErrAlreadyPaired
			}

			code, err := p.newUniquePairingCode(ctx, tx)
			if err != nil {
				return err
			}
			c, err := model.NewCouple("", []string{acct.ID}, code, anniversary)
			if err != nil {
				return err
			}
			if err := p.couples.Save(ctx, tx, c); err != nil {
				return err
			}
			if err := p.accounts.SetCoupleID(ctx, tx, acct.ID, &c.ID); err != nil {
				return err
			}
			couple = c
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	metrics.IncPairing("placeholder")
	return couple, nil
}

// JoinByCode executes the invite-code protocol. Exactly one of two racing
// joiners wins: both see the same one-member couple at first, but the locks
// serialize them and the loser re-reads a complete couple.
func (p *pairingUC) JoinByCode(ctx context.Context, accountID, code string) (*model.Couple, error) {
	defer logging.TraceDuration(p.log, "PairingUC.JoinByCode")()

	var couple *model.Couple
	err := p.withAccountLock(ctx, accountID, func() error {
		return p.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
			c, err := p.couples.FindByPairingCode(ctx, tx, code)
			if err != nil {
				return err
			}

			locks := append(append([]string(nil), c.Members...), accountID)
			if err := p.accounts.AcquirePairLock(ctx, tx, locks...); err != nil {
				return err
			}
			c, err = p.couples.FindByID(ctx, tx, c.ID)
			if err != nil {
				return err
			}
			if c.IsComplete() {
				return domain.ErrCoupleComplete
			}
			if c.Status == model.CoupleStatusBlocked || c.Status == model.CoupleStatusInactive {
				return domain.ErrForbidden
			}

			joiner, err := p.accounts.FindByID(ctx, tx, accountID)
			if err != nil {
				return err
			}
			if joiner.IsPaired() {
				return domain.ErrAlreadyPaired
			}

			if err := c.AddMember(joiner.ID); err != nil {
				return err
			}
			if err := p.couples.Save(ctx, tx, c); err != nil {
				return err
			}
			if err := p.accounts.SetCoupleID(ctx, tx, joiner.ID, &c.ID); err != nil {
				return err
			}
			// Same rule as invitation acceptance: a completed couple takes
			// both members off the market.
			if _, err := p.invitations.ExpirePendingInvolving(ctx, tx, c.Members...); err != nil {
				return err
			}
			couple = c
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	metrics.IncPairing("code_join")
	p.log.Info().Str("couple_id", couple.ID).Msg("couple completed via pairing code")
	return couple, nil
}

func (p *pairingUC) Leave(ctx context.Context, accountID string) error {
	defer logging.TraceDuration(p.log, "PairingUC.Leave")()

	err := p.withAccountLock(ctx, accountID, func() error {
		return p.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
			return p.leaveInTx(ctx, tx, accountID, false)
		})
	})
	if err != nil {
		return err
	}
	metrics.IncUnpairing("leave")
	return nil
}

// leaveInTx is Protocol C inside an open transaction. tolerateUnpaired makes
// it a no-op for single accounts (account-deletion cleanup path).
func (p *pairingUC) leaveInTx(ctx context.Context, tx repository.Tx, accountID string, tolerateUnpaired bool) error {
	acct, err := p.accounts.FindByID(ctx, tx, accountID)
	if err != nil {
		return err
	}
	if !acct.IsPaired() {
		if tolerateUnpaired {
			return nil
		}
		return fmt.Errorf("%w: account is not in a couple", domain.ErrNotFound)
	}

	couple, err := p.couples.FindByID(ctx, tx, *acct.CoupleID)
	if errors.Is(err, domain.ErrNotFound) {
		// Dangling pointer: the couple is gone but the account still points
		// at it. Complete the rollback instead of failing the caller, and
		// flag it for reconciliation.
		p.log.Error().Str("account_id", accountID).Str("couple_id", *acct.CoupleID).Msg("dangling couple pointer repaired")
		metrics.IncInvariantAlert()
		return p.accounts.SetCoupleID(ctx, tx, accountID, nil)
	}
	if err != nil {
		return err
	}

	if err := p.accounts.AcquirePairLock(ctx, tx, couple.Members...); err != nil {
		return err
	}
	couple, err = p.couples.FindByID(ctx, tx, couple.ID)
	if err != nil {
		return err
	}
	if err := couple.RemoveMember(accountID); err != nil {
		return err
	}

	if len(couple.Members) == 0 {
		if err := p.couples.Delete(ctx, tx, couple.ID); err != nil {
			return err
		}
	} else {
		// The partner keeps pointing at the now-solo couple; only the
		// leaver's pointer is cleared.
		if err := p.couples.Save(ctx, tx, couple); err != nil {
			return err
		}
	}
	return p.accounts.SetCoupleID(ctx, tx, accountID, nil)
}

func (p *pairingUC) DeleteCouple(ctx context.Context, coupleID, accountID string) error {
	defer logging.TraceDuration(p.log, "PairingUC.DeleteCouple")()

	err := p.withAccountLock(ctx, accountID, func() error {
		return p.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
			couple, err := p.couples.FindByID(ctx, tx, coupleID)
			if err != nil {
				return err
			}
			if !couple.HasMember(accountID) {
				return domain.ErrForbidden
			}

			if err := p.accounts.AcquirePairLock(ctx, tx, couple.Members...); err != nil {
				return err
			}
			couple, err = p.couples.FindByID(ctx, tx, coupleID)
			if err != nil {
				return err
			}
			// Both pointers are cleared before the record goes away so no
			// account ever references a missing couple.
			for _, member := range couple.Members {
				if err := p.accounts.SetCoupleID(ctx, tx, member, nil); err != nil {
					return err
				}
			}
			return p.couples.Delete(ctx, tx, couple.ID)
		})
	})
	if err != nil {
		return err
	}
	metrics.IncUnpairing("delete")
	p.log.Info().Str("couple_id", coupleID).Msg("couple deleted")
	return nil
}

func (p *pairingUC) CleanupAccount(ctx context.Context, tx repository.Tx, accountID string) error {
	return p.leaveInTx(ctx, tx, accountID, true)
}
