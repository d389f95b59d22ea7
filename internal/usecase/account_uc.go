package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"couple-pairing-service/internal/domain"
	"couple-pairing-service/internal/domain/model"
	"couple-pairing-service/internal/domain/ports/repository"
	"couple-pairing-service/internal/infra/logging"
	"couple-pairing-service/internal/infra/metrics"
)

// Compile-time check
var _ AccountUseCase = (*accountUC)(nil)

// AccountUseCase owns registration, login and account deletion. Deletion runs
// the pairing cleanup inside the same transaction so no couple or invitation
// ever references a removed account.
type AccountUseCase interface {
	Register(ctx context.Context, email, displayName, password string) (*model.Account, error)
	Authenticate(ctx context.Context, email, password string) (*model.Account, error)
	GetByID(ctx context.Context, accountID string) (*model.Account, error)
	Delete(ctx context.Context, accountID string) error
	List(ctx context.Context, offset, limit int) ([]*model.Account, error)
	Count(ctx context.Context) (int, error)
}

type accountUC struct {
	accounts    repository.AccountRepository
	invitations repository.InvitationRepository
	pairing     PairingUseCase
	tm          repository.TransactionManager
	log         *zerolog.Logger
}

func NewAccountUseCase(
	accounts repository.AccountRepository,
	invitations repository.InvitationRepository,
	pairing PairingUseCase,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *accountUC {
	return &accountUC{
		accounts:    accounts,
		invitations: invitations,
		pairing:     pairing,
		tm:          tm,
		log:         logger,
	}
}

func (u *accountUC) Register(ctx context.Context, email, displayName, password string) (*model.Account, error) {
	defer logging.TraceDuration(u.log, "AccountUC.Register")()

	if len(password) < 8 {
		return nil, domain.ErrInvalidArgument
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	acct, err := model.NewAccount("", email, displayName, string(hash))
	if err != nil {
		return nil, err
	}
	if err := u.accounts.Save(ctx, repository.NoTX, acct); err != nil {
		return nil, err
	}
	u.log.Info().Str("account_id", acct.ID).Msg("account registered")
	return acct, nil
}

func (u *accountUC) Authenticate(ctx context.Context, email, password string) (*model.Account, error) {
	defer logging.TraceDuration(u.log, "AccountUC.Authenticate")()

	acct, err := u.accounts.FindByEmail(ctx, repository.NoTX, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	acct.Touch()
	if err := u.accounts.Save(ctx, repository.NoTX, acct); err != nil {
		u.log.Warn().Err(err).Msg("failed to update last active time")
	}
	return acct, nil
}

func (u *accountUC) GetByID(ctx context.Context, accountID string) (*model.Account, error) {
	return u.accounts.FindByID(ctx, repository.NoTX, accountID)
}

// Delete unpairs the account, retires its pending invitations and removes the
// row, all in one transaction.
func (u *accountUC) Delete(ctx context.Context, accountID string) error {
	defer logging.TraceDuration(u.log, "AccountUC.Delete")()

	err := u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		if err := u.accounts.AcquirePairLock(ctx, tx, accountID); err != nil {
			return err
		}
		if err := u.pairing.CleanupAccount(ctx, tx, accountID); err != nil {
			return err
		}
		if _, err := u.invitations.ExpirePendingInvolving(ctx, tx, accountID); err != nil {
			return err
		}
		return u.accounts.Delete(ctx, tx, accountID)
	})
	if err != nil {
		return err
	}
	metrics.IncUnpairing("account_cleanup")
	u.log.Info().Str("account_id", accountID).Msg("account deleted")
	return nil
}

func (u *accountUC) List(ctx context.Context, offset, limit int) ([]*model.Account, error) {
	return u.accounts.List(ctx, repository.NoTX, offset, limit)
}

func (u *accountUC) Count(ctx context.Context) (int, error) {
	return u.accounts.Count(ctx, repository.NoTX)
}
