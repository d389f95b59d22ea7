package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"couple-pairing-service/internal/domain"
	"couple-pairing-service/internal/domain/model"
	"couple-pairing-service/internal/domain/ports/repository"
	"couple-pairing-service/internal/infra/logging"
)

// Compile-time check
var _ CoupleUseCase = (*coupleUC)(nil)

// CoupleUseCase exposes couple reads and member-scoped mutations. IsMember is
// the one surface the resource collaborators (notes, photos, moods, ...)
// consume.
type CoupleUseCase interface {
	GetByMember(ctx context.Context, accountID string) (*model.Couple, error)
	IsMember(ctx context.Context, coupleID, accountID string) (bool, error)
	UpdateSettings(ctx context.Context, coupleID, accountID string, settings map[string]string) (*model.Couple, error)
	UpdateAnniversary(ctx context.Context, coupleID, accountID string, anniversary time.Time) (*model.Couple, error)
	RegeneratePairingCode(ctx context.Context, coupleID, accountID string) (*model.Couple, error)
	// SetStatus is the admin moderation hook (inactive/blocked/active).
	SetStatus(ctx context.Context, coupleID string, status model.CoupleStatus) (*model.Couple, error)
}

type coupleUC struct {
	couples      repository.CoupleRepository
	tm           repository.TransactionManager
	codeAttempts int
	log          *zerolog.Logger
}

func NewCoupleUseCase(couples repository.CoupleRepository, tm repository.TransactionManager, codeAttempts int, logger *zerolog.Logger) *coupleUC {
	if codeAttempts <= 0 {
		codeAttempts = 10
	}
	return &coupleUC{couples: couples, tm: tm, codeAttempts: codeAttempts, log: logger}
}

func (u *coupleUC) GetByMember(ctx context.Context, accountID string) (*model.Couple, error) {
	defer logging.TraceDuration(u.log, "CoupleUC.GetByMember")()
	return u.couples.FindByMember(ctx, repository.NoTX, accountID)
}

func (u *coupleUC) IsMember(ctx context.Context, coupleID, accountID string) (bool, error) {
	couple, err := u.couples.FindByID(ctx, repository.NoTX, coupleID)
	if err == domain.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return couple.HasMember(accountID), nil
}

// mutate loads the couple, checks the actor is a member and the couple is not
// blocked, applies fn and saves.
func (u *coupleUC) mutate(ctx context.Context, coupleID, accountID string, fn func(c *model.Couple) error) (*model.Couple, error) {
	var updated *model.Couple
	err := u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		couple, err := u.couples.FindByID(ctx, tx, coupleID)
		if err != nil {
			return err
		}
		if !couple.HasMember(accountID) {
			return domain.ErrForbidden
		}
		if couple.Status == model.CoupleStatusBlocked {
			return domain.ErrForbidden
		}
		if err := fn(couple); err != nil {
			return err
		}
		couple.UpdatedAt = time.Now()
		if err := u.couples.Save(ctx, tx, couple); err != nil {
			return err
		}
		updated = couple
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (u *coupleUC) UpdateSettings(ctx context.Context, coupleID, accountID string, settings map[string]string) (*model.Couple, error) {
	defer logging.TraceDuration(u.log, "CoupleUC.UpdateSettings")()
	return u.mutate(ctx, coupleID, accountID, func(c *model.Couple) error {
		if c.Settings == nil {
			c.Settings = map[string]string{}
		}
		for k, v := range settings {
			if v == "" {
				delete(c.Settings, k)
				continue
			}
			c.Settings[k] = v
		}
		return nil
	})
}

func (u *coupleUC) UpdateAnniversary(ctx context.Context, coupleID, accountID string, anniversary time.Time) (*model.Couple, error) {
	defer logging.TraceDuration(u.log, "CoupleUC.UpdateAnniversary")()
	if anniversary.After(time.Now()) {
		return nil, domain.ErrInvalidArgument
	}
	return u.mutate(ctx, coupleID, accountID, func(c *model.Couple) error {
		c.AnniversaryDate = anniversary
		return nil
	})
}

func (u *coupleUC) RegeneratePairingCode(ctx context.Context, coupleID, accountID string) (*model.Couple, error) {
	defer logging.TraceDuration(u.log, "CoupleUC.RegeneratePairingCode")()
	return u.mutate(ctx, coupleID, accountID, func(c *model.Couple) error {
		for i := 0; i < u.codeAttempts; i++ {
			code, err := generatePairingCode()
			if err != nil {
				return err
			}
			exists, err := u.couples.CodeExists(ctx, repository.NoTX, code)
			if err != nil {
				return err
			}
			if !exists {
				c.PairingCode = code
				return nil
			}
		}
		u.log.Error().Int("attempts", u.codeAttempts).Msg("pairing code regeneration exhausted retries")
		return domain.ErrCodeGenExhausted
	})
}

func (u *coupleUC) SetStatus(ctx context.Context, coupleID string, status model.CoupleStatus) (*model.Couple, error) {
	defer logging.TraceDuration(u.log, "CoupleUC.SetStatus")()
	if !status.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	var updated *model.Couple
	err := u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		couple, err := u.couples.FindByID(ctx, tx, coupleID)
		if err != nil {
			return err
		}
		// pending/active track the member count; moderation can only park a
		// couple in inactive/blocked or lift that again.
		switch status {
		case model.CoupleStatusInactive, model.CoupleStatusBlocked:
			couple.Status = status
		case model.CoupleStatusActive, model.CoupleStatusPending:
			if couple.IsComplete() {
				couple.Status = model.CoupleStatusActive
			} else {
				couple.Status = model.CoupleStatusPending
			}
		}
		couple.UpdatedAt = time.Now()
		if err := u.couples.Save(ctx, tx, couple); err != nil {
			return err
		}
		updated = couple
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
