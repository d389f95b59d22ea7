package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"couple-pairing-service/internal/domain"
	"couple-pairing-service/internal/domain/model"
	"couple-pairing-service/internal/domain/ports/repository"
	"couple-pairing-service/internal/infra/logging"
	"couple-pairing-service/internal/infra/metrics"
)

// RateLimiter throttles invitation sending. Satisfied by the redis limiter;
// nil disables throttling.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type ResponseAction string

const (
	ActionAccept ResponseAction = "accept"
	ActionReject ResponseAction = "reject"
	ActionCancel ResponseAction = "cancel"
)

// Compile-time check
var _ InvitationUseCase = (*invitationUC)(nil)

// InvitationUseCase is the invitation ledger: sending, listing and resolving
// pairing invitations. Accepting delegates to the pairing use case; the
// invitation only turns accepted once that protocol has committed.
type InvitationUseCase interface {
	Send(ctx context.Context, senderID, receiverEmail string, anniversary time.Time, message string) (*model.Invitation, error)
	ListReceived(ctx context.Context, accountID string) ([]*model.Invitation, error)
	ListSent(ctx context.Context, accountID string) ([]*model.Invitation, error)
	// Respond resolves a pending invitation. For accept the paired couple is
	// returned; for reject/cancel the updated invitation is.
	Respond(ctx context.Context, invitationID, accountID string, action ResponseAction) (*model.Invitation, *model.Couple, error)
	// SweepExpired retires every overdue pending invitation. Listing and
	// sending do this opportunistically; the background loop calls it so
	// idle inboxes converge too.
	SweepExpired(ctx context.Context)
}

type invitationUC struct {
	accounts    repository.AccountRepository
	invitations repository.InvitationRepository
	pairing     PairingUseCase
	tm          repository.TransactionManager
	limiter     RateLimiter
	sendLimit   int
	sendWindow  time.Duration
	inviteTTL   time.Duration
	log         *zerolog.Logger
}

func NewInvitationUseCase(
	accounts repository.AccountRepository,
	invitations repository.InvitationRepository,
	pairing PairingUseCase,
	tm repository.TransactionManager,
	limiter RateLimiter,
	sendLimit int,
	sendWindow time.Duration,
	inviteTTL time.Duration,
	logger *zerolog.Logger,
) *invitationUC {
	if inviteTTL <= 0 {
		inviteTTL = model.DefaultInvitationTTL
	}
	return &invitationUC{
		accounts:    accounts,
		invitations: invitations,
		pairing:     pairing,
		tm:          tm,
		limiter:     limiter,
		sendLimit:   sendLimit,
		sendWindow:  sendWindow,
		inviteTTL:   inviteTTL,
		log:         logger,
	}
}

func (u *invitationUC) Send(ctx context.Context, senderID, receiverEmail string, anniversary time.Time, message string) (*model.Invitation, error) {
	defer logging.TraceDuration(u.log, "InvitationUC.Send")()

	if u.limiter != nil && u.sendLimit > 0 {
		ok, err := u.limiter.Allow(ctx, "rate_limit:invite_send:"+senderID, u.sendLimit, u.sendWindow)
		if err != nil {
			u.log.Warn().Err(err).Msg("invite send rate check failed, allowing")
		} else if !ok {
			return nil, domain.ErrRateLimited
		}
	}

	var created *model.Invitation
	err := u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		if _, err := u.invitations.ExpireOverdue(ctx, tx, time.Now()); err != nil {
			return err
		}

		receiver, err := u.accounts.FindByEmail(ctx, tx, receiverEmail)
		if err != nil {
			return err
		}
		// Validates sender != receiver, the anniversary bound and the
		// message length before anything is locked.
		inv, err := model.NewInvitation(senderID, receiver.ID, anniversary, message, u.inviteTTL)
		if err != nil {
			return err
		}

		if err := u.accounts.AcquirePairLock(ctx, tx, senderID, receiver.ID); err != nil {
			return err
		}
		sender, err := u.accounts.FindByID(ctx, tx, senderID)
		if err != nil {
			return err
		}
		receiver, err = u.accounts.FindByID(ctx, tx, receiver.ID)
		if err != nil {
			return err
		}
		if sender.IsPaired() || receiver.IsPaired() {
			return domain.ErrAlreadyPaired
		}

		// One pending invitation per pair, in either direction. The partial
		// unique index backs this up against anything the lock missed.
		if existing, err := u.invitations.FindPendingBetween(ctx, tx, senderID, receiver.ID); err == nil && existing != nil {
			return domain.ErrDuplicateInvitation
		} else if err != nil && err != domain.ErrNotFound {
			return err
		}

		if err := u.invitations.Save(ctx, tx, inv); err != nil {
			return err
		}
		created = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.IncInvitation("sent")
	u.log.Info().Str("invitation_id", created.ID).Msg("invitation sent")
	return created, nil
}

func (u *invitationUC) SweepExpired(ctx context.Context) { u.sweep(ctx) }

func (u *invitationUC) sweep(ctx context.Context) {
	n, err := u.invitations.ExpireOverdue(ctx, repository.NoTX, time.Now())
	if err != nil {
		u.log.Warn().Err(err).Msg("invitation expiry sweep failed")
		return
	}
	if n > 0 {
		u.log.Debug().Int64("expired", n).Msg("invitation expiry sweep")
		metrics.AddInvitations("expired", n)
	}
}

func (u *invitationUC) ListReceived(ctx context.Context, accountID string) ([]*model.Invitation, error) {
	defer logging.TraceDuration(u.log, "InvitationUC.ListReceived")()
	u.sweep(ctx)
	return u.invitations.ListPendingByReceiver(ctx, repository.NoTX, accountID)
}

func (u *invitationUC) ListSent(ctx context.Context, accountID string) ([]*model.Invitation, error) {
	defer logging.TraceDuration(u.log, "InvitationUC.ListSent")()
	u.sweep(ctx)
	return u.invitations.ListPendingBySender(ctx, repository.NoTX, accountID)
}

func (u *invitationUC) Respond(ctx context.Context, invitationID, accountID string, action ResponseAction) (*model.Invitation, *model.Couple, error) {
	defer logging.TraceDuration(u.log, "InvitationUC.Respond")()

	switch action {
	case ActionAccept:
		couple, err := u.pairing.AcceptInvitation(ctx, invitationID, accountID)
		if err != nil {
			return nil, nil, err
		}
		metrics.IncInvitation("accepted")
		return nil, couple, nil
	case ActionReject, ActionCancel:
		inv, err := u.resolve(ctx, invitationID, accountID, action)
		if err != nil {
			return nil, nil, err
		}
		metrics.IncInvitation(string(inv.Status))
		return inv, nil, nil
	default:
		return nil, nil, domain.ErrInvalidArgument
	}
}

// resolve flips a pending invitation to rejected (receiver) or expired-by-
// cancellation (sender rejects their own offer; recorded as rejected too).
func (u *invitationUC) resolve(ctx context.Context, invitationID, accountID string, action ResponseAction) (*model.Invitation, error) {
	var resolved *model.Invitation
	err := u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		inv, err := u.invitations.FindByID(ctx, tx, invitationID)
		if err != nil {
			return err
		}
		switch action {
		case ActionReject:
			if inv.ReceiverID != accountID {
				return domain.ErrForbidden
			}
		case ActionCancel:
			if inv.SenderID != accountID {
				return domain.ErrForbidden
			}
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
			if err := u.invitations.Save(ctx, tx, inv); err != nil {
				return err
			}
			return domain.ErrInvitationExpired
		}

		if action == ActionReject {
			inv.Status = model.InvitationStatusRejected
		} else {
			// A cancelled offer is indistinguishable from a lapsed one for
			// the receiver; it is retired as expired.
			inv.Status = model.InvitationStatusExpired
		}
		inv.UpdatedAt = now
		if err := u.invitations.Save(ctx, tx, inv); err != nil {
			return err
		}
		resolved = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resolved, nil
}
