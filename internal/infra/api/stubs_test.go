package api

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"couple-pairing-service/internal/domain"
	"couple-pairing-service/internal/domain/model"
	"couple-pairing-service/internal/domain/ports/repository"
	"couple-pairing-service/internal/usecase"
)

// Function-field stubs for the use case interfaces. Unset fields return
// ErrNotFound so a handler hitting an unexpected path fails loudly in tests.

type stubAccountUC struct {
	register     func(ctx context.Context, email, displayName, password string) (*model.Account, error)
	authenticate func(ctx context.Context, email, password string) (*model.Account, error)
	getByID      func(ctx context.Context, accountID string) (*model.Account, error)
	delete       func(ctx context.Context, accountID string) error
}

func (s *stubAccountUC) Register(ctx context.Context, email, displayName, password string) (*model.Account, error) {
	if s.register == nil {
		return nil, domain.ErrNotFound
	}
	return s.register(ctx, email, displayName, password)
}

func (s *stubAccountUC) Authenticate(ctx context.Context, email, password string) (*model.Account, error) {
	if s.authenticate == nil {
		return nil, domain.ErrNotFound
	}
	return s.authenticate(ctx, email, password)
}

func (s *stubAccountUC) GetByID(ctx context.Context, accountID string) (*model.Account, error) {
	if s.getByID == nil {
		return nil, domain.ErrNotFound
	}
	return s.getByID(ctx, accountID)
}

func (s *stubAccountUC) Delete(ctx context.Context, accountID string) error {
	if s.delete == nil {
		return domain.ErrNotFound
	}
	return s.delete(ctx, accountID)
}

func (s *stubAccountUC) List(context.Context, int, int) ([]*model.Account, error) { return nil, nil }
func (s *stubAccountUC) Count(context.Context) (int, error)                       { return 0, nil }

type stubInvitationUC struct {
	send         func(ctx context.Context, senderID, receiverEmail string, anniversary time.Time, message string) (*model.Invitation, error)
	listReceived func(ctx context.Context, accountID string) ([]*model.Invitation, error)
	listSent     func(ctx context.Context, accountID string) ([]*model.Invitation, error)
	respond      func(ctx context.Context, invitationID, accountID string, action usecase.ResponseAction) (*model.Invitation, *model.Couple, error)
}

func (s *stubInvitationUC) Send(ctx context.Context, senderID, receiverEmail string, anniversary time.Time, message string) (*model.Invitation, error) {
	if s.send == nil {
		return nil, domain.ErrNotFound
	}
	return s.send(ctx, senderID, receiverEmail, anniversary, message)
}

func (s *stubInvitationUC) ListReceived(ctx context.Context, accountID string) ([]*model.Invitation, error) {
	if s.listReceived == nil {
		return nil, nil
	}
	return s.listReceived(ctx, accountID)
}

func (s *stubInvitationUC) ListSent(ctx context.Context, accountID string) ([]*model.Invitation, error) {
	if s.listSent == nil {
		return nil, nil
	}
	return s.listSent(ctx, accountID)
}

func (s *stubInvitationUC) Respond(ctx context.Context, invitationID, accountID string, action usecase.ResponseAction) (*model.Invitation, *model.Couple, error) {
	if s.respond == nil {
		return nil, nil, domain.ErrNotFound
	}
	return s.respond(ctx, invitationID, accountID, action)
}

func (s *stubInvitationUC) SweepExpired(context.Context) {}

type stubPairingUC struct {
	acceptInvitation func(ctx context.Context, invitationID, accountID string) (*model.Couple, error)
	createCouple     func(ctx context.Context, accountID string, anniversary time.Time) (*model.Couple, error)
	joinByCode       func(ctx context.Context, accountID, code string) (*model.Couple, error)
	leave            func(ctx context.Context, accountID string) error
	deleteCouple     func(ctx context.Context, coupleID, accountID string) error
}

func (s *stubPairingUC) AcceptInvitation(ctx context.Context, invitationID, accountID string) (*model.Couple, error) {
	if s.acceptInvitation == nil {
		return nil, domain.ErrNotFound
	}
	return s.acceptInvitation(ctx, invitationID, accountID)
}

func (s *stubPairingUC) CreateCouple(ctx context.Context, accountID string, anniversary time.Time) (*model.Couple, error) {
	if s.createCouple == nil {
		return nil, domain.ErrNotFound
	}
	return s.createCouple(ctx, accountID, anniversary)
}

func (s *stubPairingUC) JoinByCode(ctx context.Context, accountID, code string) (*model.Couple, error) {
	if s.joinByCode == nil {
		return nil, domain.ErrNotFound
	}
	return s.joinByCode(ctx, accountID, code)
}

func (s *stubPairingUC) Leave(ctx context.Context, accountID string) error {
	if s.leave == nil {
		return domain.ErrNotFound
	}
	return s.leave(ctx, accountID)
}

func (s *stubPairingUC) DeleteCouple(ctx context.Context, coupleID, accountID string) error {
	if s.deleteCouple == nil {
		return domain.ErrNotFound
	}
	return s.deleteCouple(ctx, coupleID, accountID)
}

func (s *stubPairingUC) CleanupAccount(context.Context, repository.Tx, string) error { return nil }

type stubCoupleUC struct {
	getByMember       func(ctx context.Context, accountID string) (*model.Couple, error)
	updateSettings    func(ctx context.Context, coupleID, accountID string, settings map[string]string) (*model.Couple, error)
	updateAnniversary func(ctx context.Context, coupleID, accountID string, anniversary time.Time) (*model.Couple, error)
	regenerateCode    func(ctx context.Context, coupleID, accountID string) (*model.Couple, error)
	setStatus         func(ctx context.Context, coupleID string, status model.CoupleStatus) (*model.Couple, error)
}

func (s *stubCoupleUC) GetByMember(ctx context.Context, accountID string) (*model.Couple, error) {
	if s.getByMember == nil {
		return nil, domain.ErrNotFound
	}
	return s.getByMember(ctx, accountID)
}

func (s *stubCoupleUC) IsMember(context.Context, string, string) (bool, error) { return false, nil }

func (s *stubCoupleUC) UpdateSettings(ctx context.Context, coupleID, accountID string, settings map[string]string) (*model.Couple, error) {
	if s.updateSettings == nil {
		return nil, domain.ErrNotFound
	}
	return s.updateSettings(ctx, coupleID, accountID, settings)
}

func (s *stubCoupleUC) UpdateAnniversary(ctx context.Context, coupleID, accountID string, anniversary time.Time) (*model.Couple, error) {
	if s.updateAnniversary == nil {
		return nil, domain.ErrNotFound
	}
	return s.updateAnniversary(ctx, coupleID, accountID, anniversary)
}

func (s *stubCoupleUC) RegeneratePairingCode(ctx context.Context, coupleID, accountID string) (*model.Couple, error) {
	if s.regenerateCode == nil {
		return nil, domain.ErrNotFound
	}
	return s.regenerateCode(ctx, coupleID, accountID)
}

func (s *stubCoupleUC) SetStatus(ctx context.Context, coupleID string, status model.CoupleStatus) (*model.Couple, error) {
	if s.setStatus == nil {
		return nil, domain.ErrNotFound
	}
	return s.setStatus(ctx, coupleID, status)
}

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
