package usecase

import (
	"context"

	"couple-pairing-service/internal/domain/model"
	"couple-pairing-service/internal/domain/ports/repository"
)

// Totals is the admin dashboard snapshot.
type Totals struct {
	Accounts            int
	CouplesByStatus     map[model.CoupleStatus]int
	InvitationsByStatus map[model.InvitationStatus]int
}

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

type StatsUseCase interface {
	Totals(ctx context.Context) (*Totals, error)
}

type statsUC struct {
	accounts    repository.AccountRepository
	couples     repository.CoupleRepository
	invitations repository.InvitationRepository
}

func NewStatsUseCase(accounts repository.AccountRepository, couples repository.CoupleRepository, invitations repository.InvitationRepository) *statsUC {
	return &statsUC{accounts: accounts, couples: couples, invitations: invitations}
}

func (u *statsUC) Totals(ctx context.Context) (*Totals, error) {
	accounts, err := u.accounts.Count(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	couples, err := u.couples.CountByStatus(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	invitations, err := u.invitations.CountByStatus(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	return &Totals{
		Accounts:            accounts,
		CouplesByStatus:     couples,
		InvitationsByStatus: invitations,
	}, nil
}
