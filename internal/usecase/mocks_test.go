package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"couple-pairing-service/internal/domain"
	"couple-pairing-service/internal/domain/model"
	"couple-pairing-service/internal/domain/ports/repository"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// In-memory fakes for the repository ports. They return copies so a caller
// mutating a loaded entity never leaks into the store before Save, matching
// how rows behave.

func copyAccount(a *model.Account) *model.Account {
	cp := *a
	if a.CoupleID != nil {
		v := *a.CoupleID
		cp.CoupleID = &v
	}
	return &cp
}

func copyCouple(c *model.Couple) *model.Couple {
	cp := *c
	cp.Members = append([]string(nil), c.Members...)
	cp.Settings = map[string]string{}
	for k, v := range c.Settings {
		cp.Settings[k] = v
	}
	return &cp
}

func copyInvitation(i *model.Invitation) *model.Invitation {
	cp := *i
	return &cp
}

// ---------------------------------------------------------------------------

type memAccountRepo struct {
	mu       sync.RWMutex
	accounts map[string]*model.Account
	saveErr  error
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{accounts: map[string]*model.Account{}}
}

func (r *memAccountRepo) Save(_ context.Context, _ repository.Tx, a *model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	for id, existing := range r.accounts {
		if id != a.ID && existing.Email == a.Email {
			return domain.ErrEmailAlreadyRegistered
		}
	}
	r.accounts[a.ID] = copyAccount(a)
	return nil
}

func (r *memAccountRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyAccount(a), nil
}

func (r *memAccountRepo) FindByEmail(_ context.Context, _ repository.Tx, email string) (*model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if a.Email == email {
			return copyAccount(a), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memAccountRepo) SetCoupleID(_ context.Context, _ repository.Tx, accountID string, coupleID *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[accountID]
	if !ok {
		return domain.ErrNotFound
	}
	if coupleID == nil {
		a.CoupleID = nil
	} else {
		v := *coupleID
		a.CoupleID = &v
	}
	return nil
}

func (r *memAccountRepo) Delete(_ context.Context, _ repository.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.accounts, id)
	return nil
}

func (r *memAccountRepo) List(_ context.Context, _ repository.Tx, offset, limit int) ([]*model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]*model.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		all = append(all, copyAccount(a))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *memAccountRepo) Count(_ context.Context, _ repository.Tx) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.accounts), nil
}

// AcquirePairLock is a no-op: the fake transaction manager serializes whole
// transactions, which is strictly stronger than per-pair locks.
func (r *memAccountRepo) AcquirePairLock(_ context.Context, _ repository.Tx, _ ...string) error {
	return nil
}

// ---------------------------------------------------------------------------

type memCoupleRepo struct {
	mu      sync.RWMutex
	couples map[string]*model.Couple
	saveErr error
}

func newMemCoupleRepo() *memCoupleRepo {
	return &memCoupleRepo{couples: map[string]*model.Couple{}}
}

func (r *memCoupleRepo) Save(_ context.Context, _ repository.Tx, c *model.Couple) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.couples[c.ID] = copyCouple(c)
	return nil
}

func (r *memCoupleRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Couple, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.couples[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyCouple(c), nil
}

func (r *memCoupleRepo) FindByMember(_ context.Context, _ repository.Tx, accountID string) (*model.Couple, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.couples {
		if c.HasMember(accountID) {
			return copyCouple(c), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memCoupleRepo) FindByPairingCode(_ context.Context, _ repository.Tx, code string) (*model.Couple, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.couples {
		if c.PairingCode == code {
			return copyCouple(c), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memCoupleRepo) CodeExists(_ context.Context, _ repository.Tx, code string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.couples {
		if c.PairingCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (r *memCoupleRepo) Delete(_ context.Context, _ repository.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.couples[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.couples, id)
	return nil
}

func (r *memCoupleRepo) CountByStatus(_ context.Context, _ repository.Tx) (map[model.CoupleStatus]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := map[model.CoupleStatus]int{}
	for _, c := range r.couples {
		out[c.Status]++
	}
	return out, nil
}

// ---------------------------------------------------------------------------

type memInvitationRepo struct {
	mu          sync.RWMutex
	invitations map[string]*model.Invitation
	saveErr     error
}

func newMemInvitationRepo() *memInvitationRepo {
	return &memInvitationRepo{invitations: map[string]*model.Invitation{}}
}

func (r *memInvitationRepo) Save(_ context.Context, _ repository.Tx, inv *model.Invitation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	if inv.Status == model.InvitationStatusPending {
		for id, other := range r.invitations {
			if id == inv.ID || other.Status != model.InvitationStatusPending {
				continue
			}
			samePair := (other.SenderID == inv.SenderID && other.ReceiverID == inv.ReceiverID) ||
				(other.SenderID == inv.ReceiverID && other.ReceiverID == inv.SenderID)
			if samePair {
				return domain.ErrDuplicateInvitation
			}
		}
	}
	r.invitations[inv.ID] = copyInvitation(inv)
	return nil
}

func (r *memInvitationRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Invitation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inv, ok := r.invitations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyInvitation(inv), nil
}

func (r *memInvitationRepo) FindPendingBetween(_ context.Context, _ repository.Tx, accountA, accountB string) (*model.Invitation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, inv := range r.invitations {
		if inv.Status != model.InvitationStatusPending {
			continue
		}
		if (inv.SenderID == accountA && inv.ReceiverID == accountB) ||
			(inv.SenderID == accountB && inv.ReceiverID == accountA) {
			return copyInvitation(inv), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memInvitationRepo) listPending(match func(*model.Invitation) bool) []*model.Invitation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.Invitation
	for _, inv := range r.invitations {
		if inv.Status == model.InvitationStatusPending && match(inv) {
			out = append(out, copyInvitation(inv))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *memInvitationRepo) ListPendingByReceiver(_ context.Context, _ repository.Tx, accountID string) ([]*model.Invitation, error) {
	return r.listPending(func(inv *model.Invitation) bool { return inv.ReceiverID == accountID }), nil
}

func (r *memInvitationRepo) ListPendingBySender(_ context.Context, _ repository.Tx, accountID string) ([]*model.Invitation, error) {
	return r.listPending(func(inv *model.Invitation) bool { return inv.SenderID == accountID }), nil
}

func (r *memInvitationRepo) ExpireOverdue(_ context.Context, _ repository.Tx, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, inv := range r.invitations {
		if inv.Status == model.InvitationStatusPending && !inv.ExpiresAt.After(now) {
			inv.Status = model.InvitationStatusExpired
			inv.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (r *memInvitationRepo) ExpirePendingInvolving(_ context.Context, _ repository.Tx, accountIDs ...string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := map[string]bool{}
	for _, id := range accountIDs {
		ids[id] = true
	}
	var n int64
	now := time.Now()
	for _, inv := range r.invitations {
		if inv.Status != model.InvitationStatusPending {
			continue
		}
		if ids[inv.SenderID] || ids[inv.ReceiverID] {
			inv.Status = model.InvitationStatusExpired
			inv.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (r *memInvitationRepo) CountByStatus(_ context.Context, _ repository.Tx) (map[model.InvitationStatus]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := map[model.InvitationStatus]int{}
	for _, inv := range r.invitations {
		out[inv.Status]++
	}
	return out, nil
}

// ---------------------------------------------------------------------------

// fakeTxManager serializes every transaction behind one mutex, giving the
// protocols the same "one pairing at a time" guarantee the advisory locks
// provide in Postgres.
type fakeTxManager struct {
	mu sync.Mutex
}

func (m *fakeTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, struct{ fake string }{"tx"})
}

// ---------------------------------------------------------------------------

type fixture struct {
	accounts    *memAccountRepo
	couples     *memCoupleRepo
	invitations *memInvitationRepo
	tm          *fakeTxManager
	pairing     PairingUseCase
}

func newFixture() *fixture {
	f := &fixture{
		accounts:    newMemAccountRepo(),
		couples:     newMemCoupleRepo(),
		invitations: newMemInvitationRepo(),
		tm:          &fakeTxManager{},
	}
	f.pairing = NewPairingUseCase(f.accounts, f.couples, f.invitations, f.tm, nil, 10, testLogger())
	return f
}

func (f *fixture) addAccount(id, email string) *model.Account {
	a, err := model.NewAccount(id, email, "name-"+id, "hash")
	if err != nil {
		panic(err)
	}
	if err := f.accounts.Save(context.Background(), repository.NoTX, a); err != nil {
		panic(err)
	}
	return a
}
