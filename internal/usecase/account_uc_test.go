package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"couple-pairing-service/internal/domain"
	"couple-pairing-service/internal/domain/model"
	"couple-pairing-service/internal/domain/ports/repository"
)

func newAccountFixture() (*fixture, AccountUseCase) {
	f := newFixture()
	uc := NewAccountUseCase(f.accounts, f.invitations, f.pairing, f.tm, testLogger())
	return f, uc
}

func TestAccountUC_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("should register and hash the password", func(t *testing.T) {
		_, uc := newAccountFixture()
		acct, err := uc.Register(ctx, "Alice@Example.com", "Alice", "s3cret-pass")
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		if acct.Email != "alice@example.com" {
			t.Fatalf("email = %q, want normalized lowercase", acct.Email)
		}
		if acct.PasswordHash == "s3cret-pass" || acct.PasswordHash == "" {
			t.Fatal("password stored unhashed")
		}
		if acct.IsPaired() {
			t.Fatal("new account must be single")
		}
	})

	t.Run("should reject a short password", func(t *testing.T) {
		_, uc := newAccountFixture()
		if _, err := uc.Register(ctx, "alice@example.com", "Alice", "short"); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("err = %v, want ErrInvalidArgument", err)
		}
	})

	t.Run("should reject a duplicate email", func(t *testing.T) {
		_, uc := newAccountFixture()
		if _, err := uc.Register(ctx, "alice@example.com", "Alice", "s3cret-pass"); err != nil {
			t.Fatalf("first register: %v", err)
		}
		if _, err := uc.Register(ctx, "alice@example.com", "Alice Again", "s3cret-pass"); !errors.Is(err, domain.ErrEmailAlreadyRegistered) {
			t.Fatalf("err = %v, want ErrEmailAlreadyRegistered", err)
		}
	})
}

func TestAccountUC_Authenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("should authenticate with the right password", func(t *testing.T) {
		_, uc := newAccountFixture()
		reg, err := uc.Register(ctx, "alice@example.com", "Alice", "s3cret-pass")
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		got, err := uc.Authenticate(ctx, "alice@example.com", "s3cret-pass")
		if err != nil {
			t.Fatalf("Authenticate: %v", err)
		}
		if got.ID != reg.ID {
			t.Fatalf("got account %s, want %s", got.ID, reg.ID)
		}
	})

	t.Run("should not reveal whether the email exists", func(t *testing.T) {
		_, uc := newAccountFixture()
		if _, err := uc.Register(ctx, "alice@example.com", "Alice", "s3cret-pass"); err != nil {
			t.Fatalf("Register: %v", err)
		}
		_, wrongPass := uc.Authenticate(ctx, "alice@example.com", "wrong-pass")
		_, noUser := uc.Authenticate(ctx, "ghost@example.com", "whatever-pass")
		if !errors.Is(wrongPass, domain.ErrInvalidCredentials) || !errors.Is(noUser, domain.ErrInvalidCredentials) {
			t.Fatalf("errors differ: %v vs %v", wrongPass, noUser)
		}
	})
}

func TestAccountUC_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("should cascade through couple and invitations", func(t *testing.T) {
		f, uc := newAccountFixture()
		alice := f.addAccount("alice", "alice@example.com")
		bob := f.addAccount("bob", "bob@example.com")
		carol := f.addAccount("carol", "carol@example.com")

		c, err := f.pairing.CreateCouple(ctx, alice.ID, time.Now().Add(-time.Hour))
		if err != nil {
			t.Fatalf("CreateCouple: %v", err)
		}
		if _, err := f.pairing.JoinByCode(ctx, bob.ID, c.PairingCode); err != nil {
			t.Fatalf("JoinByCode: %v", err)
		}
		inv, err := model.NewInvitation(carol.ID, alice.ID, time.Now().Add(-time.Hour), "", 0)
		if err != nil {
			t.Fatalf("NewInvitation: %v", err)
		}
		if err := f.invitations.Save(ctx, repository.NoTX, inv); err != nil {
			t.Fatalf("save invitation: %v", err)
		}

		if err := uc.Delete(ctx, alice.ID); err != nil {
			t.Fatalf("Delete: %v", err)
		}

		if _, err := f.accounts.FindByID(ctx, repository.NoTX, alice.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("account should be gone, got %v", err)
		}
		// Bob stays in a now-solo couple, joinable again by code.
		got, err := f.couples.FindByID(ctx, repository.NoTX, c.ID)
		if err != nil {
			t.Fatalf("couple gone: %v", err)
		}
		if len(got.Members) != 1 || got.Members[0] != bob.ID || got.Status != model.CoupleStatusPending {
			t.Fatalf("unexpected couple after delete: %+v", got)
		}
		swept, _ := f.invitations.FindByID(ctx, repository.NoTX, inv.ID)
		if swept.Status != model.InvitationStatusExpired {
			t.Fatalf("invitation status = %s, want expired", swept.Status)
		}
	})

	t.Run("should delete a single account without touching couples", func(t *testing.T) {
		f, uc := newAccountFixture()
		alice := f.addAccount("alice", "alice@example.com")
		if err := uc.Delete(ctx, alice.ID); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := f.accounts.FindByID(ctx, repository.NoTX, alice.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("account should be gone, got %v", err)
		}
	})

	t.Run("should delete the couple when the partner is gone too", func(t *testing.T) {
		f, uc := newAccountFixture()
		alice := f.addAccount("alice", "alice@example.com")
		c, err := f.pairing.CreateCouple(ctx, alice.ID, time.Now().Add(-time.Hour))
		if err != nil {
			t.Fatalf("CreateCouple: %v", err)
		}
		if err := uc.Delete(ctx, alice.ID); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := f.couples.FindByID(ctx, repository.NoTX, c.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("solo couple should be deleted, got %v", err)
		}
	})
}

func TestStatsUC_Totals(t *testing.T) {
	ctx := context.Background()

	f := newFixture()
	alice := f.addAccount("alice", "alice@example.com")
	bob := f.addAccount("bob", "bob@example.com")
	carol := f.addAccount("carol", "carol@example.com")

	c, err := f.pairing.CreateCouple(ctx, alice.ID, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("CreateCouple: %v", err)
	}
	if _, err := f.pairing.JoinByCode(ctx, bob.ID, c.PairingCode); err != nil {
		t.Fatalf("JoinByCode: %v", err)
	}
	inv, err := model.NewInvitation(carol.ID, "dave", time.Now().Add(-time.Hour), "", 0)
	if err != nil {
		t.Fatalf("NewInvitation: %v", err)
	}
	if err := f.invitations.Save(ctx, repository.NoTX, inv); err != nil {
		t.Fatalf("save invitation: %v", err)
	}

	uc := NewStatsUseCase(f.accounts, f.couples, f.invitations)
	totals, err := uc.Totals(ctx)
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	if totals.Accounts != 3 {
		t.Fatalf("accounts = %d, want 3", totals.Accounts)
	}
	if totals.CouplesByStatus[model.CoupleStatusActive] != 1 {
		t.Fatalf("active couples = %d, want 1", totals.CouplesByStatus[model.CoupleStatusActive])
	}
	if totals.InvitationsByStatus[model.InvitationStatusPending] != 1 {
		t.Fatalf("pending invitations = %d, want 1", totals.InvitationsByStatus[model.InvitationStatusPending])
	}
}
