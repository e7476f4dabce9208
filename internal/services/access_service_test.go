package services

import (
	"context"
	"testing"

	"kasku/internal/models"
	"kasku/internal/session"
	"kasku/internal/testutil"
)

func identityOf(u *models.User) *session.Identity {
	return &session.Identity{UserID: u.ID, Email: u.Email, Name: u.Name}
}

func TestResolveAccountContext(t *testing.T) {
	ctx := context.Background()

	t.Run("member_resolves", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewAccessService(db)
		owner := testutil.CreateTestUser(t, db)
		account, ownerMember := testutil.CreateTestAccount(t, db, owner)

		ac, err := svc.ResolveAccountContext(ctx, identityOf(owner), account.Slug, false)
		testutil.AssertNoError(t, err)

		if ac.Account.ID != account.ID || ac.MemberID != ownerMember.ID {
			t.Error("expected context for the owner membership")
		}
		if !ac.IsOwner() {
			t.Error("expected owner role")
		}
	})

	t.Run("slug_is_case_insensitive", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewAccessService(db)
		owner := testutil.CreateTestUser(t, db)
		account, _ := testutil.CreateTestAccount(t, db, owner)

		_, err := svc.ResolveAccountContext(ctx, identityOf(owner), " "+account.Slug+" ", false)
		testutil.AssertNoError(t, err)
	})

	t.Run("unknown_slug", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewAccessService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.ResolveAccountContext(ctx, identityOf(user), "missing", false)
		testutil.AssertAppError(t, err, "ACCOUNT_NOT_FOUND")

		_, err = svc.ResolveAccountContext(ctx, identityOf(user), "", false)
		testutil.AssertAppError(t, err, "ACCOUNT_NOT_FOUND")
	})

	t.Run("unknown_slug_wins_over_missing_identity", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewAccessService(db)

		_, err := svc.ResolveAccountContext(ctx, nil, "missing", false)
		testutil.AssertAppError(t, err, "ACCOUNT_NOT_FOUND")
	})

	t.Run("unauthenticated", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewAccessService(db)
		account, _ := testutil.CreateTestAccount(t, db, testutil.CreateTestUser(t, db))

		_, err := svc.ResolveAccountContext(ctx, nil, account.Slug, false)
		testutil.AssertAppError(t, err, "UNAUTHORIZED")
	})

	t.Run("non_member_forbidden", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewAccessService(db)
		account, _ := testutil.CreateTestAccount(t, db, testutil.CreateTestUser(t, db))
		stranger := testutil.CreateTestUser(t, db)

		_, err := svc.ResolveAccountContext(ctx, identityOf(stranger), account.Slug, false)
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})

	t.Run("owner_required", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewAccessService(db)
		account, _ := testutil.CreateTestAccount(t, db, testutil.CreateTestUser(t, db))
		user := testutil.CreateTestUser(t, db)
		testutil.AddTestMember(t, db, account.ID, user, false)

		_, err := svc.ResolveAccountContext(ctx, identityOf(user), account.Slug, true)
		testutil.AssertAppError(t, err, "OWNER_REQUIRED")

		ac, err := svc.ResolveAccountContext(ctx, identityOf(user), account.Slug, false)
		testutil.AssertNoError(t, err)
		if ac.IsOwner() {
			t.Error("expected member role")
		}
	})

	t.Run("pending_invite_is_linked", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewAccessService(db)
		account, _ := testutil.CreateTestAccount(t, db, testutil.CreateTestUser(t, db))
		invite := testutil.AddTestInvite(t, db, account.ID, "invited@test.com")
		user := testutil.CreateTestUserWithEmail(t, db, "invited@test.com", "Invited")

		ac, err := svc.ResolveAccountContext(ctx, identityOf(user), account.Slug, false)
		testutil.AssertNoError(t, err)

		if ac.MemberID != invite.ID {
			t.Error("expected the invite membership")
		}
		m, _ := reloadMember(t, db, invite.ID)
		if m.UserID == nil || *m.UserID != user.ID {
			t.Error("expected invite linked to the user")
		}
		if m.Name != "Invited" {
			t.Errorf("expected name copied from identity, got %q", m.Name)
		}
	})
}
