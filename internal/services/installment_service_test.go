package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"kasku/internal/models"
	"kasku/internal/testutil"
)

func TestPayInstallment(t *testing.T) {
	ctx := context.Background()

	t.Run("pays_down_until_paid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewInstallmentService(db)
		user := testutil.CreateTestUser(t, db)
		account, owner := testutil.CreateTestAccount(t, db, user)
		ac := contextFor(account, owner, user)
		inst := testutil.CreateTestInstallment(t, db, account.ID, 400, 1000)
		due := inst.DueDate

		for i, want := range []string{"600", "200", "0"} {
			p, err := svc.PayInstallment(ctx, ac, inst.ID, PayInstallmentInput{})
			testutil.AssertNoError(t, err)
			testutil.AssertDecimal(t, want, p.Installment.RemainingAmount)
			if p.Wallet != nil || p.Transaction != nil {
				t.Error("expected no ledger effect without a wallet")
			}
			if !p.Installment.DueDate.Equal(due.AddDate(0, i+1, 0)) {
				t.Errorf("expected due date advanced by %d months, got %v", i+1, p.Installment.DueDate)
			}
		}

		var stored models.Installment
		testutil.AssertNoError(t, db.First(&stored, "id = ?", inst.ID).Error)
		if stored.Status != models.InstallmentStatusPaid {
			t.Errorf("expected paid, got %s", stored.Status)
		}

		_, err := svc.PayInstallment(ctx, ac, inst.ID, PayInstallmentInput{})
		testutil.AssertAppError(t, err, "INSTALLMENT_PAID")
	})

	t.Run("last_payment_is_capped", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewInstallmentService(db)
		user := testutil.CreateTestUser(t, db)
		account, owner := testutil.CreateTestAccount(t, db, user)
		inst := testutil.CreateTestInstallment(t, db, account.ID, 400, 150)

		p, err := svc.PayInstallment(ctx, contextFor(account, owner, user), inst.ID, PayInstallmentInput{})
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, "150", p.Amount)
		if p.Installment.Status != models.InstallmentStatusPaid {
			t.Errorf("expected paid, got %s", p.Installment.Status)
		}
	})

	t.Run("from_wallet_records_expense", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewInstallmentService(db)
		user := testutil.CreateTestUser(t, db)
		account, owner := testutil.CreateTestAccount(t, db, user)
		inst := testutil.CreateTestInstallment(t, db, account.ID, 400, 1000)
		wallet := testutil.CreateTestWallet(t, db, account.ID, 1000)

		p, err := svc.PayInstallment(ctx, contextFor(account, owner, user), inst.ID, PayInstallmentInput{WalletID: &wallet.ID})
		testutil.AssertNoError(t, err)

		testutil.AssertDecimal(t, "600", reloadWallet(t, db, wallet.ID).Balance)
		if p.Transaction == nil {
			t.Fatal("expected a transaction")
		}
		if p.Transaction.Category != models.CategoryInstallment || p.Transaction.Title != "Cicilan "+inst.Name {
			t.Errorf("unexpected transaction %+v", p.Transaction)
		}
		testutil.AssertDecimal(t, "400", p.Transaction.Amount)
	})

	t.Run("insufficient_wallet_rolls_back", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewInstallmentService(db)
		user := testutil.CreateTestUser(t, db)
		account, owner := testutil.CreateTestAccount(t, db, user)
		inst := testutil.CreateTestInstallment(t, db, account.ID, 400, 1000)
		wallet := testutil.CreateTestWallet(t, db, account.ID, 100)

		_, err := svc.PayInstallment(ctx, contextFor(account, owner, user), inst.ID, PayInstallmentInput{WalletID: &wallet.ID})
		testutil.AssertAppError(t, err, "INSUFFICIENT_BALANCE")

		var stored models.Installment
		testutil.AssertNoError(t, db.First(&stored, "id = ?", inst.ID).Error)
		testutil.AssertDecimal(t, "1000", stored.RemainingAmount)
		testutil.AssertDecimal(t, "100", reloadWallet(t, db, wallet.ID).Balance)
	})

	t.Run("remaining_payments_count_down", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewInstallmentService(db)
		user := testutil.CreateTestUser(t, db)
		account, owner := testutil.CreateTestAccount(t, db, user)
		ac := contextFor(account, owner, user)
		payments := 3

		inst, err := svc.CreateInstallment(ctx, ac, CreateInstallmentInput{
			Name: "HP", Type: "paylater", MonthlyAmount: decimal.NewFromInt(100),
			RemainingAmount: decimal.NewFromInt(300), RemainingPayments: &payments, DueDate: time.Now().AddDate(0, 0, 3),
		})
		testutil.AssertNoError(t, err)

		p, err := svc.PayInstallment(ctx, ac, inst.ID, PayInstallmentInput{})
		testutil.AssertNoError(t, err)
		if p.Installment.RemainingPayments == nil || *p.Installment.RemainingPayments != 2 {
			t.Errorf("expected 2 remaining payments, got %v", p.Installment.RemainingPayments)
		}
	})
}

func TestListInstallments(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	svc := NewInstallmentService(db)
	user := testutil.CreateTestUser(t, db)
	account, owner := testutil.CreateTestAccount(t, db, user)
	ac := contextFor(account, owner, user)

	late, err := svc.CreateInstallment(ctx, ac, CreateInstallmentInput{
		Name: "Motor", Type: "leasing", MonthlyAmount: decimal.NewFromInt(100),
		RemainingAmount: decimal.NewFromInt(500), DueDate: time.Now().AddDate(0, 0, 3),
		Status: models.InstallmentStatusActive,
	})
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, db.Model(&models.Installment{}).Where("id = ?", late.ID).
		Update("due_date", time.Now().UTC().AddDate(0, 0, -3)).Error)
	testutil.CreateTestInstallment(t, db, account.ID, 100, 500)

	list, err := svc.ListInstallments(ctx, ac)
	testutil.AssertNoError(t, err)
	if len(list) != 2 {
		t.Fatalf("expected 2 installments, got %d", len(list))
	}
	if list[0].ID != late.ID || list[0].Status != models.InstallmentStatusOverdue {
		t.Errorf("expected past-due installment first and overdue, got %+v", list[0])
	}
	if list[1].Status != models.InstallmentStatusActive {
		t.Errorf("expected upcoming installment active, got %s", list[1].Status)
	}
}

func TestInstallmentAmountRounding(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	svc := NewInstallmentService(db)
	user := testutil.CreateTestUser(t, db)
	account, owner := testutil.CreateTestAccount(t, db, user)
	ac := contextFor(account, owner, user)

	_, err := svc.CreateInstallment(ctx, ac, CreateInstallmentInput{
		Name: "Motor", Type: "leasing", MonthlyAmount: decimal.RequireFromString("0.001"),
		RemainingAmount: decimal.NewFromInt(500), DueDate: time.Now().AddDate(0, 0, 10),
	})
	testutil.AssertAppError(t, err, "INVALID_INPUT")
	if n := testutil.CountRows(t, db, &models.Installment{}, "account_id = ?", account.ID); n != 0 {
		t.Errorf("expected no installment stored, got %d", n)
	}

	inst := testutil.CreateTestInstallment(t, db, account.ID, 100, 500)
	tiny := decimal.RequireFromString("0.004")
	_, err = svc.UpdateInstallment(ctx, ac, inst.ID, UpdateInstallmentInput{MonthlyAmount: &tiny})
	testutil.AssertAppError(t, err, "INVALID_INPUT")

	var stored models.Installment
	testutil.AssertNoError(t, db.First(&stored, "id = ?", inst.ID).Error)
	testutil.AssertDecimal(t, "100", stored.MonthlyAmount)
}
