package services

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"kasku/internal/models"
	"kasku/internal/testutil"
)

func TestAdjustBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("increase_records_income", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewWalletService(db)
		user := testutil.CreateTestUser(t, db)
		account, owner := testutil.CreateTestAccount(t, db, user)
		wallet := testutil.CreateTestWallet(t, db, account.ID, 100000)

		res, err := svc.AdjustBalance(ctx, contextFor(account, owner, user), wallet.ID, decimal.NewFromInt(25000), "")
		testutil.AssertNoError(t, err)

		testutil.AssertDecimal(t, "125000", res.Wallet.Balance)
		testutil.AssertDecimal(t, "125000", reloadWallet(t, db, wallet.ID).Balance)
		if res.Transaction.Type != models.TransactionTypeIncome {
			t.Errorf("expected income, got %s", res.Transaction.Type)
		}
		if res.Transaction.Category != models.CategoryAdjustment {
			t.Errorf("expected category %q, got %q", models.CategoryAdjustment, res.Transaction.Category)
		}
		testutil.AssertDecimal(t, "25000", res.Transaction.Amount)
		if res.Transaction.MemberID == nil || *res.Transaction.MemberID != owner.ID {
			t.Error("expected acting member on the transaction")
		}
	})

	t.Run("decrease_records_expense", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewWalletService(db)
		user := testutil.CreateTestUser(t, db)
		account, owner := testutil.CreateTestAccount(t, db, user)
		wallet := testutil.CreateTestWallet(t, db, account.ID, 100000)

		res, err := svc.AdjustBalance(ctx, contextFor(account, owner, user), wallet.ID, decimal.NewFromInt(-40000), "koreksi")
		testutil.AssertNoError(t, err)

		testutil.AssertDecimal(t, "60000", reloadWallet(t, db, wallet.ID).Balance)
		if res.Transaction.Type != models.TransactionTypeExpense {
			t.Errorf("expected expense, got %s", res.Transaction.Type)
		}
		testutil.AssertDecimal(t, "40000", res.Transaction.Amount)
		if res.Transaction.Title != "koreksi" {
			t.Errorf("expected note as title, got %q", res.Transaction.Title)
		}
	})

	t.Run("decrease_to_exactly_zero", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewWalletService(db)
		user := testutil.CreateTestUser(t, db)
		account, owner := testutil.CreateTestAccount(t, db, user)
		wallet := testutil.CreateTestWallet(t, db, account.ID, 100000)

		_, err := svc.AdjustBalance(ctx, contextFor(account, owner, user), wallet.ID, decimal.NewFromInt(-100000), "")
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, "0", reloadWallet(t, db, wallet.ID).Balance)
	})

	t.Run("overdraw_fails_without_mutation", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewWalletService(db)
		user := testutil.CreateTestUser(t, db)
		account, owner := testutil.CreateTestAccount(t, db, user)
		wallet := testutil.CreateTestWallet(t, db, account.ID, 100000)

		_, err := svc.AdjustBalance(ctx, contextFor(account, owner, user), wallet.ID, decimal.NewFromInt(-150000), "")
		testutil.AssertAppError(t, err, "INSUFFICIENT_BALANCE")

		testutil.AssertDecimal(t, "100000", reloadWallet(t, db, wallet.ID).Balance)
		if n := testutil.CountRows(t, db, &models.Transaction{}, "account_id = ?", account.ID); n != 0 {
			t.Errorf("expected no transaction, got %d", n)
		}
	})

	t.Run("zero_delta", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewWalletService(db)
		user := testutil.CreateTestUser(t, db)
		account, owner := testutil.CreateTestAccount(t, db, user)
		wallet := testutil.CreateTestWallet(t, db, account.ID, 100)

		_, err := svc.AdjustBalance(ctx, contextFor(account, owner, user), wallet.ID, decimal.Zero, "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("wallet_of_other_account", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewWalletService(db)
		user := testutil.CreateTestUser(t, db)
		account, owner := testutil.CreateTestAccount(t, db, user)
		other, _ := testutil.CreateTestAccount(t, db, testutil.CreateTestUser(t, db))
		foreign := testutil.CreateTestWallet(t, db, other.ID, 100000)

		_, err := svc.AdjustBalance(ctx, contextFor(account, owner, user), foreign.ID, decimal.NewFromInt(10), "")
		testutil.AssertAppError(t, err, "WALLET_NOT_FOUND")
		testutil.AssertDecimal(t, "100000", reloadWallet(t, db, foreign.ID).Balance)
	})
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()

	t.Run("moves_funds_and_records_both_sides", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewWalletService(db)
		user := testutil.CreateTestUser(t, db)
		account, owner := testutil.CreateTestAccount(t, db, user)
		a := testutil.CreateTestWallet(t, db, account.ID, 100000)
		b := testutil.CreateTestWallet(t, db, account.ID, 0)

		res, err := svc.Transfer(ctx, contextFor(account, owner, user), TransferInput{
			SourceWalletID: a.ID,
			TargetWalletID: b.ID,
			Amount:         decimal.NewFromInt(50000),
			Note:           "tabungan",
		})
		testutil.AssertNoError(t, err)

		testutil.AssertDecimal(t, "50000", reloadWallet(t, db, a.ID).Balance)
		testutil.AssertDecimal(t, "50000", reloadWallet(t, db, b.ID).Balance)
		testutil.AssertDecimal(t, "50000", res.Source.Balance)
		testutil.AssertDecimal(t, "50000", res.Target.Balance)

		if len(res.Transactions) != 2 {
			t.Fatalf("expected 2 transactions, got %d", len(res.Transactions))
		}
		if res.Transactions[0].Type != models.TransactionTypeExpense || *res.Transactions[0].WalletID != a.ID {
			t.Error("expected expense on source")
		}
		if res.Transactions[1].Type != models.TransactionTypeIncome || *res.Transactions[1].WalletID != b.ID {
			t.Error("expected income on target")
		}
		if n := testutil.CountRows(t, db, &models.Transaction{}, "account_id = ? AND category = ?", account.ID, models.CategoryTransfer); n != 2 {
			t.Errorf("expected 2 stored transfer transactions, got %d", n)
		}
	})

	t.Run("source_created_after_target", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewWalletService(db)
		user := testutil.CreateTestUser(t, db)
		account, owner := testutil.CreateTestAccount(t, db, user)
		target := testutil.CreateTestWallet(t, db, account.ID, 0)
		source := testutil.CreateTestWallet(t, db, account.ID, 80000)

		res, err := svc.Transfer(ctx, contextFor(account, owner, user), TransferInput{
			SourceWalletID: source.ID, TargetWalletID: target.ID, Amount: decimal.NewFromInt(30000),
		})
		testutil.AssertNoError(t, err)

		testutil.AssertDecimal(t, "50000", reloadWallet(t, db, source.ID).Balance)
		testutil.AssertDecimal(t, "30000", reloadWallet(t, db, target.ID).Balance)
		if res.Source.ID != source.ID || res.Target.ID != target.ID {
			t.Errorf("result wallets swapped: source %s target %s", res.Source.ID, res.Target.ID)
		}
		testutil.AssertDecimal(t, "50000", res.Source.Balance)
	})

	t.Run("overdraw_with_source_after_target_changes_nothing", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewWalletService(db)
		user := testutil.CreateTestUser(t, db)
		account, owner := testutil.CreateTestAccount(t, db, user)
		target := testutil.CreateTestWallet(t, db, account.ID, 10000)
		source := testutil.CreateTestWallet(t, db, account.ID, 20000)

		_, err := svc.Transfer(ctx, contextFor(account, owner, user), TransferInput{
			SourceWalletID: source.ID, TargetWalletID: target.ID, Amount: decimal.NewFromInt(25000),
		})
		testutil.AssertAppError(t, err, "INSUFFICIENT_BALANCE")

		testutil.AssertDecimal(t, "20000", reloadWallet(t, db, source.ID).Balance)
		testutil.AssertDecimal(t, "10000", reloadWallet(t, db, target.ID).Balance)
	})

	t.Run("insufficient_balance_changes_nothing", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewWalletService(db)
		user := testutil.CreateTestUser(t, db)
		account, owner := testutil.CreateTestAccount(t, db, user)
		a := testutil.CreateTestWallet(t, db, account.ID, 30000)
		b := testutil.CreateTestWallet(t, db, account.ID, 10000)

		_, err := svc.Transfer(ctx, contextFor(account, owner, user), TransferInput{
			SourceWalletID: a.ID, TargetWalletID: b.ID, Amount: decimal.NewFromInt(50000),
		})
		testutil.AssertAppError(t, err, "INSUFFICIENT_BALANCE")

		testutil.AssertDecimal(t, "30000", reloadWallet(t, db, a.ID).Balance)
		testutil.AssertDecimal(t, "10000", reloadWallet(t, db, b.ID).Balance)
		if n := testutil.CountRows(t, db, &models.Transaction{}, "account_id = ?", account.ID); n != 0 {
			t.Errorf("expected no transactions, got %d", n)
		}
	})

	t.Run("missing_target_rolls_back_debit", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewWalletService(db)
		user := testutil.CreateTestUser(t, db)
		account, owner := testutil.CreateTestAccount(t, db, user)
		a := testutil.CreateTestWallet(t, db, account.ID, 100000)

		_, err := svc.Transfer(ctx, contextFor(account, owner, user), TransferInput{
			SourceWalletID: a.ID, TargetWalletID: "0190a7a0-0000-7000-8000-00000000dead", Amount: decimal.NewFromInt(1000),
		})
		testutil.AssertAppError(t, err, "WALLET_NOT_FOUND")
		testutil.AssertDecimal(t, "100000", reloadWallet(t, db, a.ID).Balance)
	})

	t.Run("target_in_other_account", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewWalletService(db)
		user := testutil.CreateTestUser(t, db)
		account, owner := testutil.CreateTestAccount(t, db, user)
		other, _ := testutil.CreateTestAccount(t, db, testutil.CreateTestUser(t, db))
		a := testutil.CreateTestWallet(t, db, account.ID, 100000)
		foreign := testutil.CreateTestWallet(t, db, other.ID, 0)

		_, err := svc.Transfer(ctx, contextFor(account, owner, user), TransferInput{
			SourceWalletID: a.ID, TargetWalletID: foreign.ID, Amount: decimal.NewFromInt(1000),
		})
		testutil.AssertAppError(t, err, "WALLET_NOT_FOUND")
		testutil.AssertDecimal(t, "100000", reloadWallet(t, db, a.ID).Balance)
		testutil.AssertDecimal(t, "0", reloadWallet(t, db, foreign.ID).Balance)
	})

	t.Run("same_wallet", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewWalletService(db)
		user := testutil.CreateTestUser(t, db)
		account, owner := testutil.CreateTestAccount(t, db, user)
		a := testutil.CreateTestWallet(t, db, account.ID, 100000)

		_, err := svc.Transfer(ctx, contextFor(account, owner, user), TransferInput{
			SourceWalletID: a.ID, TargetWalletID: a.ID, Amount: decimal.NewFromInt(1000),
		})
		testutil.AssertAppError(t, err, "SAME_WALLET_TRANSFER")
	})

	t.Run("non_positive_amount", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewWalletService(db)
		user := testutil.CreateTestUser(t, db)
		account, owner := testutil.CreateTestAccount(t, db, user)
		a := testutil.CreateTestWallet(t, db, account.ID, 100000)
		b := testutil.CreateTestWallet(t, db, account.ID, 0)

		for _, amount := range []int64{0, -5} {
			_, err := svc.Transfer(ctx, contextFor(account, owner, user), TransferInput{
				SourceWalletID: a.ID, TargetWalletID: b.ID, Amount: decimal.NewFromInt(amount),
			})
			testutil.AssertAppError(t, err, "INVALID_INPUT")
		}
	})

	t.Run("records_given_member", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewWalletService(db)
		user := testutil.CreateTestUser(t, db)
		account, owner := testutil.CreateTestAccount(t, db, user)
		partner := testutil.AddTestMember(t, db, account.ID, testutil.CreateTestUser(t, db), false)
		a := testutil.CreateTestWallet(t, db, account.ID, 100000)
		b := testutil.CreateTestWallet(t, db, account.ID, 0)

		res, err := svc.Transfer(ctx, contextFor(account, owner, user), TransferInput{
			SourceWalletID: a.ID, TargetWalletID: b.ID, Amount: decimal.NewFromInt(1000), MemberID: &partner.ID,
		})
		testutil.AssertNoError(t, err)
		for _, txn := range res.Transactions {
			if txn.MemberID == nil || *txn.MemberID != partner.ID {
				t.Error("expected transfer recorded against the given member")
			}
		}
	})

	t.Run("conserves_total_under_concurrency", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewWalletService(db)
		user := testutil.CreateTestUser(t, db)
		account, owner := testutil.CreateTestAccount(t, db, user)
		a := testutil.CreateTestWallet(t, db, account.ID, 100000)
		b := testutil.CreateTestWallet(t, db, account.ID, 0)
		ac := contextFor(account, owner, user)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = svc.Transfer(ctx, ac, TransferInput{
					SourceWalletID: a.ID, TargetWalletID: b.ID, Amount: decimal.NewFromInt(30000),
				})
			}()
		}
		wg.Wait()

		src := reloadWallet(t, db, a.ID).Balance
		dst := reloadWallet(t, db, b.ID).Balance
		testutil.AssertDecimal(t, "100000", src.Add(dst))
		testutil.AssertDecimal(t, "10000", src)
		testutil.AssertDecimal(t, "90000", dst)
	})
}

func TestWalletCRUD(t *testing.T) {
	ctx := context.Background()

	t.Run("create_rejects_negative_balance", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewWalletService(db)
		user := testutil.CreateTestUser(t, db)
		account, owner := testutil.CreateTestAccount(t, db, user)

		_, err := svc.CreateWallet(ctx, contextFor(account, owner, user), CreateWalletInput{
			Name: "BCA", Type: models.WalletTypeBank, Balance: decimal.NewFromInt(-1),
		})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("update_metadata_keeps_balance", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewWalletService(db)
		user := testutil.CreateTestUser(t, db)
		account, owner := testutil.CreateTestAccount(t, db, user)
		ac := contextFor(account, owner, user)

		wallet, err := svc.CreateWallet(ctx, ac, CreateWalletInput{
			Name: "BCA", Type: models.WalletTypeBank, Provider: "BCA", Balance: decimal.NewFromInt(5000),
		})
		testutil.AssertNoError(t, err)

		name := "BCA Utama"
		color := "sky-500"
		updated, err := svc.UpdateWallet(ctx, ac, wallet.ID, UpdateWalletInput{Name: &name, Color: &color})
		testutil.AssertNoError(t, err)
		if updated.Name != name || updated.Color != color {
			t.Errorf("expected updated metadata, got %q/%q", updated.Name, updated.Color)
		}
		testutil.AssertDecimal(t, "5000", updated.Balance)
	})

	t.Run("delete_keeps_transactions", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewWalletService(db)
		user := testutil.CreateTestUser(t, db)
		account, owner := testutil.CreateTestAccount(t, db, user)
		ac := contextFor(account, owner, user)
		wallet := testutil.CreateTestWallet(t, db, account.ID, 5000)

		_, err := svc.AdjustBalance(ctx, ac, wallet.ID, decimal.NewFromInt(1000), "")
		testutil.AssertNoError(t, err)

		testutil.AssertNoError(t, svc.DeleteWallet(ctx, ac, wallet.ID))
		if n := testutil.CountRows(t, db, &models.Transaction{}, "wallet_id = ?", wallet.ID); n != 1 {
			t.Errorf("expected transaction to survive wallet deletion, got %d", n)
		}

		err = svc.DeleteWallet(ctx, ac, wallet.ID)
		testutil.AssertAppError(t, err, "WALLET_NOT_FOUND")
	})

	t.Run("list_is_scoped", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewWalletService(db)
		user := testutil.CreateTestUser(t, db)
		account, owner := testutil.CreateTestAccount(t, db, user)
		other, _ := testutil.CreateTestAccount(t, db, testutil.CreateTestUser(t, db))
		testutil.CreateTestWallet(t, db, account.ID, 1)
		testutil.CreateTestWallet(t, db, other.ID, 1)

		wallets, err := svc.ListWallets(ctx, contextFor(account, owner, user))
		testutil.AssertNoError(t, err)
		if len(wallets) != 1 {
			t.Errorf("expected 1 wallet, got %d", len(wallets))
		}
	})
}
