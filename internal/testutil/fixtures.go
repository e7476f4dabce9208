package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"kasku/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TestPassword is the plain-text password of every fixture user.
const TestPassword = "password123"

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	n := nextID()
	return CreateTestUserWithEmail(t, db, fmt.Sprintf("user%d@test.com", n), fmt.Sprintf("User %d", n))
}

// CreateTestUserWithEmail creates a user with the given email and name.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email, name string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestAccount creates an account owned by user. The owner membership
// is flagged default and the user's default pointer is set when the user has
// none yet.
func CreateTestAccount(t *testing.T, db *gorm.DB, owner *models.User) (*models.Account, *models.Member) {
	t.Helper()

	n := nextID()
	account := &models.Account{
		Slug:     fmt.Sprintf("kas-%d", n),
		Name:     fmt.Sprintf("Kas %d", n),
		Currency: "IDR",
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}

	isDefault := owner.DefaultAccountID == nil
	member := createMember(t, db, account.ID, owner, models.MemberRoleOwner, isDefault)
	if isDefault {
		if err := db.Model(owner).Update("default_account_id", account.ID).Error; err != nil {
			t.Fatalf("failed to set default account: %v", err)
		}
		accountID := account.ID
		owner.DefaultAccountID = &accountID
	}
	return account, member
}

// AddTestMember adds user to the account with role member.
func AddTestMember(t *testing.T, db *gorm.DB, accountID string, user *models.User, isDefault bool) *models.Member {
	t.Helper()
	return createMember(t, db, accountID, user, models.MemberRoleMember, isDefault)
}

// AddTestInvite adds an unlinked member addressed to email.
func AddTestInvite(t *testing.T, db *gorm.DB, accountID, email string) *models.Member {
	t.Helper()

	member := &models.Member{
		AccountID: accountID,
		Email:     email,
		Role:      models.MemberRoleMember,
	}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("failed to create test invite: %v", err)
	}
	return member
}

func createMember(t *testing.T, db *gorm.DB, accountID string, user *models.User, role models.MemberRole, isDefault bool) *models.Member {
	t.Helper()

	userID := user.ID
	member := &models.Member{
		AccountID: accountID,
		UserID:    &userID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      role,
		IsDefault: isDefault,
	}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("failed to create test member: %v", err)
	}
	// Distinct created_at values keep successor ordering deterministic.
	time.Sleep(2 * time.Millisecond)
	return member
}

// CreateTestWallet creates a cash wallet with the given balance.
func CreateTestWallet(t *testing.T, db *gorm.DB, accountID string, balance int64) *models.Wallet {
	t.Helper()

	wallet := &models.Wallet{
		AccountID: accountID,
		Name:      fmt.Sprintf("Wallet %d", nextID()),
		Type:      models.WalletTypeCash,
		Balance:   decimal.NewFromInt(balance),
	}
	if err := db.Create(wallet).Error; err != nil {
		t.Fatalf("failed to create test wallet: %v", err)
	}
	return wallet
}

// CreateTestTransaction creates a transaction occurring at occurredAt.
func CreateTestTransaction(t *testing.T, db *gorm.DB, accountID string, kind models.TransactionType, category string, amount int64, occurredAt time.Time) *models.Transaction {
	t.Helper()

	now := time.Now().UTC()
	txn := &models.Transaction{
		AccountID:      accountID,
		Type:           kind,
		Title:          fmt.Sprintf("Transaction %d", nextID()),
		Category:       category,
		Amount:         decimal.NewFromInt(amount),
		OccurredAt:     occurredAt.UTC(),
		LastAction:     models.ActivityCreated,
		LastActivityAt: now,
	}
	if err := db.Create(txn).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return txn
}

// CreateTestBudget creates a monthly budget starting a year ago.
func CreateTestBudget(t *testing.T, db *gorm.DB, accountID, category string, amount int64) *models.Budget {
	t.Helper()

	budget := &models.Budget{
		AccountID:   accountID,
		Category:    category,
		Amount:      decimal.NewFromInt(amount),
		SpentAmount: decimal.Zero,
		Period:      models.BudgetPeriodMonthly,
		StartDate:   time.Now().UTC().AddDate(-1, 0, 0),
		Status:      models.BudgetStatusOnTrack,
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}

// CreateTestInstallment creates an active installment due next week.
func CreateTestInstallment(t *testing.T, db *gorm.DB, accountID string, monthly, remaining int64) *models.Installment {
	t.Helper()

	inst := &models.Installment{
		AccountID:       accountID,
		Name:            fmt.Sprintf("Installment %d", nextID()),
		Type:            "paylater",
		MonthlyAmount:   decimal.NewFromInt(monthly),
		RemainingAmount: decimal.NewFromInt(remaining),
		DueDate:         time.Now().UTC().AddDate(0, 0, 7),
		Status:          models.InstallmentStatusActive,
	}
	if err := db.Create(inst).Error; err != nil {
		t.Fatalf("failed to create test installment: %v", err)
	}
	return inst
}

// CreateTestStatCard creates a stat card over categories.
func CreateTestStatCard(t *testing.T, db *gorm.DB, accountID string, kind models.TransactionType, categories ...string) *models.CustomStatCard {
	t.Helper()

	card := &models.CustomStatCard{
		AccountID:  accountID,
		Name:       fmt.Sprintf("Card %d", nextID()),
		Type:       kind,
		Categories: categories,
		Color:      models.DefaultStatCardColor(kind),
	}
	if err := db.Create(card).Error; err != nil {
		t.Fatalf("failed to create test stat card: %v", err)
	}
	return card
}

// CountRows returns the number of rows of model matching the query.
func CountRows(t *testing.T, db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()

	var count int64
	if err := db.Model(model).Where(query, args...).Count(&count).Error; err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	return count
}
