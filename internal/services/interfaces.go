package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"kasku/internal/models"
	"kasku/internal/pagination"
	"kasku/internal/session"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	Register(ctx context.Context, email, password, name string) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// AccessServicer resolves an account slug and identity into an AccountContext.
type AccessServicer interface {
	ResolveAccountContext(ctx context.Context, id *session.Identity, slug string, requireOwner bool) (*AccountContext, error)
}

// AccountServicer defines the contract for account ("Kas") management.
type AccountServicer interface {
	CreateAccount(ctx context.Context, id session.Identity, input CreateAccountInput) (*AccountSummary, error)
	ListAccounts(ctx context.Context, id session.Identity) ([]AccountSummary, error)
	CheckSlug(ctx context.Context, slug string) (string, bool, error)
	GetDefaultAccount(ctx context.Context, id session.Identity) (*AccountSummary, error)
	SetDefaultAccount(ctx context.Context, id session.Identity, slug string) (*AccountSummary, error)
	GetAccount(ctx context.Context, ac *AccountContext) (*AccountDetail, error)
	UpdateAccount(ctx context.Context, ac *AccountContext, input UpdateAccountInput) (*models.Account, error)
}

// MemberServicer defines the membership lifecycle.
type MemberServicer interface {
	ListMembers(ctx context.Context, ac *AccountContext) ([]models.Member, error)
	CreateMember(ctx context.Context, ac *AccountContext, input CreateMemberInput) (*models.Member, error)
	UpdateMember(ctx context.Context, ac *AccountContext, memberID string, input UpdateMemberInput) (*models.Member, error)
	RemoveMember(ctx context.Context, ac *AccountContext, memberID string) error
	SelfExit(ctx context.Context, ac *AccountContext) (*SelfExitResult, error)
	TransferOwnership(ctx context.Context, ac *AccountContext, memberID string) (*models.Member, error)
}

// WalletServicer defines wallet CRUD and the ledger operations.
type WalletServicer interface {
	ListWallets(ctx context.Context, ac *AccountContext) ([]models.Wallet, error)
	GetWallet(ctx context.Context, ac *AccountContext, walletID string) (*models.Wallet, error)
	CreateWallet(ctx context.Context, ac *AccountContext, input CreateWalletInput) (*models.Wallet, error)
	UpdateWallet(ctx context.Context, ac *AccountContext, walletID string, input UpdateWalletInput) (*models.Wallet, error)
	DeleteWallet(ctx context.Context, ac *AccountContext, walletID string) error
	AdjustBalance(ctx context.Context, ac *AccountContext, walletID string, delta decimal.Decimal, note string) (*AdjustResult, error)
	Transfer(ctx context.Context, ac *AccountContext, input TransferInput) (*TransferResult, error)
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	Type     *models.TransactionType
	Category *string
	WalletID *string
	From     *time.Time
	To       *time.Time
}

// TransactionServicer defines the contract for transaction records.
type TransactionServicer interface {
	ListTransactions(ctx context.Context, ac *AccountContext, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransaction(ctx context.Context, ac *AccountContext, transactionID string) (*models.Transaction, error)
	CreateTransaction(ctx context.Context, ac *AccountContext, input CreateTransactionInput) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, ac *AccountContext, transactionID string, input UpdateTransactionInput) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, ac *AccountContext, transactionID string) error
	GetOverview(ctx context.Context, ac *AccountContext, months int) (*TransactionOverview, error)
	SuggestCategories(ctx context.Context, ac *AccountContext, search string, limit int) ([]string, error)
}

// BudgetServicer defines the contract for budget-related business logic.
type BudgetServicer interface {
	ListBudgets(ctx context.Context, ac *AccountContext, period *models.BudgetPeriod) ([]models.Budget, error)
	CreateBudget(ctx context.Context, ac *AccountContext, input CreateBudgetInput) (*models.Budget, error)
	UpdateBudget(ctx context.Context, ac *AccountContext, budgetID string, input UpdateBudgetInput) (*models.Budget, error)
	DeleteBudget(ctx context.Context, ac *AccountContext, budgetID string) error
	GetBudgetProgress(ctx context.Context, ac *AccountContext, budgetID string) (*BudgetProgress, error)
}

// InstallmentServicer defines the contract for installment tracking.
type InstallmentServicer interface {
	ListInstallments(ctx context.Context, ac *AccountContext) ([]models.Installment, error)
	CreateInstallment(ctx context.Context, ac *AccountContext, input CreateInstallmentInput) (*models.Installment, error)
	UpdateInstallment(ctx context.Context, ac *AccountContext, installmentID string, input UpdateInstallmentInput) (*models.Installment, error)
	DeleteInstallment(ctx context.Context, ac *AccountContext, installmentID string) error
	PayInstallment(ctx context.Context, ac *AccountContext, installmentID string, input PayInstallmentInput) (*InstallmentPayment, error)
}

// StatCardServicer defines the contract for custom dashboard stat cards.
type StatCardServicer interface {
	ListStatCards(ctx context.Context, ac *AccountContext) ([]models.CustomStatCard, error)
	CreateStatCard(ctx context.Context, ac *AccountContext, input CreateStatCardInput) (*models.CustomStatCard, error)
	UpdateStatCard(ctx context.Context, ac *AccountContext, cardID string, input UpdateStatCardInput) (*models.CustomStatCard, error)
	DeleteStatCard(ctx context.Context, ac *AccountContext, cardID string) error
}

// DashboardServicer aggregates the dashboard payload.
type DashboardServicer interface {
	GetSummary(ctx context.Context, ac *AccountContext) (*DashboardSummary, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(ctx context.Context, ac *AccountContext, action, resourceType, resourceID, ipAddress string, changes map[string]any)
}
