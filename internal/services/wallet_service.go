package services

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "kasku/internal/errors"
	"kasku/internal/logger"
	"kasku/internal/models"
)

// CreateWalletInput is the payload for creating a wallet.
type CreateWalletInput struct {
	Name          string
	Type          models.WalletType
	Provider      string
	AccountNumber string
	Color         string
	Balance       decimal.Decimal
}

// UpdateWalletInput is a partial wallet update. Balance is not updatable
// here; use AdjustBalance or Transfer.
type UpdateWalletInput struct {
	Name          *string
	Type          *models.WalletType
	Provider      *string
	AccountNumber *string
	Color         *string
}

// TransferInput describes a move of funds between two wallets of one account.
type TransferInput struct {
	SourceWalletID string
	TargetWalletID string
	Amount         decimal.Decimal
	Note           string
	MemberID       *string
}

// AdjustResult is the outcome of a balance adjustment.
type AdjustResult struct {
	Wallet      models.Wallet      `json:"wallet"`
	Transaction models.Transaction `json:"transaction"`
}

// TransferResult is the outcome of a transfer.
type TransferResult struct {
	Source       models.Wallet        `json:"source"`
	Target       models.Wallet        `json:"target"`
	Transactions []models.Transaction `json:"transactions"`
}

// walletService handles wallets and the ledger operations on them.
type walletService struct {
	db *gorm.DB
}

// NewWalletService creates a new WalletServicer.
func NewWalletService(db *gorm.DB) WalletServicer {
	return &walletService{db: db}
}

// ListWallets returns the account's wallets, oldest first.
func (s *walletService) ListWallets(ctx context.Context, ac *AccountContext) ([]models.Wallet, error) {
	var wallets []models.Wallet
	if err := s.db.WithContext(ctx).Where("account_id = ?", ac.Account.ID).
		Order("created_at ASC").Find(&wallets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return wallets, nil
}

// GetWallet returns one wallet of the account.
func (s *walletService) GetWallet(ctx context.Context, ac *AccountContext, walletID string) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := s.db.WithContext(ctx).Where("id = ? AND account_id = ?", walletID, ac.Account.ID).
		First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrWalletNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &wallet, nil
}

// CreateWallet creates a wallet with a non-negative opening balance.
func (s *walletService) CreateWallet(ctx context.Context, ac *AccountContext, input CreateWalletInput) (*models.Wallet, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "name is required")
	}
	if input.Balance.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "balance cannot be negative")
	}

	wallet := &models.Wallet{
		AccountID:     ac.Account.ID,
		Name:          name,
		Type:          input.Type,
		Provider:      strings.TrimSpace(input.Provider),
		AccountNumber: strings.TrimSpace(input.AccountNumber),
		Color:         input.Color,
		Balance:       input.Balance.Round(2),
	}
	if wallet.Type == "" {
		wallet.Type = models.WalletTypeCash
	}

	if err := s.db.WithContext(ctx).Create(wallet).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return wallet, nil
}

// UpdateWallet updates wallet metadata.
func (s *walletService) UpdateWallet(ctx context.Context, ac *AccountContext, walletID string, input UpdateWalletInput) (*models.Wallet, error) {
	wallet, err := s.GetWallet(ctx, ac, walletID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Type != nil {
		updates["type"] = *input.Type
	}
	if input.Provider != nil {
		updates["provider"] = strings.TrimSpace(*input.Provider)
	}
	if input.AccountNumber != nil {
		updates["account_number"] = strings.TrimSpace(*input.AccountNumber)
	}
	if input.Color != nil {
		updates["color"] = *input.Color
	}
	if len(updates) == 0 {
		return wallet, nil
	}

	if err := s.db.WithContext(ctx).Model(&models.Wallet{}).
		Where("id = ? AND account_id = ?", wallet.ID, ac.Account.ID).
		Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.GetWallet(ctx, ac, walletID)
}

// DeleteWallet removes a wallet. Its transactions are kept.
func (s *walletService) DeleteWallet(ctx context.Context, ac *AccountContext, walletID string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND account_id = ?", walletID, ac.Account.ID).Delete(&models.Wallet{})
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrWalletNotFound
	}
	return nil
}

// AdjustBalance adds delta to the wallet balance and records the matching
// income or expense. A decrease that would overdraw the wallet fails with
// ErrInsufficientBalance and changes nothing.
func (s *walletService) AdjustBalance(ctx context.Context, ac *AccountContext, walletID string, delta decimal.Decimal, note string) (*AdjustResult, error) {
	delta = delta.Round(2)
	if delta.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than 0")
	}

	kind := models.TransactionTypeIncome
	if delta.IsNegative() {
		kind = models.TransactionTypeExpense
	}
	note = strings.TrimSpace(note)

	var result AdjustResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wallet, err := applyDelta(tx, ac.Account.ID, walletID, delta)
		if err != nil {
			return err
		}

		title := "Penyesuaian saldo " + wallet.Name
		if note != "" {
			title = note
		}
		entry := ledgerEntry(ac.Account.ID, wallet.ID, ac.MemberID, kind, models.CategoryAdjustment, title, note, delta.Abs())
		if err := tx.Create(entry).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		result = AdjustResult{Wallet: *wallet, Transaction: *entry}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Transfer debits the source and credits the target in one database
// transaction, recording an expense on the source and an income on the
// target.
func (s *walletService) Transfer(ctx context.Context, ac *AccountContext, input TransferInput) (*TransferResult, error) {
	amount := input.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than 0")
	}
	if input.SourceWalletID == "" || input.TargetWalletID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "sourceWalletId and targetWalletId are required")
	}
	if input.SourceWalletID == input.TargetWalletID {
		return nil, apperrors.ErrSameWalletTransfer
	}
	note := strings.TrimSpace(input.Note)

	var result TransferResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		memberID := ac.MemberID
		if input.MemberID != nil && *input.MemberID != "" {
			var count int64
			if err := tx.Model(&models.Member{}).
				Where("id = ? AND account_id = ?", *input.MemberID, ac.Account.ID).
				Count(&count).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if count == 0 {
				return apperrors.ErrMemberNotFound
			}
			memberID = *input.MemberID
		}

		source, target, err := applyTransfer(tx, ac.Account.ID, input.SourceWalletID, input.TargetWalletID, amount)
		if err != nil {
			return err
		}

		out := ledgerEntry(ac.Account.ID, source.ID, memberID, models.TransactionTypeExpense,
			models.CategoryTransfer, "Transfer ke "+target.Name, note, amount)
		in := ledgerEntry(ac.Account.ID, target.ID, memberID, models.TransactionTypeIncome,
			models.CategoryTransfer, "Transfer dari "+source.Name, note, amount)
		if err := tx.Create(out).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Create(in).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		result = TransferResult{Source: *source, Target: *target, Transactions: []models.Transaction{*out, *in}}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Infow("wallet transfer",
		"account_id", ac.Account.ID,
		"source_wallet_id", input.SourceWalletID,
		"target_wallet_id", input.TargetWalletID,
		"amount", amount.String(),
	)
	return &result, nil
}
