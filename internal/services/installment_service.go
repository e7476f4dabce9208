package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "kasku/internal/errors"
	"kasku/internal/models"
)

// CreateInstallmentInput is the payload for creating an installment.
type CreateInstallmentInput struct {
	Name              string
	Type              string
	Provider          string
	MonthlyAmount     decimal.Decimal
	RemainingAmount   decimal.Decimal
	RemainingPayments *int
	DueDate           time.Time
	Status            models.InstallmentStatus
}

// UpdateInstallmentInput is a partial installment update.
type UpdateInstallmentInput struct {
	Name              *string
	Type              *string
	Provider          *string
	MonthlyAmount     *decimal.Decimal
	RemainingAmount   *decimal.Decimal
	RemainingPayments *int
	DueDate           *time.Time
	Status            *models.InstallmentStatus
}

// PayInstallmentInput records one payment, optionally from a wallet.
type PayInstallmentInput struct {
	WalletID *string
	Note     string
}

// InstallmentPayment is the outcome of paying an installment.
type InstallmentPayment struct {
	Installment models.Installment  `json:"installment"`
	Amount      decimal.Decimal     `json:"amount"`
	Wallet      *models.Wallet      `json:"wallet,omitempty"`
	Transaction *models.Transaction `json:"transaction,omitempty"`
}

// installmentService handles installment tracking.
type installmentService struct {
	db *gorm.DB
}

// NewInstallmentService creates a new InstallmentServicer.
func NewInstallmentService(db *gorm.DB) InstallmentServicer {
	return &installmentService{db: db}
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// installmentStatusFor derives the status of an unpaid or paid installment.
func installmentStatusFor(remaining decimal.Decimal, due time.Time) models.InstallmentStatus {
	if !remaining.IsPositive() {
		return models.InstallmentStatusPaid
	}
	if due.UTC().Before(startOfDay(time.Now())) {
		return models.InstallmentStatusOverdue
	}
	return models.InstallmentStatusActive
}

func validInstallmentStatus(st models.InstallmentStatus) bool {
	switch st {
	case models.InstallmentStatusActive, models.InstallmentStatusPaid, models.InstallmentStatusOverdue:
		return true
	}
	return false
}

func (s *installmentService) find(db *gorm.DB, accountID, installmentID string) (*models.Installment, error) {
	var inst models.Installment
	if err := db.Where("id = ? AND account_id = ?", installmentID, accountID).First(&inst).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInstallmentNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &inst, nil
}

// ListInstallments marks past-due installments overdue and returns all of
// the account's installments by due date.
func (s *installmentService) ListInstallments(ctx context.Context, ac *AccountContext) ([]models.Installment, error) {
	db := s.db.WithContext(ctx)

	if err := db.Model(&models.Installment{}).
		Where("account_id = ? AND status = ? AND due_date < ?", ac.Account.ID, models.InstallmentStatusActive, startOfDay(time.Now())).
		Update("status", models.InstallmentStatusOverdue).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var installments []models.Installment
	if err := db.Where("account_id = ?", ac.Account.ID).Order("due_date ASC").Find(&installments).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return installments, nil
}

// CreateInstallment creates an installment. Status is derived unless given.
func (s *installmentService) CreateInstallment(ctx context.Context, ac *AccountContext, input CreateInstallmentInput) (*models.Installment, error) {
	name := strings.TrimSpace(input.Name)
	kind := strings.TrimSpace(input.Type)
	if name == "" || kind == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "name and type are required")
	}
	monthly := input.MonthlyAmount.Round(2)
	if !monthly.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "monthlyAmount must be greater than 0")
	}
	remaining := input.RemainingAmount.Round(2)
	if remaining.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "remainingAmount cannot be negative")
	}
	if input.DueDate.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "dueDate is required")
	}
	if input.RemainingPayments != nil && *input.RemainingPayments < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "remainingPayments cannot be negative")
	}

	inst := &models.Installment{
		AccountID:         ac.Account.ID,
		Name:              name,
		Type:              kind,
		Provider:          strings.TrimSpace(input.Provider),
		MonthlyAmount:     monthly,
		RemainingAmount:   remaining,
		RemainingPayments: input.RemainingPayments,
		DueDate:           input.DueDate.UTC(),
		Status:            input.Status,
	}
	if inst.Status == "" {
		inst.Status = installmentStatusFor(inst.RemainingAmount, inst.DueDate)
	} else if !validInstallmentStatus(inst.Status) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "status must be active, paid or overdue")
	}

	if err := s.db.WithContext(ctx).Create(inst).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return inst, nil
}

// UpdateInstallment applies a partial update.
func (s *installmentService) UpdateInstallment(ctx context.Context, ac *AccountContext, installmentID string, input UpdateInstallmentInput) (*models.Installment, error) {
	db := s.db.WithContext(ctx)
	inst, err := s.find(db, ac.Account.ID, installmentID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "name cannot be empty")
		}
		inst.Name = name
	}
	if input.Type != nil {
		kind := strings.TrimSpace(*input.Type)
		if kind == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "type cannot be empty")
		}
		inst.Type = kind
	}
	if input.Provider != nil {
		inst.Provider = strings.TrimSpace(*input.Provider)
	}
	if input.MonthlyAmount != nil {
		monthly := input.MonthlyAmount.Round(2)
		if !monthly.IsPositive() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "monthlyAmount must be greater than 0")
		}
		inst.MonthlyAmount = monthly
	}
	if input.RemainingAmount != nil {
		remaining := input.RemainingAmount.Round(2)
		if remaining.IsNegative() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "remainingAmount cannot be negative")
		}
		inst.RemainingAmount = remaining
	}
	if input.RemainingPayments != nil {
		if *input.RemainingPayments < 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "remainingPayments cannot be negative")
		}
		inst.RemainingPayments = input.RemainingPayments
	}
	if input.DueDate != nil {
		inst.DueDate = input.DueDate.UTC()
	}

	switch {
	case input.Status != nil:
		if !validInstallmentStatus(*input.Status) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "status must be active, paid or overdue")
		}
		inst.Status = *input.Status
	case input.RemainingAmount != nil || input.DueDate != nil:
		inst.Status = installmentStatusFor(inst.RemainingAmount, inst.DueDate)
	}

	if err := db.Save(inst).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return inst, nil
}

// DeleteInstallment deletes an installment of the account.
func (s *installmentService) DeleteInstallment(ctx context.Context, ac *AccountContext, installmentID string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND account_id = ?", installmentID, ac.Account.ID).
		Delete(&models.Installment{})
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrInstallmentNotFound
	}
	return nil
}

// PayInstallment records one monthly payment. With a wallet the payment is
// debited from it and recorded as an expense in the same transaction.
func (s *installmentService) PayInstallment(ctx context.Context, ac *AccountContext, installmentID string, input PayInstallmentInput) (*InstallmentPayment, error) {
	var payment InstallmentPayment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inst, err := s.find(tx, ac.Account.ID, installmentID)
		if err != nil {
			return err
		}
		if inst.Status == models.InstallmentStatusPaid || !inst.RemainingAmount.IsPositive() {
			return apperrors.ErrInstallmentPaid
		}

		before := inst.RemainingAmount
		amount := decimal.Min(inst.MonthlyAmount, inst.RemainingAmount)
		inst.RemainingAmount = inst.RemainingAmount.Sub(amount)
		if inst.RemainingPayments != nil && *inst.RemainingPayments > 0 {
			left := *inst.RemainingPayments - 1
			inst.RemainingPayments = &left
		}
		inst.DueDate = inst.DueDate.AddDate(0, 1, 0)
		inst.Status = installmentStatusFor(inst.RemainingAmount, inst.DueDate)

		// Compare-and-set on the remaining amount so two concurrent payments
		// cannot both apply.
		res := tx.Model(&models.Installment{}).
			Where("id = ? AND remaining_amount = ?", inst.ID, before).
			Updates(map[string]interface{}{
				"remaining_amount":   inst.RemainingAmount,
				"remaining_payments": inst.RemainingPayments,
				"due_date":           inst.DueDate,
				"status":             inst.Status,
			})
		if res.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrInstallmentPaid
		}

		payment = InstallmentPayment{Installment: *inst, Amount: amount}

		if input.WalletID != nil && *input.WalletID != "" {
			wallet, err := applyDelta(tx, ac.Account.ID, *input.WalletID, amount.Neg())
			if err != nil {
				return err
			}
			entry := ledgerEntry(ac.Account.ID, wallet.ID, ac.MemberID, models.TransactionTypeExpense,
				models.CategoryInstallment, "Cicilan "+inst.Name, strings.TrimSpace(input.Note), amount)
			if err := tx.Create(entry).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			payment.Wallet = wallet
			payment.Transaction = entry
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}
