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

var (
	warningRatio = decimal.NewFromFloat(0.8)
	hundred      = decimal.NewFromInt(100)
)

// CreateBudgetInput is the payload for creating a budget.
type CreateBudgetInput struct {
	Category    string
	Amount      decimal.Decimal
	SpentAmount decimal.Decimal
	Period      models.BudgetPeriod
	StartDate   time.Time
	EndDate     *time.Time
	Status      models.BudgetStatus
}

// UpdateBudgetInput is a partial budget update.
type UpdateBudgetInput struct {
	Category    *string
	Amount      *decimal.Decimal
	SpentAmount *decimal.Decimal
	Period      *models.BudgetPeriod
	StartDate   *time.Time
	EndDate     *time.Time
	Status      *models.BudgetStatus
}

// BudgetProgress contains spending vs budget data for a budget's current period.
type BudgetProgress struct {
	BudgetID    string              `json:"budgetId"`
	Category    string              `json:"category"`
	Period      models.BudgetPeriod `json:"period"`
	PeriodStart time.Time           `json:"periodStart"`
	PeriodEnd   time.Time           `json:"periodEnd"`
	Budgeted    decimal.Decimal     `json:"budgeted"`
	Spent       decimal.Decimal     `json:"spent"`
	Remaining   decimal.Decimal     `json:"remaining"`
	Percentage  float64             `json:"percentage"`
	Status      models.BudgetStatus `json:"status"`
}

// budgetService handles budget-related business logic.
type budgetService struct {
	db *gorm.DB
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB) BudgetServicer {
	return &budgetService{db: db}
}

// BudgetStatusFor derives the status from the spent share of the cap:
// below 80% is on track, up to 100% is a warning, beyond is over budget.
func BudgetStatusFor(amount, spent decimal.Decimal) models.BudgetStatus {
	if !amount.IsPositive() {
		if spent.IsPositive() {
			return models.BudgetStatusOverBudget
		}
		return models.BudgetStatusOnTrack
	}
	ratio := spent.Div(amount)
	switch {
	case ratio.LessThan(warningRatio):
		return models.BudgetStatusOnTrack
	case ratio.LessThanOrEqual(decimal.NewFromInt(1)):
		return models.BudgetStatusWarning
	default:
		return models.BudgetStatusOverBudget
	}
}

// periodWindow returns the period containing at, clamped to the budget's
// start and end dates.
func periodWindow(b *models.Budget, at time.Time) (time.Time, time.Time) {
	at = at.UTC()
	var from, to time.Time
	switch b.Period {
	case models.BudgetPeriodWeekly:
		day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
		offset := (int(day.Weekday()) + 6) % 7
		from = day.AddDate(0, 0, -offset)
		to = from.AddDate(0, 0, 7)
	case models.BudgetPeriodYearly:
		from = time.Date(at.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		to = from.AddDate(1, 0, 0)
	default:
		from = monthStart(at)
		to = from.AddDate(0, 1, 0)
	}

	if start := b.StartDate.UTC(); start.After(from) {
		from = start
	}
	if b.EndDate != nil {
		if end := b.EndDate.UTC(); end.Before(to) {
			to = end
		}
	}
	return from, to
}

func validPeriod(p models.BudgetPeriod) bool {
	switch p {
	case models.BudgetPeriodWeekly, models.BudgetPeriodMonthly, models.BudgetPeriodYearly:
		return true
	}
	return false
}

func validBudgetStatus(st models.BudgetStatus) bool {
	switch st {
	case models.BudgetStatusOnTrack, models.BudgetStatusWarning, models.BudgetStatusOverBudget:
		return true
	}
	return false
}

func (s *budgetService) find(db *gorm.DB, accountID, budgetID string) (*models.Budget, error) {
	var budget models.Budget
	if err := db.Where("id = ? AND account_id = ?", budgetID, accountID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &budget, nil
}

// ListBudgets returns the account's budgets, optionally filtered by period.
func (s *budgetService) ListBudgets(ctx context.Context, ac *AccountContext, period *models.BudgetPeriod) ([]models.Budget, error) {
	q := s.db.WithContext(ctx).Where("account_id = ?", ac.Account.ID)
	if period != nil {
		q = q.Where("period = ?", *period)
	}
	var budgets []models.Budget
	if err := q.Order("created_at DESC").Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return budgets, nil
}

// CreateBudget creates a budget. Status is derived unless given.
func (s *budgetService) CreateBudget(ctx context.Context, ac *AccountContext, input CreateBudgetInput) (*models.Budget, error) {
	category := strings.TrimSpace(input.Category)
	if category == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category is required")
	}
	amount := input.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than 0")
	}
	spent := input.SpentAmount.Round(2)
	if spent.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "spentAmount cannot be negative")
	}
	if input.StartDate.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "startDate is required")
	}
	period := input.Period
	if period == "" {
		period = models.BudgetPeriodMonthly
	}
	if !validPeriod(period) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "period must be weekly, monthly or yearly")
	}
	if input.Status != "" && !validBudgetStatus(input.Status) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "status must be on-track, warning or over-budget")
	}

	budget := &models.Budget{
		AccountID:   ac.Account.ID,
		Category:    category,
		Amount:      amount,
		SpentAmount: spent,
		Period:      period,
		StartDate:   input.StartDate.UTC(),
		Status:      input.Status,
	}
	if input.EndDate != nil {
		end := input.EndDate.UTC()
		if !end.After(budget.StartDate) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "endDate must be after startDate")
		}
		budget.EndDate = &end
	}
	if budget.Status == "" {
		budget.Status = BudgetStatusFor(budget.Amount, budget.SpentAmount)
	}

	if err := s.db.WithContext(ctx).Create(budget).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return budget, nil
}

// UpdateBudget applies a partial update. When the amounts change and no
// status is given the status is derived again.
func (s *budgetService) UpdateBudget(ctx context.Context, ac *AccountContext, budgetID string, input UpdateBudgetInput) (*models.Budget, error) {
	db := s.db.WithContext(ctx)
	budget, err := s.find(db, ac.Account.ID, budgetID)
	if err != nil {
		return nil, err
	}

	if input.Category != nil {
		category := strings.TrimSpace(*input.Category)
		if category == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category cannot be empty")
		}
		budget.Category = category
	}
	if input.Amount != nil {
		amount := input.Amount.Round(2)
		if !amount.IsPositive() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than 0")
		}
		budget.Amount = amount
	}
	if input.SpentAmount != nil {
		spent := input.SpentAmount.Round(2)
		if spent.IsNegative() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "spentAmount cannot be negative")
		}
		budget.SpentAmount = spent
	}
	if input.Period != nil {
		if !validPeriod(*input.Period) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "period must be weekly, monthly or yearly")
		}
		budget.Period = *input.Period
	}
	if input.StartDate != nil {
		budget.StartDate = input.StartDate.UTC()
	}
	if input.EndDate != nil {
		end := input.EndDate.UTC()
		budget.EndDate = &end
	}
	if budget.EndDate != nil && !budget.EndDate.After(budget.StartDate) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "endDate must be after startDate")
	}

	switch {
	case input.Status != nil:
		if !validBudgetStatus(*input.Status) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "status must be on-track, warning or over-budget")
		}
		budget.Status = *input.Status
	case input.Amount != nil || input.SpentAmount != nil:
		budget.Status = BudgetStatusFor(budget.Amount, budget.SpentAmount)
	}

	if err := db.Save(budget).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return budget, nil
}

// DeleteBudget deletes a budget of the account.
func (s *budgetService) DeleteBudget(ctx context.Context, ac *AccountContext, budgetID string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND account_id = ?", budgetID, ac.Account.ID).Delete(&models.Budget{})
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrBudgetNotFound
	}
	return nil
}

// GetBudgetProgress recomputes the spent amount from expense transactions in
// the budget's current period, stores it, and returns the progress.
func (s *budgetService) GetBudgetProgress(ctx context.Context, ac *AccountContext, budgetID string) (*BudgetProgress, error) {
	var progress *BudgetProgress
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		budget, err := s.find(tx, ac.Account.ID, budgetID)
		if err != nil {
			return err
		}

		from, to := periodWindow(budget, time.Now())
		spent := decimal.Zero
		if from.Before(to) {
			if err := tx.Model(&models.Transaction{}).
				Select("COALESCE(SUM(amount), 0)").
				Where("account_id = ? AND type = ? AND LOWER(category) = ? AND occurred_at >= ? AND occurred_at < ?",
					ac.Account.ID, models.TransactionTypeExpense, strings.ToLower(budget.Category), from, to).
				Row().Scan(&spent); err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		spent = spent.Round(2)
		status := BudgetStatusFor(budget.Amount, spent)

		if err := tx.Model(&models.Budget{}).Where("id = ?", budget.ID).
			Updates(map[string]interface{}{"spent_amount": spent, "status": status}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		percentage := 0.0
		if budget.Amount.IsPositive() {
			percentage, _ = spent.Div(budget.Amount).Mul(hundred).Round(2).Float64()
		}
		progress = &BudgetProgress{
			BudgetID:    budget.ID,
			Category:    budget.Category,
			Period:      budget.Period,
			PeriodStart: from,
			PeriodEnd:   to,
			Budgeted:    budget.Amount,
			Spent:       spent,
			Remaining:   budget.Amount.Sub(spent),
			Percentage:  percentage,
			Status:      status,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return progress, nil
}
