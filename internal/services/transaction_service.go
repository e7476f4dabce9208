package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "kasku/internal/errors"
	"kasku/internal/models"
	"kasku/internal/pagination"
)

const (
	defaultOverviewMonths   = 6
	maxOverviewMonths       = 24
	defaultSuggestionLimit  = 10
	maxSuggestionLimit      = 50
	monthKeyLayout          = "2006-01"
	likeEscape              = `\`
	suggestionLikeCondition = `LOWER(category) LIKE ? ESCAPE '\'`
)

// CreateTransactionInput is the payload for recording a transaction.
type CreateTransactionInput struct {
	Type        models.TransactionType
	Title       string
	Category    string
	Amount      decimal.Decimal
	OccurredAt  *time.Time
	Description string
	WalletID    *string
}

// UpdateTransactionInput is a partial transaction update.
type UpdateTransactionInput struct {
	Type        *models.TransactionType
	Title       *string
	Category    *string
	Amount      *decimal.Decimal
	OccurredAt  *time.Time
	Description *string
	WalletID    *string
}

// MonthlyTotals is one calendar month of the overview.
type MonthlyTotals struct {
	Month   string          `json:"month"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Net     decimal.Decimal `json:"net"`
}

// CategoryTotal is the sum of one category and type over the overview window.
type CategoryTotal struct {
	Category string                 `json:"category"`
	Type     models.TransactionType `json:"type"`
	Total    decimal.Decimal        `json:"total"`
	Count    int                    `json:"count"`
}

// TransactionOverview summarises a rolling window of calendar months.
type TransactionOverview struct {
	Months       int             `json:"months"`
	From         time.Time       `json:"from"`
	To           time.Time       `json:"to"`
	TotalIncome  decimal.Decimal `json:"totalIncome"`
	TotalExpense decimal.Decimal `json:"totalExpense"`
	Net          decimal.Decimal `json:"net"`
	Monthly      []MonthlyTotals `json:"monthly"`
	Categories   []CategoryTotal `json:"categories"`
}

// transactionService handles transaction records.
type transactionService struct {
	db *gorm.DB
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB) TransactionServicer {
	return &transactionService{db: db}
}

func (s *transactionService) ensureWallet(tx *gorm.DB, accountID, walletID string) error {
	var count int64
	if err := tx.Model(&models.Wallet{}).Where("id = ? AND account_id = ?", walletID, accountID).
		Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count == 0 {
		return apperrors.ErrWalletNotFound
	}
	return nil
}

// CreateTransaction records an income or expense. It does not move any
// wallet balance.
func (s *transactionService) CreateTransaction(ctx context.Context, ac *AccountContext, input CreateTransactionInput) (*models.Transaction, error) {
	title := strings.TrimSpace(input.Title)
	category := strings.TrimSpace(input.Category)
	if title == "" || category == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "title and category are required")
	}
	if input.Type != models.TransactionTypeIncome && input.Type != models.TransactionTypeExpense {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "type must be income or expense")
	}
	if !input.Amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than 0")
	}

	db := s.db.WithContext(ctx)
	if input.WalletID != nil && *input.WalletID != "" {
		if err := s.ensureWallet(db, ac.Account.ID, *input.WalletID); err != nil {
			return nil, err
		}
	} else {
		input.WalletID = nil
	}

	now := time.Now().UTC()
	occurredAt := now
	if input.OccurredAt != nil {
		occurredAt = input.OccurredAt.UTC()
	}
	memberID := ac.MemberID

	txn := &models.Transaction{
		AccountID:         ac.Account.ID,
		WalletID:          input.WalletID,
		MemberID:          &memberID,
		Type:              input.Type,
		Title:             title,
		Category:          category,
		Amount:            input.Amount.Round(2),
		OccurredAt:        occurredAt,
		Description:       strings.TrimSpace(input.Description),
		LastActorMemberID: &memberID,
		LastAction:        models.ActivityCreated,
		LastActivityAt:    now,
	}
	if err := db.Create(txn).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.attachActivity(db, []*models.Transaction{txn}); err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *transactionService) find(db *gorm.DB, accountID, transactionID string) (*models.Transaction, error) {
	var txn models.Transaction
	if err := db.Where("id = ? AND account_id = ?", transactionID, accountID).First(&txn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &txn, nil
}

// GetTransaction returns one transaction of the account.
func (s *transactionService) GetTransaction(ctx context.Context, ac *AccountContext, transactionID string) (*models.Transaction, error) {
	db := s.db.WithContext(ctx)
	txn, err := s.find(db, ac.Account.ID, transactionID)
	if err != nil {
		return nil, err
	}
	if err := s.attachActivity(db, []*models.Transaction{txn}); err != nil {
		return nil, err
	}
	return txn, nil
}

// ListTransactions returns a filtered page of transactions, newest first.
func (s *transactionService) ListTransactions(ctx context.Context, ac *AccountContext, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()
	db := s.db.WithContext(ctx)

	base := db.Model(&models.Transaction{}).Where("account_id = ?", ac.Account.ID)
	if filter.Type != nil {
		base = base.Where("type = ?", *filter.Type)
	}
	if filter.Category != nil && *filter.Category != "" {
		base = base.Where("LOWER(category) = ?", strings.ToLower(*filter.Category))
	}
	if filter.WalletID != nil && *filter.WalletID != "" {
		base = base.Where("wallet_id = ?", *filter.WalletID)
	}
	if filter.From != nil {
		base = base.Where("occurred_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		base = base.Where("occurred_at <= ?", filter.To.UTC())
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var txns []models.Transaction
	if err := base.Scopes(pagination.Paginate(page)).
		Order("occurred_at DESC, created_at DESC").
		Find(&txns).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	ptrs := make([]*models.Transaction, len(txns))
	for i := range txns {
		ptrs[i] = &txns[i]
	}
	if err := s.attachActivity(db, ptrs); err != nil {
		return nil, err
	}

	return pagination.NewPageResponse(txns, page, totalItems), nil
}

// UpdateTransaction applies a partial update and records the caller as the
// latest actor.
func (s *transactionService) UpdateTransaction(ctx context.Context, ac *AccountContext, transactionID string, input UpdateTransactionInput) (*models.Transaction, error) {
	var updated *models.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txn, err := s.find(tx, ac.Account.ID, transactionID)
		if err != nil {
			return err
		}

		if input.Type != nil {
			if *input.Type != models.TransactionTypeIncome && *input.Type != models.TransactionTypeExpense {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "type must be income or expense")
			}
			txn.Type = *input.Type
		}
		if input.Title != nil {
			title := strings.TrimSpace(*input.Title)
			if title == "" {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "title cannot be empty")
			}
			txn.Title = title
		}
		if input.Category != nil {
			category := strings.TrimSpace(*input.Category)
			if category == "" {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "category cannot be empty")
			}
			txn.Category = category
		}
		if input.Amount != nil {
			if !input.Amount.IsPositive() {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than 0")
			}
			txn.Amount = input.Amount.Round(2)
		}
		if input.OccurredAt != nil {
			txn.OccurredAt = input.OccurredAt.UTC()
		}
		if input.Description != nil {
			txn.Description = strings.TrimSpace(*input.Description)
		}
		if input.WalletID != nil {
			if *input.WalletID == "" {
				txn.WalletID = nil
			} else {
				if err := s.ensureWallet(tx, ac.Account.ID, *input.WalletID); err != nil {
					return err
				}
				walletID := *input.WalletID
				txn.WalletID = &walletID
			}
		}

		actor := ac.MemberID
		txn.LastActorMemberID = &actor
		txn.LastAction = models.ActivityUpdated
		txn.LastActivityAt = time.Now().UTC()

		if err := tx.Save(txn).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		updated = txn
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.attachActivity(s.db.WithContext(ctx), []*models.Transaction{updated}); err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteTransaction removes a transaction of the account.
func (s *transactionService) DeleteTransaction(ctx context.Context, ac *AccountContext, transactionID string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND account_id = ?", transactionID, ac.Account.ID).
		Delete(&models.Transaction{})
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrTransactionNotFound
	}
	return nil
}

// attachActivity fills LatestActivity from the actors' memberships.
func (s *transactionService) attachActivity(db *gorm.DB, txns []*models.Transaction) error {
	ids := make([]string, 0, len(txns))
	seen := make(map[string]bool)
	for _, t := range txns {
		if t.LastActorMemberID != nil && !seen[*t.LastActorMemberID] {
			seen[*t.LastActorMemberID] = true
			ids = append(ids, *t.LastActorMemberID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	var members []models.Member
	if err := db.Where("id IN ?", ids).Find(&members).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	names := make(map[string]string, len(members))
	for _, m := range members {
		name := m.Name
		if name == "" {
			name = CensorEmail(m.Email)
		}
		names[m.ID] = name
	}

	for _, t := range txns {
		if t.LastActorMemberID == nil {
			continue
		}
		t.LatestActivity = &models.Activity{
			ActorMemberID: *t.LastActorMemberID,
			ActorName:     names[*t.LastActorMemberID],
			Action:        t.LastAction,
			At:            t.LastActivityAt,
		}
	}
	return nil
}

// monthStart returns midnight UTC on the first of t's month.
func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// GetOverview totals income and expense per calendar month for the last
// months months (the current month included) and per category over the
// same window.
func (s *transactionService) GetOverview(ctx context.Context, ac *AccountContext, months int) (*TransactionOverview, error) {
	if months <= 0 {
		months = defaultOverviewMonths
	}
	if months > maxOverviewMonths {
		months = maxOverviewMonths
	}

	from := monthStart(time.Now()).AddDate(0, -(months - 1), 0)
	to := monthStart(time.Now()).AddDate(0, 1, 0)

	var txns []models.Transaction
	if err := s.db.WithContext(ctx).
		Select("type", "category", "amount", "occurred_at").
		Where("account_id = ? AND occurred_at >= ? AND occurred_at < ?", ac.Account.ID, from, to).
		Find(&txns).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	overview := &TransactionOverview{
		Months:       months,
		From:         from,
		To:           to,
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
		Monthly:      make([]MonthlyTotals, months),
	}
	index := make(map[string]int, months)
	for i := 0; i < months; i++ {
		key := from.AddDate(0, i, 0).Format(monthKeyLayout)
		index[key] = i
		overview.Monthly[i] = MonthlyTotals{Month: key, Income: decimal.Zero, Expense: decimal.Zero, Net: decimal.Zero}
	}

	type categoryKey struct {
		category string
		kind     models.TransactionType
	}
	categories := make(map[categoryKey]*CategoryTotal)

	for _, t := range txns {
		i, ok := index[t.OccurredAt.UTC().Format(monthKeyLayout)]
		if !ok {
			continue
		}
		m := &overview.Monthly[i]
		if t.Type == models.TransactionTypeIncome {
			m.Income = m.Income.Add(t.Amount)
			overview.TotalIncome = overview.TotalIncome.Add(t.Amount)
		} else {
			m.Expense = m.Expense.Add(t.Amount)
			overview.TotalExpense = overview.TotalExpense.Add(t.Amount)
		}

		k := categoryKey{category: t.Category, kind: t.Type}
		ct, ok := categories[k]
		if !ok {
			ct = &CategoryTotal{Category: t.Category, Type: t.Type, Total: decimal.Zero}
			categories[k] = ct
		}
		ct.Total = ct.Total.Add(t.Amount)
		ct.Count++
	}

	for i := range overview.Monthly {
		m := &overview.Monthly[i]
		m.Income = m.Income.Round(2)
		m.Expense = m.Expense.Round(2)
		m.Net = m.Income.Sub(m.Expense)
	}
	overview.TotalIncome = overview.TotalIncome.Round(2)
	overview.TotalExpense = overview.TotalExpense.Round(2)
	overview.Net = overview.TotalIncome.Sub(overview.TotalExpense)

	overview.Categories = make([]CategoryTotal, 0, len(categories))
	for _, ct := range categories {
		ct.Total = ct.Total.Round(2)
		overview.Categories = append(overview.Categories, *ct)
	}
	sort.Slice(overview.Categories, func(i, j int) bool {
		a, b := overview.Categories[i], overview.Categories[j]
		if !a.Total.Equal(b.Total) {
			return a.Total.GreaterThan(b.Total)
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.Type < b.Type
	})

	return overview, nil
}

// escapeLike escapes LIKE wildcards so search text matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")
	return r.Replace(s)
}

// SuggestCategories returns distinct categories the account has used,
// optionally limited to those starting with search (case-insensitive).
func (s *transactionService) SuggestCategories(ctx context.Context, ac *AccountContext, search string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = defaultSuggestionLimit
	}
	if limit > maxSuggestionLimit {
		limit = maxSuggestionLimit
	}

	q := s.db.WithContext(ctx).Model(&models.Transaction{}).Where("account_id = ?", ac.Account.ID)
	if search = strings.TrimSpace(search); search != "" {
		q = q.Where(suggestionLikeCondition, escapeLike(strings.ToLower(search))+"%")
	}

	categories := []string{}
	if err := q.Distinct("category").Order("category ASC").Limit(limit).
		Pluck("category", &categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return categories, nil
}
