package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	apperrors "kasku/internal/errors"
	"kasku/internal/models"
)

const recentTransactionLimit = 10

// StatCardValue is a stat card with its value for the current month.
type StatCardValue struct {
	models.CustomStatCard
	Value decimal.Decimal `json:"value"`
}

// DashboardSummary is the dashboard payload of one account.
type DashboardSummary struct {
	Account            models.Account       `json:"account"`
	Wallets            []models.Wallet      `json:"wallets"`
	TotalBalance       decimal.Decimal      `json:"totalBalance"`
	RecentTransactions []models.Transaction `json:"recentTransactions"`
	Installments       []models.Installment `json:"installments"`
	MonthIncome        decimal.Decimal      `json:"monthIncome"`
	MonthExpense       decimal.Decimal      `json:"monthExpense"`
	StatCards          []StatCardValue      `json:"statCards"`
}

// dashboardService aggregates the dashboard.
type dashboardService struct {
	db *gorm.DB
}

// NewDashboardService creates a new DashboardServicer.
func NewDashboardService(db *gorm.DB) DashboardServicer {
	return &dashboardService{db: db}
}

// GetSummary loads wallets, recent transactions, open installments, this
// month's transactions and the stat cards concurrently and combines them.
func (s *dashboardService) GetSummary(ctx context.Context, ac *AccountContext) (*DashboardSummary, error) {
	var account models.Account
	if err := s.db.WithContext(ctx).Where("id = ?", ac.Account.ID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var (
		wallets      []models.Wallet
		recent       []models.Transaction
		installments []models.Installment
		monthTxns    []models.Transaction
		cards        []models.CustomStatCard
	)
	from := monthStart(time.Now())
	to := from.AddDate(0, 1, 0)

	g, gctx := errgroup.WithContext(ctx)
	db := s.db.WithContext(gctx)
	g.Go(func() error {
		return db.Where("account_id = ?", account.ID).Order("created_at ASC").Find(&wallets).Error
	})
	g.Go(func() error {
		return db.Where("account_id = ?", account.ID).
			Order("occurred_at DESC, created_at DESC").Limit(recentTransactionLimit).Find(&recent).Error
	})
	g.Go(func() error {
		return db.Where("account_id = ? AND status <> ?", account.ID, models.InstallmentStatusPaid).
			Order("due_date ASC").Find(&installments).Error
	})
	g.Go(func() error {
		return db.Select("type", "category", "amount").
			Where("account_id = ? AND occurred_at >= ? AND occurred_at < ?", account.ID, from, to).
			Find(&monthTxns).Error
	})
	g.Go(func() error {
		return db.Where("account_id = ?", account.ID).Order("created_at ASC").Find(&cards).Error
	})
	if err := g.Wait(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	summary := &DashboardSummary{
		Account:            account,
		Wallets:            nonNil(wallets),
		TotalBalance:       decimal.Zero,
		RecentTransactions: nonNil(recent),
		Installments:       nonNil(installments),
		MonthIncome:        decimal.Zero,
		MonthExpense:       decimal.Zero,
		StatCards:          make([]StatCardValue, 0, len(cards)),
	}
	for _, w := range wallets {
		summary.TotalBalance = summary.TotalBalance.Add(w.Balance)
	}
	for _, t := range monthTxns {
		if t.Type == models.TransactionTypeIncome {
			summary.MonthIncome = summary.MonthIncome.Add(t.Amount)
		} else {
			summary.MonthExpense = summary.MonthExpense.Add(t.Amount)
		}
	}
	for _, card := range cards {
		summary.StatCards = append(summary.StatCards, StatCardValue{
			CustomStatCard: card,
			Value:          statCardValue(card, monthTxns),
		})
	}
	summary.TotalBalance = summary.TotalBalance.Round(2)
	summary.MonthIncome = summary.MonthIncome.Round(2)
	summary.MonthExpense = summary.MonthExpense.Round(2)

	return summary, nil
}

// statCardValue sums transactions of the card's type whose category is one
// of the card's categories, compared case-insensitively.
func statCardValue(card models.CustomStatCard, txns []models.Transaction) decimal.Decimal {
	wanted := make(map[string]bool, len(card.Categories))
	for _, c := range card.Categories {
		wanted[strings.ToLower(c)] = true
	}
	total := decimal.Zero
	for _, t := range txns {
		if t.Type == card.Type && wanted[strings.ToLower(t.Category)] {
			total = total.Add(t.Amount)
		}
	}
	return total.Round(2)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
