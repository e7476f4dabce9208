package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BudgetPeriod represents the period type for a budget
type BudgetPeriod string

const (
	BudgetPeriodWeekly  BudgetPeriod = "weekly"
	BudgetPeriodMonthly BudgetPeriod = "monthly"
	BudgetPeriodYearly  BudgetPeriod = "yearly"
)

// BudgetStatus summarises spending against the cap.
type BudgetStatus string

const (
	BudgetStatusOnTrack    BudgetStatus = "on-track"
	BudgetStatusWarning    BudgetStatus = "warning"
	BudgetStatusOverBudget BudgetStatus = "over-budget"
)

// Budget represents a spending cap for a category
type Budget struct {
	Base
	AccountID   string          `gorm:"type:uuid;not null;index" json:"accountId"`
	Category    string          `gorm:"not null" json:"category"`
	Amount      decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"amount"`
	SpentAmount decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"spentAmount"`
	Period      BudgetPeriod    `gorm:"not null" json:"period"`
	StartDate   time.Time       `gorm:"not null" json:"startDate"`
	EndDate     *time.Time      `json:"endDate,omitempty"`
	Status      BudgetStatus    `gorm:"not null" json:"status"`
}
