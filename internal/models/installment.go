package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InstallmentStatus is the lifecycle state of an installment.
type InstallmentStatus string

const (
	InstallmentStatusActive  InstallmentStatus = "active"
	InstallmentStatusPaid    InstallmentStatus = "paid"
	InstallmentStatusOverdue InstallmentStatus = "overdue"
)

// Installment is a recurring obligation paid monthly.
type Installment struct {
	Base
	AccountID         string            `gorm:"type:uuid;not null;index" json:"accountId"`
	Name              string            `gorm:"not null" json:"name"`
	Type              string            `gorm:"not null" json:"type"`
	Provider          string            `json:"provider"`
	MonthlyAmount     decimal.Decimal   `gorm:"type:numeric(18,2);not null" json:"monthlyAmount"`
	RemainingAmount   decimal.Decimal   `gorm:"type:numeric(18,2);not null" json:"remainingAmount"`
	RemainingPayments *int              `json:"remainingPayments,omitempty"`
	DueDate           time.Time         `gorm:"not null" json:"dueDate"`
	Status            InstallmentStatus `gorm:"not null" json:"status"`
}
