package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// Activity actions recorded on a transaction's latest-activity trail.
const (
	ActivityCreated = "created"
	ActivityUpdated = "updated"
)

// Categories written by ledger operations rather than users.
const (
	CategoryAdjustment  = "Penyesuaian"
	CategoryTransfer    = "Transfer"
	CategoryInstallment = "Cicilan"
)

// Transaction is an income or expense event. WalletID is kept after the
// wallet is deleted as a historical reference.
type Transaction struct {
	Base
	AccountID   string          `gorm:"type:uuid;not null;index" json:"accountId"`
	WalletID    *string         `gorm:"type:uuid;index" json:"walletId,omitempty"`
	MemberID    *string         `gorm:"type:uuid" json:"memberId,omitempty"`
	Type        TransactionType `gorm:"not null" json:"type"`
	Title       string          `gorm:"not null" json:"title"`
	Category    string          `gorm:"not null" json:"category"`
	Amount      decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"amount"`
	OccurredAt  time.Time       `gorm:"not null;index" json:"occurredAt"`
	Description string          `json:"description"`

	LastActorMemberID *string   `gorm:"type:uuid" json:"lastActorMemberId,omitempty"`
	LastAction        string    `json:"lastAction"`
	LastActivityAt    time.Time `json:"lastActivityAt"`

	// Filled by the service from the actor's membership; not a column.
	LatestActivity *Activity `gorm:"-" json:"latestActivity,omitempty"`
}

// Activity is the display form of a transaction's latest change.
type Activity struct {
	ActorMemberID string    `json:"actorMemberId"`
	ActorName     string    `json:"actorName"`
	Action        string    `json:"action"`
	At            time.Time `json:"at"`
}
