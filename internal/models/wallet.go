package models

import "github.com/shopspring/decimal"

// WalletType is the kind of balance container.
type WalletType string

const (
	WalletTypeBank    WalletType = "bank"
	WalletTypeEWallet WalletType = "e-wallet"
	WalletTypeCash    WalletType = "cash"
)

// Wallet holds a non-negative balance inside an account.
type Wallet struct {
	Base
	AccountID     string          `gorm:"type:uuid;not null;index" json:"accountId"`
	Name          string          `gorm:"not null" json:"name"`
	Type          WalletType      `gorm:"not null" json:"type"`
	Provider      string          `json:"provider"`
	AccountNumber string          `json:"accountNumber"`
	Color         string          `json:"color"`
	Balance       decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"balance"`
}
