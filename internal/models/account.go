package models

// Account is a shared ledger ("Kas"). The owner is derived from the single
// Member row with role owner and is not stored here.
type Account struct {
	Base
	Slug        string `gorm:"uniqueIndex;not null" json:"slug"`
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	Currency    string `gorm:"not null;default:'IDR'" json:"currency"`
}
