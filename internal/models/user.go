package models

// User is a login identity. Users reach accounts only through Member rows.
type User struct {
	Base
	Email            string  `gorm:"uniqueIndex;not null" json:"email"`
	Name             string  `json:"name"`
	Image            string  `json:"image"`
	PasswordHash     string  `gorm:"not null" json:"-"`
	DefaultAccountID *string `gorm:"type:uuid" json:"defaultAccountId,omitempty"`
}
