package models

// CustomStatCard is a dashboard widget summing transactions of one type
// across a set of categories.
type CustomStatCard struct {
	Base
	AccountID  string          `gorm:"type:uuid;not null;index" json:"accountId"`
	Name       string          `gorm:"not null" json:"name"`
	Type       TransactionType `gorm:"not null" json:"type"`
	Categories []string        `gorm:"type:text;serializer:json;not null" json:"categories"`
	Color      string          `gorm:"not null" json:"color"`
	Icon       string          `json:"icon"`
}

// DefaultStatCardColor returns the color used when a card has none.
func DefaultStatCardColor(t TransactionType) string {
	if t == TransactionTypeIncome {
		return "emerald"
	}
	return "rose"
}
