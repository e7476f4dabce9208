package models

// MemberRole is the role a member holds on an account.
type MemberRole string

const (
	MemberRoleOwner  MemberRole = "owner"
	MemberRoleMember MemberRole = "member"
)

// Member links a user (or a pending email invite) to an account.
type Member struct {
	Base
	AccountID string     `gorm:"type:uuid;not null;uniqueIndex:idx_member_account_email" json:"accountId"`
	UserID    *string    `gorm:"type:uuid;index" json:"userId,omitempty"`
	Email     string     `gorm:"not null;uniqueIndex:idx_member_account_email" json:"email"`
	Name      string     `json:"name"`
	Role      MemberRole `gorm:"not null" json:"role"`
	IsDefault bool       `gorm:"not null;default:false" json:"isDefault"`
}

// IsOwner reports whether the member holds the owner role.
func (m *Member) IsOwner() bool {
	return m.Role == MemberRoleOwner
}
