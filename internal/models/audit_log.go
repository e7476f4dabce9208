package models

// AuditLog records sensitive operations on an account.
type AuditLog struct {
	Base
	AccountID    *string `gorm:"type:uuid;index" json:"accountId,omitempty"`
	UserID       string  `gorm:"type:uuid;not null" json:"userId"`
	MemberID     *string `gorm:"type:uuid" json:"memberId,omitempty"`
	Action       string  `gorm:"not null" json:"action"`
	ResourceType string  `gorm:"not null" json:"resourceType"`
	ResourceID   string  `json:"resourceId"`
	IPAddress    string  `json:"ipAddress"`
	Changes      string  `json:"changes,omitempty"`
}
