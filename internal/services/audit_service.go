package services

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"

	"kasku/internal/logger"
	"kasku/internal/models"
)

// auditService handles audit log recording.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log records an audit event. Errors are logged but never propagate
// to avoid disrupting the main operation.
func (s *auditService) Log(ctx context.Context, ac *AccountContext, action, resourceType, resourceID, ipAddress string, changes map[string]any) {
	var changesJSON string
	if changes != nil {
		data, err := json.Marshal(changes)
		if err != nil {
			logger.Get().Errorw("failed to marshal audit log changes", "error", err, "action", action)
			changesJSON = "{}"
		} else {
			changesJSON = string(data)
		}
	}

	accountID := ac.Account.ID
	memberID := ac.MemberID
	entry := &models.AuditLog{
		AccountID:    &accountID,
		UserID:       ac.Identity.UserID,
		MemberID:     &memberID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
		Changes:      changesJSON,
	}

	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		logger.Get().Errorw("failed to create audit log entry",
			"error", err,
			"user_id", ac.Identity.UserID,
			"account_id", accountID,
			"action", action,
			"resource_type", resourceType,
			"resource_id", resourceID,
		)
	}
}
