package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "kasku/internal/errors"
	"kasku/internal/models"
	"kasku/internal/session"
)

// AccountContext is the resolved, authorized scope every account operation
// runs in. It is built once per request by the access service.
type AccountContext struct {
	Account  models.Account
	MemberID string
	Role     models.MemberRole
	Identity session.Identity
}

// IsOwner reports whether the acting member owns the account.
func (ac *AccountContext) IsOwner() bool {
	return ac.Role == models.MemberRoleOwner
}

// accessService resolves account slugs into authorized contexts.
type accessService struct {
	db *gorm.DB
}

// NewAccessService creates a new AccessServicer.
func NewAccessService(db *gorm.DB) AccessServicer {
	return &accessService{db: db}
}

// ResolveAccountContext checks, in order, that the account exists, that the
// caller is authenticated, that the caller is a member, and, when
// requireOwner is set, that the membership is the owner.
func (s *accessService) ResolveAccountContext(ctx context.Context, id *session.Identity, slug string, requireOwner bool) (*AccountContext, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, apperrors.ErrAccountNotFound
	}

	db := s.db.WithContext(ctx)

	var account models.Account
	if err := db.Where("slug = ?", slug).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if id == nil || id.UserID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	member, err := findMembership(db, account.ID, id)
	if err != nil {
		return nil, err
	}

	if requireOwner && !member.IsOwner() {
		return nil, apperrors.ErrOwnerRequired
	}

	return &AccountContext{
		Account:  account,
		MemberID: member.ID,
		Role:     member.Role,
		Identity: *id,
	}, nil
}

// findMembership looks the caller up by user id, then falls back to a
// pending invite addressed to the caller's email and links it.
func findMembership(db *gorm.DB, accountID string, id *session.Identity) (*models.Member, error) {
	var member models.Member
	err := db.Where("account_id = ? AND user_id = ?", accountID, id.UserID).First(&member).Error
	if err == nil {
		return &member, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	email := normalizeEmail(id.Email)
	if email == "" {
		return nil, apperrors.ErrForbidden
	}

	err = db.Where("account_id = ? AND user_id IS NULL AND email = ?", accountID, email).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrForbidden
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	updates := map[string]interface{}{"user_id": id.UserID}
	if member.Name == "" && id.Name != "" {
		updates["name"] = id.Name
	}
	if err := db.Model(&models.Member{}).Where("id = ?", member.ID).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	userID := id.UserID
	member.UserID = &userID
	if name, ok := updates["name"].(string); ok {
		member.Name = name
	}
	return &member, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
