package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "kasku/internal/errors"
	"kasku/internal/logger"
	"kasku/internal/models"
)

// Self-exit outcomes.
const (
	SelfExitMemberRemoved        = "member_removed"
	SelfExitOwnershipTransferred = "ownership_transferred"
	SelfExitAccountDeleted       = "account_deleted"
)

// CreateMemberInput is an invite by email.
type CreateMemberInput struct {
	Email string
	Name  string
}

// UpdateMemberInput is a partial member update.
type UpdateMemberInput struct {
	Name  *string
	Email *string
}

// SelfExitResult reports what leaving an account did.
type SelfExitResult struct {
	Outcome    string  `json:"outcome"`
	AccountID  string  `json:"accountId"`
	NewOwnerID *string `json:"newOwnerId,omitempty"`
}

// successorOrder picks the next owner: members flagged default first, then
// the oldest membership.
const successorOrder = "is_default DESC, created_at ASC, id ASC"

// CensorEmail masks the local part of an email, keeping its first two
// characters (one when the local part is two characters or shorter).
// Empty input yields "" and input without a usable "@" yields "***".
func CensorEmail(email string) string {
	email = strings.TrimSpace(email)
	if email == "" {
		return ""
	}
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "***"
	}

	local, domain := []rune(email[:at]), email[at+1:]
	visible := 2
	if len(local) <= 2 {
		visible = 1
	}
	hidden := len(local) - visible
	if hidden < 3 {
		hidden = 3
	}
	return string(local[:visible]) + strings.Repeat("*", hidden) + "@" + domain
}

// memberService manages memberships and the ownership invariant.
type memberService struct {
	db *gorm.DB
}

// NewMemberService creates a new MemberServicer.
func NewMemberService(db *gorm.DB) MemberServicer {
	return &memberService{db: db}
}

// ListMembers returns the account's members, owner first.
func (s *memberService) ListMembers(ctx context.Context, ac *AccountContext) ([]models.Member, error) {
	var members []models.Member
	if err := s.db.WithContext(ctx).Where("account_id = ?", ac.Account.ID).
		Order("CASE WHEN role = 'owner' THEN 0 ELSE 1 END, created_at ASC").
		Find(&members).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return members, nil
}

func findMember(tx *gorm.DB, accountID, memberID string) (*models.Member, error) {
	var member models.Member
	if err := tx.Where("id = ? AND account_id = ?", memberID, accountID).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrMemberNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &member, nil
}

// CreateMember invites an email to the account. When a user with that email
// already exists the membership is linked straight away.
func (s *memberService) CreateMember(ctx context.Context, ac *AccountContext, input CreateMemberInput) (*models.Member, error) {
	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "email is required")
	}

	member := &models.Member{
		AccountID: ac.Account.ID,
		Email:     email,
		Name:      strings.TrimSpace(input.Name),
		Role:      models.MemberRoleMember,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Member{}).
			Where("account_id = ? AND email = ?", ac.Account.ID, email).
			Count(&count).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count > 0 {
			return apperrors.ErrMemberExists
		}

		var user models.User
		err := tx.Where("email = ?", email).First(&user).Error
		switch {
		case err == nil:
			userID := user.ID
			member.UserID = &userID
			if member.Name == "" {
				member.Name = user.Name
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if err := tx.Create(member).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.ErrMemberExists
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// UpdateMember changes a member's display name, or the email of an invite
// that no user has claimed yet.
func (s *memberService) UpdateMember(ctx context.Context, ac *AccountContext, memberID string, input UpdateMemberInput) (*models.Member, error) {
	var member *models.Member
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := findMember(tx, ac.Account.ID, memberID)
		if err != nil {
			return err
		}

		if input.Name != nil {
			found.Name = strings.TrimSpace(*input.Name)
		}
		if input.Email != nil {
			email := normalizeEmail(*input.Email)
			if email == "" {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "email cannot be empty")
			}
			if email != found.Email {
				if found.UserID != nil {
					return apperrors.WithMessage(apperrors.ErrInvalidInput, "email of a linked member cannot be changed")
				}
				var count int64
				if err := tx.Model(&models.Member{}).
					Where("account_id = ? AND email = ? AND id <> ?", ac.Account.ID, email, found.ID).
					Count(&count).Error; err != nil {
					return apperrors.Wrap(apperrors.ErrInternalServer, err)
				}
				if count > 0 {
					return apperrors.ErrMemberExists
				}
				found.Email = email
			}
		}

		if err := tx.Save(found).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.ErrMemberExists
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		member = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// RemoveMember removes another, non-owner member.
func (s *memberService) RemoveMember(ctx context.Context, ac *AccountContext, memberID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		member, err := findMember(tx, ac.Account.ID, memberID)
		if err != nil {
			return err
		}
		if member.IsOwner() {
			return apperrors.ErrCannotRemoveOwner
		}
		if member.ID == ac.MemberID {
			return apperrors.ErrCannotRemoveSelf
		}

		if err := tx.Where("id = ?", member.ID).Delete(&models.Member{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if member.UserID != nil {
			return reassignDefaultAccount(tx, *member.UserID, ac.Account.ID)
		}
		return nil
	})
}

// SelfExit removes the caller from the account. A departing owner hands
// ownership to the successor, or deletes the account when nobody is left.
func (s *memberService) SelfExit(ctx context.Context, ac *AccountContext) (*SelfExitResult, error) {
	result := &SelfExitResult{AccountID: ac.Account.ID}
	log := logger.Get()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		self, err := findMember(tx, ac.Account.ID, ac.MemberID)
		if err != nil {
			return err
		}
		userID := ac.Identity.UserID
		if self.UserID != nil {
			userID = *self.UserID
		}

		if !self.IsOwner() {
			if err := tx.Where("id = ?", self.ID).Delete(&models.Member{}).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			result.Outcome = SelfExitMemberRemoved
			return reassignDefaultAccount(tx, userID, ac.Account.ID)
		}

		var successor models.Member
		err = tx.Where("account_id = ? AND id <> ?", ac.Account.ID, self.ID).
			Order(successorOrder).First(&successor).Error
		switch {
		case err == nil:
			// Remove first: at most one owner row may exist at any time.
			if err := tx.Where("id = ?", self.ID).Delete(&models.Member{}).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if err := tx.Model(&models.Member{}).Where("id = ?", successor.ID).
				Update("role", models.MemberRoleOwner).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			newOwner := successor.ID
			result.Outcome = SelfExitOwnershipTransferred
			result.NewOwnerID = &newOwner
			return reassignDefaultAccount(tx, userID, ac.Account.ID)

		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := deleteAccountCascade(tx, ac.Account.ID); err != nil {
				return err
			}
			result.Outcome = SelfExitAccountDeleted
			return reassignDefaultAccount(tx, userID, ac.Account.ID)

		default:
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	})
	if err != nil {
		return nil, err
	}

	switch result.Outcome {
	case SelfExitOwnershipTransferred:
		log.Infow("ownership transferred", "account_id", ac.Account.ID, "from_member_id", ac.MemberID, "to_member_id", *result.NewOwnerID)
	case SelfExitAccountDeleted:
		log.Infow("account deleted", "account_id", ac.Account.ID, "slug", ac.Account.Slug)
	}
	return result, nil
}

// TransferOwnership makes memberID the owner and demotes the caller.
func (s *memberService) TransferOwnership(ctx context.Context, ac *AccountContext, memberID string) (*models.Member, error) {
	if !ac.IsOwner() {
		return nil, apperrors.ErrOwnerRequired
	}
	if memberID == ac.MemberID {
		return nil, apperrors.ErrAlreadyOwner
	}

	var target *models.Member
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := findMember(tx, ac.Account.ID, memberID)
		if err != nil {
			return err
		}
		if found.IsOwner() {
			return apperrors.ErrAlreadyOwner
		}

		res := tx.Model(&models.Member{}).
			Where("id = ? AND account_id = ? AND role = ?", ac.MemberID, ac.Account.ID, models.MemberRoleOwner).
			Update("role", models.MemberRoleMember)
		if res.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrOwnerRequired
		}

		if err := tx.Model(&models.Member{}).Where("id = ?", found.ID).
			Update("role", models.MemberRoleOwner).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		found.Role = models.MemberRoleOwner
		target = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Infow("ownership transferred", "account_id", ac.Account.ID, "from_member_id", ac.MemberID, "to_member_id", target.ID)
	return target, nil
}

// deleteAccountCascade removes the account and everything scoped to it.
func deleteAccountCascade(tx *gorm.DB, accountID string) error {
	scoped := []interface{}{
		&models.Transaction{},
		&models.Wallet{},
		&models.Budget{},
		&models.Installment{},
		&models.CustomStatCard{},
		&models.AuditLog{},
		&models.Member{},
	}
	for _, model := range scoped {
		if err := tx.Where("account_id = ?", accountID).Delete(model).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	if err := tx.Model(&models.User{}).Where("default_account_id = ?", accountID).
		Update("default_account_id", nil).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := tx.Where("id = ?", accountID).Delete(&models.Account{}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// reassignDefaultAccount repoints a user's default after they left
// leftAccountID, preferring a membership flagged default, else the oldest.
// With no memberships left the pointer is cleared.
func reassignDefaultAccount(tx *gorm.DB, userID, leftAccountID string) error {
	var user models.User
	if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if user.DefaultAccountID != nil && *user.DefaultAccountID != leftAccountID {
		return nil
	}

	var next models.Member
	err := tx.Where("user_id = ? AND account_id <> ?", userID, leftAccountID).
		Order(successorOrder).First(&next).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := tx.Model(&models.User{}).Where("id = ?", userID).
			Update("default_account_id", nil).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	}
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return markDefault(tx, userID, &next)
}
