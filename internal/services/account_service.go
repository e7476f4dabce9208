package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"

	apperrors "kasku/internal/errors"
	"kasku/internal/logger"
	"kasku/internal/models"
	"kasku/internal/session"
)

const (
	minSlugLen = 3
	maxSlugLen = 48
)

var (
	slugPattern   = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	slugStripper  = regexp.MustCompile(`[^a-z0-9]+`)
	reservedSlugs = map[string]bool{"accounts": true, "auth": true, "health": true, "swagger": true}
)

// CreateAccountInput is the payload for creating an account.
type CreateAccountInput struct {
	Name        string
	Slug        string
	Description string
	Currency    string
}

// UpdateAccountInput is a partial account update.
type UpdateAccountInput struct {
	Name        *string
	Slug        *string
	Description *string
	Currency    *string
}

// AccountSummary is an account as seen by one of its members.
type AccountSummary struct {
	models.Account
	MemberID  string            `json:"memberId"`
	Role      models.MemberRole `json:"role"`
	IsDefault bool              `json:"isDefault"`
}

// AccountDetail is the account page payload.
type AccountDetail struct {
	Account     models.Account    `json:"account"`
	MemberID    string            `json:"memberId"`
	Role        models.MemberRole `json:"role"`
	Owner       *models.Member    `json:"owner"`
	MemberCount int64             `json:"memberCount"`
}

// accountService handles account-related business logic
type accountService struct {
	db *gorm.DB
}

// NewAccountService creates a new AccountServicer.
func NewAccountService(db *gorm.DB) AccountServicer {
	return &accountService{db: db}
}

// NormalizeSlug lowercases and trims a slug and reports whether it is usable.
func NormalizeSlug(slug string) (string, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if len(slug) < minSlugLen || len(slug) > maxSlugLen || !slugPattern.MatchString(slug) {
		return slug, apperrors.ErrInvalidSlug
	}
	if reservedSlugs[slug] {
		return slug, apperrors.WithMessage(apperrors.ErrInvalidSlug, fmt.Sprintf("%q is reserved", slug))
	}
	return slug, nil
}

// slugify derives a slug candidate from an account name.
func slugify(name string) string {
	slug := strings.Trim(slugStripper.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if len(slug) > maxSlugLen-4 {
		slug = strings.TrimRight(slug[:maxSlugLen-4], "-")
	}
	if len(slug) < minSlugLen || reservedSlugs[slug] {
		slug = strings.Trim("kas-"+slug, "-")
	}
	return slug
}

func slugTaken(tx *gorm.DB, slug, exceptID string) (bool, error) {
	q := tx.Model(&models.Account{}).Where("slug = ?", slug)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// uniqueSlug appends -2, -3, ... to base until it is free.
func uniqueSlug(tx *gorm.DB, base string) (string, error) {
	candidate := base
	for i := 2; ; i++ {
		taken, err := slugTaken(tx, candidate, "")
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

// CreateAccount creates an account with the caller as its owner. The first
// account a user creates becomes their default.
func (s *accountService) CreateAccount(ctx context.Context, id session.Identity, input CreateAccountInput) (*AccountSummary, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "name is required")
	}

	var explicit string
	if strings.TrimSpace(input.Slug) != "" {
		slug, err := NormalizeSlug(input.Slug)
		if err != nil {
			return nil, err
		}
		explicit = slug
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "IDR"
	}

	var summary *AccountSummary
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("id = ?", id.UserID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrUserNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		slug := explicit
		if slug == "" {
			generated, err := uniqueSlug(tx, slugify(name))
			if err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			slug = generated
		} else {
			taken, err := slugTaken(tx, slug, "")
			if err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if taken {
				return apperrors.ErrSlugTaken
			}
		}

		account := models.Account{
			Slug:        slug,
			Name:        name,
			Description: strings.TrimSpace(input.Description),
			Currency:    currency,
		}
		if err := tx.Create(&account).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.ErrSlugTaken
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		isDefault := user.DefaultAccountID == nil
		userID := user.ID
		owner := models.Member{
			AccountID: account.ID,
			UserID:    &userID,
			Email:     user.Email,
			Name:      user.Name,
			Role:      models.MemberRoleOwner,
			IsDefault: isDefault,
		}
		if err := tx.Create(&owner).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if isDefault {
			if err := tx.Model(&models.User{}).Where("id = ?", user.ID).
				Update("default_account_id", account.ID).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}

		summary = &AccountSummary{Account: account, MemberID: owner.ID, Role: owner.Role, IsDefault: isDefault}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Infow("account created", "account_id", summary.ID, "slug", summary.Slug, "user_id", id.UserID)
	return summary, nil
}

// ListAccounts returns every account the caller belongs to.
func (s *accountService) ListAccounts(ctx context.Context, id session.Identity) ([]AccountSummary, error) {
	db := s.db.WithContext(ctx)

	var members []models.Member
	if err := db.Where("user_id = ?", id.UserID).Order("created_at ASC").Find(&members).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(members) == 0 {
		return []AccountSummary{}, nil
	}

	accountIDs := make([]string, 0, len(members))
	for _, m := range members {
		accountIDs = append(accountIDs, m.AccountID)
	}

	var accounts []models.Account
	if err := db.Where("id IN ?", accountIDs).Find(&accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	byID := make(map[string]models.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}

	summaries := make([]AccountSummary, 0, len(members))
	for _, m := range members {
		account, ok := byID[m.AccountID]
		if !ok {
			continue
		}
		summaries = append(summaries, AccountSummary{Account: account, MemberID: m.ID, Role: m.Role, IsDefault: m.IsDefault})
	}
	return summaries, nil
}

// CheckSlug normalizes the slug and reports whether it can be used.
func (s *accountService) CheckSlug(ctx context.Context, slug string) (string, bool, error) {
	normalized, err := NormalizeSlug(slug)
	if err != nil {
		return normalized, false, err
	}
	taken, err := slugTaken(s.db.WithContext(ctx), normalized, "")
	if err != nil {
		return normalized, false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return normalized, !taken, nil
}

// GetDefaultAccount returns the caller's default account, falling back to a
// membership flagged as default when the user pointer is unset.
func (s *accountService) GetDefaultAccount(ctx context.Context, id session.Identity) (*AccountSummary, error) {
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.Where("id = ?", id.UserID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	q := db.Where("user_id = ?", user.ID)
	if user.DefaultAccountID != nil {
		q = q.Where("account_id = ?", *user.DefaultAccountID)
	} else {
		q = q.Where("is_default = ?", true)
	}

	var member models.Member
	if err := q.First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNoDefault
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var account models.Account
	if err := db.Where("id = ?", member.AccountID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNoDefault
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return &AccountSummary{Account: account, MemberID: member.ID, Role: member.Role, IsDefault: true}, nil
}

// SetDefaultAccount points the caller's default at the account with slug.
func (s *accountService) SetDefaultAccount(ctx context.Context, id session.Identity, slug string) (*AccountSummary, error) {
	var summary *AccountSummary
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var account models.Account
		if err := tx.Where("slug = ?", strings.ToLower(strings.TrimSpace(slug))).First(&account).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrAccountNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		member, err := findMembership(tx, account.ID, &id)
		if err != nil {
			return err
		}

		if err := markDefault(tx, id.UserID, member); err != nil {
			return err
		}
		summary = &AccountSummary{Account: account, MemberID: member.ID, Role: member.Role, IsDefault: true}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// markDefault flags member as the user's only default membership and moves
// the user pointer to its account.
func markDefault(tx *gorm.DB, userID string, member *models.Member) error {
	if err := tx.Model(&models.Member{}).
		Where("user_id = ? AND id <> ?", userID, member.ID).
		Update("is_default", false).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := tx.Model(&models.Member{}).Where("id = ?", member.ID).
		Update("is_default", true).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := tx.Model(&models.User{}).Where("id = ?", userID).
		Update("default_account_id", member.AccountID).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	member.IsDefault = true
	return nil
}

// GetAccount returns the account with the caller's role and the owner.
func (s *accountService) GetAccount(ctx context.Context, ac *AccountContext) (*AccountDetail, error) {
	db := s.db.WithContext(ctx)

	var owner models.Member
	if err := db.Where("account_id = ? AND role = ?", ac.Account.ID, models.MemberRoleOwner).First(&owner).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var count int64
	if err := db.Model(&models.Member{}).Where("account_id = ?", ac.Account.ID).Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return &AccountDetail{
		Account:     ac.Account,
		MemberID:    ac.MemberID,
		Role:        ac.Role,
		Owner:       &owner,
		MemberCount: count,
	}, nil
}

// UpdateAccount applies a partial update. Only the owner may call it.
func (s *accountService) UpdateAccount(ctx context.Context, ac *AccountContext, input UpdateAccountInput) (*models.Account, error) {
	if !ac.IsOwner() {
		return nil, apperrors.ErrOwnerRequired
	}

	account := ac.Account
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "name cannot be empty")
			}
			account.Name = name
		}
		if input.Description != nil {
			account.Description = strings.TrimSpace(*input.Description)
		}
		if input.Currency != nil && strings.TrimSpace(*input.Currency) != "" {
			account.Currency = strings.ToUpper(strings.TrimSpace(*input.Currency))
		}
		if input.Slug != nil {
			slug, err := NormalizeSlug(*input.Slug)
			if err != nil {
				return err
			}
			taken, err := slugTaken(tx, slug, account.ID)
			if err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if taken {
				return apperrors.ErrSlugTaken
			}
			account.Slug = slug
		}

		if err := tx.Save(&account).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.ErrSlugTaken
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}
