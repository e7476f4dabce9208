package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "kasku/internal/errors"
	"kasku/internal/models"
)

// CreateStatCardInput is the payload for creating a stat card.
type CreateStatCardInput struct {
	Name       string
	Type       models.TransactionType
	Categories []string
	Color      string
	Icon       string
}

// UpdateStatCardInput is a partial stat card update.
type UpdateStatCardInput struct {
	Name       *string
	Type       *models.TransactionType
	Categories *[]string
	Color      *string
	Icon       *string
}

// statCardService handles custom dashboard stat cards.
type statCardService struct {
	db *gorm.DB
}

// NewStatCardService creates a new StatCardServicer.
func NewStatCardService(db *gorm.DB) StatCardServicer {
	return &statCardService{db: db}
}

// cleanCategories trims, drops empties and de-duplicates case-insensitively,
// keeping the first spelling seen.
func cleanCategories(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, c := range in {
		c = strings.TrimSpace(c)
		key := strings.ToLower(c)
		if c == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

func validRecordType(t models.TransactionType) bool {
	return t == models.TransactionTypeIncome || t == models.TransactionTypeExpense
}

// ListStatCards returns the account's stat cards, oldest first.
func (s *statCardService) ListStatCards(ctx context.Context, ac *AccountContext) ([]models.CustomStatCard, error) {
	var cards []models.CustomStatCard
	if err := s.db.WithContext(ctx).Where("account_id = ?", ac.Account.ID).
		Order("created_at ASC").Find(&cards).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return cards, nil
}

// CreateStatCard creates a stat card. Without a color the card gets the
// default for its type.
func (s *statCardService) CreateStatCard(ctx context.Context, ac *AccountContext, input CreateStatCardInput) (*models.CustomStatCard, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "name is required")
	}
	if !validRecordType(input.Type) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "type must be income or expense")
	}

	card := &models.CustomStatCard{
		AccountID:  ac.Account.ID,
		Name:       name,
		Type:       input.Type,
		Categories: cleanCategories(input.Categories),
		Color:      strings.TrimSpace(input.Color),
		Icon:       strings.TrimSpace(input.Icon),
	}
	if card.Color == "" {
		card.Color = models.DefaultStatCardColor(card.Type)
	}

	if err := s.db.WithContext(ctx).Create(card).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return card, nil
}

// UpdateStatCard applies a partial update. Changing the type without
// supplying a color resets the color to the new type's default.
func (s *statCardService) UpdateStatCard(ctx context.Context, ac *AccountContext, cardID string, input UpdateStatCardInput) (*models.CustomStatCard, error) {
	db := s.db.WithContext(ctx)

	var card models.CustomStatCard
	if err := db.Where("id = ? AND account_id = ?", cardID, ac.Account.ID).First(&card).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrStatCardNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "name cannot be empty")
		}
		card.Name = name
	}
	typeChanged := false
	if input.Type != nil {
		if !validRecordType(*input.Type) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "type must be income or expense")
		}
		typeChanged = *input.Type != card.Type
		card.Type = *input.Type
	}
	if input.Categories != nil {
		card.Categories = cleanCategories(*input.Categories)
	}
	if input.Icon != nil {
		card.Icon = strings.TrimSpace(*input.Icon)
	}

	color := ""
	if input.Color != nil {
		color = strings.TrimSpace(*input.Color)
	}
	switch {
	case color != "":
		card.Color = color
	case typeChanged || input.Color != nil:
		card.Color = models.DefaultStatCardColor(card.Type)
	}

	if err := db.Save(&card).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &card, nil
}

// DeleteStatCard deletes a stat card of the account.
func (s *statCardService) DeleteStatCard(ctx context.Context, ac *AccountContext, cardID string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND account_id = ?", cardID, ac.Account.ID).
		Delete(&models.CustomStatCard{})
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrStatCardNotFound
	}
	return nil
}
