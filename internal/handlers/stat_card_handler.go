package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kasku/internal/models"
	"kasku/internal/services"
)

// StatCardHandler handles custom dashboard stat card requests.
type StatCardHandler struct {
	statCardService services.StatCardServicer
}

// NewStatCardHandler creates a new StatCardHandler.
func NewStatCardHandler(statCardService services.StatCardServicer) *StatCardHandler {
	return &StatCardHandler{statCardService: statCardService}
}

// CreateStatCardRequest represents the request payload for creating a stat card.
type CreateStatCardRequest struct {
	Name       string                 `json:"name" binding:"required,min=1,max=100"`
	Type       models.TransactionType `json:"type" binding:"required,record_type"`
	Categories []string               `json:"categories" binding:"max=50,dive,max=100"`
	Color      string                 `json:"color" binding:"omitempty,color"`
	Icon       string                 `json:"icon" binding:"max=50"`
}

// UpdateStatCardRequest represents the request payload for updating a stat
// card. An empty color resets it to the default of the card's type.
type UpdateStatCardRequest struct {
	Name       *string                 `json:"name" binding:"omitempty,min=1,max=100"`
	Type       *models.TransactionType `json:"type" binding:"omitempty,record_type"`
	Categories *[]string               `json:"categories" binding:"omitempty,max=50,dive,max=100"`
	Color      *string                 `json:"color" binding:"omitempty,max=32"`
	Icon       *string                 `json:"icon" binding:"omitempty,max=50"`
}

// ListStatCards lists the account's stat cards.
// @Summary     List stat cards
// @Tags        stat-cards
// @Produce     json
// @Security    BearerAuth
// @Param       account path string true "Account slug"
// @Success     200 {object} map[string][]models.CustomStatCard "Stat cards"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /{account}/stat-cards [get]
func (h *StatCardHandler) ListStatCards(c *gin.Context) {
	ac, err := getAccountContext(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	cards, err := h.statCardService.ListStatCards(c.Request.Context(), ac)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"statCards": cards})
}

// CreateStatCard creates a stat card. The color defaults by type.
// @Summary     Create a stat card
// @Tags        stat-cards
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       account path string true "Account slug"
// @Param       request body CreateStatCardRequest true "Stat card details"
// @Success     201 {object} map[string]models.CustomStatCard "Stat card created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /{account}/stat-cards [post]
func (h *StatCardHandler) CreateStatCard(c *gin.Context) {
	ac, err := getAccountContext(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateStatCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	card, err := h.statCardService.CreateStatCard(c.Request.Context(), ac, services.CreateStatCardInput{
		Name:       req.Name,
		Type:       req.Type,
		Categories: req.Categories,
		Color:      req.Color,
		Icon:       req.Icon,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"statCard": card})
}

// UpdateStatCard applies a partial update.
// @Summary     Update a stat card
// @Tags        stat-cards
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       account path string true "Account slug"
// @Param       id      path string true "Stat card ID"
// @Param       request body UpdateStatCardRequest true "Fields to update"
// @Success     200 {object} map[string]models.CustomStatCard "Stat card updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Stat card not found"
// @Router      /{account}/stat-cards/{id} [patch]
func (h *StatCardHandler) UpdateStatCard(c *gin.Context) {
	ac, err := getAccountContext(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	cardID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateStatCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	card, err := h.statCardService.UpdateStatCard(c.Request.Context(), ac, cardID, services.UpdateStatCardInput{
		Name:       req.Name,
		Type:       req.Type,
		Categories: req.Categories,
		Color:      req.Color,
		Icon:       req.Icon,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"statCard": card})
}

// DeleteStatCard deletes a stat card.
// @Summary     Delete a stat card
// @Tags        stat-cards
// @Produce     json
// @Security    BearerAuth
// @Param       account path string true "Account slug"
// @Param       id      path string true "Stat card ID"
// @Success     200 {object} DeletedResponse "Stat card deleted"
// @Failure     404 {object} ErrorResponse "Stat card not found"
// @Router      /{account}/stat-cards/{id} [delete]
func (h *StatCardHandler) DeleteStatCard(c *gin.Context) {
	ac, err := getAccountContext(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	cardID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.statCardService.DeleteStatCard(c.Request.Context(), ac, cardID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, DeletedResponse{Success: true})
}
