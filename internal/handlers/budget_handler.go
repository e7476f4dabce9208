package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "kasku/internal/errors"
	"kasku/internal/models"
	"kasku/internal/services"
)

// BudgetHandler handles budget-related requests.
type BudgetHandler struct {
	budgetService services.BudgetServicer
	auditService  services.AuditServicer
}

// NewBudgetHandler creates a new BudgetHandler.
func NewBudgetHandler(budgetService services.BudgetServicer, auditService services.AuditServicer) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService, auditService: auditService}
}

// CreateBudgetRequest represents the request payload for creating a budget.
type CreateBudgetRequest struct {
	Category    string              `json:"category" binding:"required,min=1,max=100"`
	Amount      decimal.Decimal     `json:"amount" binding:"required,gt=0"`
	SpentAmount decimal.Decimal     `json:"spentAmount" binding:"gte=0"`
	Period      models.BudgetPeriod `json:"period" binding:"omitempty,budget_period"`
	StartDate   time.Time           `json:"startDate" binding:"required"`
	EndDate     *time.Time          `json:"endDate"`
	Status      models.BudgetStatus `json:"status" binding:"omitempty,oneof=on-track warning over-budget"`
}

// UpdateBudgetRequest represents the request payload for updating a budget.
type UpdateBudgetRequest struct {
	Category    *string              `json:"category" binding:"omitempty,min=1,max=100"`
	Amount      *decimal.Decimal     `json:"amount" binding:"omitempty,gt=0"`
	SpentAmount *decimal.Decimal     `json:"spentAmount" binding:"omitempty,gte=0"`
	Period      *models.BudgetPeriod `json:"period" binding:"omitempty,budget_period"`
	StartDate   *time.Time           `json:"startDate"`
	EndDate     *time.Time           `json:"endDate"`
	Status      *models.BudgetStatus `json:"status" binding:"omitempty,oneof=on-track warning over-budget"`
}

// CreateBudget handles the creation of a new budget.
// @Summary     Create a budget
// @Description Create a spending cap for a category. Status is derived from the amounts when omitted.
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       account path string true "Account slug"
// @Param       request body CreateBudgetRequest true "Budget details"
// @Success     201 {object} map[string]models.Budget "Budget created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /{account}/budgets [post]
func (h *BudgetHandler) CreateBudget(c *gin.Context) {
	ac, err := getAccountContext(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	budget, err := h.budgetService.CreateBudget(c.Request.Context(), ac, services.CreateBudgetInput{
		Category:    req.Category,
		Amount:      req.Amount,
		SpentAmount: req.SpentAmount,
		Period:      req.Period,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Status:      req.Status,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), ac, "CREATE_BUDGET", "budget", budget.ID, c.ClientIP(),
		map[string]any{"category": budget.Category, "amount": budget.Amount.String(), "period": budget.Period})

	c.JSON(http.StatusCreated, gin.H{"budget": budget})
}

// ListBudgets handles listing the account's budgets.
// @Summary     List budgets
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       account path  string true  "Account slug"
// @Param       period  query string false "Filter by period (weekly/monthly/yearly)"
// @Success     200 {object} map[string][]models.Budget "Budgets"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /{account}/budgets [get]
func (h *BudgetHandler) ListBudgets(c *gin.Context) {
	ac, err := getAccountContext(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var period *models.BudgetPeriod
	if v := c.Query("period"); v != "" {
		p := models.BudgetPeriod(v)
		switch p {
		case models.BudgetPeriodWeekly, models.BudgetPeriodMonthly, models.BudgetPeriodYearly:
			period = &p
		default:
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "period must be 'weekly', 'monthly' or 'yearly'"))
			return
		}
	}

	budgets, err := h.budgetService.ListBudgets(c.Request.Context(), ac, period)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budgets": budgets})
}

// UpdateBudget handles updating a budget.
// @Summary     Update a budget
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       account path string true "Account slug"
// @Param       id      path string true "Budget ID"
// @Param       request body UpdateBudgetRequest true "Fields to update"
// @Success     200 {object} map[string]models.Budget "Budget updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Router      /{account}/budgets/{id} [patch]
func (h *BudgetHandler) UpdateBudget(c *gin.Context) {
	ac, err := getAccountContext(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	budget, err := h.budgetService.UpdateBudget(c.Request.Context(), ac, budgetID, services.UpdateBudgetInput{
		Category:    req.Category,
		Amount:      req.Amount,
		SpentAmount: req.SpentAmount,
		Period:      req.Period,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Status:      req.Status,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budget": budget})
}

// DeleteBudget handles deleting a budget.
// @Summary     Delete a budget
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       account path string true "Account slug"
// @Param       id      path string true "Budget ID"
// @Success     200 {object} DeletedResponse "Budget deleted"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Router      /{account}/budgets/{id} [delete]
func (h *BudgetHandler) DeleteBudget(c *gin.Context) {
	ac, err := getAccountContext(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.budgetService.DeleteBudget(c.Request.Context(), ac, budgetID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), ac, "DELETE_BUDGET", "budget", budgetID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, DeletedResponse{Success: true})
}

// GetBudgetProgress handles retrieving spending progress for a budget.
// @Summary     Get budget progress
// @Description Recompute spending for the budget's current period
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       account path string true "Account slug"
// @Param       id      path string true "Budget ID"
// @Success     200 {object} map[string]services.BudgetProgress "Budget progress"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Router      /{account}/budgets/{id}/progress [get]
func (h *BudgetHandler) GetBudgetProgress(c *gin.Context) {
	ac, err := getAccountContext(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	progress, err := h.budgetService.GetBudgetProgress(c.Request.Context(), ac, budgetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"progress": progress})
}
