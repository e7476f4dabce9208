package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "kasku/internal/errors"
	"kasku/internal/models"
	"kasku/internal/pagination"
	"kasku/internal/services"
	"kasku/internal/uuid"
)

// TransactionHandler handles transaction-related requests
type TransactionHandler struct {
	transactionService services.TransactionServicer
	auditService       services.AuditServicer
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(transactionService services.TransactionServicer, auditService services.AuditServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService, auditService: auditService}
}

// CreateTransactionRequest represents the request payload for creating a transaction
type CreateTransactionRequest struct {
	Type        models.TransactionType `json:"type" binding:"required,record_type"`
	Title       string                 `json:"title" binding:"required,min=1,max=255"`
	Category    string                 `json:"category" binding:"required,min=1,max=100"`
	Amount      decimal.Decimal        `json:"amount" binding:"required,gt=0"`
	OccurredAt  *time.Time             `json:"occurredAt"`
	Description string                 `json:"description" binding:"max=1000"`
	WalletID    *string                `json:"walletId"`
}

// UpdateTransactionRequest represents the request payload for updating a transaction
type UpdateTransactionRequest struct {
	Type        *models.TransactionType `json:"type" binding:"omitempty,record_type"`
	Title       *string                 `json:"title" binding:"omitempty,min=1,max=255"`
	Category    *string                 `json:"category" binding:"omitempty,min=1,max=100"`
	Amount      *decimal.Decimal        `json:"amount" binding:"omitempty,gt=0"`
	OccurredAt  *time.Time              `json:"occurredAt"`
	Description *string                 `json:"description" binding:"omitempty,max=1000"`
	WalletID    *string                 `json:"walletId"`
}

// ListTransactions lists the account's transactions.
// @Summary     List transactions
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       account  path  string true  "Account slug"
// @Param       type     query string false "income or expense"
// @Param       category query string false "Category (case-insensitive)"
// @Param       walletId query string false "Wallet ID"
// @Param       from     query string false "From date (RFC3339 or YYYY-MM-DD)"
// @Param       to       query string false "To date (RFC3339 or YYYY-MM-DD)"
// @Param       page     query int    false "Page number (default 1)"
// @Param       pageSize query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Paginated transactions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /{account}/transactions [get]
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	ac, err := getAccountContext(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	filter, err := parseTransactionFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.transactionService.ListTransactions(c.Request.Context(), ac, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func parseTransactionFilter(c *gin.Context) (services.TransactionFilter, error) {
	var filter services.TransactionFilter

	if v := c.Query("type"); v != "" {
		txType := models.TransactionType(v)
		if txType != models.TransactionTypeIncome && txType != models.TransactionTypeExpense {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "type must be income or expense")
		}
		filter.Type = &txType
	}

	if v := c.Query("category"); v != "" {
		filter.Category = &v
	}

	if v := c.Query("walletId"); v != "" {
		if !uuid.IsValid(v) {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid walletId")
		}
		filter.WalletID = &v
	}

	if v := c.Query("from"); v != "" {
		t, err := parseTime(v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid from date, use RFC3339 or YYYY-MM-DD")
		}
		filter.From = &t
	}

	if v := c.Query("to"); v != "" {
		t, err := parseTime(v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid to date, use RFC3339 or YYYY-MM-DD")
		}
		filter.To = &t
	}

	return filter, nil
}

// CreateTransaction records an income or expense. Wallet balances are not
// moved.
// @Summary     Create a transaction
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       account path string true "Account slug"
// @Param       request body CreateTransactionRequest true "Transaction details"
// @Success     201 {object} map[string]models.Transaction "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Account or wallet not found"
// @Router      /{account}/transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	ac, err := getAccountContext(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}
	if err := optionalID("walletId", req.WalletID); err != nil {
		respondWithError(c, err)
		return
	}

	txn, err := h.transactionService.CreateTransaction(c.Request.Context(), ac, services.CreateTransactionInput{
		Type:        req.Type,
		Title:       req.Title,
		Category:    req.Category,
		Amount:      req.Amount,
		OccurredAt:  req.OccurredAt,
		Description: req.Description,
		WalletID:    req.WalletID,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": txn})
}

// GetTransaction returns one transaction.
// @Summary     Get a transaction
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       account path string true "Account slug"
// @Param       id      path string true "Transaction ID"
// @Success     200 {object} map[string]models.Transaction "Transaction"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /{account}/transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	ac, err := getAccountContext(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	txn, err := h.transactionService.GetTransaction(c.Request.Context(), ac, transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": txn})
}

// UpdateTransaction applies a partial update and records the caller as the
// latest actor.
// @Summary     Update a transaction
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       account path string true "Account slug"
// @Param       id      path string true "Transaction ID"
// @Param       request body UpdateTransactionRequest true "Fields to update"
// @Success     200 {object} map[string]models.Transaction "Transaction updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /{account}/transactions/{id} [patch]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	ac, err := getAccountContext(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}
	if err := optionalID("walletId", req.WalletID); err != nil {
		respondWithError(c, err)
		return
	}

	txn, err := h.transactionService.UpdateTransaction(c.Request.Context(), ac, transactionID, services.UpdateTransactionInput{
		Type:        req.Type,
		Title:       req.Title,
		Category:    req.Category,
		Amount:      req.Amount,
		OccurredAt:  req.OccurredAt,
		Description: req.Description,
		WalletID:    req.WalletID,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": txn})
}

// DeleteTransaction deletes a transaction and records the deletion in the
// audit log.
// @Summary     Delete a transaction
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       account path string true "Account slug"
// @Param       id      path string true "Transaction ID"
// @Success     200 {object} DeletedResponse "Transaction deleted"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /{account}/transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	ac, err := getAccountContext(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transactionService.DeleteTransaction(c.Request.Context(), ac, transactionID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), ac, "DELETE_TRANSACTION", "transaction", transactionID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, DeletedResponse{Success: true})
}

// GetOverview returns monthly and per-category totals.
// @Summary     Transaction overview
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       account path  string true  "Account slug"
// @Param       months  query int    false "Months in the window (default 6, max 24)"
// @Success     200 {object} map[string]services.TransactionOverview "Overview"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /{account}/transactions/overview [get]
func (h *TransactionHandler) GetOverview(c *gin.Context) {
	ac, err := getAccountContext(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	months, err := queryInt(c, "months")
	if err != nil {
		respondWithError(c, err)
		return
	}

	overview, err := h.transactionService.GetOverview(c.Request.Context(), ac, months)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"overview": overview})
}

// SuggestCategories returns categories the account has used before.
// @Summary     Category suggestions
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       account path  string true  "Account slug"
// @Param       search  query string false "Case-insensitive prefix"
// @Param       limit   query int    false "Maximum results (default 10, max 50)"
// @Success     200 {object} map[string][]string "Categories"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /{account}/transactions/categories [get]
func (h *TransactionHandler) SuggestCategories(c *gin.Context) {
	ac, err := getAccountContext(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	limit, err := queryInt(c, "limit")
	if err != nil {
		respondWithError(c, err)
		return
	}

	categories, err := h.transactionService.SuggestCategories(c.Request.Context(), ac, c.Query("search"), limit)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}
