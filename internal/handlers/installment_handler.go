package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"kasku/internal/models"
	"kasku/internal/services"
)

// InstallmentHandler handles installment requests.
type InstallmentHandler struct {
	installmentService services.InstallmentServicer
	auditService       services.AuditServicer
}

// NewInstallmentHandler creates a new InstallmentHandler.
func NewInstallmentHandler(installmentService services.InstallmentServicer, auditService services.AuditServicer) *InstallmentHandler {
	return &InstallmentHandler{installmentService: installmentService, auditService: auditService}
}

// CreateInstallmentRequest represents the request payload for creating an installment.
type CreateInstallmentRequest struct {
	Name              string                   `json:"name" binding:"required,min=1,max=100"`
	Type              string                   `json:"type" binding:"required,min=1,max=50"`
	Provider          string                   `json:"provider" binding:"max=100"`
	MonthlyAmount     decimal.Decimal          `json:"monthlyAmount" binding:"required,gt=0"`
	RemainingAmount   *decimal.Decimal         `json:"remainingAmount" binding:"required,gte=0"`
	RemainingPayments *int                     `json:"remainingPayments" binding:"omitempty,gte=0"`
	DueDate           time.Time                `json:"dueDate" binding:"required"`
	Status            models.InstallmentStatus `json:"status" binding:"omitempty,oneof=active paid overdue"`
}

// UpdateInstallmentRequest represents the request payload for updating an installment.
type UpdateInstallmentRequest struct {
	Name              *string                   `json:"name" binding:"omitempty,min=1,max=100"`
	Type              *string                   `json:"type" binding:"omitempty,min=1,max=50"`
	Provider          *string                   `json:"provider" binding:"omitempty,max=100"`
	MonthlyAmount     *decimal.Decimal          `json:"monthlyAmount" binding:"omitempty,gt=0"`
	RemainingAmount   *decimal.Decimal          `json:"remainingAmount" binding:"omitempty,gte=0"`
	RemainingPayments *int                      `json:"remainingPayments" binding:"omitempty,gte=0"`
	DueDate           *time.Time                `json:"dueDate"`
	Status            *models.InstallmentStatus `json:"status" binding:"omitempty,oneof=active paid overdue"`
}

// PayInstallmentRequest records one payment, optionally debiting a wallet.
type PayInstallmentRequest struct {
	WalletID *string `json:"walletId"`
	Note     string  `json:"note" binding:"max=255"`
}

// ListInstallments lists the account's installments, soonest due first.
// @Summary     List installments
// @Tags        installments
// @Produce     json
// @Security    BearerAuth
// @Param       account path string true "Account slug"
// @Success     200 {object} map[string][]models.Installment "Installments"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /{account}/installments [get]
func (h *InstallmentHandler) ListInstallments(c *gin.Context) {
	ac, err := getAccountContext(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	installments, err := h.installmentService.ListInstallments(c.Request.Context(), ac)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"installments": installments})
}

// CreateInstallment creates an installment.
// @Summary     Create an installment
// @Tags        installments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       account path string true "Account slug"
// @Param       request body CreateInstallmentRequest true "Installment details"
// @Success     201 {object} map[string]models.Installment "Installment created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /{account}/installments [post]
func (h *InstallmentHandler) CreateInstallment(c *gin.Context) {
	ac, err := getAccountContext(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateInstallmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	installment, err := h.installmentService.CreateInstallment(c.Request.Context(), ac, services.CreateInstallmentInput{
		Name:              req.Name,
		Type:              req.Type,
		Provider:          req.Provider,
		MonthlyAmount:     req.MonthlyAmount,
		RemainingAmount:   *req.RemainingAmount,
		RemainingPayments: req.RemainingPayments,
		DueDate:           req.DueDate,
		Status:            req.Status,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"installment": installment})
}

// UpdateInstallment applies a partial update.
// @Summary     Update an installment
// @Tags        installments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       account path string true "Account slug"
// @Param       id      path string true "Installment ID"
// @Param       request body UpdateInstallmentRequest true "Fields to update"
// @Success     200 {object} map[string]models.Installment "Installment updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Installment not found"
// @Router      /{account}/installments/{id} [patch]
func (h *InstallmentHandler) UpdateInstallment(c *gin.Context) {
	ac, err := getAccountContext(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	installmentID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateInstallmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	installment, err := h.installmentService.UpdateInstallment(c.Request.Context(), ac, installmentID, services.UpdateInstallmentInput{
		Name:              req.Name,
		Type:              req.Type,
		Provider:          req.Provider,
		MonthlyAmount:     req.MonthlyAmount,
		RemainingAmount:   req.RemainingAmount,
		RemainingPayments: req.RemainingPayments,
		DueDate:           req.DueDate,
		Status:            req.Status,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"installment": installment})
}

// DeleteInstallment deletes an installment.
// @Summary     Delete an installment
// @Tags        installments
// @Produce     json
// @Security    BearerAuth
// @Param       account path string true "Account slug"
// @Param       id      path string true "Installment ID"
// @Success     200 {object} DeletedResponse "Installment deleted"
// @Failure     404 {object} ErrorResponse "Installment not found"
// @Router      /{account}/installments/{id} [delete]
func (h *InstallmentHandler) DeleteInstallment(c *gin.Context) {
	ac, err := getAccountContext(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	installmentID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.installmentService.DeleteInstallment(c.Request.Context(), ac, installmentID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), ac, "DELETE_INSTALLMENT", "installment", installmentID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, DeletedResponse{Success: true})
}

// PayInstallment records one monthly payment.
// @Summary     Pay an installment
// @Description Pay one month. With a walletId the wallet is debited and an expense is recorded.
// @Tags        installments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       account path string true "Account slug"
// @Param       id      path string true "Installment ID"
// @Param       request body PayInstallmentRequest false "Payment source"
// @Success     200 {object} services.InstallmentPayment "Payment"
// @Failure     400 {object} ErrorResponse "Already paid or insufficient balance"
// @Failure     404 {object} ErrorResponse "Installment or wallet not found"
// @Router      /{account}/installments/{id}/pay [post]
func (h *InstallmentHandler) PayInstallment(c *gin.Context) {
	ac, err := getAccountContext(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	installmentID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req PayInstallmentRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, bindError(err))
			return
		}
	}
	if err := optionalID("walletId", req.WalletID); err != nil {
		respondWithError(c, err)
		return
	}

	payment, err := h.installmentService.PayInstallment(c.Request.Context(), ac, installmentID, services.PayInstallmentInput{
		WalletID: req.WalletID,
		Note:     req.Note,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	changes := map[string]any{"amount": payment.Amount.String()}
	if req.WalletID != nil {
		changes["walletId"] = *req.WalletID
	}
	h.auditService.Log(c.Request.Context(), ac, "PAY_INSTALLMENT", "installment", installmentID, c.ClientIP(), changes)

	c.JSON(http.StatusOK, payment)
}
