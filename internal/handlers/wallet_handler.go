package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"kasku/internal/models"
	"kasku/internal/services"
)

// WalletHandler handles wallet and ledger requests.
type WalletHandler struct {
	walletService services.WalletServicer
	auditService  services.AuditServicer
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletService services.WalletServicer, auditService services.AuditServicer) *WalletHandler {
	return &WalletHandler{walletService: walletService, auditService: auditService}
}

// CreateWalletRequest represents the request payload for creating a wallet.
type CreateWalletRequest struct {
	Name          string            `json:"name" binding:"required,min=1,max=100"`
	Type          models.WalletType `json:"type" binding:"omitempty,wallet_type"`
	Provider      string            `json:"provider" binding:"max=100"`
	AccountNumber string            `json:"accountNumber" binding:"max=64"`
	Color         string            `json:"color" binding:"omitempty,color"`
	Balance       decimal.Decimal   `json:"balance" binding:"gte=0"`
}

// UpdateWalletRequest represents the request payload for updating a wallet.
type UpdateWalletRequest struct {
	Name          *string            `json:"name" binding:"omitempty,min=1,max=100"`
	Type          *models.WalletType `json:"type" binding:"omitempty,wallet_type"`
	Provider      *string            `json:"provider" binding:"omitempty,max=100"`
	AccountNumber *string            `json:"accountNumber" binding:"omitempty,max=64"`
	Color         *string            `json:"color" binding:"omitempty,color"`
}

// AdjustBalanceRequest increases or decreases a wallet balance.
type AdjustBalanceRequest struct {
	Action string          `json:"action" binding:"required,adjust_action"`
	Amount decimal.Decimal `json:"amount" binding:"required,gt=0"`
	Note   string          `json:"note" binding:"max=255"`
}

// TransferRequest moves funds between two wallets of the account.
type TransferRequest struct {
	SourceWalletID string          `json:"sourceWalletId" binding:"required,uuid"`
	TargetWalletID string          `json:"targetWalletId" binding:"required,uuid"`
	Amount         decimal.Decimal `json:"amount" binding:"required,gt=0"`
	Note           string          `json:"note" binding:"max=255"`
	MemberID       *string         `json:"memberId"`
}

// ListWallets lists the account's wallets.
// @Summary     List wallets
// @Tags        wallets
// @Produce     json
// @Security    BearerAuth
// @Param       account path string true "Account slug"
// @Success     200 {object} map[string][]models.Wallet "Wallets"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /{account}/wallets [get]
func (h *WalletHandler) ListWallets(c *gin.Context) {
	ac, err := getAccountContext(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	wallets, err := h.walletService.ListWallets(c.Request.Context(), ac)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"wallets": wallets})
}

// GetWallet returns one wallet.
// @Summary     Get a wallet
// @Tags        wallets
// @Produce     json
// @Security    BearerAuth
// @Param       account path string true "Account slug"
// @Param       id      path string true "Wallet ID"
// @Success     200 {object} map[string]models.Wallet "Wallet"
// @Failure     404 {object} ErrorResponse "Wallet not found"
// @Router      /{account}/wallets/{id} [get]
func (h *WalletHandler) GetWallet(c *gin.Context) {
	ac, err := getAccountContext(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	walletID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	wallet, err := h.walletService.GetWallet(c.Request.Context(), ac, walletID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"wallet": wallet})
}

// CreateWallet handles the creation of a new wallet.
// @Summary     Create a wallet
// @Tags        wallets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       account path string true "Account slug"
// @Param       request body CreateWalletRequest true "Wallet details"
// @Success     201 {object} map[string]models.Wallet "Wallet created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /{account}/wallets [post]
func (h *WalletHandler) CreateWallet(c *gin.Context) {
	ac, err := getAccountContext(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	wallet, err := h.walletService.CreateWallet(c.Request.Context(), ac, services.CreateWalletInput{
		Name:          req.Name,
		Type:          req.Type,
		Provider:      req.Provider,
		AccountNumber: req.AccountNumber,
		Color:         req.Color,
		Balance:       req.Balance,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), ac, "CREATE_WALLET", "wallet", wallet.ID, c.ClientIP(),
		map[string]any{"name": wallet.Name, "balance": wallet.Balance.String()})

	c.JSON(http.StatusCreated, gin.H{"wallet": wallet})
}

// UpdateWallet updates wallet metadata. The balance changes only through
// adjust and transfer.
// @Summary     Update a wallet
// @Tags        wallets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       account path string true "Account slug"
// @Param       id      path string true "Wallet ID"
// @Param       request body UpdateWalletRequest true "Fields to update"
// @Success     200 {object} map[string]models.Wallet "Wallet updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Wallet not found"
// @Router      /{account}/wallets/{id} [patch]
func (h *WalletHandler) UpdateWallet(c *gin.Context) {
	ac, err := getAccountContext(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	walletID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	wallet, err := h.walletService.UpdateWallet(c.Request.Context(), ac, walletID, services.UpdateWalletInput{
		Name:          req.Name,
		Type:          req.Type,
		Provider:      req.Provider,
		AccountNumber: req.AccountNumber,
		Color:         req.Color,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"wallet": wallet})
}

// DeleteWallet deletes a wallet. Its transactions are kept.
// @Summary     Delete a wallet
// @Tags        wallets
// @Produce     json
// @Security    BearerAuth
// @Param       account path string true "Account slug"
// @Param       id      path string true "Wallet ID"
// @Success     200 {object} DeletedResponse "Wallet deleted"
// @Failure     404 {object} ErrorResponse "Wallet not found"
// @Router      /{account}/wallets/{id} [delete]
func (h *WalletHandler) DeleteWallet(c *gin.Context) {
	ac, err := getAccountContext(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	walletID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.walletService.DeleteWallet(c.Request.Context(), ac, walletID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), ac, "DELETE_WALLET", "wallet", walletID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, DeletedResponse{Success: true})
}

// AdjustBalance increases or decreases the wallet balance and records the
// matching adjustment transaction.
// @Summary     Adjust wallet balance
// @Tags        wallets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       account path string true "Account slug"
// @Param       id      path string true "Wallet ID"
// @Param       request body AdjustBalanceRequest true "Adjustment"
// @Success     200 {object} services.AdjustResult "Wallet and adjustment transaction"
// @Failure     400 {object} ErrorResponse "Invalid input or insufficient balance"
// @Failure     404 {object} ErrorResponse "Wallet not found"
// @Router      /{account}/wallets/{id}/adjust [post]
func (h *WalletHandler) AdjustBalance(c *gin.Context) {
	ac, err := getAccountContext(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	walletID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AdjustBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	delta := req.Amount
	if req.Action == "decrease" {
		delta = delta.Neg()
	}

	result, err := h.walletService.AdjustBalance(c.Request.Context(), ac, walletID, delta, req.Note)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), ac, "ADJUST_WALLET", "wallet", walletID, c.ClientIP(),
		map[string]any{"action": req.Action, "amount": req.Amount.String(), "balance": result.Wallet.Balance.String()})

	c.JSON(http.StatusOK, result)
}

// Transfer moves funds between two wallets. Owner only.
// @Summary     Transfer between wallets
// @Tags        wallets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       account path string true "Account slug"
// @Param       request body TransferRequest true "Transfer"
// @Success     200 {object} services.TransferResult "Both wallets and the two transfer transactions"
// @Failure     400 {object} ErrorResponse "Invalid input, same wallet or insufficient balance"
// @Failure     403 {object} ErrorResponse "Owner required"
// @Failure     404 {object} ErrorResponse "Wallet not found"
// @Router      /{account}/wallets/transfer [post]
func (h *WalletHandler) Transfer(c *gin.Context) {
	ac, err := getAccountContext(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}
	if err := optionalID("memberId", req.MemberID); err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.walletService.Transfer(c.Request.Context(), ac, services.TransferInput{
		SourceWalletID: req.SourceWalletID,
		TargetWalletID: req.TargetWalletID,
		Amount:         req.Amount,
		Note:           req.Note,
		MemberID:       req.MemberID,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), ac, "WALLET_TRANSFER", "wallet", req.SourceWalletID, c.ClientIP(),
		map[string]any{"targetWalletId": req.TargetWalletID, "amount": req.Amount.String()})

	c.JSON(http.StatusOK, result)
}
