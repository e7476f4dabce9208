package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "kasku/internal/errors"
	"kasku/internal/services"
)

// AccountHandler handles account ("Kas") requests.
type AccountHandler struct {
	accountService services.AccountServicer
	auditService   services.AuditServicer
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountService services.AccountServicer, auditService services.AuditServicer) *AccountHandler {
	return &AccountHandler{accountService: accountService, auditService: auditService}
}

// CreateAccountRequest represents the request payload for creating an account.
type CreateAccountRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Slug        string `json:"slug" binding:"omitempty,max=48"`
	Description string `json:"description" binding:"max=500"`
	Currency    string `json:"currency" binding:"omitempty,len=3"`
}

// UpdateAccountRequest represents the request payload for updating an account.
type UpdateAccountRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Slug        *string `json:"slug" binding:"omitempty,max=48"`
	Description *string `json:"description" binding:"omitempty,max=500"`
	Currency    *string `json:"currency" binding:"omitempty,len=3"`
}

// SetDefaultAccountRequest selects the caller's default account.
type SetDefaultAccountRequest struct {
	Slug string `json:"slug" binding:"required"`
}

// SlugAvailability is the check-slug response.
type SlugAvailability struct {
	Slug      string `json:"slug"`
	Available bool   `json:"available"`
	Message   string `json:"message,omitempty"`
}

// CreateAccount handles the creation of a new account.
// @Summary     Create an account
// @Description Create an account owned by the caller. A slug is derived from the name when omitted.
// @Tags        accounts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateAccountRequest true "Account details"
// @Success     201 {object} map[string]services.AccountSummary "Account created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     409 {object} ErrorResponse "Slug taken"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /accounts [post]
func (h *AccountHandler) CreateAccount(c *gin.Context) {
	id, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	account, err := h.accountService.CreateAccount(c.Request.Context(), *id, services.CreateAccountInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Currency:    req.Currency,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"account": account})
}

// ListAccounts lists the caller's accounts.
// @Summary     List accounts
// @Description List every account the caller is a member of, with role and default flag
// @Tags        accounts
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string][]services.AccountSummary "Accounts"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /accounts [get]
func (h *AccountHandler) ListAccounts(c *gin.Context) {
	id, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	accounts, err := h.accountService.ListAccounts(c.Request.Context(), *id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

// CheckSlug reports whether a slug can be used.
// @Summary     Check slug availability
// @Tags        accounts
// @Produce     json
// @Security    BearerAuth
// @Param       slug query string true "Candidate slug"
// @Success     200 {object} SlugAvailability "Availability"
// @Failure     400 {object} ErrorResponse "Missing slug"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /accounts/check-slug [get]
func (h *AccountHandler) CheckSlug(c *gin.Context) {
	raw := c.Query("slug")
	if raw == "" {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "slug is required"))
		return
	}

	slug, available, err := h.accountService.CheckSlug(c.Request.Context(), raw)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidSlug) {
			c.JSON(http.StatusOK, SlugAvailability{Slug: slug, Available: false, Message: err.Error()})
			return
		}
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, SlugAvailability{Slug: slug, Available: available})
}

// GetDefaultAccount returns the caller's default account.
// @Summary     Get default account
// @Tags        accounts
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]services.AccountSummary "Default account"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "No default account"
// @Router      /accounts/default [get]
func (h *AccountHandler) GetDefaultAccount(c *gin.Context) {
	id, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	account, err := h.accountService.GetDefaultAccount(c.Request.Context(), *id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"account": account})
}

// SetDefaultAccount sets the caller's default account.
// @Summary     Set default account
// @Tags        accounts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body SetDefaultAccountRequest true "Account slug"
// @Success     200 {object} map[string]services.AccountSummary "Default account"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /accounts/default [post]
func (h *AccountHandler) SetDefaultAccount(c *gin.Context) {
	id, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req SetDefaultAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	account, err := h.accountService.SetDefaultAccount(c.Request.Context(), *id, req.Slug)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"account": account})
}

// GetAccount returns the account page payload.
// @Summary     Get account
// @Tags        accounts
// @Produce     json
// @Security    BearerAuth
// @Param       account path string true "Account slug"
// @Success     200 {object} services.AccountDetail "Account"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /{account} [get]
func (h *AccountHandler) GetAccount(c *gin.Context) {
	ac, err := getAccountContext(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	detail, err := h.accountService.GetAccount(c.Request.Context(), ac)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// UpdateAccount updates the account. Owner only.
// @Summary     Update account
// @Tags        accounts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       account path string true "Account slug"
// @Param       request body UpdateAccountRequest true "Fields to update"
// @Success     200 {object} map[string]models.Account "Account updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Owner required"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Failure     409 {object} ErrorResponse "Slug taken"
// @Router      /{account} [patch]
func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	ac, err := getAccountContext(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	account, err := h.accountService.UpdateAccount(c.Request.Context(), ac, services.UpdateAccountInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Currency:    req.Currency,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	changes := map[string]any{}
	if req.Name != nil {
		changes["name"] = *req.Name
	}
	if req.Slug != nil {
		changes["slug"] = account.Slug
	}
	h.auditService.Log(c.Request.Context(), ac, "UPDATE_ACCOUNT", "account", account.ID, c.ClientIP(), changes)

	c.JSON(http.StatusOK, gin.H{"account": account})
}
