package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kasku/internal/services"
)

// DashboardHandler serves the account dashboard.
type DashboardHandler struct {
	dashboardService services.DashboardServicer
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboardService services.DashboardServicer) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// GetDashboard returns wallets, recent transactions, open installments,
// this month's totals and the stat card values in one payload.
// @Summary     Dashboard
// @Tags        dashboard
// @Produce     json
// @Security    BearerAuth
// @Param       account path string true "Account slug"
// @Success     200 {object} map[string]services.DashboardSummary "Dashboard"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /{account}/dashboard [get]
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	ac, err := getAccountContext(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	summary, err := h.dashboardService.GetSummary(c.Request.Context(), ac)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"dashboard": summary})
}
