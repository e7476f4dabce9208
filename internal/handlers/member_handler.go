package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kasku/internal/services"
)

// MemberHandler handles membership requests.
type MemberHandler struct {
	memberService services.MemberServicer
	auditService  services.AuditServicer
}

// NewMemberHandler creates a new MemberHandler.
func NewMemberHandler(memberService services.MemberServicer, auditService services.AuditServicer) *MemberHandler {
	return &MemberHandler{memberService: memberService, auditService: auditService}
}

// CreateMemberRequest invites someone by email.
type CreateMemberRequest struct {
	Email string `json:"email" binding:"required,email,max=255"`
	Name  string `json:"name" binding:"max=100"`
}

// UpdateMemberRequest represents the request payload for updating a member.
type UpdateMemberRequest struct {
	Name  *string `json:"name" binding:"omitempty,max=100"`
	Email *string `json:"email" binding:"omitempty,email,max=255"`
}

// TransferOwnershipRequest names the member who becomes owner.
type TransferOwnershipRequest struct {
	MemberID string `json:"memberId" binding:"required,uuid"`
}

// ListMembers lists the account's members.
// @Summary     List members
// @Tags        members
// @Produce     json
// @Security    BearerAuth
// @Param       account path string true "Account slug"
// @Success     200 {object} map[string][]models.Member "Members"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /{account}/members [get]
func (h *MemberHandler) ListMembers(c *gin.Context) {
	ac, err := getAccountContext(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	members, err := h.memberService.ListMembers(c.Request.Context(), ac)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"members": members})
}

// CreateMember invites a member by email. The response censors the email.
// @Summary     Invite a member
// @Tags        members
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       account path string true "Account slug"
// @Param       request body CreateMemberRequest true "Invite"
// @Success     201 {object} map[string]models.Member "Member invited"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Owner required"
// @Failure     409 {object} ErrorResponse "Already a member"
// @Router      /{account}/members [post]
func (h *MemberHandler) CreateMember(c *gin.Context) {
	ac, err := getAccountContext(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	member, err := h.memberService.CreateMember(c.Request.Context(), ac, services.CreateMemberInput{
		Email: req.Email,
		Name:  req.Name,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), ac, "ADD_MEMBER", "member", member.ID, c.ClientIP(),
		map[string]any{"email": services.CensorEmail(member.Email)})

	invited := *member
	invited.Email = services.CensorEmail(member.Email)
	c.JSON(http.StatusCreated, gin.H{"member": invited})
}

// UpdateMember updates a member's name, or the email of an unlinked invite.
// @Summary     Update a member
// @Tags        members
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       account path string true "Account slug"
// @Param       id      path string true "Member ID"
// @Param       request body UpdateMemberRequest true "Fields to update"
// @Success     200 {object} map[string]models.Member "Member updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Owner required"
// @Failure     404 {object} ErrorResponse "Member not found"
// @Router      /{account}/members/{id} [patch]
func (h *MemberHandler) UpdateMember(c *gin.Context) {
	ac, err := getAccountContext(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	memberID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	member, err := h.memberService.UpdateMember(c.Request.Context(), ac, memberID, services.UpdateMemberInput{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"member": member})
}

// RemoveMember removes a member other than the owner and the caller.
// @Summary     Remove a member
// @Tags        members
// @Produce     json
// @Security    BearerAuth
// @Param       account path string true "Account slug"
// @Param       id      path string true "Member ID"
// @Success     200 {object} DeletedResponse "Member removed"
// @Failure     400 {object} ErrorResponse "Cannot remove owner or self"
// @Failure     403 {object} ErrorResponse "Owner required"
// @Failure     404 {object} ErrorResponse "Member not found"
// @Router      /{account}/members/{id} [delete]
func (h *MemberHandler) RemoveMember(c *gin.Context) {
	ac, err := getAccountContext(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	memberID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.memberService.RemoveMember(c.Request.Context(), ac, memberID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), ac, "REMOVE_MEMBER", "member", memberID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, DeletedResponse{Success: true})
}

// SelfExit removes the caller from the account. An owner hands the account
// to a successor, or deletes it when nobody else is left.
// @Summary     Leave the account
// @Tags        members
// @Produce     json
// @Security    BearerAuth
// @Param       account path string true "Account slug"
// @Success     200 {object} services.SelfExitResult "Outcome"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /{account}/members/self [post]
func (h *MemberHandler) SelfExit(c *gin.Context) {
	ac, err := getAccountContext(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.memberService.SelfExit(c.Request.Context(), ac)
	if err != nil {
		respondWithError(c, err)
		return
	}

	// Audit rows carry no foreign key, so a deleted account keeps its trail.
	changes := map[string]any{"outcome": result.Outcome}
	if result.NewOwnerID != nil {
		changes["newOwnerId"] = *result.NewOwnerID
	}
	h.auditService.Log(c.Request.Context(), ac, "SELF_EXIT", "member", ac.MemberID, c.ClientIP(), changes)

	c.JSON(http.StatusOK, result)
}

// TransferOwnership makes another member the owner and demotes the caller.
// @Summary     Transfer ownership
// @Tags        members
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       account path string true "Account slug"
// @Param       request body TransferOwnershipRequest true "New owner"
// @Success     200 {object} map[string]models.Member "New owner"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Owner required"
// @Failure     404 {object} ErrorResponse "Member not found"
// @Router      /{account}/members/transfer-ownership [post]
func (h *MemberHandler) TransferOwnership(c *gin.Context) {
	ac, err := getAccountContext(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req TransferOwnershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	owner, err := h.memberService.TransferOwnership(c.Request.Context(), ac, req.MemberID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), ac, "TRANSFER_OWNERSHIP", "member", owner.ID, c.ClientIP(),
		map[string]any{"fromMemberId": ac.MemberID})

	c.JSON(http.StatusOK, gin.H{"member": owner})
}
