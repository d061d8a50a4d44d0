package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/nwssu/gymdesk/backend/internal/services"
	"github.com/nwssu/gymdesk/backend/pkg/response"
)

type AuthHandler struct {
	authService   *services.AuthService
	memberService *services.MemberService
}

func NewAuthHandler(auth *services.AuthService, members *services.MemberService) *AuthHandler {
	return &AuthHandler{authService: auth, memberService: members}
}

// AdminLogin handles administrator login
// POST /api/auth/admin/login
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req services.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.authService.AdminLogin(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, resp)
}

// MemberLogin handles member login. Expired members are let in and flagged.
// POST /api/auth/member/login
func (h *AuthHandler) MemberLogin(c *gin.Context) {
	var req services.MemberLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.authService.MemberLogin(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, resp)
}

// Register handles public self-registration
// POST /api/auth/member/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.SelfRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.memberService.SelfRegister(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, result)
}

// VerifyActivation checks an email and member code before a password is chosen
// POST /api/auth/member/activate/verify
func (h *AuthHandler) VerifyActivation(c *gin.Context) {
	var req services.ActivationVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	candidate, err := h.authService.VerifyActivation(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, candidate)
}

// Activate sets the first password of an admin-registered member
// POST /api/auth/member/activate
func (h *AuthHandler) Activate(c *gin.Context) {
	var req services.ActivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.authService.Activate(c.Request.Context(), &req); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "account activated, you can now log in"})
}
