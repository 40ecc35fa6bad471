// auth_controller.go
package controller

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"medshop-backend/internal/dto"
	"medshop-backend/internal/middleware"
	"medshop-backend/internal/model"
	"medshop-backend/internal/service"
)

type AuthController struct {
	Auth *service.AuthService

	// FrontendURL habilita la cookie HttpOnly de refresh token
	FrontendURL string
	RefreshTTL  int // segundos
}

func NewAuthController(auth *service.AuthService, frontendURL string, refreshTTLSeconds int) *AuthController {
	return &AuthController{Auth: auth, FrontendURL: frontendURL, RefreshTTL: refreshTTLSeconds}
}

// POST /auth/send-otp
func (ctl *AuthController) SendOtp(c *gin.Context) {
	ctl.sendOtp(c, model.PurposeLogin)
}

// POST /auth/admin/send-otp
func (ctl *AuthController) SendAdminOtp(c *gin.Context) {
	ctl.sendOtp(c, model.PurposeAdminLogin)
}

// POST /auth/send-reset-otp
func (ctl *AuthController) SendResetOtp(c *gin.Context) {
	ctl.sendOtp(c, model.PurposeReset)
}

func (ctl *AuthController) sendOtp(c *gin.Context, purpose string) {
	var req dto.SendOtpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	res, err := ctl.Auth.SendOtp(c.Request.Context(), req.Phone, purpose)
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, res)
}

// POST /auth/verify-otp
func (ctl *AuthController) VerifyOtp(c *gin.Context) {
	var req dto.VerifyOtpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	tokens, err := ctl.Auth.VerifyOtp(c.Request.Context(), req.Phone, req.Otp)
	if err != nil {
		respondErr(c, err)
		return
	}
	ctl.setRefreshCookie(c, tokens.RefreshToken)
	respondOK(c, tokens)
}

// POST /auth/admin/verify-otp
func (ctl *AuthController) VerifyAdminOtp(c *gin.Context) {
	var req dto.VerifyOtpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	tokens, err := ctl.Auth.VerifyAdminOtp(c.Request.Context(), req.Phone, req.Otp)
	if err != nil {
		respondErr(c, err)
		return
	}
	ctl.setRefreshCookie(c, tokens.RefreshToken)
	respondOK(c, tokens)
}

// POST /auth/reset-password
func (ctl *AuthController) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := ctl.Auth.ResetPassword(c.Request.Context(), req.Phone, req.Otp, req.NewPassword); err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, gin.H{"message": "password updated"})
}

// POST /auth/refresh-token — acepta el token en el body o en la cookie
func (ctl *AuthController) RefreshToken(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if cookie, cerr := c.Cookie("refresh_token"); cerr == nil && cookie != "" {
			req.RefreshToken = cookie
		} else {
			respondBadRequest(c, err)
			return
		}
	}
	access, err := ctl.Auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, gin.H{"accessToken": access})
}

// GET /auth/me
func (ctl *AuthController) Me(c *gin.Context) {
	user, ok := middleware.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "authentication required"})
		return
	}
	respondOK(c, user)
}

// PUT /auth/me
func (ctl *AuthController) UpdateMe(c *gin.Context) {
	user, ok := middleware.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "authentication required"})
		return
	}
	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	updated, err := ctl.Auth.UpdateProfile(c.Request.Context(), user.ID, req.Name, req.Email)
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, updated)
}

func (ctl *AuthController) setRefreshCookie(c *gin.Context, refreshToken string) {
	if ctl.FrontendURL == "" || refreshToken == "" {
		return
	}
	domain := ""
	if u, err := url.Parse(ctl.FrontendURL); err == nil {
		domain = u.Hostname()
	}
	c.SetCookie("refresh_token", refreshToken, ctl.RefreshTTL, "/auth", domain, true, true)
}
