package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/m0hi1/voyageiq/internal/application"
	"github.com/m0hi1/voyageiq/internal/domain/entity"
	"github.com/m0hi1/voyageiq/pkg/helpers"
	"github.com/m0hi1/voyageiq/pkg/response"
	"github.com/m0hi1/voyageiq/pkg/validation"
)

// AuthHandler exposes registration, the two login paths, logout, and the
// password-reset handshake.
type AuthHandler struct {
	Svc     *application.AuthService
	Cookies *helpers.CookieManager
	Logger  *logrus.Logger
}

func NewAuthHandler(svc *application.AuthService, cookies *helpers.CookieManager, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Svc: svc, Cookies: cookies, Logger: logger}
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,uname"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type GoogleLoginRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Name       string `json:"name"`
	ExternalID string `json:"externalId" binding:"required"`
	PhotoURL   string `json:"photoURL" binding:"omitempty,url"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Password        string `json:"password" binding:"required,pwd"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required,eqfield=Password"`
}

// userView renders a User for API responses; the password hash and reset
// fields never leave the server.
func userView(u *entity.User) gin.H {
	return gin.H{
		"id":           u.ID,
		"username":     u.Username,
		"email":        u.Email,
		"role":         u.Role,
		"authProvider": u.AuthProvider,
		"avatarUrl":    u.AvatarURL,
		"createdAt":    u.CreatedAt,
		"updatedAt":    u.UpdatedAt,
		"lastLoginAt":  u.LastLoginAt,
	}
}

// issueSession mints one token and feeds it to both transports: the
// HttpOnly cookie and the response body.
func (h *AuthHandler) issueSession(c *gin.Context, u *entity.User, status int, message string) {
	token, exp, err := h.Svc.IssueSession(u)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "service misconfigured", nil)
		return
	}
	h.Cookies.SetSession(c, token, exp)
	response.Success(c, status, gin.H{"user": userView(u), "token": token}, message, gin.H{"expires_at": exp})
}

// Register POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrEmailTaken), errors.Is(err, application.ErrUsernameTaken):
			response.Error(c, http.StatusConflict, err.Error(), nil)
		default:
			h.Logger.WithError(err).Error("register failed")
			response.Error(c, http.StatusInternalServerError, "registration failed", nil)
		}
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"user": userView(u)}, "account created", nil)
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrUserNotFound):
			response.Error(c, http.StatusNotFound, "no account for that email", nil)
		case errors.Is(err, application.ErrNoLocalPassword):
			response.Error(c, http.StatusBadRequest, err.Error(), nil)
		case errors.Is(err, application.ErrIncorrectPassword):
			response.Error(c, http.StatusUnauthorized, "incorrect password", nil)
		default:
			h.Logger.WithError(err).Error("login failed")
			response.Error(c, http.StatusInternalServerError, "login failed", nil)
		}
		return
	}
	h.issueSession(c, u, http.StatusOK, "login successful")
}

// GoogleLogin POST /api/auth/google
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	var req GoogleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.LoginWithGoogle(c.Request.Context(), application.GoogleProfile{
		Email:    req.Email,
		Name:     req.Name,
		GoogleID: req.ExternalID,
		PhotoURL: req.PhotoURL,
	})
	if err != nil {
		switch {
		case errors.Is(err, application.ErrGoogleConflict):
			response.Error(c, http.StatusConflict, err.Error(), nil)
		default:
			h.Logger.WithError(err).Error("google login failed")
			response.Error(c, http.StatusInternalServerError, "google login failed", nil)
		}
		return
	}
	h.issueSession(c, u, http.StatusOK, "login successful")
}

// Logout POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	h.Cookies.Clear(c)
	response.Success(c, http.StatusOK, gin.H{"logged_out": true}, "logged out", nil)
}

// ForgotPassword POST /api/auth/forgot-password
//
// Unknown emails return 404. This confirms account existence, which the
// reset redemption path deliberately avoids; kept as-is pending a product
// decision on enumeration tolerance.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if _, err := h.Svc.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, application.ErrUserNotFound):
			response.Error(c, http.StatusNotFound, "no account for that email", nil)
		default:
			h.Logger.WithError(err).Error("forgot password failed")
			response.Error(c, http.StatusInternalServerError, "could not start password reset", nil)
		}
		return
	}
	response.Success(c, http.StatusOK, gin.H{"sent": true}, "reset instructions sent", nil)
}

// ResetPassword PATCH /api/auth/reset-password/:token
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.ResetPassword(c.Request.Context(), c.Param("token"), req.Password)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrResetTokenInvalid):
			response.Error(c, http.StatusBadRequest, "invalid or expired token", nil)
		default:
			h.Logger.WithError(err).Error("reset password failed")
			response.Error(c, http.StatusInternalServerError, "could not reset password", nil)
		}
		return
	}
	h.issueSession(c, u, http.StatusOK, "password updated")
}

// RefreshToken POST /api/auth/refresh-token
//
// There is no refresh mechanism; sessions last their full TTL and then the
// user logs in again. The endpoint exists so clients get an explicit 501
// instead of a 404.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	response.Error(c, http.StatusNotImplemented, "token refresh is not implemented", nil)
}
