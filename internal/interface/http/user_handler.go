package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/m0hi1/voyageiq/internal/application"
	"github.com/m0hi1/voyageiq/internal/interface/middleware"
	"github.com/m0hi1/voyageiq/pkg/response"
	"github.com/m0hi1/voyageiq/pkg/validation"
)

// UserHandler serves the profile and admin endpoints sitting behind the
// authorization guard.
type UserHandler struct {
	Svc    *application.UserService
	Logger *logrus.Logger
}

func NewUserHandler(svc *application.UserService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

type UpdateProfileRequest struct {
	Username  string `json:"username" binding:"omitempty,uname"`
	AvatarURL string `json:"avatarUrl" binding:"omitempty,url"`
}

// Me GET /api/users/me
func (h *UserHandler) Me(c *gin.Context) {
	ident, _ := middleware.IdentityFrom(c)
	u, err := h.Svc.GetProfile(c.Request.Context(), ident.ID)
	if err != nil {
		response.Error(c, http.StatusNotFound, "user not found", nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": userView(u)}, "profile", nil)
}

// UpdateMe PATCH /api/users/me
func (h *UserHandler) UpdateMe(c *gin.Context) {
	ident, _ := middleware.IdentityFrom(c)
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.UpdateProfile(c.Request.Context(), ident.ID, application.UpdateProfileInput{
		Username:  req.Username,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		switch {
		case errors.Is(err, application.ErrUsernameTaken):
			response.Error(c, http.StatusConflict, err.Error(), nil)
		case errors.Is(err, application.ErrUserNotFound):
			response.Error(c, http.StatusNotFound, "user not found", nil)
		default:
			h.Logger.WithError(err).Error("update profile failed")
			response.Error(c, http.StatusInternalServerError, "could not update profile", nil)
		}
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": userView(u)}, "profile updated", nil)
}

// UploadAvatar POST /api/users/me/avatar (multipart field "avatar")
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	ident, _ := middleware.IdentityFrom(c)
	file, err := c.FormFile("avatar")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "avatar file is required", nil)
		return
	}
	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, "could not read avatar file", nil)
		return
	}
	defer func() { _ = f.Close() }()

	url, err := h.Svc.UploadAvatar(c.Request.Context(), ident.ID, f, file.Filename, file.Header.Get("Content-Type"))
	if err != nil {
		h.Logger.WithError(err).Error("avatar upload failed")
		response.Error(c, http.StatusInternalServerError, "avatar upload failed", nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"avatarUrl": url}, "avatar updated", nil)
}

// GetUser GET /api/users/:id (self or admin; enforced by the route)
func (h *UserHandler) GetUser(c *gin.Context) {
	u, err := h.Svc.GetProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusNotFound, "user not found", nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": userView(u)}, "user", nil)
}

// Search GET /api/users/search?q= (admin only; enforced by the route)
func (h *UserHandler) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		response.Error(c, http.StatusBadRequest, "query parameter q is required", nil)
		return
	}
	hits, err := h.Svc.SearchUsers(c.Request.Context(), q, 10)
	if err != nil {
		h.Logger.WithError(err).Error("user search failed")
		response.Error(c, http.StatusInternalServerError, "search failed", nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"results": hits}, "search results", gin.H{"count": len(hits)})
}
