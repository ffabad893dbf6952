package auth

import (
	"errors"
	"net/http"

	"authservice/internal/domain"
	"authservice/internal/middleware"
	"authservice/internal/pkg/response"
	"authservice/internal/pkg/validator"

	"github.com/gin-gonic/gin"
)

// Handler manages all HTTP interactions for authentication
type Handler struct {
	service *Service
}

// NewHandler creates a new auth handler with injected service
func NewHandler(service *Service) *Handler {
	validator.RegisterGinValidators()
	return &Handler{service: service}
}

// RegisterPublicRoutes mounts register, login and refresh. extra runs
// before the login and refresh handlers (rate limiting).
func (h *Handler) RegisterPublicRoutes(v1 *gin.RouterGroup, extra ...gin.HandlerFunc) {
	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", withExtra(extra, h.Login)...)
		authGroup.POST("/refresh", withExtra(extra, h.Refresh)...)
	}
}

// withExtra copies extra so routes never share its backing array.
func withExtra(extra []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	return append(append(make([]gin.HandlerFunc, 0, len(extra)+1), extra...), h)
}

// RegisterProtectedRoutes expects protected to run JWTAuth already.
func (h *Handler) RegisterProtectedRoutes(protected *gin.RouterGroup) {
	me := protected.Group("/users/me")
	{
		me.GET("", h.GetMe)
		me.PUT("", h.UpdateProfile)
		me.PATCH("", h.UpdateProfile)
		me.POST("/logout", h.Logout)
		me.POST("/change-password", h.ChangePassword)
		me.GET("/sessions", h.ListSessions)
		me.DELETE("/sessions", h.RevokeAllSessions)
		me.DELETE("/sessions/:id", h.RevokeSession)
	}
}

// Register creates an account with the default role.
// @Summary		Register a user
// @Tags		Auth
// @Param		request	body	RegisterRequest	true	"username, email, password"
// @Success		201	{object}	map[string]interface{}
// @Failure		400	{object}	map[string]interface{} "validation error"
// @Failure		409	{object}	map[string]interface{} "email or username taken"
// @Router		/auth/register [POST]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bind(c, &req) {
		return
	}

	user, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"user": NewUserPublic(user)})
}

// Login exchanges credentials for a token pair.
// @Summary		Log in
// @Tags		Auth
// @Param		request	body	LoginRequest	true	"email, password"
// @Success		200	{object}	map[string]interface{}
// @Failure		401	{object}	map[string]interface{} "invalid credentials"
// @Router		/auth/login [POST]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if !bind(c, &req) {
		return
	}

	result, err := h.service.Login(c.Request.Context(), req.Email, req.Password, clientMeta(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"access_token":  result.Tokens.AccessToken,
		"refresh_token": result.Tokens.RefreshToken,
		"token_type":    result.Tokens.TokenType,
		"expires_in":    result.Tokens.ExpiresIn,
		"session_id":    result.Tokens.SessionID,
		"user":          NewUserPublic(result.User),
	})
}

// Refresh rotates a refresh token.
// @Summary		Refresh tokens
// @Tags		Auth
// @Param		request	body	RefreshRequest	true	"refresh_token"
// @Success		200	{object}	TokenPair
// @Failure		401	{object}	map[string]interface{} "invalid or expired refresh token"
// @Router		/auth/refresh [POST]
func (h *Handler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if !bind(c, &req) {
		return
	}

	pair, err := h.service.Refresh(c.Request.Context(), req.RefreshToken, clientMeta(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, pair)
}

func (h *Handler) GetMe(c *gin.Context) {
	rc := middleware.MustCurrentUser(c)

	user, err := h.service.GetCurrentUser(c.Request.Context(), rc.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": profileResponse(user)})
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	rc := middleware.MustCurrentUser(c)

	var req UpdateProfileRequest
	if !bind(c, &req) {
		return
	}

	user, err := h.service.UpdateProfile(c.Request.Context(), rc.UserID, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": profileResponse(user)})
}

// Logout always answers 200 unless storage fails.
func (h *Handler) Logout(c *gin.Context) {
	var req LogoutRequest
	if c.Request.ContentLength != 0 {
		if !bind(c, &req) {
			return
		}
	}

	if err := h.service.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *Handler) ChangePassword(c *gin.Context) {
	rc := middleware.MustCurrentUser(c)

	var req ChangePasswordRequest
	if !bind(c, &req) {
		return
	}

	pair, err := h.service.ChangePassword(c.Request.Context(), rc.UserID, req.CurrentPassword, req.NewPassword, clientMeta(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, pair)
}

func (h *Handler) ListSessions(c *gin.Context) {
	rc := middleware.MustCurrentUser(c)

	sessions, err := h.service.ListSessions(c.Request.Context(), rc.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}

	out := make([]SessionResponse, 0, len(sessions))
	for i := range sessions {
		out = append(out, NewSessionResponse(&sessions[i]))
	}
	response.Success(c, http.StatusOK, gin.H{"sessions": out})
}

func (h *Handler) RevokeSession(c *gin.Context) {
	rc := middleware.MustCurrentUser(c)

	if err := h.service.RevokeSession(c.Request.Context(), rc.UserID, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Session revoked"})
}

func (h *Handler) RevokeAllSessions(c *gin.Context) {
	rc := middleware.MustCurrentUser(c)

	var req RevokeAllSessionsRequest
	if c.Request.ContentLength != 0 {
		if !bind(c, &req) {
			return
		}
	}

	n, err := h.service.RevokeAllSessions(c.Request.Context(), rc.UserID, req.CurrentRefreshToken)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"revoked": n})
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
	case errors.Is(err, ErrInvalidOrExpiredToken):
		response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired refresh token")
	case errors.Is(err, ErrUserAlreadyExists):
		response.Error(c, http.StatusConflict, "USER_EXISTS", "Email or username is already registered")
	case errors.Is(err, ErrSessionNotFound):
		response.Error(c, http.StatusNotFound, "SESSION_NOT_FOUND", "Session not found")
	case errors.Is(err, ErrUserNotFound):
		response.Error(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", validator.Errors(err))
		return false
	}
	return true
}

func clientMeta(c *gin.Context) domain.ClientMeta {
	return domain.ClientMeta{
		UserAgent: c.Request.UserAgent(),
		IP:        c.ClientIP(),
	}
}
