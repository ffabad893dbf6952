package rbac

import (
	"errors"
	"net/http"

	"authservice/internal/pkg/response"
	"authservice/internal/pkg/validator"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	validator.RegisterGinValidators()
	return &Handler{service: service}
}

// RegisterRoutes mounts the admin API. The group must already enforce
// authentication and the admin role.
func (h *Handler) RegisterRoutes(admin *gin.RouterGroup) {
	roles := admin.Group("/roles")
	{
		roles.GET("", h.ListRoles)
		roles.POST("", h.CreateRole)
		roles.GET("/:name", h.GetRole)
		roles.PUT("/:name", h.UpdateRole)
		roles.DELETE("/:name", h.DeleteRole)
	}

	users := admin.Group("/users")
	{
		users.GET("", h.ListUsers)
		users.GET("/:id", h.GetUser)
		users.PUT("/:id/roles", h.SetUserRoles)
		users.POST("/:id/activate", h.ActivateUser)
		users.POST("/:id/deactivate", h.DeactivateUser)
	}
}

func (h *Handler) ListRoles(c *gin.Context) {
	roles, err := h.service.ListRoles(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	out := make([]RoleResponse, 0, len(roles))
	for i := range roles {
		out = append(out, NewRoleResponse(&roles[i]))
	}
	response.Success(c, http.StatusOK, gin.H{"roles": out})
}

func (h *Handler) CreateRole(c *gin.Context) {
	var req CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", validator.Errors(err))
		return
	}

	role, err := h.service.CreateRole(c.Request.Context(), req.Name, req.Description, req.Permissions)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"role": NewRoleResponse(role)})
}

func (h *Handler) GetRole(c *gin.Context) {
	role, err := h.service.GetRole(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"role": NewRoleResponse(role)})
}

func (h *Handler) UpdateRole(c *gin.Context) {
	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", validator.Errors(err))
		return
	}

	role, err := h.service.UpdateRole(c.Request.Context(), c.Param("name"), req.Description, req.Permissions)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"role": NewRoleResponse(role)})
}

func (h *Handler) DeleteRole(c *gin.Context) {
	name := c.Param("name")
	if err := h.service.DeleteRole(c.Request.Context(), name); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Role deleted", "name": name})
}

func (h *Handler) ListUsers(c *gin.Context) {
	var q ListUsersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid pagination parameters")
		return
	}

	page, err := h.service.ListUsers(c.Request.Context(), q.Page, q.PerPage)
	if err != nil {
		h.fail(c, err)
		return
	}

	users := make([]UserResponse, 0, len(page.Users))
	for i := range page.Users {
		users = append(users, NewUserResponse(&page.Users[i]))
	}
	response.Success(c, http.StatusOK, gin.H{
		"users": users,
		"pagination": gin.H{
			"page":     page.Page,
			"per_page": page.PerPage,
			"total":    page.Total,
			"pages":    page.Pages(),
		},
	})
}

func (h *Handler) GetUser(c *gin.Context) {
	user, err := h.service.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": NewUserResponse(user)})
}

func (h *Handler) SetUserRoles(c *gin.Context) {
	var req SetUserRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", validator.Errors(err))
		return
	}

	user, err := h.service.SetUserRoles(c.Request.Context(), c.Param("id"), req.Roles)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": NewUserResponse(user)})
}

func (h *Handler) ActivateUser(c *gin.Context) {
	user, err := h.service.ActivateUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": NewUserResponse(user)})
}

func (h *Handler) DeactivateUser(c *gin.Context) {
	user, err := h.service.DeactivateUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": NewUserResponse(user)})
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrRoleNotFound):
		response.Error(c, http.StatusNotFound, "ROLE_NOT_FOUND", err.Error())
	case errors.Is(err, ErrUserNotFound):
		response.Error(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
	case errors.Is(err, ErrRoleExists):
		response.Error(c, http.StatusConflict, "ROLE_EXISTS", "Role already exists")
	case errors.Is(err, ErrReservedRole):
		response.Error(c, http.StatusForbidden, "RESERVED_ROLE", err.Error())
	case errors.Is(err, ErrLastAdmin):
		response.Error(c, http.StatusForbidden, "LAST_ADMIN", err.Error())
	case errors.Is(err, ErrInvalidRoleName):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Role name must be 3-50 characters of letters, digits, '_' or '-'")
	case errors.Is(err, ErrInvalidPermission):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Permissions must be 1-100 characters of letters, digits, '_', '.', ':' or '-'")
	case errors.Is(err, ErrNoRoles):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}
